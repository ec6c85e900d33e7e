// Package categories holds the fixed category catalog.
//
// The catalog is not persisted and carries no referential integrity:
// a transaction may reference any id, and ids that do not resolve fall
// back to the Unknown placeholder at display time.
package categories

import "tally/internal/core"

type Category struct {
	ID   string               `json:"id"`
	Name string               `json:"name"`
	Icon string               `json:"icon"`
	Type core.TransactionType `json:"type"`
}

// Unknown is the placeholder returned for unresolvable category ids.
var Unknown = Category{ID: "unknown", Name: "Unknown", Icon: "help-circle", Type: core.Expense}

var catalog = []Category{
	{ID: "sales", Name: "Sales", Icon: "shopping-bag", Type: core.Income},
	{ID: "services", Name: "Services", Icon: "tool", Type: core.Income},
	{ID: "other_income", Name: "Other Income", Icon: "plus-circle", Type: core.Income},

	{ID: "inventory", Name: "Inventory", Icon: "package", Type: core.Expense},
	{ID: "supplies", Name: "Supplies", Icon: "shopping-cart", Type: core.Expense},
	{ID: "rent", Name: "Rent", Icon: "home", Type: core.Expense},
	{ID: "utilities", Name: "Utilities", Icon: "zap", Type: core.Expense},
	{ID: "transport", Name: "Transport", Icon: "truck", Type: core.Expense},
	{ID: "salary", Name: "Salary", Icon: "users", Type: core.Expense},
	{ID: "other_expense", Name: "Other Expense", Icon: "minus-circle", Type: core.Expense},
}

// All returns the full catalog in its fixed order.
func All() []Category {
	out := make([]Category, len(catalog))
	copy(out, catalog)
	return out
}

// Get resolves an id to its category, falling back to Unknown.
func Get(id string) Category {
	for _, c := range catalog {
		if c.ID == id {
			return c
		}
	}
	return Unknown
}

// ByType returns the catalog subset for a transaction type.
func ByType(t core.TransactionType) []Category {
	var out []Category
	for _, c := range catalog {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
