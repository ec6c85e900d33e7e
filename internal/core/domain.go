package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Advisory validation bounds. These are checked at the API boundary;
// the ledger store itself accepts whatever it is handed.
const (
	MinAmountCents = 1              // 0.01
	MaxAmountCents = 99_999_999_999 // 999,999,999.99

	MinDescriptionLen = 3
	MaxDescriptionLen = 200
)

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is the sole ledger entity. Amount is always positive;
	// the direction of cash flow is carried by Type alone.
	Transaction struct {
		ID          string          `json:"id"`
		AmountCents int64           `json:"amount_cents"`
		Description string          `json:"description"`
		CategoryID  string          `json:"category_id"`
		Date        time.Time       `json:"date"`
		Type        TransactionType `json:"type"`
		ImageURI    string          `json:"image_uri,omitempty"`
		Notes       string          `json:"notes,omitempty"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	// TransactionInput is a Transaction minus the fields the store assigns.
	TransactionInput struct {
		AmountCents int64
		Description string
		CategoryID  string
		Date        time.Time
		Type        TransactionType
		ImageURI    string
		Notes       string
	}

	// TransactionPatch is a partial update. Nil fields are left untouched.
	// ID and CreatedAt are immutable after creation and deliberately have
	// no counterpart here.
	TransactionPatch struct {
		AmountCents *int64
		Description *string
		CategoryID  *string
		Date        *time.Time
		Type        *TransactionType
		ImageURI    *string
		Notes       *string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrZeroDate         = errors.New("date cannot be zero")
)

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (m Money) Validate() error {
	if m.Cents < MinAmountCents || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

func validateDescription(desc string) error {
	desc = strings.TrimSpace(desc)
	if len(desc) < MinDescriptionLen {
		return ErrEmptyDescription
	}
	if len(desc) > MaxDescriptionLen {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// Validate applies the advisory bounds of the input contract: amount
// within 0.01..999,999,999.99, description 3..200 characters, a known
// type and a non-zero date. CategoryID is not checked; unresolvable
// categories fall back to the unknown placeholder at display time.
func (in TransactionInput) Validate() error {
	if err := (Money{Cents: in.AmountCents}).Validate(); err != nil {
		return err
	}
	if err := validateDescription(in.Description); err != nil {
		return err
	}
	if !in.Type.IsValid() {
		return ErrInvalidType
	}
	if in.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// Validate checks only the fields the patch actually carries.
func (p TransactionPatch) Validate() error {
	if p.AmountCents != nil {
		if err := (Money{Cents: *p.AmountCents}).Validate(); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Type != nil && !p.Type.IsValid() {
		return ErrInvalidType
	}
	if p.Date != nil && p.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// Apply merges the patch over t, leaving unset fields untouched.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.AmountCents != nil {
		t.AmountCents = *p.AmountCents
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.ImageURI != nil {
		t.ImageURI = *p.ImageURI
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	return t
}
