package core

import (
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	cases := []struct {
		cents int64
		ok    bool
	}{
		{1, true},
		{100, true},
		{99_999_999_999, true},
		{0, false},
		{-100, false},
		{100_000_000_000, false},
	}
	for i, tc := range cases {
		err := Money{Cents: tc.cents}.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionInputValidate(t *testing.T) {
	date := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	good := TransactionInput{
		AmountCents: 1000,
		Description: "coffee beans",
		CategoryID:  "supplies",
		Date:        date,
		Type:        Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []TransactionInput{
		{AmountCents: 0, Description: "coffee beans", Date: date, Type: Expense},
		{AmountCents: 1000, Description: "ab", Date: date, Type: Expense},
		{AmountCents: 1000, Description: "coffee beans", Date: date, Type: "transfer"},
		{AmountCents: 1000, Description: "coffee beans", Type: Expense}, // zero date
	}
	for i, in := range bads {
		if err := in.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionPatchApply(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	orig := Transaction{
		ID:          "abc",
		AmountCents: 500,
		Description: "initial",
		CategoryID:  "rent",
		Date:        created,
		Type:        Expense,
		CreatedAt:   created,
	}

	amount := int64(750)
	notes := "annotated"
	got := TransactionPatch{AmountCents: &amount, Notes: &notes}.Apply(orig)

	if got.AmountCents != 750 || got.Notes != "annotated" {
		t.Fatalf("patched fields not applied: %+v", got)
	}
	if got.ID != orig.ID || !got.CreatedAt.Equal(orig.CreatedAt) {
		t.Fatalf("immutable fields changed: %+v", got)
	}
	if got.Description != orig.Description || got.CategoryID != orig.CategoryID {
		t.Fatalf("unset fields changed: %+v", got)
	}
}

func TestTransactionPatchValidate(t *testing.T) {
	badAmount := int64(0)
	shortDesc := "ab"
	badType := TransactionType("transfer")

	bads := []TransactionPatch{
		{AmountCents: &badAmount},
		{Description: &shortDesc},
		{Type: &badType},
	}
	for i, p := range bads {
		if err := p.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}

	if err := (TransactionPatch{}).Validate(); err != nil {
		t.Fatalf("empty patch should validate, got %v", err)
	}
}

func TestRecurringTransactionValidate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	good := RecurringTransaction{
		StartDate:   start,
		Every:       Monthly,
		AmountCents: 90000,
		Description: "office rent",
		CategoryID:  "rent",
		Type:        Expense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := good
	bad.EndDate = start.AddDate(0, -1, 0)
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for end before start")
	}

	bad = good
	bad.Every = "fortnightly"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for unknown repetition")
	}
}
