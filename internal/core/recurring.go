package core

import (
	"errors"
	"time"
)

const (
	Daily   Repetition = "daily"
	Weekly  Repetition = "weekly"
	Monthly Repetition = "monthly"
	Yearly  Repetition = "yearly"
)

type (
	Repetition string

	// RecurringTransaction is a template that the recurring processor
	// materializes into ledger transactions when due. LastRun is stamped
	// by the processor after each materialization.
	RecurringTransaction struct {
		ID          string          `json:"id"`
		StartDate   time.Time       `json:"start_date"`
		EndDate     time.Time       `json:"end_date,omitempty"`
		Every       Repetition      `json:"every"`
		AmountCents int64           `json:"amount_cents"`
		Description string          `json:"description"`
		CategoryID  string          `json:"category_id"`
		Type        TransactionType `json:"type"`
		Notes       string          `json:"notes,omitempty"`
		LastRun     time.Time       `json:"last_run,omitempty"`
		CreatedAt   time.Time       `json:"created_at"`
	}
)

func (r Repetition) IsValid() bool {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

func (rt RecurringTransaction) Validate() error {
	if rt.StartDate.IsZero() {
		return errors.New("invalid start date: " + ErrZeroDate.Error())
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate) {
		return errors.New("end date must be after start date")
	}
	if !rt.Every.IsValid() {
		return errors.New("invalid repetition type")
	}
	if err := (Money{Cents: rt.AmountCents}).Validate(); err != nil {
		return err
	}
	if err := validateDescription(rt.Description); err != nil {
		return err
	}
	if !rt.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}
