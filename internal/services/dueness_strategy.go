// Package services provides business logic and orchestration services.
//
// This file implements dueness checking for recurring transactions. Each
// frequency (daily, weekly, monthly, yearly) has its own strategy that
// encapsulates the logic for determining if a template is due.
package services

import (
	"fmt"
	"time"

	"tally/internal/core"
)

// DuenessChecker decides whether a recurring template should be
// materialized, given when it last ran and the current instant.
type DuenessChecker interface {
	IsDue(lastRun, now time.Time, startDate time.Time) bool
}

// DailyChecker implements DuenessChecker for daily templates.
type DailyChecker struct{}

// IsDue returns true if the last run was before today.
func (DailyChecker) IsDue(lastRun, now time.Time, _ time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	return lastRun.Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklyChecker implements DuenessChecker for weekly templates.
type WeeklyChecker struct{}

// IsDue returns true if 7 or more days have passed since the last run.
func (WeeklyChecker) IsDue(lastRun, now time.Time, _ time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	daysSince := now.Sub(lastRun).Hours() / 24
	return daysSince >= 7
}

// MonthlyChecker implements DuenessChecker for monthly templates.
type MonthlyChecker struct{}

// IsDue returns true if we're in a new month and have reached the target
// day, clamped to the last day of short months.
func (MonthlyChecker) IsDue(lastRun, now time.Time, startDate time.Time) bool {
	if lastRun.IsZero() {
		return true
	}

	// Already processed this month?
	if lastRun.Year() == now.Year() && lastRun.Month() == now.Month() {
		return false
	}

	targetDay := startDate.Day()
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}

	return now.Day() >= targetDay
}

// YearlyChecker implements DuenessChecker for yearly templates.
type YearlyChecker struct{}

// IsDue returns true if we're in a new year and have reached the target
// month and day.
func (YearlyChecker) IsDue(lastRun, now time.Time, startDate time.Time) bool {
	if lastRun.IsZero() {
		return true
	}

	if lastRun.Year() == now.Year() {
		return false
	}

	targetMonth := startDate.Month()
	targetDay := startDate.Day()

	if now.Month() < targetMonth {
		return false
	}

	if now.Month() == targetMonth {
		lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
		if targetDay > lastDayOfMonth {
			targetDay = lastDayOfMonth
		}
		return now.Day() >= targetDay
	}

	// Past the target month
	return true
}

// duenessStrategies maps repetition types to their checkers.
var duenessStrategies = map[core.Repetition]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetDuenessChecker returns the checker for a repetition type.
func GetDuenessChecker(frequency core.Repetition) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", frequency)
	}
	return checker, nil
}
