// Package recurrence decides which subscriptions fall due on a day and turns
// them into pending transactions.
//
// Each frequency (weekly, monthly, yearly) has its own strategy that
// encapsulates the anchor matching for that frequency.
package recurrence

import (
	"fmt"
	"sync"

	"fintrack/internal/core"
)

// DuenessChecker is the strategy interface for checking whether a subscription
// fires on a calendar day.
type DuenessChecker interface {
	IsDue(sub core.Subscription, day core.CalendarDate) bool
}

// WeeklyChecker fires when the weekday matches DayOfWeek (0 = Sunday).
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(sub core.Subscription, day core.CalendarDate) bool {
	return sub.DayOfWeek != nil && *sub.DayOfWeek == int(day.Weekday())
}

// MonthlyChecker fires on DayOfMonth, or on the last day of months too short
// to contain it.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(sub core.Subscription, day core.CalendarDate) bool {
	return anchorMatches(sub.DayOfMonth, day)
}

// YearlyChecker fires on DayOfMonth of Month, clamped like MonthlyChecker so a
// Feb 29 anchor fires on Feb 28 in common years.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(sub core.Subscription, day core.CalendarDate) bool {
	if sub.Month == nil || *sub.Month != int(day.Month) {
		return false
	}
	return anchorMatches(sub.DayOfMonth, day)
}

func anchorMatches(anchor *int, day core.CalendarDate) bool {
	if anchor == nil || *anchor < 1 || *anchor > 31 {
		return false
	}
	return core.ClampDay(day.Year, day.Month, *anchor) == day.Day
}

var (
	strategiesMu      sync.RWMutex
	duenessStrategies = map[core.Frequency]DuenessChecker{
		core.Weekly:  WeeklyChecker{},
		core.Monthly: MonthlyChecker{},
		core.Yearly:  YearlyChecker{},
	}
)

// GetDuenessChecker returns the checker registered for a frequency.
func GetDuenessChecker(frequency core.Frequency) (DuenessChecker, error) {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency %q: %w", frequency, core.ErrValidation)
	}
	return checker, nil
}

// RegisterDuenessChecker adds or replaces the checker for a frequency.
func RegisterDuenessChecker(frequency core.Frequency, checker DuenessChecker) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	duenessStrategies[frequency] = checker
}

// IsDue reports whether sub fires on day. Inactive subscriptions never fire.
func IsDue(sub core.Subscription, day core.CalendarDate) (bool, error) {
	if !sub.IsActive {
		return false, nil
	}
	checker, err := GetDuenessChecker(sub.Frequency)
	if err != nil {
		return false, err
	}
	return checker.IsDue(sub, day), nil
}

// maxLookahead covers a full leap year, the longest gap between occurrences.
const maxLookahead = 366

// NextOccurrence returns the first day on or after from on which sub fires.
func NextOccurrence(sub core.Subscription, from core.CalendarDate) (core.CalendarDate, bool) {
	checker, err := GetDuenessChecker(sub.Frequency)
	if err != nil {
		return core.CalendarDate{}, false
	}
	d := from
	for i := 0; i <= maxLookahead; i++ {
		if checker.IsDue(sub, d) {
			return d, true
		}
		d = d.AddDays(1)
	}
	return core.CalendarDate{}, false
}
