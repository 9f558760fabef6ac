// Package billing computes credit-card invoice windows and the debt that
// falls into them.
package billing

import (
	"time"

	"fintrack/internal/core"
)

// InvoiceWindow is the billing cycle that contains a given day.
// Start is 00:00:00.000 of the day after the previous closing day, End is
// 23:59:59.999 of the closing day and DueDate is midnight of the payment day.
type InvoiceWindow struct {
	InvoiceStartDate time.Time
	InvoiceEndDate   time.Time
	DueDate          time.Time
}

// Contains reports whether t falls inside the window, both ends included.
func (w InvoiceWindow) Contains(t time.Time) bool {
	return !t.Before(w.InvoiceStartDate) && !t.After(w.InvoiceEndDate)
}

func validateDays(closingDay, dueDay int) error {
	var errs core.ValidationErrors
	if closingDay < 1 || closingDay > 31 {
		errs = append(errs, &core.ValidationError{Field: "closingDay", Reason: "must be between 1 and 31"})
	}
	if dueDay < 1 || dueDay > 31 {
		errs = append(errs, &core.ValidationError{Field: "dueDay", Reason: "must be between 1 and 31"})
	}
	return errs.Err()
}

// ComputeWindow returns the invoice window that contains today.
//
// Days past the end of a month are clamped to its last day, so a card closing
// on the 31st closes on Feb 28/29 and Apr 30. The window and due date are
// expressed in today's location.
func ComputeWindow(closingDay, dueDay int, today time.Time) (InvoiceWindow, error) {
	if err := validateDays(closingDay, dueDay); err != nil {
		return InvoiceWindow{}, err
	}
	loc := today.Location()
	y, m, d := today.Date()

	var end, prevClosing core.CalendarDate
	if thisClosing := core.ClampDay(y, m, closingDay); d <= thisClosing {
		end = core.CalendarDate{Year: y, Month: m, Day: thisClosing}
		prevClosing = core.ClampedDate(y, m, -1, closingDay)
	} else {
		end = core.ClampedDate(y, m, 1, closingDay)
		prevClosing = core.CalendarDate{Year: y, Month: m, Day: thisClosing}
	}

	return InvoiceWindow{
		InvoiceStartDate: prevClosing.AddDays(1).In(loc),
		InvoiceEndDate:   core.EndOfDate(end, loc),
		DueDate:          dueDateFor(end, dueDay).In(loc),
	}, nil
}

// dueDateFor places the due day in the closing month when, after clamping,
// it still falls after the closing day; otherwise in the following month.
func dueDateFor(closing core.CalendarDate, dueDay int) core.CalendarDate {
	if d := core.ClampDay(closing.Year, closing.Month, dueDay); d > closing.Day {
		return core.CalendarDate{Year: closing.Year, Month: closing.Month, Day: d}
	}
	return core.ClampedDate(closing.Year, closing.Month, 1, dueDay)
}

// NextCycleDates returns midnight of the next closing day on or after today
// and the due date paired with it.
func NextCycleDates(closingDay, dueDay int, today time.Time) (time.Time, time.Time, error) {
	w, err := ComputeWindow(closingDay, dueDay, today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return core.DateOf(w.InvoiceEndDate).In(today.Location()), w.DueDate, nil
}
