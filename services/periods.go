package services

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// BillingWindow is a calendar-month aligned period. Billing and
// rate-of-change both select readings from these windows.
type BillingWindow struct {
	Start time.Time
	End   time.Time
}

func (w BillingWindow) StartDate() string { return w.Start.Format(dateLayout) }
func (w BillingWindow) EndDate() string   { return w.End.Format(dateLayout) }

// DisplayWindow is a rolling fixed-length period ending at the query date.
// It labels rate-of-change output periods and is never used to select
// readings; the distinct type keeps the two schemes from being mixed up.
type DisplayWindow struct {
	Start time.Time
	End   time.Time
}

func (w DisplayWindow) StartDate() string { return w.Start.Format(dateLayout) }
func (w DisplayWindow) EndDate() string   { return w.End.Format(dateLayout) }

// Today returns the current date in the engine's date format.
func Today() string {
	return time.Now().Format(dateLayout)
}

// ParseEndDate validates and parses a YYYY-MM-DD end date.
func ParseEndDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Msg: fmt.Sprintf("invalid end date %q, expected YYYY-MM-DD", s)}
	}
	return t, nil
}

// CurrentBillingWindow spans the first day of the end date's month through
// the end date itself.
func CurrentBillingWindow(end time.Time) BillingWindow {
	start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
	return BillingWindow{Start: start, End: end}
}

// PreviousBillingWindow is the full calendar month immediately before the
// end date's month.
func PreviousBillingWindow(end time.Time) BillingWindow {
	firstOfMonth := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
	prevEnd := firstOfMonth.AddDate(0, 0, -1)
	prevStart := time.Date(prevEnd.Year(), prevEnd.Month(), 1, 0, 0, 0, 0, end.Location())
	return BillingWindow{Start: prevStart, End: prevEnd}
}

// PrePreviousBillingWindow is the full calendar month two months before the
// end date's month. Only rate-of-change needs it.
func PrePreviousBillingWindow(end time.Time) BillingWindow {
	prev := PreviousBillingWindow(end)
	return PreviousBillingWindow(prev.End)
}

// CurrentDisplayWindow is the rolling days-long block ending at the end date.
func CurrentDisplayWindow(end time.Time, days int) DisplayWindow {
	return DisplayWindow{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// PreviousDisplayWindow is the equally long block immediately preceding the
// current display window.
func PreviousDisplayWindow(end time.Time, days int) DisplayWindow {
	cur := CurrentDisplayWindow(end, days)
	prevEnd := cur.Start.AddDate(0, 0, -1)
	return DisplayWindow{Start: prevEnd.AddDate(0, 0, -(days - 1)), End: prevEnd}
}
