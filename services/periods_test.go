package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseEndDate(t *testing.T) {
	parsed, err := ParseEndDate("2025-02-20")
	require.NoError(t, err)
	assert.Equal(t, 2025, parsed.Year())
	assert.Equal(t, time.February, parsed.Month())
	assert.Equal(t, 20, parsed.Day())

	_, err = ParseEndDate("20-02-2025")
	assert.True(t, IsValidation(err))

	_, err = ParseEndDate("")
	assert.True(t, IsValidation(err))
}

func TestCurrentBillingWindow(t *testing.T) {
	w := CurrentBillingWindow(date("2025-02-20"))
	assert.Equal(t, "2025-02-01", w.StartDate())
	assert.Equal(t, "2025-02-20", w.EndDate())
}

func TestPreviousBillingWindow(t *testing.T) {
	w := PreviousBillingWindow(date("2025-02-20"))
	assert.Equal(t, "2025-01-01", w.StartDate())
	assert.Equal(t, "2025-01-31", w.EndDate())
}

func TestPreviousBillingWindowAcrossYear(t *testing.T) {
	w := PreviousBillingWindow(date("2025-01-10"))
	assert.Equal(t, "2024-12-01", w.StartDate())
	assert.Equal(t, "2024-12-31", w.EndDate())
}

func TestPrePreviousBillingWindow(t *testing.T) {
	w := PrePreviousBillingWindow(date("2025-02-20"))
	assert.Equal(t, "2024-12-01", w.StartDate())
	assert.Equal(t, "2024-12-31", w.EndDate())
}

func TestPreviousBillingWindowLeapFebruary(t *testing.T) {
	w := PreviousBillingWindow(date("2024-03-15"))
	assert.Equal(t, "2024-02-01", w.StartDate())
	assert.Equal(t, "2024-02-29", w.EndDate())
}

func TestDisplayWindows(t *testing.T) {
	cur := CurrentDisplayWindow(date("2025-02-20"), 31)
	assert.Equal(t, "2025-01-21", cur.StartDate())
	assert.Equal(t, "2025-02-20", cur.EndDate())

	prev := PreviousDisplayWindow(date("2025-02-20"), 31)
	assert.Equal(t, "2024-12-21", prev.StartDate())
	assert.Equal(t, "2025-01-20", prev.EndDate())
}
