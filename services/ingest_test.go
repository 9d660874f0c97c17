package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDailyReadingUpserts(t *testing.T) {
	f := newFixture(t)
	meterID := f.addMeter(t, "EL-ING", "electric", 1)

	require.NoError(t, recordDailyReading(f.db, meterID, 100.5, "mqtt"))
	require.NoError(t, recordDailyReading(f.db, meterID, 101.0, "mqtt"))

	today := time.Now().Format("2006-01-02")

	var count int
	require.NoError(t, f.db.QueryRow(
		`SELECT COUNT(*) FROM meter_readings WHERE meter_id = ?`, meterID,
	).Scan(&count))
	assert.Equal(t, 1, count)

	var index float64
	var source string
	require.NoError(t, f.db.QueryRow(
		`SELECT index_value, recorded_by FROM meter_readings WHERE meter_id = ? AND reading_date = ?`,
		meterID, today,
	).Scan(&index, &source))
	assert.Equal(t, 101.0, index)
	assert.Equal(t, "mqtt", source)
}

func TestParseIndexPayload(t *testing.T) {
	v, ok := parseIndexPayload([]byte(`{"index_value": 123.45}`))
	require.True(t, ok)
	assert.Equal(t, 123.45, v)

	v, ok = parseIndexPayload([]byte(`{"reading": 7}`))
	require.True(t, ok)
	assert.Equal(t, 7.0, v)

	v, ok = parseIndexPayload([]byte(`{"value": 9.5}`))
	require.True(t, ok)
	assert.Equal(t, 9.5, v)

	v, ok = parseIndexPayload([]byte(`42.25`))
	require.True(t, ok)
	assert.Equal(t, 42.25, v)

	_, ok = parseIndexPayload([]byte(`{"unrelated": true}`))
	assert.False(t, ok)

	_, ok = parseIndexPayload([]byte(`not a number`))
	assert.False(t, ok)
}
