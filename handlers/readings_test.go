package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdeguzman/submeter-billing/backend/models"
)

func postReading(h *ReadingHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/readings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	return rec
}

func TestCreateReadingDuplicateDateConflicts(t *testing.T) {
	db := newTestDB(t)
	seedMeter(t, db)
	h := NewReadingHandler(db)

	rec := postReading(h, `{"meter_id": 1, "reading_date": "2025-02-10", "index_value": 100}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = postReading(h, `{"meter_id": 1, "reading_date": "2025-02-10", "index_value": 105}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The original value stands
	var index float64
	require.NoError(t, db.QueryRow(
		`SELECT index_value FROM meter_readings WHERE meter_id = 1 AND reading_date = '2025-02-10'`,
	).Scan(&index))
	assert.Equal(t, 100.0, index)
}

func TestCreateReadingValidation(t *testing.T) {
	db := newTestDB(t)
	seedMeter(t, db)
	h := NewReadingHandler(db)

	rec := postReading(h, `{"meter_id": 1, "reading_date": "10/02/2025", "index_value": 100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postReading(h, `{"meter_id": 1, "reading_date": "2025-02-10", "index_value": -4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postReading(h, `{"meter_id": 999, "reading_date": "2025-02-10", "index_value": 100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateReadingCorrectsValue(t *testing.T) {
	db := newTestDB(t)
	seedMeter(t, db)
	h := NewReadingHandler(db)

	rec := postReading(h, `{"meter_id": 1, "reading_date": "2025-02-10", "index_value": 100}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.MeterReading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req := httptest.NewRequest("PUT", "/api/readings/1", strings.NewReader(`{"index_value": 101.5}`))
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	upd := httptest.NewRecorder()
	h.Update(upd, req)
	assert.Equal(t, http.StatusOK, upd.Code)

	var index float64
	require.NoError(t, db.QueryRow(
		`SELECT index_value FROM meter_readings WHERE id = ?`, created.ID,
	).Scan(&index))
	assert.Equal(t, 101.5, index)
}

func TestListReadingsByDateRange(t *testing.T) {
	db := newTestDB(t)
	seedMeter(t, db)
	h := NewReadingHandler(db)

	for _, r := range []string{
		`{"meter_id": 1, "reading_date": "2025-01-10", "index_value": 10}`,
		`{"meter_id": 1, "reading_date": "2025-02-10", "index_value": 20}`,
		`{"meter_id": 1, "reading_date": "2025-03-10", "index_value": 30}`,
	} {
		require.Equal(t, http.StatusCreated, postReading(h, r).Code)
	}

	req := httptest.NewRequest("GET", "/api/readings?meter_id=1&from=2025-02-01&to=2025-02-28", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var readings []models.MeterReading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &readings))
	require.Len(t, readings, 1)
	assert.Equal(t, "2025-02-10", readings[0].ReadingDate)
}
