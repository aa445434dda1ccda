package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/tracksync-go/internal/database"
	"github.com/sstent/tracksync-go/internal/ingest"
	"github.com/sstent/tracksync-go/internal/parser"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const suuntoExport = `{"DeviceLog": {
	"Header": {"DateTime": "2018-03-04T09:00:00.000+02:00", "ActivityType": 3, "Distance": 4200, "Duration": 1500},
	"Device": {"Name": "Amsterdam", "SerialNumber": "7"},
	"Samples": [
		{"TimeISO8601": "2018-03-04T09:00:01.000+02:00", "HR": 2.5},
		{"TimeISO8601": "2018-03-04T09:10:00.000+02:00", "HR": 2.6}
	],
	"Windows": [
		{"Window": {"Type": "Autolap", "TimeISO8601": "2018-03-04T09:05:00.000+02:00", "Distance": 2100}},
		{"Window": {"Type": "Autolap", "TimeISO8601": "2018-03-04T09:10:00.000+02:00", "Distance": 2100}}
	]
}}`

type stubImporter struct {
	report ingest.Report
	err    error
}

func (s stubImporter) Run(context.Context) (ingest.Report, error) { return s.report, s.err }

func newTestHandler(t *testing.T, importer Importer) (*gin.Engine, *database.SQLiteDB) {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWebHandler(db, importer).Router(), db
}

func seed(t *testing.T, db *database.SQLiteDB, source, eventID string) {
	t.Helper()
	svc := ingest.NewService(db, t.TempDir(),
		ingest.WithLogger(log.New(io.Discard, "", 0)),
		ingest.WithParserOptions(parser.WithEventID(eventID)))
	_, err := svc.ImportFile(context.Background(), source, []byte(suuntoExport))
	require.NoError(t, err)
}

func serve(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHealth(t *testing.T) {
	router, _ := newTestHandler(t, nil)
	w := serve(router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestEventList(t *testing.T) {
	router, db := newTestHandler(t, nil)

	w := serve(router, http.MethodGet, "/events")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	seed(t, db, "a.json", "evt-a")
	seed(t, db, "b.json", "evt-b")

	w = serve(router, http.MethodGet, "/events?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	var events []database.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, 4200.0, events[0].Distance)
	assert.Equal(t, "Spartan Ultra", events[0].Device)

	w = serve(router, http.MethodGet, "/events?type=Running&min_distance=4000")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	assert.Len(t, events, 2)

	w = serve(router, http.MethodGet, "/events?type=Swimming")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestEventListRejectsBadFilters(t *testing.T) {
	router, _ := newTestHandler(t, nil)

	testCases := []struct {
		testName string
		query    string
	}{
		{"unknown sort column", "/events?sort=summary"},
		{"bad date", "/events?from=yesterday"},
		{"bad distance", "/events?min_distance=far"},
	}
	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			w := serve(router, http.MethodGet, tc.query)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestEventDetail(t *testing.T) {
	router, db := newTestHandler(t, nil)
	seed(t, db, "a.json", "evt-a")

	w := serve(router, http.MethodGet, "/events/evt-a")
	require.Equal(t, http.StatusOK, w.Code)

	var detail struct {
		ID     string         `json:"id"`
		Source string         `json:"source"`
		Laps   []database.Lap `json:"laps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "evt-a", detail.ID)
	assert.Equal(t, "a.json", detail.Source)
	require.Len(t, detail.Laps, 2)
	assert.Equal(t, "AutoLap", detail.Laps[0].LapType)
	assert.Equal(t, 2100.0, detail.Laps[1].Distance)
	assert.Equal(t, 300.0, detail.Laps[1].Duration)

	w = serve(router, http.MethodGet, "/events/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEvent(t *testing.T) {
	router, db := newTestHandler(t, nil)
	seed(t, db, "a.json", "evt-a")

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodDelete, "/events/evt-a").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodDelete, "/events/evt-a").Code)

	w := serve(router, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)
	var stats database.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Zero(t, stats.Events)
}

func TestImport(t *testing.T) {
	router, _ := newTestHandler(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(router, http.MethodPost, "/import").Code)

	router, _ = newTestHandler(t, stubImporter{report: ingest.Report{Imported: 3, Failed: 1}})
	w := serve(router, http.MethodPost, "/import")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"imported":3,"duplicates":0,"unsupported":0,"failed":1}`, w.Body.String())

	router, _ = newTestHandler(t, stubImporter{err: ingest.ErrRunInProgress})
	assert.Equal(t, http.StatusConflict, serve(router, http.MethodPost, "/import").Code)

	router, _ = newTestHandler(t, stubImporter{err: errors.New("inbox gone")})
	assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodPost, "/import").Code)
}

func TestMetrics(t *testing.T) {
	router, _ := newTestHandler(t, nil)
	w := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "tracksync_import_run_duration_seconds"))
}
