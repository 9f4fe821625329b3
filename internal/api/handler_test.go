package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpidash/adapters/excel"
	"kpidash/adapters/memory"
	"kpidash/internal/cache"
	"kpidash/internal/dashboard"
	"kpidash/internal/loader"
	"kpidash/internal/testkit"
)

func newTestHandler(t *testing.T, path string, hub *EventHub) http.Handler {
	t.Helper()
	telemetry := dashboard.NewTelemetry()
	svc := dashboard.NewService(
		dashboard.DefaultSettings(path),
		cache.New[*loader.Result](time.Hour),
		memory.NewLoadHistoryRepository(10),
		telemetry,
	)
	return NewHandler(svc, hub, telemetry).Routes()
}

func fleetHandler(t *testing.T, hub *EventHub) http.Handler {
	path := testkit.FleetWorkbook(t, excel.SampleOptions{Drivers: 3, Days: 10, Start: testkit.Day(2024, 2, 1), Seed: 5})
	return newTestHandler(t, path, hub)
}

func get(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body map[string]interface{}
	if rec.Header().Get("Content-Type") != "image/svg+xml" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func TestHandler_Endpoints(t *testing.T) {
	h := fleetHandler(t, nil)

	tests := []struct {
		name   string
		method string
		target string
		status int
		check  func(t *testing.T, body map[string]interface{})
	}{
		{
			name: "summary", method: http.MethodGet, target: "/api/summary", status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, 30.0, body["filtered_rows"])
				assert.Contains(t, body, "options")
			},
		},
		{
			name: "kpis filtered", method: http.MethodGet, target: "/api/kpis?start=2024-02-01&end=2024-02-05", status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, 15.0, body["rows"])
			},
		},
		{
			name: "data", method: http.MethodGet, target: "/api/data?limit=7", status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, 7.0, body["returned"])
				assert.Equal(t, 30.0, body["total"])
			},
		},
		{
			name: "data limit too large", method: http.MethodGet, target: "/api/data?limit=9000", status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "INVALID_INPUT", body["code"])
			},
		},
		{
			name: "breakdown", method: http.MethodGet, target: "/api/breakdown?column=motorista", status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Len(t, body["groups"], 3)
			},
		},
		{
			name: "breakdown unknown column", method: http.MethodGet, target: "/api/breakdown?column=nope", status: http.StatusNotFound,
		},
		{
			name: "timeseries monthly", method: http.MethodGet, target: "/api/timeseries?freq=M", status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Len(t, body["buckets"], 1)
			},
		},
		{
			name: "timeseries bad frequency", method: http.MethodGet, target: "/api/timeseries?freq=H", status: http.StatusBadRequest,
		},
		{
			name: "bad date filter", method: http.MethodGet, target: "/api/kpis?start=02/01/2024", status: http.StatusBadRequest,
		},
		{
			name: "data enriched", method: http.MethodGet, target: "/api/data?limit=2&periods=true&calculated=1", status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				records := body["records"].([]interface{})
				require.Len(t, records, 2)
				first := records[0].(map[string]interface{})
				assert.Contains(t, first, "weekday")
				assert.Contains(t, first, "km_cumulative")
			},
		},
		{
			name: "data bad flag", method: http.MethodGet, target: "/api/data?periods=maybe", status: http.StatusBadRequest,
		},
		{
			name: "outliers", method: http.MethodGet, target: "/api/outliers?method=zscore", status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "km", body["column"])
				assert.Equal(t, 30.0, body["checked"])
			},
		},
		{
			name: "outliers bad method", method: http.MethodGet, target: "/api/outliers?method=lof", status: http.StatusBadRequest,
		},
		{
			name: "pivot", method: http.MethodGet, target: "/api/pivot?index=motorista&values=km&agg=mean", status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Len(t, body["index"], 3)
				assert.Equal(t, []interface{}{"km"}, body["columns"])
			},
		},
		{
			name: "pivot without index", method: http.MethodGet, target: "/api/pivot", status: http.StatusBadRequest,
		},
		{
			name: "profile", method: http.MethodGet, target: "/api/profile", status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.NotEmpty(t, body["columns"])
			},
		},
		{
			name: "health", method: http.MethodGet, target: "/health", status: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "ok", body["status"])
			},
		},
		{
			name: "unknown chart", method: http.MethodGet, target: "/charts/radar", status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, h, tt.method, tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestHandler_Chart(t *testing.T) {
	h := fleetHandler(t, nil)
	rec, _ := get(t, h, http.MethodGet, "/charts/"+dashboard.RankingKM)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestHandler_MissingWorkbook(t *testing.T) {
	h := newTestHandler(t, filepath.Join(t.TempDir(), "gone.xlsx"), nil)
	rec, body := get(t, h, http.MethodGet, "/api/kpis")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "FILE_NOT_FOUND", body["code"])
}

func TestHandler_ReloadBroadcasts(t *testing.T) {
	hub := NewEventHub()
	defer hub.Close()
	h := fleetHandler(t, hub)

	client := make(chan Event, 1)
	hub.register <- client
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	rec, body := get(t, h, http.MethodPost, "/api/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "reloaded", body["status"])

	select {
	case event := <-client:
		assert.Equal(t, EventReload, event.Type)
		assert.Equal(t, 30, event.Rows)
	case <-time.After(time.Second):
		t.Fatal("no reload event")
	}

	rec, body = get(t, h, http.MethodGet, "/api/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["loads"], 1)
}
