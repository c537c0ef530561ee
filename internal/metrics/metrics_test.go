package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskie/internal/ipc"
	"deskie/internal/mode"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestMetricsEndpoint(t *testing.T) {
	SetAtDesk(true)
	AwayAlert(mode.Study, 5*time.Minute)
	SensorError("distance")
	temp := 23.5
	ObserveSample(&temp, nil, nil)

	rec := get(t, NewRouter(nil), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	assert.Contains(t, text, "deskie_at_desk 1")
	assert.Contains(t, text, `deskie_away_alerts_total{mode="Study"} 1`)
	assert.Contains(t, text, `deskie_sensor_errors_total{sensor="distance"} 1`)
	assert.Contains(t, text, "deskie_temperature_celsius 23.5")
	assert.Contains(t, text, `deskie_away_duration_seconds_count{mode="Study"} 1`)
}

func TestHealth(t *testing.T) {
	rec := get(t, NewRouter(nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatus(t *testing.T) {
	r := NewRouter(func(context.Context) (ipc.StatusData, error) {
		return ipc.StatusData{Mode: "Work", AtDesk: true}, nil
	})
	rec := get(t, r, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var s ipc.StatusData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "Work", s.Mode)
	assert.True(t, s.AtDesk)
}

func TestStatusError(t *testing.T) {
	r := NewRouter(func(context.Context) (ipc.StatusData, error) {
		return ipc.StatusData{}, errors.New("not running")
	})
	assert.Equal(t, http.StatusServiceUnavailable, get(t, r, "/status").Code)
}

func TestStatusRouteAbsentWithoutSource(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, NewRouter(nil), "/status").Code)
}
