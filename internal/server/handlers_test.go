package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"parking-queue/internal/parking"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func newTestServer(t *testing.T, capacity int) (*httptest.Server, *testClock) {
	t.Helper()

	telemetry := parking.NewTelemetryProviderWith(sdktrace.NewTracerProvider(), sdkmetric.NewMeterProvider())
	t.Cleanup(func() { _ = telemetry.Shutdown(context.Background()) })

	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	srv, err := NewServer(Config{
		Port:         "0",
		ServiceName:  "parking-queue-test",
		Capacity:     capacity,
		QueueOptions: []parking.Option{parking.WithClock(clock)},
	}, telemetry)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, clock
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Meta    *Meta           `json:"meta"`
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestHealthCheck(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "parking-queue-test", health.Service)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestOperationsBeforeCreate(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	status, env := do(t, ts, http.MethodPost, "/api/parking-queue/exit", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "not created")
}

func TestCreateQueue(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	status, env := do(t, ts, http.MethodPost, "/api/parking-queue/", `{"capacity": 0}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)

	status, env = do(t, ts, http.MethodPost, "/api/parking-queue/", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", env.Error)

	status, env = do(t, ts, http.MethodPost, "/api/parking-queue/", `{"capacity": 4}`)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Meta.RequestID)
}

func TestParkExitScenario(t *testing.T) {
	ts, clock := newTestServer(t, 3)

	for i, id := range []string{"A", "B", "C"} {
		status, env := do(t, ts, http.MethodPost, "/api/parking-queue/park", `{"car_id": "`+id+`"}`)
		require.Equal(t, http.StatusOK, status)

		var car CarResponse
		require.NoError(t, json.Unmarshal(env.Data, &car))
		assert.Equal(t, id, car.CarID)
		assert.Equal(t, i, car.Slot)
		assert.NotEmpty(t, car.Ticket)
	}

	status, env := do(t, ts, http.MethodPost, "/api/parking-queue/park", `{"car_id": "D"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, env.Error, "full")

	status, _ = do(t, ts, http.MethodPost, "/api/parking-queue/park", `{"car_id": ""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	clock.now = clock.now.Add(90 * time.Second)

	status, env = do(t, ts, http.MethodPost, "/api/parking-queue/exit", "")
	require.Equal(t, http.StatusOK, status)

	var dep DepartureResponse
	require.NoError(t, json.Unmarshal(env.Data, &dep))
	assert.Equal(t, "A", dep.CarID)
	assert.Equal(t, 0, dep.Slot)
	assert.InDelta(t, 90.0, dep.DurationSeconds, 0.001)
	assert.Equal(t, "1m 30s", dep.Duration)

	status, _ = do(t, ts, http.MethodPost, "/api/parking-queue/park", `{"car_id": "D"}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestSearchAndRemove(t *testing.T) {
	ts, clock := newTestServer(t, 5)

	for _, id := range []string{"A", "B", "C"} {
		status, _ := do(t, ts, http.MethodPost, "/api/parking-queue/park", `{"car_id": "`+id+`"}`)
		require.Equal(t, http.StatusOK, status)
	}
	status, _ := do(t, ts, http.MethodPost, "/api/parking-queue/park", `{"car_id": "B"}`)
	assert.Equal(t, http.StatusConflict, status)

	clock.now = clock.now.Add(time.Minute)

	status, env := do(t, ts, http.MethodGet, "/api/parking-queue/cars/B", "")
	require.Equal(t, http.StatusOK, status)
	var car CarResponse
	require.NoError(t, json.Unmarshal(env.Data, &car))
	assert.Equal(t, 1, car.Slot)
	assert.InDelta(t, 60.0, car.DurationSeconds, 0.001)

	status, _ = do(t, ts, http.MethodDelete, "/api/parking-queue/cars/B", "")
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, ts, http.MethodGet, "/api/parking-queue/cars/B", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, ts, http.MethodDelete, "/api/parking-queue/cars/B", "")
	assert.Equal(t, http.StatusNotFound, status)

	var exited []string
	for i := 0; i < 2; i++ {
		status, env := do(t, ts, http.MethodPost, "/api/parking-queue/exit", "")
		require.Equal(t, http.StatusOK, status)
		var dep DepartureResponse
		require.NoError(t, json.Unmarshal(env.Data, &dep))
		exited = append(exited, dep.CarID)
	}
	assert.Equal(t, []string{"A", "C"}, exited)

	status, _ = do(t, ts, http.MethodPost, "/api/parking-queue/exit", "")
	assert.Equal(t, http.StatusConflict, status)
}

func TestPaddedCarIDOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t, 3)

	status, _ := do(t, ts, http.MethodPost, "/api/parking-queue/park", `{"car_id": " A "}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = do(t, ts, http.MethodGet, "/api/parking-queue/cars/%20A", "")
	assert.Equal(t, http.StatusOK, status)

	status, env := do(t, ts, http.MethodDelete, "/api/parking-queue/cars/%20A", "")
	require.Equal(t, http.StatusOK, status)
	var dep DepartureResponse
	require.NoError(t, json.Unmarshal(env.Data, &dep))
	assert.Equal(t, "A", dep.CarID)
}

func TestShellAndHTTPShareQueue(t *testing.T) {
	telemetry := parking.NewTelemetryProviderWith(sdktrace.NewTracerProvider(), sdkmetric.NewMeterProvider())
	t.Cleanup(func() { _ = telemetry.Shutdown(context.Background()) })

	srv, err := NewServer(Config{Port: "0", ServiceName: "parking-queue-test", Capacity: 3}, telemetry)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)

	runShell := func(script string) string {
		var out bytes.Buffer
		parking.NewShell(strings.NewReader(script), &out, telemetry, srv.Queues()).Run(context.Background())
		return out.String()
	}

	out := runShell("create 4\npark SHELLCAR")
	require.Contains(t, out, "Car SHELLCAR parked in slot 0")

	status, env := do(t, ts, http.MethodGet, "/api/parking-queue/snapshot", "")
	require.Equal(t, http.StatusOK, status)
	var snap SnapshotResponse
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 4, snap.Capacity)

	status, _ = do(t, ts, http.MethodGet, "/api/parking-queue/cars/SHELLCAR", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, ts, http.MethodPost, "/api/parking-queue/", `{"capacity": 5}`)
	require.Equal(t, http.StatusOK, status)

	out = runShell("park X\nstats")
	assert.Contains(t, out, "Occupancy: 1 / 5 | Front: 0 | Rear: 0 | Free slots: 4\n")

	status, env = do(t, ts, http.MethodGet, "/api/parking-queue/cars/X", "")
	require.Equal(t, http.StatusOK, status)
	var car CarResponse
	require.NoError(t, json.Unmarshal(env.Data, &car))
	assert.Equal(t, 0, car.Slot)

	status, _ = do(t, ts, http.MethodGet, "/api/parking-queue/cars/SHELLCAR", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestResizeClearSnapshot(t *testing.T) {
	ts, _ := newTestServer(t, 4)

	for _, id := range []string{"A", "B", "C"} {
		status, _ := do(t, ts, http.MethodPost, "/api/parking-queue/park", `{"car_id": "`+id+`"}`)
		require.Equal(t, http.StatusOK, status)
	}

	status, env := do(t, ts, http.MethodPost, "/api/parking-queue/resize", `{"capacity": 2}`)
	require.Equal(t, http.StatusOK, status)
	var resized ResizeResponse
	require.NoError(t, json.Unmarshal(env.Data, &resized))
	assert.Equal(t, 2, resized.Capacity)
	require.Len(t, resized.Evicted, 1)
	assert.Equal(t, "A", resized.Evicted[0].CarID)

	status, _ = do(t, ts, http.MethodPost, "/api/parking-queue/resize", `{"capacity": 0}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = do(t, ts, http.MethodGet, "/api/parking-queue/snapshot", "")
	require.Equal(t, http.StatusOK, status)
	var snap SnapshotResponse
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 2, snap.Capacity)
	assert.Equal(t, 2, snap.Occupied)
	assert.Equal(t, 0, snap.Available)
	require.NotNil(t, snap.Front)
	assert.Equal(t, 0, *snap.Front)
	require.NotNil(t, snap.Rear)
	assert.Equal(t, 1, *snap.Rear)
	require.Len(t, snap.Slots, 2)
	assert.Equal(t, "B", snap.Slots[0].CarID)
	assert.True(t, snap.Slots[0].Front)
	assert.Equal(t, "C", snap.Slots[1].CarID)
	assert.True(t, snap.Slots[1].Rear)

	status, _ = do(t, ts, http.MethodPost, "/api/parking-queue/clear", "")
	require.Equal(t, http.StatusOK, status)

	status, env = do(t, ts, http.MethodGet, "/api/parking-queue/snapshot", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 0, snap.Occupied)
	assert.Nil(t, snap.Front)
	assert.Nil(t, snap.Rear)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, 3)

	status, _ := do(t, ts, http.MethodPost, "/api/parking-queue/park", `{"car_id": "A"}`)
	require.Equal(t, http.StatusOK, status)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "parking_queue_slots_occupied 1")
	assert.Contains(t, string(body), "parking_queue_slots_capacity 3")
}

func TestStatusFor(t *testing.T) {
	q, err := parking.NewParkingQueue(1)
	require.NoError(t, err)

	_, err = q.Exit()
	assert.Equal(t, http.StatusConflict, statusFor(err))

	_, err = q.Remove("X")
	assert.Equal(t, http.StatusNotFound, statusFor(err))

	_, err = q.Resize(0)
	assert.Equal(t, http.StatusBadRequest, statusFor(err))

	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
}
