package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/plantCo2/water-device/confs"
	"github.com/plantCo2/water-device/db"
	"github.com/plantCo2/water-device/db/dbtest"
	"github.com/plantCo2/water-device/logging"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logging.InitWriter(io.Discard, slog.LevelError, false)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*Server, db.Database) {
	t.Helper()
	database := dbtest.New(t)
	return NewServer(confs.Default(), database), database
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

var sample = map[string]any{
	"temperature":   21.5,
	"humidity":      60,
	"soil_moisture": 430,
	"water_flow":    0.0,
}

func TestDeviceRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w, body := do(t, h, http.MethodGet, "/api/readings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body)

	w, body = do(t, h, http.MethodPost, "/api/update_readings", sample)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "success", body["status"])
	assert.NotZero(t, body["id"])

	w, body = do(t, h, http.MethodGet, "/api/readings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 21.5, body["temperature"])
	assert.Equal(t, 430.0, body["soil_moisture"])
	assert.Equal(t, false, body["valve_state"])
	assert.NotEmpty(t, body["timestamp"])

	w, body = do(t, h, http.MethodPost, "/api/valve/control", map[string]any{"state": true, "duration": 30})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "success", body["status"])
	assert.NotZero(t, body["command_id"])

	w, body = do(t, h, http.MethodGet, "/api/get_commands", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["valve_state"])
	assert.Equal(t, 30.0, body["duration"])
	assert.Equal(t, "manual", body["command_type"])
	assert.Equal(t, 500.0, body["threshold"])
	assert.Equal(t, 10.0, body["watering_duration"])
	assert.Equal(t, false, body["timer_enabled"])
	assert.Equal(t, 6.0, body["timer_hour"])
	assert.Equal(t, 0.0, body["timer_minute"])

	w, body = do(t, h, http.MethodGet, "/api/get_commands", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, body, "valve_state")
	assert.NotContains(t, body, "duration")
	assert.NotContains(t, body, "command_type")
	for _, k := range []string{"threshold", "watering_duration", "timer_enabled", "timer_hour", "timer_minute"} {
		assert.Contains(t, body, k)
	}
}

func TestUpdateReadingsRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	cases := []struct {
		name  string
		body  any
		field string
	}{
		{"missing soil moisture", map[string]any{"temperature": 1, "humidity": 2, "water_flow": 0}, "soil_moisture"},
		{"null humidity", map[string]any{"temperature": 1, "humidity": nil, "soil_moisture": 3, "water_flow": 0}, "humidity"},
		{"wrong type", map[string]any{"temperature": "hot", "humidity": 2, "soil_moisture": 3, "water_flow": 0}, "temperature"},
		{"bad timestamp", map[string]any{"temperature": 1, "humidity": 2, "soil_moisture": 3, "water_flow": 0, "timestamp": "yesterday"}, "timestamp"},
		{"malformed", `{"temperature": `, ""},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := do(t, h, http.MethodPost, "/api/update_readings", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "error", body["status"])
			assert.NotEmpty(t, body["message"])
			if tc.field != "" {
				assert.Equal(t, tc.field, body["field"])
			}
		})
	}

	w, body := do(t, h, http.MethodGet, "/api/readings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body)
}

func TestSettingsEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w, body := do(t, h, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 500.0, body["threshold"])
	assert.NotEmpty(t, body["last_updated"])
	assert.NotContains(t, body, "id")

	update := map[string]any{
		"threshold":         350,
		"watering_duration": 45,
		"timer_enabled":     true,
		"timer_hour":        19,
		"timer_minute":      30,
	}
	w, body = do(t, h, http.MethodPost, "/api/settings", update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 350.0, body["threshold"])
	assert.Equal(t, true, body["timer_enabled"])

	w, body = do(t, h, http.MethodGet, "/api/get_commands", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 350.0, body["threshold"])
	assert.Equal(t, 45.0, body["watering_duration"])
	assert.Equal(t, 19.0, body["timer_hour"])
	assert.Equal(t, 30.0, body["timer_minute"])

	partial := map[string]any{"threshold": 1, "watering_duration": 1, "timer_enabled": false, "timer_hour": 1}
	w, body = do(t, h, http.MethodPost, "/api/settings", partial)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "timer_minute", body["field"])

	update["timer_hour"] = 24
	w, body = do(t, h, http.MethodPost, "/api/settings", update)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "timer_hour", body["field"])

	w, body = do(t, h, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 19.0, body["timer_hour"], "rejected update left settings untouched")
}

func TestCommandEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w, body := do(t, h, http.MethodPost, "/api/valve/control", map[string]any{"duration": 5})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "state", body["field"])

	w, body = do(t, h, http.MethodPost, "/api/valve/control", map[string]any{"state": true, "type": "sprinkle"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "type", body["field"])

	for _, req := range []map[string]any{
		{"state": true, "duration": 20, "type": "timer"},
		{"state": false},
	} {
		w, _ = do(t, h, http.MethodPost, "/api/valve/control", req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w, body = do(t, h, http.MethodGet, "/api/commands/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, body["count"])

	w, body = do(t, h, http.MethodGet, "/api/get_commands", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["valve_state"], "newest command wins")
	assert.Equal(t, 0.0, body["duration"])

	w, body = do(t, h, http.MethodGet, "/api/commands/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, body["count"])

	w, body = do(t, h, http.MethodGet, "/api/commands?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["count"])

	w, body = do(t, h, http.MethodGet, "/api/commands", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 2.0, body["count"])
	for _, c := range body["data"].([]any) {
		assert.Equal(t, true, c.(map[string]any)["executed"])
	}

	w, body = do(t, h, http.MethodGet, "/api/commands?limit=abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "limit", body["field"])
}

func TestConcurrentPollsDeliverOnce(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w, _ := do(t, h, http.MethodPost, "/api/valve/control", map[string]any{"state": true, "duration": 15})
	require.Equal(t, http.StatusOK, w.Code)

	var (
		mu        sync.Mutex
		delivered int
		wg        sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, body := do(t, h, http.MethodGet, "/api/get_commands", nil)
			if w.Code != http.StatusOK {
				t.Errorf("poll returned %d", w.Code)
				return
			}
			if _, ok := body["valve_state"]; ok {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, delivered)
}

func TestHistoryAndSweep(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	old := map[string]any{}
	for k, v := range sample {
		old[k] = v
	}
	old["timestamp"] = time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)

	for _, b := range []any{old, sample} {
		w, _ := do(t, h, http.MethodPost, "/api/update_readings", b)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/readings/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history, 1)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/readings/history?window=24h", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history, 1)

	for _, window := range []string{"soon", "25h", "100000h"} {
		w, body := do(t, h, http.MethodGet, "/api/readings/history?window="+window, nil)
		require.Equal(t, http.StatusBadRequest, w.Code, window)
		assert.Equal(t, "window", body["field"], window)
	}

	w, body := do(t, h, http.MethodPost, "/api/maintenance/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1.0, body["deleted"])
	assert.Equal(t, "24h0m0s", body["retention"])

	w, body = do(t, h, http.MethodPost, "/api/maintenance/sweep?retention=1h", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, body["deleted"])

	w, body = do(t, h, http.MethodPost, "/api/maintenance/sweep?retention=-1h", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "retention", body["field"])
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w, body := do(t, s.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, w.Header().Get(logging.RequestIDHeader))
}

func TestStoreUnavailable(t *testing.T) {
	s, database := newTestServer(t)
	h := s.Handler()
	require.NoError(t, database.Close())

	w, body := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "unavailable", body["database"])

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/api/update_readings", sample},
		{http.MethodGet, "/api/get_commands", nil},
		{http.MethodGet, "/api/settings", nil},
		{http.MethodPost, "/api/valve/control", map[string]any{"state": true}},
	} {
		w, body := do(t, h, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, tc.path)
		assert.Equal(t, true, body["retriable"], tc.path)
		assert.Equal(t, "error", body["status"], tc.path)
	}
}

func TestLiveFeedBroadcastsReadings(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/readings", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.feed.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	raw, err := json.Marshal(sample)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/update_readings", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event map[string]any
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "reading", event["type"])
	assert.Equal(t, 430.0, event["soil_moisture"])
	assert.NotZero(t, event["id"])
}

func TestHistoryWindowFollowsRetention(t *testing.T) {
	cfg := confs.Default()
	cfg.RetentionWindow = 200 * time.Hour
	s := NewServer(cfg, dbtest.New(t))

	w, _ := do(t, s.Handler(), http.MethodGet, "/api/readings/history?window=100h", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body := do(t, s.Handler(), http.MethodGet, "/api/readings/history?window=201h", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "window", body["field"])
}

// stalledConn stands in for a browser tab that stopped reading.
type stalledConn struct{ delay time.Duration }

func (c stalledConn) WriteMessage(int, []byte) error {
	time.Sleep(c.delay)
	return nil
}
func (stalledConn) SetWriteDeadline(time.Time) error { return nil }
func (stalledConn) Close() error                     { return nil }

func TestIngestDoesNotWaitForFeedSubscribers(t *testing.T) {
	s, _ := newTestServer(t)
	for i := 0; i < 3; i++ {
		s.feed.Register(stalledConn{delay: 2 * time.Second})
	}
	defer s.feed.CloseAll()

	start := time.Now()
	w, _ := do(t, s.Handler(), http.MethodPost, "/api/update_readings", sample)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Less(t, time.Since(start), time.Second)
}

func TestFeedSubscribersEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	w, body := do(t, s.Handler(), http.MethodGet, "/api/feed/subscribers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, body["count"])

	id := s.feed.Register(stalledConn{})
	defer s.feed.CloseAll()

	w, body = do(t, s.Handler(), http.MethodGet, "/api/feed/subscribers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["count"])
	assert.Equal(t, []any{id}, body["subscribers"])
}
