package trackhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shipscope/shipscope/internal/live"
	"github.com/shipscope/shipscope/internal/models"
	"github.com/shipscope/shipscope/internal/services/tracking"
	"github.com/shipscope/shipscope/internal/trackerr"
	"github.com/stretchr/testify/require"
)

type stubStrategy struct {
	err error
}

func (s *stubStrategy) GetTracking(ctx context.Context, carrierCode, trackingNumber string) (models.TrackingResult, error) {
	if s.err != nil {
		return models.TrackingResult{}, s.err
	}
	return models.TrackingResult{
		Carrier:        carrierCode,
		TrackingNumber: trackingNumber,
		Status:         "In Transit",
		Activity: []models.ActivityEvent{
			{Status: "Departed facility", Location: "Memphis, TN", Timestamp: time.Now().UTC()},
		},
	}, nil
}

type stubArchive struct {
	listed []*models.TrackingResult
}

func (a *stubArchive) RecordLookup(ctx context.Context, res models.TrackingResult, checkedAt time.Time) error {
	return nil
}

func (a *stubArchive) ListRecentLookups(ctx context.Context, limit int) ([]*models.TrackingResult, error) {
	return a.listed, nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	return false, limit + 1, nil
}

func newTestServer(t *testing.T, strat *stubStrategy) (*httptest.Server, *live.Hub) {
	t.Helper()
	hub := live.NewHub()
	svc := tracking.New(strat, nil, 0, hub)
	srv := httptest.NewServer(New(svc, hub).Routes())
	t.Cleanup(srv.Close)
	return srv, hub
}

func postTrack(t *testing.T, srv *httptest.Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/track", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestTrack_OK(t *testing.T) {
	srv, _ := newTestServer(t, &stubStrategy{})

	resp, out := postTrack(t, srv, `{"trackingNumber":"123456789012"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "FEDEX", out["carrier"])
	require.Equal(t, "123456789012", out["trackingNumber"])
}

func TestTrack_ValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t, &stubStrategy{})

	resp, out := postTrack(t, srv, `{"trackingNumber":""}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "trackingNumber is required", out["error"])

	resp, out = postTrack(t, srv, `{"trackingNumber":"not-a-code"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, out["error"], `"not-a-code"`)

	resp, out = postTrack(t, srv, `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid request body", out["error"])
}

func TestTrack_UpstreamError(t *testing.T) {
	srv, _ := newTestServer(t, &stubStrategy{
		err: trackerr.New(trackerr.KindUpstreamFetch, "provider unreachable"),
	})

	resp, out := postTrack(t, srv, `{"trackingNumber":"123456789012"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "provider unreachable", out["error"])
}

func TestTrack_RateLimited(t *testing.T) {
	hub := live.NewHub()
	svc := tracking.New(&stubStrategy{}, nil, 0, hub)
	api := New(svc, hub).WithRateLimiter(denyLimiter{}, 5)
	srv := httptest.NewServer(api.Routes())
	t.Cleanup(srv.Close)

	resp, out := postTrack(t, srv, `{"trackingNumber":"123456789012"}`)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "too many requests", out["error"])
}

func TestHistory(t *testing.T) {
	hub := live.NewHub()
	svc := tracking.New(&stubStrategy{}, nil, 0, hub).
		WithArchive(&stubArchive{listed: []*models.TrackingResult{{TrackingNumber: "X"}}})
	srv := httptest.NewServer(New(svc, hub).Routes())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/history?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Lookups []models.TrackingResult `json:"lookups"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Lookups, 1)

	resp2, err := http.Get(srv.URL + "/api/history?limit=abc")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &stubStrategy{})

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func sendEvent(t *testing.T, ws *websocket.Conn, event string, data any) {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(live.Envelope{Event: event, Data: b}))
}

// waitFor reads events until one with the wanted name arrives, skipping
// unrelated broadcasts that may be interleaved.
func waitFor(t *testing.T, ws *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var env struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, ws.ReadJSON(&env))
		if env.Event == event {
			return env.Data
		}
	}
}

func TestWS_JoinChatDisconnect(t *testing.T) {
	srv, hub := newTestServer(t, &stubStrategy{})

	alice := dialWS(t, srv)
	sendEvent(t, alice, live.EventJoin, live.JoinPayload{Username: "alice"})

	var snapshot []models.LiveUser
	require.NoError(t, json.Unmarshal(waitFor(t, alice, live.EventCurrentUsers), &snapshot))
	require.Len(t, snapshot, 1)
	require.Equal(t, "alice", snapshot[0].Username)
	require.Contains(t, snapshot[0].Avatar, "pravatar")

	bob := dialWS(t, srv)
	sendEvent(t, bob, live.EventJoin, live.JoinPayload{Username: "bob"})

	var joined models.LiveUser
	require.NoError(t, json.Unmarshal(waitFor(t, alice, live.EventUserJoined), &joined))
	require.Equal(t, "bob", joined.Username)

	sendEvent(t, bob, live.EventChatMessage, live.ChatPayload{Message: "hello"})

	var msg models.ChatMessage
	require.NoError(t, json.Unmarshal(waitFor(t, alice, live.EventChatMessageReceived), &msg))
	require.Equal(t, "bob", msg.User.Username)
	require.Equal(t, "hello", msg.Message)

	// The sender hears its own chat message too.
	require.NoError(t, json.Unmarshal(waitFor(t, bob, live.EventChatMessageReceived), &msg))
	require.Equal(t, "hello", msg.Message)

	require.NoError(t, bob.Close())

	var goneID string
	require.NoError(t, json.Unmarshal(waitFor(t, alice, live.EventUserDisconnected), &goneID))
	require.NotEmpty(t, goneID)

	require.Eventually(t, func() bool {
		return len(hub.Users()) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWS_LocationUpdate(t *testing.T) {
	srv, _ := newTestServer(t, &stubStrategy{})

	alice := dialWS(t, srv)
	sendEvent(t, alice, live.EventJoin, live.JoinPayload{Username: "alice"})
	waitFor(t, alice, live.EventCurrentUsers)

	bob := dialWS(t, srv)
	sendEvent(t, bob, live.EventJoin, live.JoinPayload{Username: "bob"})
	waitFor(t, bob, live.EventCurrentUsers)
	waitFor(t, alice, live.EventUserJoined)

	lat, lon := 41.8781, -87.6298
	sendEvent(t, bob, live.EventLocationUpdate, live.LocationPayload{Latitude: &lat, Longitude: &lon})

	var moved models.LiveUser
	require.NoError(t, json.Unmarshal(waitFor(t, alice, live.EventLocationReceived), &moved))
	require.Equal(t, "bob", moved.Username)
	require.NotNil(t, moved.Latitude)
	require.InDelta(t, 41.8781, *moved.Latitude, 0.0001)
}

func TestWS_MalformedEvents(t *testing.T) {
	srv, _ := newTestServer(t, &stubStrategy{})

	ws := dialWS(t, srv)

	sendEvent(t, ws, live.EventJoin, live.JoinPayload{Username: "   "})
	var msg string
	require.NoError(t, json.Unmarshal(waitFor(t, ws, live.EventError), &msg))
	require.Equal(t, "username is required", msg)

	lat := 200.0
	sendEvent(t, ws, live.EventLocationUpdate, live.LocationPayload{Latitude: &lat, Longitude: &lat})
	require.NoError(t, json.Unmarshal(waitFor(t, ws, live.EventError), &msg))
	require.Equal(t, "coordinates out of range", msg)

	sendEvent(t, ws, "teleport", map[string]string{})
	require.NoError(t, json.Unmarshal(waitFor(t, ws, live.EventError), &msg))
	require.Contains(t, msg, "unknown event")
}

func TestWS_TrackingUpdateBroadcast(t *testing.T) {
	srv, _ := newTestServer(t, &stubStrategy{})

	ws := dialWS(t, srv)
	sendEvent(t, ws, live.EventJoin, live.JoinPayload{Username: "watcher"})
	waitFor(t, ws, live.EventCurrentUsers)

	resp, out := postTrack(t, srv, `{"trackingNumber":"123456789012"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "FEDEX", out["carrier"])

	var res models.TrackingResult
	require.NoError(t, json.Unmarshal(waitFor(t, ws, live.EventTrackingUpdate), &res))
	require.Equal(t, "123456789012", res.TrackingNumber)
	require.Equal(t, "In Transit", res.Status)
}
