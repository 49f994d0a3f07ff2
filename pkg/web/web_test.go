package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-anchors/internal/log"
	"github.com/teslashibe/go-anchors/pkg/camera"
	"github.com/teslashibe/go-anchors/pkg/detection"
	"github.com/teslashibe/go-anchors/pkg/geometry"
	"github.com/teslashibe/go-anchors/pkg/markers"
	"github.com/teslashibe/go-anchors/pkg/pipeline"
	"github.com/teslashibe/go-anchors/pkg/raycast"
)

func newServer(t *testing.T) (*Server, *pipeline.Pipeline, *camera.Static) {
	t.Helper()
	s := NewServer("0", nil)
	s.SetLogger(log.Discard())

	cam, err := camera.NewStatic(camera.SquareConfig(), []byte("frame"))
	require.NoError(t, err)
	p, err := pipeline.New(pipeline.DefaultConfig(), cam, raycast.Room(2), s)
	require.NoError(t, err)
	p.SetLogger(log.Discard())
	s.SetSource(p)
	return s, p, cam
}

func cup() detection.Box {
	return detection.Box{CenterX: 320, CenterY: 320, Width: 100, Height: 100, InputSize: 640, Label: "cup", Confidence: 0.9, Scored: true}
}

func do(t *testing.T, s *Server, method, path string) (int, []byte) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(method, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestServer_NoSource(t *testing.T) {
	s := NewServer("0", nil)
	s.SetLogger(log.Discard())

	code, _ := do(t, s, http.MethodGet, "/api/markers")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, code)
}

func TestServer_MarkerAPI(t *testing.T) {
	s, p, cam := newServer(t)

	frame, ok := camera.Capture(cam)
	require.True(t, ok)
	rep := p.Process(frame, []detection.Detection{cup()})
	require.Len(t, rep.Result.Created, 1)

	code, body := do(t, s, http.MethodGet, "/api/markers")
	require.Equal(t, http.StatusOK, code)
	var list []markers.Snapshot
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "cup", list[0].Key)
	assert.Equal(t, "cup (90%)", list[0].Label)
	assert.InDelta(t, 2.0, list[0].Position.Z, 1e-6)

	code, body = do(t, s, http.MethodGet, "/api/markers/cup")
	require.Equal(t, http.StatusOK, code)
	var one markers.Snapshot
	require.NoError(t, json.Unmarshal(body, &one))
	assert.Equal(t, list[0].InstanceID, one.InstanceID)

	code, _ = do(t, s, http.MethodGet, "/api/markers/plant")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = do(t, s, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, code)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.Pipeline.Cycles)
	assert.Equal(t, 1, stats.Pipeline.Markers)
	assert.Equal(t, 0, stats.Subscribers)
}

func TestServer_DeactivateRetiresNextCycle(t *testing.T) {
	s, p, cam := newServer(t)

	frame, _ := camera.Capture(cam)
	p.Process(frame, []detection.Detection{cup()})

	code, _ := do(t, s, http.MethodPost, "/api/markers/plant/deactivate")
	assert.Equal(t, http.StatusNotFound, code)

	code, body := do(t, s, http.MethodPost, "/api/markers/cup/deactivate")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"key":"cup","deactivated":true}`, string(body))

	frame, _ = camera.Capture(cam)
	rep := p.Process(frame, nil)
	assert.Equal(t, []string{"cup"}, rep.Result.Retired)
	assert.Empty(t, p.Markers())
}

func TestServer_DeactivateByQuery(t *testing.T) {
	s, p, cam := newServer(t)

	frame, _ := camera.Capture(cam)
	p.Process(frame, []detection.Detection{detection.Polygon{
		Points:  []geometry.Vec2{{X: 0.4, Y: 0.4}, {X: 0.6, Y: 0.4}, {X: 0.6, Y: 0.6}, {X: 0.4, Y: 0.6}},
		Payload: "https://example.com/room/42",
	}})
	require.Len(t, p.Markers(), 1)

	code, body := do(t, s, http.MethodPost, "/api/deactivate?key="+url.QueryEscape("https://example.com/room/42"))
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"key":"https://example.com/room/42","deactivated":true}`, string(body))
	assert.False(t, p.Markers()[0].Active)
}

func TestServer_Reset(t *testing.T) {
	s, p, cam := newServer(t)

	frame, _ := camera.Capture(cam)
	p.Process(frame, []detection.Detection{cup()})

	code, body := do(t, s, http.MethodDelete, "/api/markers")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"retired":["cup"]}`, string(body))
	assert.Empty(t, p.Markers())
}

func TestServer_WebsocketRequiresUpgrade(t *testing.T) {
	s, _, _ := newServer(t)
	code, _ := do(t, s, http.MethodGet, "/ws/markers")
	assert.Equal(t, http.StatusUpgradeRequired, code)
}

func TestServer_MarkerStream(t *testing.T) {
	s, _, _ := newServer(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Hub().Run(ctx)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.App().Listener(ln)
	defer s.App().ShutdownWithTimeout(time.Second)

	conn, _, err := gorillaws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/markers", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.Hub().ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	s.Render([]markers.Snapshot{{Key: "cup", Label: "cup (90%)", Active: true}})
	s.Retire(nil)
	s.Retire([]string{"cup"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var ev MarkersEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventMarkers, ev.Type)
	assert.True(t, ev.Time.Equal(now))
	require.Len(t, ev.Markers, 1)
	assert.Equal(t, "cup", ev.Markers[0].Key)

	var retired RetiredEvent
	require.NoError(t, conn.ReadJSON(&retired))
	assert.Equal(t, EventRetired, retired.Type)
	assert.Equal(t, []string{"cup"}, retired.Keys)
}

func TestServer_RenderEmptyTable(t *testing.T) {
	s, _, _ := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Hub().Run(ctx)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.App().Listener(ln)
	defer s.App().ShutdownWithTimeout(time.Second)

	// Published before anyone listens; replayed on connect.
	s.Render(nil)
	time.Sleep(20 * time.Millisecond)

	conn, _, err := gorillaws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/markers", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"markers":[]`)
}
