// anchors-watch subscribes to a running dashboard and prints marker changes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-anchors/internal/config"
	"github.com/teslashibe/go-anchors/internal/httpc"
	"github.com/teslashibe/go-anchors/internal/log"
	"github.com/teslashibe/go-anchors/pkg/markers"
	"github.com/teslashibe/go-anchors/pkg/web"
)

func main() {
	host := flag.String("host", "localhost", "Dashboard host")
	streamURL := flag.String("url", "", "Marker stream URL (overrides -host and ANCHORS_DASHBOARD_URL)")
	retry := flag.Duration("retry", 2*time.Second, "Reconnect delay")
	deactivate := flag.String("deactivate", "", "Hide the marker with this key and exit")
	reset := flag.Bool("reset", false, "Retire every marker and exit")
	stats := flag.Bool("stats", false, "Print pipeline stats and exit")
	flag.Parse()

	log.Init(config.LogLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := config.DashboardAPI(*host)
	if *deactivate != "" || *reset || *stats {
		if err := command(ctx, os.Stdout, api, *deactivate, *reset, *stats); err != nil {
			log.Error("request failed", "error", err)
			os.Exit(1)
		}
		return
	}

	target := *streamURL
	if target == "" {
		target = config.DashboardURL(*host)
	}

	w := newWatcher(os.Stdout)
	for {
		if err := w.watch(ctx, target); err != nil && ctx.Err() == nil {
			log.Warn("stream closed", "url", target, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(*retry):
		}
	}
}

// command runs one dashboard API call and prints the result.
func command(ctx context.Context, out io.Writer, api, deactivate string, reset, stats bool) error {
	switch {
	case deactivate != "":
		endpoint := api + "/deactivate?key=" + url.QueryEscape(deactivate)
		if err := httpc.DoJSON(ctx, nil, http.MethodPost, endpoint, nil); err != nil {
			return err
		}
		fmt.Fprintf(out, "deactivated %s\n", deactivate)
	case reset:
		var resp struct {
			Retired []string `json:"retired"`
		}
		if err := httpc.DoJSON(ctx, nil, http.MethodDelete, api+"/markers", &resp); err != nil {
			return err
		}
		fmt.Fprintf(out, "retired %d markers\n", len(resp.Retired))
	case stats:
		var resp web.StatsResponse
		if err := httpc.DoJSON(ctx, nil, http.MethodGet, api+"/stats", &resp); err != nil {
			return err
		}
		s := resp.Pipeline
		fmt.Fprintf(out, "cycles=%d detections=%d filtered=%d degenerate=%d missed=%d created=%d retired=%d markers=%d subscribers=%d\n",
			s.Cycles, s.Detections, s.Filtered, s.Degenerate, s.Missed, s.Created, s.Retired, s.Markers, resp.Subscribers)
	}
	return nil
}

// watcher diffs successive marker tables.
type watcher struct {
	out  io.Writer
	seen map[string]markers.Snapshot
}

func newWatcher(out io.Writer) *watcher {
	return &watcher{out: out, seen: make(map[string]markers.Snapshot)}
}

func (w *watcher) watch(ctx context.Context, target string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info("connected", "url", target)

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		w.handle(data)
	}
}

func (w *watcher) handle(data []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		log.Warn("bad message", "error", err)
		return
	}

	switch head.Type {
	case web.EventMarkers:
		var ev web.MarkersEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Warn("bad markers event", "error", err)
			return
		}
		w.render(ev.Markers)
	case web.EventRetired:
		var ev web.RetiredEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Warn("bad retired event", "error", err)
			return
		}
		keys := append([]string(nil), ev.Keys...)
		sort.Strings(keys)
		for _, k := range keys {
			delete(w.seen, k)
			fmt.Fprintf(w.out, "- %s\n", k)
		}
	}
}

func (w *watcher) render(snapshot []markers.Snapshot) {
	for _, m := range snapshot {
		prev, ok := w.seen[m.Key]
		w.seen[m.Key] = m
		switch {
		case !ok || prev.InstanceID != m.InstanceID:
			fmt.Fprintf(w.out, "+ %-24s %-20s (%.2f, %.2f, %.2f)\n", m.Key, m.Label, m.Position.X, m.Position.Y, m.Position.Z)
		case prev.Position != m.Position:
			fmt.Fprintf(w.out, "~ %-24s %-20s (%.2f, %.2f, %.2f)\n", m.Key, m.Label, m.Position.X, m.Position.Y, m.Position.Z)
		}
	}
}
