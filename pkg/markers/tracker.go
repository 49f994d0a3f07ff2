package markers

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-anchors/internal/log"
	"github.com/teslashibe/go-anchors/pkg/geometry"
)

// Result reports what a cycle did to the table. Every key appears at most once
// across the three lists.
type Result struct {
	Created []string
	Updated []string
	Retired []string
}

// Tracker owns the active marker table.
type Tracker struct {
	config  Config
	markers map[string]*Marker
	mu      sync.RWMutex
	logger  *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a tracker. Invalid config values fall back to the defaults.
func New(cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.MergeThreshold <= 0 {
		cfg.MergeThreshold = def.MergeThreshold
	}
	if cfg.RetireAfter < 0 {
		cfg.RetireAfter = def.RetireAfter
	}
	if cfg.Smoothing < 0 || cfg.Smoothing >= 1 {
		cfg.Smoothing = 0
	}
	return &Tracker{
		config:  cfg,
		markers: make(map[string]*Marker),
		logger:  log.Component("markers"),
		now:     time.Now,
	}
}

// SetLogger replaces the tracker's logger.
func (t *Tracker) SetLogger(l *slog.Logger) {
	if l != nil {
		t.logger = l
	}
}

// Config returns the tracker policy.
func (t *Tracker) Config() Config {
	return t.config
}

// Update applies one cycle of observations.
//
// An observation whose key exists and lies within MergeThreshold refreshes that
// marker. One that lies farther away refreshes the nearest "<key>_<n>" marker
// within MergeThreshold not yet claimed this cycle, so instances keep their
// identity when the detector reorders them. Failing that it is re-keyed as
// "<key>_<index>", index being its position in obs, and that key is refreshed if
// near, otherwise (re)created. Unknown keys are created. Markers not refreshed
// this cycle then count a miss, and those past RetireAfter, or deactivated, are
// retired.
func (t *Tracker) Update(obs []Observation) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	seen := make(map[string]bool, len(obs))
	var res Result

	for i, o := range obs {
		key := o.Key
		if m, ok := t.markers[key]; ok && !t.near(m, o.Pose) {
			key = t.sibling(o, seen)
			if key == "" {
				key = fmt.Sprintf("%s_%d", o.Key, i)
			}
		}

		m, ok := t.markers[key]
		switch {
		case ok && t.near(m, o.Pose):
			t.refresh(m, o.Pose, now)
			if !seen[key] {
				res.Updated = append(res.Updated, key)
			}
		default:
			if ok {
				t.logger.Debug("marker respawned", "key", key, "old_instance", m.InstanceID)
			}
			t.markers[key] = t.create(key, o.Pose, now)
			if !seen[key] {
				res.Created = append(res.Created, key)
			}
		}
		seen[key] = true
	}

	for key, m := range t.markers {
		if seen[key] {
			continue
		}
		m.Missed++
		if !m.Active || (t.config.RetireAfter > 0 && m.Missed >= t.config.RetireAfter) {
			delete(t.markers, key)
			res.Retired = append(res.Retired, key)
		}
	}
	sort.Strings(res.Retired)

	if len(res.Created)+len(res.Retired) > 0 {
		t.logger.Debug("markers updated",
			"created", len(res.Created),
			"updated", len(res.Updated),
			"retired", len(res.Retired),
			"active", len(t.markers))
	}

	return res
}

// sibling returns the nearest unclaimed composite of o.Key within
// MergeThreshold, or "".
func (t *Tracker) sibling(o Observation, seen map[string]bool) string {
	prefix := o.Key + "_"
	best, bestDist := "", t.config.MergeThreshold
	for key, m := range t.markers {
		if seen[key] || !strings.HasPrefix(key, prefix) || !isIndex(key[len(prefix):]) {
			continue
		}
		d := geometry.Distance(m.Pose.Position, o.Pose.Position)
		if d < bestDist || (d == bestDist && best != "" && key < best) {
			best, bestDist = key, d
		}
	}
	return best
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (t *Tracker) near(m *Marker, p Pose) bool {
	return geometry.Distance(m.Pose.Position, p.Position) < t.config.MergeThreshold
}

func (t *Tracker) create(key string, p Pose, now time.Time) *Marker {
	return &Marker{
		Key:        key,
		InstanceID: uuid.New(),
		Pose:       clampScale(p),
		Active:     true,
		Updates:    1,
		CreatedAt:  now,
		LastSeen:   now,
	}
}

// refresh updates a marker in place. Position is blended with the previous one
// when smoothing is configured; rotation, scale and label are replaced.
func (t *Tracker) refresh(m *Marker, p Pose, now time.Time) {
	p = clampScale(p)
	if s := t.config.Smoothing; s > 0 {
		p.Position = r3.Add(r3.Scale(s, m.Pose.Position), r3.Scale(1-s, p.Position))
	}
	m.Pose = p
	m.Active = true
	m.Missed = 0
	m.Updates++
	m.LastSeen = now
}

func clampScale(p Pose) Pose {
	p.Scale.X = max(p.Scale.X, 0)
	p.Scale.Y = max(p.Scale.Y, 0)
	p.Scale.Z = max(p.Scale.Z, 0)
	return p
}

// Deactivate marks a marker as hidden by the renderer. It is retired at the end
// of the next cycle unless that cycle sees it again.
func (t *Tracker) Deactivate(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.markers[key]
	if !ok {
		return false
	}
	m.Active = false
	return true
}

// Retire removes a marker immediately.
func (t *Tracker) Retire(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.markers[key]; !ok {
		return false
	}
	delete(t.markers, key)
	return true
}

// Get returns a copy of one marker.
func (t *Tracker) Get(key string) (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m, ok := t.markers[key]
	if !ok {
		return Snapshot{}, false
	}
	return m.snapshot(), true
}

// Snapshot returns copies of all markers sorted by key.
func (t *Tracker) Snapshot() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Snapshot, 0, len(t.markers))
	for _, m := range t.markers {
		out = append(out, m.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of markers.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.markers)
}

// Clear removes every marker and returns their keys.
func (t *Tracker) Clear() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.markers))
	for k := range t.markers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	t.markers = make(map[string]*Marker)
	return keys
}
