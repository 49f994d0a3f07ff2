package markers

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func at(x, y, z float64) Pose {
	return Pose{Position: r3.Vec{X: x, Y: y, Z: z}, Scale: r3.Vec{X: 0.1, Y: 0.1, Z: 1}, Label: "cup"}
}

func TestTracker_CreateThenMerge(t *testing.T) {
	tr := New(DefaultConfig())

	res := tr.Update([]Observation{{Key: "cup", Pose: at(0, 0, 1)}})
	assert.Equal(t, []string{"cup"}, res.Created)
	assert.Empty(t, res.Updated)

	first, ok := tr.Get("cup")
	require.True(t, ok)

	res = tr.Update([]Observation{{Key: "cup", Pose: at(0.05, 0, 1)}})
	assert.Empty(t, res.Created)
	assert.Equal(t, []string{"cup"}, res.Updated)

	second, _ := tr.Get("cup")
	assert.Equal(t, first.InstanceID, second.InstanceID)
	assert.Equal(t, 0.05, second.Position.X)
	assert.Equal(t, 2, second.Updates)
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_MergeIdempotent(t *testing.T) {
	tr := New(DefaultConfig())
	obs := []Observation{
		{Key: "cup", Pose: at(0, 0, 1)},
		{Key: "tv", Pose: at(1, 1, 3)},
	}

	tr.Update(obs)
	want := keys(tr.Snapshot())
	for i := 0; i < 5; i++ {
		res := tr.Update(obs)
		assert.Empty(t, res.Created)
		assert.Empty(t, res.Retired)
		assert.Equal(t, want, keys(tr.Snapshot()))
	}
}

func TestTracker_Disambiguation(t *testing.T) {
	tr := New(DefaultConfig())

	res := tr.Update([]Observation{
		{Key: "cup", Pose: at(0, 0, 1)},
		{Key: "cup", Pose: at(1, 0, 1)},
	})
	assert.Equal(t, []string{"cup", "cup_1"}, res.Created)
	assert.Equal(t, []string{"cup", "cup_1"}, keys(tr.Snapshot()))

	// Same two cups next cycle: both merge.
	res = tr.Update([]Observation{
		{Key: "cup", Pose: at(0.01, 0, 1)},
		{Key: "cup", Pose: at(1.01, 0, 1)},
	})
	assert.Empty(t, res.Created)
	assert.Equal(t, []string{"cup", "cup_1"}, res.Updated)
}

func TestTracker_DisambiguationReordered(t *testing.T) {
	tr := New(DefaultConfig())
	tr.Update([]Observation{
		{Key: "cup", Pose: at(0, 0, 1)},
		{Key: "cup", Pose: at(1, 0, 1)},
	})
	base, _ := tr.Get("cup")
	other, _ := tr.Get("cup_1")

	// The detector reports the same two cups in the opposite order.
	res := tr.Update([]Observation{
		{Key: "cup", Pose: at(1.01, 0, 1)},
		{Key: "cup", Pose: at(0.01, 0, 1)},
	})
	assert.Empty(t, res.Created)
	assert.Empty(t, res.Retired)
	assert.ElementsMatch(t, []string{"cup", "cup_1"}, res.Updated)
	assert.Equal(t, []string{"cup", "cup_1"}, keys(tr.Snapshot()))

	nowBase, _ := tr.Get("cup")
	nowOther, _ := tr.Get("cup_1")
	assert.Equal(t, base.InstanceID, nowBase.InstanceID)
	assert.Equal(t, other.InstanceID, nowOther.InstanceID)
	assert.Equal(t, 1.01, nowOther.Position.X)
}

func TestTracker_CompositeRespawn(t *testing.T) {
	tr := New(Config{MergeThreshold: 0.2, RetireAfter: 3})
	tr.Update([]Observation{
		{Key: "cup", Pose: at(0, 0, 1)},
		{Key: "cup", Pose: at(1, 0, 1)},
	})
	old, _ := tr.Get("cup_1")

	// The second cup jumped far away: its composite key is re-created.
	res := tr.Update([]Observation{
		{Key: "cup", Pose: at(0, 0, 1)},
		{Key: "cup", Pose: at(3, 0, 1)},
	})
	assert.Equal(t, []string{"cup_1"}, res.Created)

	now, _ := tr.Get("cup_1")
	assert.NotEqual(t, old.InstanceID, now.InstanceID)
	assert.Equal(t, 3.0, now.Position.X)
}

func TestTracker_RetireExactlyOnce(t *testing.T) {
	tr := New(DefaultConfig())
	tr.Update([]Observation{{Key: "cup", Pose: at(0, 0, 1)}, {Key: "tv", Pose: at(2, 0, 1)}})

	res := tr.Update([]Observation{{Key: "tv", Pose: at(2, 0, 1)}})
	assert.Equal(t, []string{"cup"}, res.Retired)

	for i := 0; i < 3; i++ {
		res = tr.Update([]Observation{{Key: "tv", Pose: at(2, 0, 1)}})
		assert.Empty(t, res.Retired)
	}
	_, ok := tr.Get("cup")
	assert.False(t, ok)
}

func TestTracker_RetireAfterWindow(t *testing.T) {
	tr := New(Config{MergeThreshold: 0.2, RetireAfter: 3})
	tr.Update([]Observation{{Key: "cup", Pose: at(0, 0, 1)}})

	assert.Empty(t, tr.Update(nil).Retired)
	assert.Empty(t, tr.Update(nil).Retired)
	assert.Equal(t, []string{"cup"}, tr.Update(nil).Retired)
	assert.Empty(t, tr.Update(nil).Retired)
}

func TestTracker_MissResetOnRefresh(t *testing.T) {
	tr := New(Config{MergeThreshold: 0.2, RetireAfter: 2})
	obs := []Observation{{Key: "cup", Pose: at(0, 0, 1)}}
	tr.Update(obs)
	tr.Update(nil)
	tr.Update(obs)
	assert.Empty(t, tr.Update(nil).Retired)
	assert.Equal(t, []string{"cup"}, tr.Update(nil).Retired)
}

func TestTracker_NoMissRetirement(t *testing.T) {
	tr := New(Config{MergeThreshold: math.Inf(1)})
	tr.Update([]Observation{{Key: "https://example.com", Pose: at(0, 0, 1)}})

	for i := 0; i < 10; i++ {
		assert.Empty(t, tr.Update(nil).Retired)
	}

	// Always merges on key regardless of distance.
	res := tr.Update([]Observation{{Key: "https://example.com", Pose: at(50, 0, 1)}})
	assert.Equal(t, []string{"https://example.com"}, res.Updated)
}

func TestTracker_Deactivate(t *testing.T) {
	tr := New(Config{MergeThreshold: 0.2})
	tr.Update([]Observation{{Key: "a", Pose: at(0, 0, 1)}, {Key: "b", Pose: at(1, 0, 1)}})

	assert.True(t, tr.Deactivate("a"))
	assert.True(t, tr.Deactivate("b"))
	assert.False(t, tr.Deactivate("missing"))

	snap, _ := tr.Get("a")
	assert.False(t, snap.Active)

	// "b" is seen again and comes back; "a" is retired.
	res := tr.Update([]Observation{{Key: "b", Pose: at(1, 0, 1)}})
	assert.Equal(t, []string{"a"}, res.Retired)
	snap, _ = tr.Get("b")
	assert.True(t, snap.Active)
}

func TestTracker_Retire(t *testing.T) {
	tr := New(DefaultConfig())
	tr.Update([]Observation{{Key: "cup", Pose: at(0, 0, 1)}})

	assert.True(t, tr.Retire("cup"))
	assert.False(t, tr.Retire("cup"))
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_Smoothing(t *testing.T) {
	tr := New(Config{MergeThreshold: 1, RetireAfter: 1, Smoothing: 0.5})
	tr.Update([]Observation{{Key: "cup", Pose: at(0, 0, 1)}})
	tr.Update([]Observation{{Key: "cup", Pose: at(0.2, 0, 1)}})

	snap, _ := tr.Get("cup")
	assert.InDelta(t, 0.1, snap.Position.X, 1e-12)
}

func TestTracker_ScaleNonNegative(t *testing.T) {
	tr := New(DefaultConfig())
	p := at(0, 0, 1)
	p.Scale = r3.Vec{X: -1, Y: 0.5, Z: -0.1}
	tr.Update([]Observation{{Key: "cup", Pose: p}})

	snap, _ := tr.Get("cup")
	assert.Equal(t, r3.Vec{X: 0, Y: 0.5, Z: 0}, snap.Scale)
}

func TestTracker_SnapshotIsCopy(t *testing.T) {
	tr := New(DefaultConfig())
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tr.now = func() time.Time { return clock }
	tr.Update([]Observation{{Key: "cup", Pose: at(0, 0, 1)}})

	snaps := tr.Snapshot()
	snaps[0].Position.X = 99

	again, _ := tr.Get("cup")
	assert.Equal(t, 0.0, again.Position.X)
	assert.Equal(t, clock, again.CreatedAt)
}

func TestTracker_Clear(t *testing.T) {
	tr := New(DefaultConfig())
	tr.Update([]Observation{{Key: "b", Pose: at(0, 0, 1)}, {Key: "a", Pose: at(1, 0, 1)}})
	assert.Equal(t, []string{"a", "b"}, tr.Clear())
	assert.Equal(t, 0, tr.Len())
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Validate())

	bad := Config{MergeThreshold: 0, RetireAfter: -1, Smoothing: 1}
	assert.Len(t, bad.Validate(), 3)
}

func keys(snaps []Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Key
	}
	return out
}
