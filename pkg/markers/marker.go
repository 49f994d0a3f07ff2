// Package markers keeps the table of persistent world anchors and decides, each
// cycle, which detections refresh an existing marker, which spawn a new one and
// which markers are retired.
package markers

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is where a marker sits in the world and how big it is.
type Pose struct {
	Position r3.Vec
	Rotation quat.Number
	Scale    r3.Vec // non-negative
	Label    string // display text
}

// Observation is one estimated pose for a detection key in the current cycle.
type Observation struct {
	Key  string
	Pose Pose
}

// Marker is a persistent anchor. Only the Tracker holds live Markers.
type Marker struct {
	Key        string
	InstanceID uuid.UUID // changes when a key is re-created
	Pose       Pose
	Active     bool
	Missed     int // consecutive cycles without a refresh
	Updates    int
	CreatedAt  time.Time
	LastSeen   time.Time
}

// Snapshot is a read-only copy of a marker handed to renderers.
type Snapshot struct {
	Key        string     `json:"key"`
	InstanceID string     `json:"instance_id"`
	Position   r3.Vec     `json:"position"`
	Rotation   [4]float64 `json:"rotation"` // w, x, y, z
	Scale      r3.Vec     `json:"scale"`
	Label      string     `json:"label"`
	Active     bool       `json:"active"`
	Updates    int        `json:"updates"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeen   time.Time  `json:"last_seen"`
}

// Quaternion returns the snapshot rotation.
func (s Snapshot) Quaternion() quat.Number {
	return quat.Number{Real: s.Rotation[0], Imag: s.Rotation[1], Jmag: s.Rotation[2], Kmag: s.Rotation[3]}
}

func (m *Marker) snapshot() Snapshot {
	q := m.Pose.Rotation
	return Snapshot{
		Key:        m.Key,
		InstanceID: m.InstanceID.String(),
		Position:   m.Pose.Position,
		Rotation:   [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag},
		Scale:      m.Pose.Scale,
		Label:      m.Pose.Label,
		Active:     m.Active,
		Updates:    m.Updates,
		CreatedAt:  m.CreatedAt,
		LastSeen:   m.LastSeen,
	}
}
