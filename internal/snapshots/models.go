package snapshots

import "time"

// Reason records why a snapshot was taken.
type Reason string

const (
	ReasonAutosave   Reason = "autosave"
	ReasonManual     Reason = "manual"
	ReasonClose      Reason = "close"
	ReasonPreRestore Reason = "pre_restore"
)

// Snapshot is one stored composition.
type Snapshot struct {
	ID        string    `json:"id"`
	Project   string    `json:"project"`
	SessionID string    `json:"session_id,omitempty"`
	Reason    Reason    `json:"reason"`
	Profile   string    `json:"profile"`
	FPS       float64   `json:"fps"`
	Duration  int       `json:"duration"`
	Tracks    int       `json:"tracks"`
	CreatedAt time.Time `json:"created_at"`
	Data      []byte    `json:"-"`
}

// Size returns the length of the serialized document in bytes.
func (s Snapshot) Size() int {
	return len(s.Data)
}

// DatabaseHealth captures diagnostic information about the snapshot database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TotalSnapshots   int
	Projects         int
	IntegrityCheck   bool
	Error            string
}
