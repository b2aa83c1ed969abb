package checkpoint

import (
	"time"

	"github.com/nilaykumar/msc-viz/pkg/harvest"
)

// Entry is a stored harvest position.
type Entry struct {
	// RunID of the run that wrote the checkpoint
	RunID string `json:"run_id"`

	// Token to resume from
	Token string `json:"token"`

	// Cursor and CompleteListSize as reported with Token
	Cursor           int `json:"cursor"`
	CompleteListSize int `json:"complete_list_size"`

	// Rows written by the run so far
	Rows int `json:"rows"`

	// UpdatedAt is when the checkpoint was written
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntry builds an entry from a driver checkpoint.
func NewEntry(cp harvest.Checkpoint) *Entry {
	return &Entry{
		RunID:            cp.RunID,
		Token:            cp.Token,
		Cursor:           cp.Cursor,
		CompleteListSize: cp.CompleteListSize,
		Rows:             cp.Rows,
		UpdatedAt:        time.Now().UTC(),
	}
}

// Age returns the time since the checkpoint was written.
func (e *Entry) Age() time.Duration {
	return time.Since(e.UpdatedAt)
}
