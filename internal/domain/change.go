package domain

import "time"

// ChangeOp names a mutation of the collection.
type ChangeOp string

const (
	ChangeCreated ChangeOp = "created"
	ChangeUpdated ChangeOp = "updated"
	ChangeDeleted ChangeOp = "deleted"
)

// Change describes one committed mutation. Event holds the record after the
// change and is nil for deletions.
type Change struct {
	Op        ChangeOp  `json:"op"`
	EventID   string    `json:"event_id"`
	Event     *Event    `json:"event,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// NewChange builds a change record for e. Deletions carry only the ID.
func NewChange(op ChangeOp, e Event, at time.Time) Change {
	c := Change{Op: op, EventID: e.ID, ChangedAt: at}
	if op != ChangeDeleted {
		c.Event = &e
	}
	return c
}
