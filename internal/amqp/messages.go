package amqp

import (
	"encoding/json"
	"time"

	"splitlens/internal/report"
)

// SnapshotMessage carries a full report snapshot. Unlike an ID-only message
// there is no database to re-read on the consumer side; the dashboard holds
// no state, so the event is self-contained.
type SnapshotMessage struct {
	Snapshot    report.Snapshot `json:"snapshot"`
	PublishedAt time.Time       `json:"published_at"`
}

// NewSnapshotMessage wraps a snapshot for publishing.
func NewSnapshotMessage(snap report.Snapshot) *SnapshotMessage {
	return &SnapshotMessage{
		Snapshot:    snap,
		PublishedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *SnapshotMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotMessageFromJSON creates a message from JSON bytes.
func SnapshotMessageFromJSON(data []byte) (*SnapshotMessage, error) {
	var msg SnapshotMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
