package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type Operation string

const (
	OpSync   Operation = "sync"
	OpDelete Operation = "delete"
)

// TransactionMessage identifies a transaction to export or remove. The
// consumer loads the row itself; only the ID, owner and version travel.
// Deletes also carry the year of the sheet holding the row.
type TransactionMessage struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Version   int64     `json:"version"`
	Year      int       `json:"year,omitempty"`
	Operation Operation `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncMessage(id, ownerID string, version int64) *TransactionMessage {
	return &TransactionMessage{
		ID:        id,
		OwnerID:   ownerID,
		Version:   version,
		Operation: OpSync,
		Timestamp: time.Now(),
	}
}

func NewDeleteMessage(id, ownerID string, year int) *TransactionMessage {
	return &TransactionMessage{
		ID:        id,
		OwnerID:   ownerID,
		Year:      year,
		Operation: OpDelete,
		Timestamp: time.Now(),
	}
}

func (m *TransactionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionMessageFromJSON(data []byte) (*TransactionMessage, error) {
	var msg TransactionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message without transaction id")
	}
	switch msg.Operation {
	case "":
		msg.Operation = OpSync
	case OpSync, OpDelete:
	default:
		return nil, fmt.Errorf("unknown operation %q", msg.Operation)
	}
	return &msg, nil
}
