package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/wisatabooks/ledger/internal/domain/ledger"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message stores a committed-rows event for reliable publishing. It is written
// in the same transaction as the ledger rows it describes, so a crash between
// commit and publish never loses the event.
type Message struct {
	ID            int64           `json:"id"`
	EntryID       *uuid.UUID      `json:"entry_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a committed-rows event as a pending outbox message
func NewMessage(event *ledger.CommittedEvent) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EntryID:   event.EntryID,
		Payload:   payload,
		Status:    StatusPending,
		Attempts:  0,
		CreatedAt: time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = StatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = StatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// Event decodes the committed-rows event from the payload
func (m *Message) Event() (*ledger.CommittedEvent, error) {
	var event ledger.CommittedEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
