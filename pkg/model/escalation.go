package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// KindEscalations is the collection kind holding questions the assistant
// could not ground, awaiting human triage.
const KindEscalations = "unanswered_questions"

const FieldStatus = "status"

type EscalationID string

// NewEscalationID generates a new unique EscalationID
func NewEscalationID() EscalationID {
	return EscalationID(uuid.New().String())
}

type EscalationStatus string

// StatusNew is the only status minted by this system. Other values are left
// to external consumers of the queue.
const StatusNew EscalationStatus = "new"

// Escalation is a question the assistant failed to answer, recorded for
// out-of-band human follow-up. Status is write-once at creation; records are
// deleted on triage, never patched.
type Escalation struct {
	ID        EscalationID
	Question  string
	CreatedAt time.Time
	Status    EscalationStatus
}

// DecodeEscalation builds an Escalation from a stored document.
func DecodeEscalation(id string, fields map[string]any) (*Escalation, error) {
	question, ok := fields[FieldQuestion].(string)
	if !ok || question == "" {
		return nil, goerr.New("escalation document has no question", goerr.V("id", id))
	}

	esc := &Escalation{
		ID:       EscalationID(id),
		Question: question,
	}
	if ts, ok := fields[FieldTimestamp].(time.Time); ok {
		esc.CreatedAt = ts
	}
	if status, ok := fields[FieldStatus].(string); ok {
		esc.Status = EscalationStatus(status)
	}

	return esc, nil
}
