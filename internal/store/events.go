package store

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"qms/guest-queue-service/internal/models"
)

const (
	EventCreated      = "queue.created"
	EventRejoined     = "queue.rejoined"
	EventAccepted     = "queue.accepted"
	EventSkipped      = "queue.skipped"
	EventReintegrated = "queue.reintegrated"
	EventServed       = "queue.served"
	EventTransferred  = "queue.transferred"
	EventRemoved      = "queue.removed"
	EventLeft         = "queue.left"
	EventArchived     = "queue.archived"
)

var ErrBrokenChain = errors.New("queue event chain does not verify")

// QueueEvent is one link of a ticket's journal.
type QueueEvent struct {
	EventID     string          `json:"id"`
	TicketID    string          `json:"ticketId"`
	TicketSeq   int             `json:"ticketSeq"`
	Department  string          `json:"department"`
	QueueNumber string          `json:"queueNumber"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"createdAt"`
	PrevHash    string          `json:"prevHash"`
	Hash        string          `json:"hash"`
}

// EventPayload is the ticket snapshot journaled with each event.
type EventPayload struct {
	TicketID         string     `json:"ticketId"`
	GuestUserID      string     `json:"guestUserId,omitempty"`
	Department       string     `json:"department,omitempty"`
	QueueNumber      string     `json:"queueNumber,omitempty"`
	Status           string     `json:"status,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	ServingStartTime *time.Time `json:"servingStartTime,omitempty"`
	SkippedBy        *string    `json:"skippedBy,omitempty"`
	ExitReason       string     `json:"exitReason,omitempty"`
	ToDepartment     string     `json:"toDepartment,omitempty"`
	Actor            string     `json:"actor,omitempty"`
}

func PayloadFor(ticket models.Ticket) EventPayload {
	created := ticket.CreatedAt
	return EventPayload{
		TicketID:         ticket.TicketID,
		GuestUserID:      ticket.GuestUserID,
		Department:       ticket.Department,
		QueueNumber:      ticket.QueueNumber,
		Status:           ticket.Status,
		CreatedAt:        &created,
		ServingStartTime: ticket.ServingStartTime,
		SkippedBy:        ticket.SkippedBy,
	}
}

func ComputeEventHash(prevHash, ticketID, eventType string, payload json.RawMessage, createdAt time.Time, seq int) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%d|%s", prevHash, ticketID, eventType, createdAt.UTC().Format(time.RFC3339Nano), seq, payload)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum)
}

// VerifyEventChain checks sequence continuity and every hash link of one
// ticket's events, ordered by sequence.
func VerifyEventChain(events []QueueEvent) error {
	prev := ""
	for i, event := range events {
		if event.TicketSeq != i+1 {
			return fmt.Errorf("%w: expected seq %d, got %d", ErrBrokenChain, i+1, event.TicketSeq)
		}
		if event.PrevHash != prev {
			return fmt.Errorf("%w: seq %d prev hash mismatch", ErrBrokenChain, event.TicketSeq)
		}
		want := ComputeEventHash(prev, event.TicketID, event.Type, event.Payload, event.CreatedAt, event.TicketSeq)
		if event.Hash != want {
			return fmt.Errorf("%w: seq %d hash mismatch", ErrBrokenChain, event.TicketSeq)
		}
		prev = event.Hash
	}
	return nil
}

// ReplayTicket folds journaled snapshots into the last known ticket state.
func ReplayTicket(events []QueueEvent) (models.Ticket, error) {
	var ticket models.Ticket
	for _, event := range events {
		if len(event.Payload) == 0 {
			continue
		}
		var payload EventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return models.Ticket{}, err
		}
		if payload.TicketID != "" {
			ticket.TicketID = payload.TicketID
		}
		if payload.GuestUserID != "" {
			ticket.GuestUserID = payload.GuestUserID
		}
		if payload.Department != "" {
			ticket.Department = payload.Department
		}
		if payload.QueueNumber != "" {
			ticket.QueueNumber = payload.QueueNumber
		}
		if payload.Status != "" {
			ticket.Status = payload.Status
			ticket.IsSkipped = payload.Status == models.StatusSkipped
			if !ticket.IsSkipped {
				ticket.SkippedBy = nil
			}
		}
		if payload.CreatedAt != nil {
			ticket.CreatedAt = *payload.CreatedAt
		}
		if payload.ServingStartTime != nil {
			ticket.ServingStartTime = payload.ServingStartTime
		}
		if payload.SkippedBy != nil && ticket.IsSkipped {
			ticket.SkippedBy = payload.SkippedBy
		}
	}
	return ticket, nil
}
