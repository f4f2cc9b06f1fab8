package models

import "time"

// Ticket is a live row of the active queue.
type Ticket struct {
	TicketID            string     `json:"id"`
	GuestUserID         string     `json:"guestUserId"`
	Department          string     `json:"department"`
	QueueNumber         string     `json:"queueNumber"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"createdAt"`
	ServingStartTime    *time.Time `json:"servingStartTime,omitempty"`
	IsSkipped           bool       `json:"isSkipped"`
	SkippedBy           *string    `json:"skippedBy,omitempty"`
	SkippedAt           *time.Time `json:"skippedAt,omitempty"`
	TransferredFrom     *string    `json:"transferredFrom,omitempty"`
	PreviousQueueNumber *string    `json:"previousQueueNumber,omitempty"`
}

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusSkipped  = "skipped"
	StatusServed   = "served"
	StatusLeft     = "left"
)
