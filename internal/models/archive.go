package models

import "time"

// ArchivedTicket is the append-only record written when a ticket leaves the
// active queue. Timing fields are decimal minutes with two fraction digits.
type ArchivedTicket struct {
	ArchiveID           string     `json:"id"`
	UniqueArchiveID     string     `json:"uniqueArchiveId"`
	OriginalQueueID     string     `json:"originalQueueId"`
	GuestUserID         string     `json:"guestUserId"`
	Department          string     `json:"department"`
	QueueNumber         string     `json:"queueNumber"`
	OriginalQueueNumber string     `json:"originalQueueNumber"`
	TicketStatus        string     `json:"ticketStatus"`
	Status              string     `json:"status"`
	ExitReason          string     `json:"exitReason"`
	CreatedAt           time.Time  `json:"createdAt"`
	ServingStartTime    *time.Time `json:"servingStartTime,omitempty"`
	ServingEndTime      *time.Time `json:"servingEndTime,omitempty"`
	IsSkipped           bool       `json:"isSkipped"`
	SkippedBy           *string    `json:"skippedBy,omitempty"`
	SkippedAt           *time.Time `json:"skippedAt,omitempty"`
	TransferredFrom     *string    `json:"transferredFrom,omitempty"`
	PreviousQueueNumber *string    `json:"previousQueueNumber,omitempty"`
	TransferredTo       *string    `json:"transferredTo,omitempty"`
	TransferredBy       *string    `json:"transferredBy,omitempty"`
	TransferReason      *string    `json:"transferReason,omitempty"`
	RemovedBy           *string    `json:"removedBy,omitempty"`
	RemovalReason       *string    `json:"removalReason,omitempty"`
	ArchivedAt          time.Time  `json:"archivedAt"`
	ArchiveDate         string     `json:"archiveDate"`
	WaitingTimeMinutes  *string    `json:"waitingTimeMinutes"`
	ServingTimeMinutes  *string    `json:"servingTimeMinutes"`
	TotalTimeMinutes    *string    `json:"totalTimeMinutes"`
}

// Exit reasons record why a ticket left the active queue.
const (
	ExitServed         = "served"
	ExitUserLeft       = "user_left"
	ExitRejoined       = "rejoined"
	ExitTransferred    = "transferred"
	ExitRemovedByAdmin = "removed_by_admin"
	ExitOther          = "other"
)

// Archive statuses are the coarse projection of exit reasons.
const (
	ArchiveCompleted      = "completed"
	ArchiveLeft           = "left"
	ArchiveTransferred    = "transferred"
	ArchiveRemovedByAdmin = "removed_by_admin"
)

var archiveStatusByExit = map[string]string{
	ExitServed:         ArchiveCompleted,
	ExitUserLeft:       ArchiveLeft,
	ExitRejoined:       ArchiveLeft,
	ExitOther:          ArchiveLeft,
	ExitTransferred:    ArchiveTransferred,
	ExitRemovedByAdmin: ArchiveRemovedByAdmin,
}

// ArchiveStatusFor maps an exit reason to its archive status. Unknown reasons
// are reported as left.
func ArchiveStatusFor(exitReason string) string {
	if status, ok := archiveStatusByExit[exitReason]; ok {
		return status
	}
	return ArchiveLeft
}

func ValidExitReason(exitReason string) bool {
	_, ok := archiveStatusByExit[exitReason]
	return ok
}
