package store

import (
	"context"
	"time"

	"qms/guest-queue-service/internal/models"
)

// TicketRef addresses an active ticket by queue number. Department is only
// needed when two departments share a prefix.
type TicketRef struct {
	QueueNumber string
	Department  string
}

type CreateTicketInput struct {
	GuestUserID string
	Department  string
}

type SkipInput struct {
	Ref       TicketRef
	SkippedBy string
}

type TransferInput struct {
	Ref              TicketRef
	TargetDepartment string
	TransferredBy    string
	TransferReason   string
}

type RemoveInput struct {
	Ref           TicketRef
	RemovedBy     string
	RemovalReason string
}

// ArchiveInput selects the ticket by queue number or by guest.
type ArchiveInput struct {
	QueueNumber string
	Department  string
	GuestUserID string
	ExitReason  string
}

type ArchiveQuery struct {
	Department     string
	AllDepartments bool
	From           string
	To             string
	Limit          int
}

type EventQuery struct {
	Department string
	After      time.Time
	Limit      int
}

type CreateGuestInput struct {
	Name         string
	MobileNumber string
}

type AcceptResult struct {
	Ticket          models.Ticket
	NextQueueNumber *string
}

// DayStats is the department rollup returned after finishing a ticket.
type DayStats struct {
	TotalServed    int    `json:"totalServed"`
	AvgServingTime string `json:"avgServingTime"`
	AvgWaitingTime string `json:"avgWaitingTime"`
	AvgTotalTime   string `json:"avgTotalTime"`
}

type FinishResult struct {
	Archived  models.ArchivedTicket
	Timings   Timings
	NextQueue *models.Ticket
	Stats     DayStats
}

type SkipResult struct {
	Ticket  models.Ticket
	Pending []models.Ticket
}

type TransferResult struct {
	Archived  models.ArchivedTicket
	NewTicket models.Ticket
	Timings   Timings
}

type RemoveResult struct {
	Archived       models.ArchivedTicket
	Timings        Timings
	RemainingCount int
	NextQueue      *models.Ticket
}

// QueueStore is the persistence boundary of the guest queue. Every mutating
// method runs as one transaction.
type QueueStore interface {
	CreateTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, error)
	GetTicket(ctx context.Context, ref TicketRef) (models.Ticket, error)
	TicketStatus(ctx context.Context, ref TicketRef) (string, error)
	ListPending(ctx context.Context, department string) ([]models.Ticket, error)
	ListSkipped(ctx context.Context, department string) ([]models.Ticket, error)
	CurrentlyServing(ctx context.Context, department string) (*models.Ticket, error)
	CurrentQueueNumber(ctx context.Context, department string) (int, error)

	AcceptTicket(ctx context.Context, ref TicketRef) (AcceptResult, error)
	FinishTicket(ctx context.Context, ref TicketRef) (FinishResult, error)
	SkipTicket(ctx context.Context, input SkipInput) (SkipResult, error)
	ReintegrateTicket(ctx context.Context, ref TicketRef) (models.Ticket, error)
	TransferTicket(ctx context.Context, input TransferInput) (TransferResult, error)
	RemoveTicket(ctx context.Context, input RemoveInput) (RemoveResult, error)
	ArchiveTicket(ctx context.Context, input ArchiveInput) (models.ArchivedTicket, error)
	LeaveQueue(ctx context.Context, ref TicketRef) (models.Ticket, error)

	Statistics(ctx context.Context, department, date string) (Statistics, error)
	ListArchived(ctx context.Context, query ArchiveQuery) ([]models.ArchivedTicket, error)

	ListEvents(ctx context.Context, query EventQuery) ([]QueueEvent, error)
	ListTicketEvents(ctx context.Context, ticketID string) ([]QueueEvent, error)

	CreateGuest(ctx context.Context, input CreateGuestInput) (models.GuestUser, bool, error)
	GetGuest(ctx context.Context, guestUserID string) (models.GuestUser, error)

	Reconcile(ctx context.Context, batchSize int) (int, error)
}
