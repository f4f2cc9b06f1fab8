package store

import (
	"strconv"
	"time"

	"qms/guest-queue-service/internal/models"
)

// Timings holds the span metrics of a ticket in minutes.
type Timings struct {
	WaitingMinutes float64
	ServingMinutes float64
	TotalMinutes   float64
}

// ComputeTimings measures a ticket against now. Without a serving start the
// whole lifetime counts as waiting.
func ComputeTimings(ticket models.Ticket, now time.Time) Timings {
	total := minutesBetween(ticket.CreatedAt, now)
	if ticket.ServingStartTime == nil {
		return Timings{WaitingMinutes: total, TotalMinutes: total}
	}
	return Timings{
		WaitingMinutes: minutesBetween(ticket.CreatedAt, *ticket.ServingStartTime),
		ServingMinutes: minutesBetween(*ticket.ServingStartTime, now),
		TotalMinutes:   total,
	}
}

func minutesBetween(from, to time.Time) float64 {
	span := to.Sub(from)
	if span < 0 {
		return 0
	}
	return span.Minutes()
}

// FormatMinutes renders a span with two decimals, the archive's storage format.
func FormatMinutes(minutes float64) string {
	return strconv.FormatFloat(minutes, 'f', 2, 64)
}

// TimingInfo is the formatted view returned by transfer and remove.
type TimingInfo struct {
	WaitingTimeMinutes string `json:"waitingTimeMinutes"`
	ServingTimeMinutes string `json:"servingTimeMinutes"`
	TotalTimeMinutes   string `json:"totalTimeMinutes"`
}

func (t Timings) Info() TimingInfo {
	return TimingInfo{
		WaitingTimeMinutes: FormatMinutes(t.WaitingMinutes),
		ServingTimeMinutes: FormatMinutes(t.ServingMinutes),
		TotalTimeMinutes:   FormatMinutes(t.TotalMinutes),
	}
}
