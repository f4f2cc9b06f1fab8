package store

import (
	"strconv"
	"time"
)

// Aggregate is one rollup over completed archive rows. Averages are nil when
// no row carried the metric.
type Aggregate struct {
	Count      int
	AvgServing *float64
	AvgWaiting *float64
	AvgTotal   *float64
}

type Statistics struct {
	Date                 string            `json:"date"`
	Department           string            `json:"department"`
	TotalServed          int               `json:"totalServed"`
	AvgServingTime       string            `json:"avgServingTime"`
	AvgWaitingTime       string            `json:"avgWaitingTime"`
	AvgTotalTime         string            `json:"avgTotalTime"`
	PendingCount         int               `json:"pendingCount"`
	WeekStart            string            `json:"weekStart"`
	WeeklyTotalServed    int               `json:"weeklyTotalServed"`
	WeeklyAvgServingTime string            `json:"weeklyAvgServingTime"`
	WeeklyAvgWaitingTime string            `json:"weeklyAvgWaitingTime"`
	WeeklyAvgTotalTime   string            `json:"weeklyAvgTotalTime"`
	CurrentlyServing     *CurrentlyServing `json:"currentlyServing"`
}

type CurrentlyServing struct {
	QueueNumber               string     `json:"queueNumber"`
	GuestUserID               string     `json:"guestUserId"`
	ServingStartTime          *time.Time `json:"servingStartTime"`
	ElapsedMinutes            string     `json:"elapsedMinutes"`
	EstimatedRemainingMinutes string     `json:"estimatedRemainingMinutes"`
}

// FormatAverage renders an average with one decimal, "0.0" when absent.
func FormatAverage(avg *float64) string {
	if avg == nil {
		return "0.0"
	}
	return strconv.FormatFloat(*avg, 'f', 1, 64)
}

// EstimatedRemaining is the average serving time minus the time already
// spent, floored at zero.
func EstimatedRemaining(avgServing *float64, elapsedMinutes float64) float64 {
	if avgServing == nil {
		return 0
	}
	remaining := *avgServing - elapsedMinutes
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ApplyAggregates fills the daily and weekly fields of stats.
func (s *Statistics) ApplyAggregates(day, week Aggregate) {
	s.TotalServed = day.Count
	s.AvgServingTime = FormatAverage(day.AvgServing)
	s.AvgWaitingTime = FormatAverage(day.AvgWaiting)
	s.AvgTotalTime = FormatAverage(day.AvgTotal)
	s.WeeklyTotalServed = week.Count
	s.WeeklyAvgServingTime = FormatAverage(week.AvgServing)
	s.WeeklyAvgWaitingTime = FormatAverage(week.AvgWaiting)
	s.WeeklyAvgTotalTime = FormatAverage(week.AvgTotal)
}

// ServingSnapshot describes the accepted ticket of a department against now.
func ServingSnapshot(queueNumber, guestUserID string, start *time.Time, avgServing *float64, now time.Time) *CurrentlyServing {
	elapsed := 0.0
	if start != nil {
		elapsed = minutesBetween(*start, now)
	}
	remaining := EstimatedRemaining(avgServing, elapsed)
	return &CurrentlyServing{
		QueueNumber:               queueNumber,
		GuestUserID:               guestUserID,
		ServingStartTime:          start,
		ElapsedMinutes:            strconv.FormatFloat(elapsed, 'f', 1, 64),
		EstimatedRemainingMinutes: strconv.FormatFloat(remaining, 'f', 1, 64),
	}
}
