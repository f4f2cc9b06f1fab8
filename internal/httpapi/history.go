package httpapi

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"qms/guest-queue-service/internal/models"
	"qms/guest-queue-service/internal/store"
)

type archivedResponse struct {
	Success bool                    `json:"success"`
	Data    []models.ArchivedTicket `json:"data"`
	Count   int                     `json:"count"`
}

type ticketEventsResponse struct {
	TicketID string             `json:"ticketId"`
	Verified bool               `json:"verified"`
	Ticket   *models.Ticket     `json:"ticket,omitempty"`
	Events   []store.QueueEvent `json:"events"`
}

var archiveCSVHeader = []string{
	"archiveId", "queueNumber", "department", "guestUserId", "status", "exitReason",
	"createdAt", "servingStartTime", "servingEndTime", "archivedAt", "archiveDate",
	"waitingTimeMinutes", "servingTimeMinutes", "totalTimeMinutes",
	"skippedBy", "transferredFrom", "transferredTo", "transferredBy", "transferReason",
	"removedBy", "removalReason",
}

// handleArchived lists archive history. The department parameter names the
// requesting department; configured viewers see every department. Without a
// department in the query or the token, every department is listed.
func (h *Handler) handleArchived(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	department := strings.TrimSpace(query.Get("department"))
	if department == "" {
		if claims, ok := claimsFromContext(r.Context()); ok {
			department = claims.Department
		}
	}
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			writeError(w, http.StatusBadRequest, "Limit must be a positive integer", "validation_error")
			return
		}
		limit = value
	}

	records, err := h.store.ListArchived(r.Context(), store.ArchiveQuery{
		Department:     department,
		AllDepartments: h.canViewAll(department),
		From:           strings.TrimSpace(query.Get("from")),
		To:             strings.TrimSpace(query.Get("to")),
		Limit:          limit,
	})
	if err != nil {
		h.writeStoreError(w, r, err, "Error fetching archived queue history")
		return
	}

	if strings.EqualFold(query.Get("format"), "csv") {
		writeArchiveCSV(w, records)
		return
	}
	writeJSON(w, http.StatusOK, archivedResponse{Success: true, Data: records, Count: len(records)})
}

func writeArchiveCSV(w http.ResponseWriter, records []models.ArchivedTicket) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="archived-queues.csv"`)
	w.WriteHeader(http.StatusOK)

	writer := csv.NewWriter(w)
	_ = writer.Write(archiveCSVHeader)
	for _, record := range records {
		_ = writer.Write([]string{
			record.UniqueArchiveID,
			record.QueueNumber,
			record.Department,
			record.GuestUserID,
			record.Status,
			record.ExitReason,
			record.CreatedAt.Format(time.RFC3339),
			formatTime(record.ServingStartTime),
			formatTime(record.ServingEndTime),
			record.ArchivedAt.Format(time.RFC3339),
			record.ArchiveDate,
			deref(record.WaitingTimeMinutes),
			deref(record.ServingTimeMinutes),
			deref(record.TotalTimeMinutes),
			deref(record.SkippedBy),
			deref(record.TransferredFrom),
			deref(record.TransferredTo),
			deref(record.TransferredBy),
			deref(record.TransferReason),
			deref(record.RemovedBy),
			deref(record.RemovalReason),
		})
	}
	writer.Flush()
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var after time.Time
	if raw := strings.TrimSpace(query.Get("after")); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "After must be an RFC 3339 timestamp", "validation_error")
			return
		}
		after = parsed
	}
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			writeError(w, http.StatusBadRequest, "Limit must be a positive integer", "validation_error")
			return
		}
		limit = value
	}

	events, err := h.store.ListEvents(r.Context(), store.EventQuery{
		Department: strings.TrimSpace(query.Get("department")),
		After:      after,
		Limit:      limit,
	})
	if err != nil {
		h.writeStoreError(w, r, err, "Error fetching queue events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleTicketEvents returns a ticket's journal with the outcome of its hash
// chain verification. A verified journal also carries the ticket state it
// replays to.
func (h *Handler) handleTicketEvents(w http.ResponseWriter, r *http.Request) {
	ticketID := strings.TrimSpace(chi.URLParam(r, "ticketId"))
	events, err := h.store.ListTicketEvents(r.Context(), ticketID)
	verified := true
	if errors.Is(err, store.ErrBrokenChain) {
		h.log.Warn().Str("ticket_id", ticketID).Msg("queue event chain does not verify")
		verified = false
		err = nil
	}
	if err != nil {
		h.writeStoreError(w, r, err, "Error fetching queue events")
		return
	}
	resp := ticketEventsResponse{TicketID: ticketID, Verified: verified, Events: events}
	if verified && len(events) > 0 {
		ticket, err := store.ReplayTicket(events)
		if err != nil {
			h.writeStoreError(w, r, err, "Error fetching queue events")
			return
		}
		resp.Ticket = &ticket
	}
	writeJSON(w, http.StatusOK, resp)
}

func formatTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Format(time.RFC3339)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

