package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"qms/guest-queue-service/internal/models"
	"qms/guest-queue-service/internal/store"
)

type createTicketRequest struct {
	GuestUserID string `json:"guestUserId"`
	Department  string `json:"department"`
}

type archiveRequest struct {
	QueueNumber         string `json:"queueNumber"`
	OriginalQueueNumber string `json:"originalQueueNumber"`
	GuestUserID         string `json:"guestUserId"`
	Department          string `json:"department"`
	ExitReason          string `json:"exitReason"`
}

type skipRequest struct {
	SkippedBy string `json:"skippedBy"`
}

type transferRequest struct {
	TargetDepartment string `json:"targetDepartment"`
	TransferredBy    string `json:"transferredBy"`
	TransferReason   string `json:"transferReason"`
}

type removeRequest struct {
	RemovedBy     string `json:"removedBy"`
	RemovalReason string `json:"removalReason"`
}

type acceptResponse struct {
	Message          string        `json:"message"`
	NextQueueNumber  *string       `json:"nextQueueNumber"`
	ServingStartTime *time.Time    `json:"servingStartTime"`
	Queue            models.Ticket `json:"queue"`
}

type completedQueue struct {
	QueueNumber        string  `json:"queueNumber"`
	WaitingTimeMinutes *string `json:"waitingTimeMinutes"`
	ServingTimeMinutes *string `json:"servingTimeMinutes"`
	TotalTimeMinutes   *string `json:"totalTimeMinutes"`
}

type nextQueue struct {
	QueueNumber string    `json:"queueNumber"`
	CreatedAt   time.Time `json:"createdAt"`
}

type finishResponse struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message"`
	CompletedQueue completedQueue `json:"completedQueue"`
	NextQueue      *nextQueue     `json:"nextQueue"`
	Stats          store.DayStats `json:"stats"`
}

type skipResponse struct {
	Message       string          `json:"message"`
	SkippedQueue  models.Ticket   `json:"skippedQueue"`
	PendingQueues []models.Ticket `json:"pendingQueues"`
}

type transferResponse struct {
	Success        bool             `json:"success"`
	Message        string           `json:"message"`
	OldQueueNumber string           `json:"oldQueueNumber"`
	NewQueueNumber string           `json:"newQueueNumber"`
	NewQueue       models.Ticket    `json:"newQueue"`
	TimingInfo     store.TimingInfo `json:"timingInfo"`
}

type removeResponse struct {
	RemovedQueue        models.ArchivedTicket `json:"removedQueue"`
	RemainingQueueCount int                   `json:"remainingQueueCount"`
	NextQueue           *models.Ticket        `json:"nextQueue"`
	TimingInfo          store.TimingInfo      `json:"timingInfo"`
}

type servingResponse struct {
	QueueNumber      *string    `json:"queueNumber"`
	Department       string     `json:"department"`
	GuestUserID      *string    `json:"guestUserId,omitempty"`
	ServingStartTime *time.Time `json:"servingStartTime,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	req.GuestUserID = strings.TrimSpace(req.GuestUserID)
	req.Department = strings.TrimSpace(req.Department)
	if req.GuestUserID == "" || req.Department == "" {
		writeError(w, http.StatusBadRequest, "guestUserId and department are required", "validation_error")
		return
	}

	ticket, err := h.store.CreateTicket(r.Context(), store.CreateTicketInput{
		GuestUserID: req.GuestUserID,
		Department:  req.Department,
	})
	if err != nil {
		h.writeStoreError(w, r, err, "Error creating guest queue data")
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Guest queue data created successfully", Data: ticket})
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	queueNumber := strings.TrimSpace(req.OriginalQueueNumber)
	if queueNumber == "" {
		queueNumber = strings.TrimSpace(req.QueueNumber)
	}

	archived, err := h.store.ArchiveTicket(r.Context(), store.ArchiveInput{
		QueueNumber: queueNumber,
		Department:  strings.TrimSpace(req.Department),
		GuestUserID: strings.TrimSpace(req.GuestUserID),
		ExitReason:  strings.TrimSpace(req.ExitReason),
	})
	if err != nil {
		h.writeStoreError(w, r, err, "Error archiving guest data")
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Guest data archived successfully", Data: archived})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.store.LeaveQueue(r.Context(), ticketRef(r))
	if err != nil {
		h.writeStoreError(w, r, err, "Error archiving queue data")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Queue data archived successfully", Data: ticket})
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.store.ListPending(r.Context(), r.URL.Query().Get("department"))
	if err != nil {
		h.writeStoreError(w, r, err, "Error fetching pending queues")
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleSkipped(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.store.ListSkipped(r.Context(), r.URL.Query().Get("department"))
	if err != nil {
		h.writeStoreError(w, r, err, "Error fetching skipped queues")
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleCurrentlyServing(w http.ResponseWriter, r *http.Request) {
	department := strings.TrimSpace(r.URL.Query().Get("department"))
	ticket, err := h.store.CurrentlyServing(r.Context(), department)
	if err != nil {
		h.writeStoreError(w, r, err, "Server Error")
		return
	}
	resp := servingResponse{Department: department}
	if ticket != nil {
		resp.QueueNumber = &ticket.QueueNumber
		resp.GuestUserID = &ticket.GuestUserID
		resp.ServingStartTime = ticket.ServingStartTime
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ref := ticketRef(r)
	status, err := h.store.TicketStatus(r.Context(), ref)
	if err != nil {
		h.writeStoreError(w, r, err, "Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"queueNumber": ref.QueueNumber, "status": status})
}

func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.store.GetTicket(r.Context(), ticketRef(r))
	if err != nil {
		h.writeStoreError(w, r, err, "Server Error")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleCurrentQueue(w http.ResponseWriter, r *http.Request) {
	current, err := h.store.CurrentQueueNumber(r.Context(), r.URL.Query().Get("department"))
	if err != nil {
		h.writeStoreError(w, r, err, "Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"currentQueueNumber": current})
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.AcceptTicket(r.Context(), ticketRef(r))
	if err != nil {
		h.writeStoreError(w, r, err, "Server Error")
		return
	}
	writeJSON(w, http.StatusOK, acceptResponse{
		Message:          "Queue Accepted",
		NextQueueNumber:  result.NextQueueNumber,
		ServingStartTime: result.Ticket.ServingStartTime,
		Queue:            result.Ticket,
	})
}

func (h *Handler) handleFinish(w http.ResponseWriter, r *http.Request) {
	result, err := h.store.FinishTicket(r.Context(), ticketRef(r))
	if err != nil {
		h.writeStoreError(w, r, err, "Error completing queue")
		return
	}
	resp := finishResponse{
		Success: true,
		Message: "Queue completed successfully",
		CompletedQueue: completedQueue{
			QueueNumber:        result.Archived.QueueNumber,
			WaitingTimeMinutes: result.Archived.WaitingTimeMinutes,
			ServingTimeMinutes: result.Archived.ServingTimeMinutes,
			TotalTimeMinutes:   result.Archived.TotalTimeMinutes,
		},
		Stats: result.Stats,
	}
	if result.NextQueue != nil {
		resp.NextQueue = &nextQueue{QueueNumber: result.NextQueue.QueueNumber, CreatedAt: result.NextQueue.CreatedAt}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req skipRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	result, err := h.store.SkipTicket(r.Context(), store.SkipInput{
		Ref:       ticketRef(r),
		SkippedBy: actorOr(r, req.SkippedBy),
	})
	if err != nil {
		h.writeStoreError(w, r, err, "Error skipping queue")
		return
	}
	writeJSON(w, http.StatusOK, skipResponse{
		Message:       "Queue Skipped",
		SkippedQueue:  result.Ticket,
		PendingQueues: result.Pending,
	})
}

func (h *Handler) handleReintegrate(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.store.ReintegrateTicket(r.Context(), ticketRef(r))
	if err != nil {
		h.writeStoreError(w, r, err, "Error reintegrating queue")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Queue Reintegrated", "queue": ticket})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	req.TargetDepartment = strings.TrimSpace(req.TargetDepartment)
	if req.TargetDepartment == "" {
		writeError(w, http.StatusBadRequest, "Target department is required", "validation_error")
		return
	}

	result, err := h.store.TransferTicket(r.Context(), store.TransferInput{
		Ref:              ticketRef(r),
		TargetDepartment: req.TargetDepartment,
		TransferredBy:    actorOr(r, req.TransferredBy),
		TransferReason:   strings.TrimSpace(req.TransferReason),
	})
	if err != nil {
		h.writeStoreError(w, r, err, "Error transferring queue")
		return
	}
	writeJSON(w, http.StatusOK, transferResponse{
		Success:        true,
		Message:        fmt.Sprintf("Queue successfully transferred from %s to %s", result.Archived.Department, result.NewTicket.Department),
		OldQueueNumber: result.Archived.QueueNumber,
		NewQueueNumber: result.NewTicket.QueueNumber,
		NewQueue:       result.NewTicket,
		TimingInfo:     result.Timings.Info(),
	})
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	result, err := h.store.RemoveTicket(r.Context(), store.RemoveInput{
		Ref:           ticketRef(r),
		RemovedBy:     actorOr(r, req.RemovedBy),
		RemovalReason: strings.TrimSpace(req.RemovalReason),
	})
	if err != nil {
		h.writeStoreError(w, r, err, "Error removing queue data")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Queue data removed successfully",
		Data: removeResponse{
			RemovedQueue:        result.Archived,
			RemainingQueueCount: result.RemainingCount,
			NextQueue:           result.NextQueue,
			TimingInfo:          result.Timings.Info(),
		},
	})
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	stats, err := h.store.Statistics(r.Context(), query.Get("department"), strings.TrimSpace(query.Get("date")))
	if err != nil {
		h.writeStoreError(w, r, err, "Error fetching statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
