package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"qms/guest-queue-service/internal/store"
)

type createGuestRequest struct {
	Name         string `json:"name"`
	MobileNumber string `json:"mobileNumber"`
}

// handleCreateGuest registers a guest by mobile number. A known number
// returns the existing guest with 200.
func (h *Handler) handleCreateGuest(w http.ResponseWriter, r *http.Request) {
	var req createGuestRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	guest, created, err := h.store.CreateGuest(r.Context(), store.CreateGuestInput{
		Name:         strings.TrimSpace(req.Name),
		MobileNumber: strings.TrimSpace(req.MobileNumber),
	})
	if err != nil {
		h.writeStoreError(w, r, err, "Error creating guest user")
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, messageResponse{Message: "Guest user already exists", Data: guest})
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Guest user created successfully", Data: guest})
}

func (h *Handler) handleGetGuest(w http.ResponseWriter, r *http.Request) {
	guest, err := h.store.GetGuest(r.Context(), strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		h.writeStoreError(w, r, err, "Error fetching guest user")
		return
	}
	writeJSON(w, http.StatusOK, guest)
}
