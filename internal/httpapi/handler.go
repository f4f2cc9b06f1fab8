package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"qms/guest-queue-service/internal/store"
)

// Readiness reports whether the backing database accepts queries.
type Readiness interface {
	CheckReady(ctx context.Context) error
}

// Options configure the HTTP surface. CanViewAllDepartments decides which
// requesting departments see archive rows of every department.
type Options struct {
	Logger                zerolog.Logger
	Ready                 Readiness
	RateLimiter           *RateLimiter
	AdminJWTSecret        string
	CORSOrigins           []string
	CanViewAllDepartments func(department string) bool
}

type Handler struct {
	store   store.QueueStore
	ready   Readiness
	log     zerolog.Logger
	limiter *RateLimiter
	secret  string
	origins []string
	viewAll func(department string) bool
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

type messageResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func NewHandler(store store.QueueStore, options Options) *Handler {
	origins := options.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		store:   store,
		ready:   options.Ready,
		log:     options.Logger,
		limiter: options.RateLimiter,
		secret:  options.AdminJWTSecret,
		origins: origins,
		viewAll: options.CanViewAllDepartments,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.log))
	r.Use(Recoverer(h.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}
		r.Route("/api/guest-queue", func(r chi.Router) {
			r.Post("/create", h.handleCreate)
			r.Delete("/delete/{queueNumber}", h.handleDelete)
			r.Get("/pending", h.handlePending)
			r.Get("/skippedQueues", h.handleSkipped)
			r.Get("/currentlyServing", h.handleCurrentlyServing)
			r.Get("/status/{queueNumber}", h.handleStatus)
			r.Get("/getGuest/{queueNumber}", h.handleGetTicket)
			r.Get("/getCurrentQueue", h.handleCurrentQueue)
			r.Get("/events", h.handleEvents)
			r.Get("/events/{ticketId}", h.handleTicketEvents)

			r.Group(func(r chi.Router) {
				r.Use(RequireStaff(h.secret))
				r.Post("/archive", h.handleArchive)
				r.Put("/acceptQueue/{queueNumber}", h.handleAccept)
				r.Put("/finishQueue/{queueNumber}", h.handleFinish)
				r.Put("/skipQueue/{queueNumber}", h.handleSkip)
				r.Put("/reintegrateQueue/{queueNumber}", h.handleReintegrate)
				r.Put("/transferQueue/{queueNumber}", h.handleTransfer)
				r.Delete("/removeQueue/{queueNumber}", h.handleRemove)
				r.Get("/statistics", h.handleStatistics)
				r.Get("/queue/archived", h.handleArchived)
			})
		})

		r.Route("/api/guests", func(r chi.Router) {
			r.Post("/", h.handleCreateGuest)
			r.Get("/{id}", h.handleGetGuest)
		})
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.ready.CheckReady(ctx); err != nil {
		h.log.Warn().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) canViewAll(department string) bool {
	return h.viewAll != nil && h.viewAll(department)
}

func ticketRef(r *http.Request) store.TicketRef {
	return store.TicketRef{
		QueueNumber: strings.TrimSpace(chi.URLParam(r, "queueNumber")),
		Department:  strings.TrimSpace(r.URL.Query().Get("department")),
	}
}

// decodeJSON reads the request body into target. Optional bodies may be empty.
func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}, optional bool) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON payload", "invalid_json")
		return false
	}
	return true
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest, validationDetail(err), "validation_error"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "Queue not found", "not_found"
	case errors.Is(err, store.ErrGuestNotFound):
		return http.StatusNotFound, "Guest not found", "not_found"
	case errors.Is(err, store.ErrAmbiguousTicket):
		return http.StatusConflict, "Queue number exists in more than one department, pass ?department=", "ambiguous_queue_number"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, err.Error(), "invalid_state"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "Conflicting queue update, retry the request", "conflict"
	default:
		return http.StatusInternalServerError, "Server Error", err.Error()
	}
}

func validationDetail(err error) string {
	detail := strings.TrimPrefix(err.Error(), store.ErrValidation.Error()+": ")
	if detail == "" {
		return err.Error()
	}
	return strings.ToUpper(detail[:1]) + detail[1:]
}

// writeStoreError answers with the mapped status; failure replaces the
// message of unexpected errors.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	status, message, code := mapError(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", middleware.GetReqID(r.Context())).Msg(failure)
		message = failure
	}
	writeError(w, status, message, code)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Message: message, Error: code})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
