package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/classroom-assignments/internal/auth"
	"github.com/RubachokBoss/classroom-assignments/internal/models"
	"github.com/RubachokBoss/classroom-assignments/internal/service"
	"github.com/RubachokBoss/classroom-assignments/internal/validation"
)

const maxBodyBytes = 1 << 20

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WorkerStats describes the background worker pool.
type WorkerStats interface {
	GetStats() map[string]interface{}
}

type Handler struct {
	userService       service.UserService
	assignmentService service.AssignmentService
	submissionService service.SubmissionService
	reviewService     service.ReviewService
	tokens            *auth.TokenManager
	store             Pinger
	workers           WorkerStats
	logger            zerolog.Logger
}

func NewHandler(
	userService service.UserService,
	assignmentService service.AssignmentService,
	submissionService service.SubmissionService,
	reviewService service.ReviewService,
	tokens *auth.TokenManager,
	store Pinger,
	workers WorkerStats,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		userService:       userService,
		assignmentService: assignmentService,
		submissionService: submissionService,
		reviewService:     reviewService,
		tokens:            tokens,
		store:             store,
		workers:           workers,
		logger:            logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)
	router.Post("/user/login", h.Login)

	router.Group(func(r chi.Router) {
		r.Use(h.Authenticate)

		r.With(RequireTeacher).Post("/user/list", h.ListStudents)

		r.Route("/assigment", func(r chi.Router) {
			r.Post("/datatable", h.Datatable)
			r.Get("/{id}", h.GetAssignment)

			r.With(RequireStudent).Post("/student-submit", h.StudentSubmit)

			r.Group(func(r chi.Router) {
				r.Use(RequireTeacher)

				r.Post("/create", h.CreateAssignment)
				r.Post("/edit", h.EditAssignment)
				r.Post("/{id}/publish", h.PublishAssignment)
				r.Post("/{id}/complete", h.CompleteAssignment)
				r.Delete("/{id}", h.DeleteAssignment)
				r.Get("/{id}/student/{studentId}", h.FetchSubmission)
				r.Post("/review-teacher/{id}", h.ReviewSubmission)
			})
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "classroom-assignments",
		"timestamp": time.Now().UTC(),
	}
	if h.workers != nil {
		response["workers"] = h.workers.GetStats()
	}

	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			h.logger.Error().Err(err).Msg("Health check failed")
			response["status"] = "unhealthy"
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusOK, response)
}

// writePage reports at least one page so an empty table still renders a pager.
func writePage[T any](w http.ResponseWriter, page *models.Page[T]) {
	totalPages := page.TotalPages
	if totalPages < 1 {
		totalPages = 1
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"data":       page.Items,
		"total":      page.Total,
		"page":       page.Page,
		"limit":      page.Limit,
		"totalPages": totalPages,
	})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *validation.ValidationError

	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   http.StatusText(http.StatusBadRequest),
			"message": vErr.Error(),
			"fields":  vErr.FieldMap(),
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrDuplicateSubmission),
		errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
