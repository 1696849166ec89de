package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

func (h *Handler) StudentSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	submission, err := h.submissionService.Submit(r.Context(), actorFrom(r), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, submission)
}

func (h *Handler) FetchSubmission(w http.ResponseWriter, r *http.Request) {
	detail, err := h.reviewService.FetchSubmission(r.Context(), actorFrom(r), chi.URLParam(r, "id"), chi.URLParam(r, "studentId"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, detail)
}

func (h *Handler) ReviewSubmission(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	submission, err := h.reviewService.SubmitReview(r.Context(), actorFrom(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, submission)
}
