package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req models.AssignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	assignment, err := h.assignmentService.Create(r.Context(), actorFrom(r), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) EditAssignment(w http.ResponseWriter, r *http.Request) {
	var req models.AssignmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	assignment, err := h.assignmentService.Edit(r.Context(), actorFrom(r), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) PublishAssignment(w http.ResponseWriter, r *http.Request) {
	assignment, err := h.assignmentService.Publish(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	assignment, err := h.assignmentService.Complete(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	assignment, err := h.assignmentService.Get(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	if err := h.assignmentService.Delete(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"message": "Assignment deleted successfully",
	})
}

// Datatable serves both roles: teachers get their own assignments, students
// always get the published list.
func (h *Handler) Datatable(w http.ResponseWriter, r *http.Request) {
	var req models.DatatableRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	actor := actorFrom(r)
	if actor.IsStudent() {
		page, err := h.submissionService.ListPublished(r.Context(), actor, models.Paging{Page: req.Page, Limit: req.Limit})
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}
		writePage(w, page)
		return
	}

	page, err := h.assignmentService.List(r.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writePage(w, page)
}
