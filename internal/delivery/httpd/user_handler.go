package httpd

import (
	"net/http"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeSuccess(w, resp)
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	var req models.StudentListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	page, err := h.reviewService.ListStudents(r.Context(), actorFrom(r), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writePage(w, page)
}
