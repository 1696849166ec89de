package service

import (
	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

// next holds the single forward step allowed from each status.
var next = map[models.AssignmentStatus]models.AssignmentStatus{
	models.StatusDraft:     models.StatusPublished,
	models.StatusPublished: models.StatusCompleted,
}

var allowedActions = map[models.AssignmentStatus][]models.Action{
	models.StatusDraft:     {models.ActionView, models.ActionEdit, models.ActionDelete},
	models.StatusPublished: {models.ActionView, models.ActionEdit},
	models.StatusCompleted: {models.ActionView},
}

// AllowedActions lists what a teacher may do with an assignment in status.
func AllowedActions(status models.AssignmentStatus) []models.Action {
	actions := allowedActions[status]
	out := make([]models.Action, len(actions))
	copy(out, actions)
	return out
}

func IsLocked(status models.AssignmentStatus) bool {
	return status == models.StatusCompleted
}

func CanEdit(status models.AssignmentStatus) bool {
	return hasAction(status, models.ActionEdit)
}

func CanDelete(status models.AssignmentStatus) bool {
	return hasAction(status, models.ActionDelete)
}

func hasAction(status models.AssignmentStatus, action models.Action) bool {
	for _, a := range allowedActions[status] {
		if a == action {
			return true
		}
	}
	return false
}

// CanTransition reports whether status may move from -> to. Staying put is
// allowed except for Completed; moves go one step forward only.
func CanTransition(from, to models.AssignmentStatus) bool {
	if from == to {
		return from != models.StatusCompleted
	}
	return next[from] == to
}

func NewView(a models.Assignment) models.AssignmentView {
	return models.AssignmentView{
		Assignment:     a,
		AllowedActions: AllowedActions(a.Status),
		Locked:         IsLocked(a.Status),
	}
}

// NewStudentView is the read-only view shown to students.
func NewStudentView(a models.Assignment, submitted bool) models.AssignmentView {
	return models.AssignmentView{
		Assignment:     a,
		AllowedActions: []models.Action{models.ActionView},
		Locked:         IsLocked(a.Status),
		IsSubmit:       &submitted,
	}
}
