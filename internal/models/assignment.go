package models

import (
	"time"
)

type Question struct {
	ID       string `json:"id" db:"id"`
	Question string `json:"question" db:"question" validate:"notblank"`
}

type Assignment struct {
	ID          string           `json:"id" db:"id"`
	TeacherID   string           `json:"teacherId" db:"teacher_id"`
	Title       string           `json:"title" db:"title"`
	Description string           `json:"description" db:"description"`
	DueDate     Date             `json:"dueDate" db:"due_date"`
	Status      AssignmentStatus `json:"status" db:"status"`
	Questions   []Question       `json:"questions"`
	Marks       *float64         `json:"marks,omitempty" db:"marks"`
	Version     int              `json:"version" db:"version"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// QuestionIndex maps question ids to their position in the assignment.
func (a *Assignment) QuestionIndex() map[string]int {
	idx := make(map[string]int, len(a.Questions))
	for i, q := range a.Questions {
		idx[q.ID] = i
	}
	return idx
}

// AssignmentView is an assignment as returned by listings, annotated with
// what the caller may do with it.
type AssignmentView struct {
	Assignment
	AllowedActions []Action `json:"allowedActions"`
	Locked         bool     `json:"locked"`
	IsSubmit       *bool    `json:"isSubmit,omitempty"`
}

type AssignmentStatus string

const (
	StatusDraft     AssignmentStatus = "Draft"
	StatusPublished AssignmentStatus = "Published"
	StatusCompleted AssignmentStatus = "Completed"
)

func (s AssignmentStatus) String() string {
	return string(s)
}

func IsValidAssignmentStatus(status string) bool {
	switch AssignmentStatus(status) {
	case StatusDraft, StatusPublished, StatusCompleted:
		return true
	default:
		return false
	}
}

// Action is something a teacher view can offer for an assignment.
type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// AssignmentFilter narrows assignment queries. Empty fields match everything.
type AssignmentFilter struct {
	Status    AssignmentStatus
	TeacherID string
}
