package models

// Data Transfer Objects

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
	Position string `json:"position" validate:"required,oneof=teacher student"`
}

// AssignmentRequest is the payload of both create and edit; ID and Version
// are only read on edit.
type AssignmentRequest struct {
	ID          string     `json:"id"`
	Title       string     `json:"title" validate:"notblank,max=255"`
	Description string     `json:"description" validate:"notblank,max=5000"`
	DueDate     Date       `json:"dueDate" validate:"required"`
	Status      string     `json:"status" validate:"required,oneof=Draft Published Completed"`
	Questions   []Question `json:"questions" validate:"required,min=1,dive"`
	Marks       *float64   `json:"marks,omitempty" validate:"omitempty,gte=0"`
	Version     int        `json:"version" validate:"gte=0"`
}

type DatatableRequest struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Status string `json:"status" validate:"omitempty,oneof=Draft Published Completed"`
}

type StudentListRequest struct {
	Page         int    `json:"page"`
	Limit        int    `json:"limit"`
	Position     string `json:"position" validate:"omitempty,oneof=teacher student"`
	AssignmentID string `json:"assignmentId" validate:"required"`
}

type AnswerRequest struct {
	QuestionID string `json:"questionId" validate:"required"`
	AnswerText string `json:"answerText" validate:"notblank"`
}

type SubmitRequest struct {
	AssignmentID string          `json:"assignmentId" validate:"required"`
	StudentID    string          `json:"studentId" validate:"required"`
	Answers      []AnswerRequest `json:"answers" validate:"required,min=1,dive"`
}

type ReviewRequest struct {
	Answers       []AnswerReview `json:"answers" validate:"dive"`
	TotalMarks    *float64       `json:"totalMarks" validate:"required,gt=0"`
	MarksObtained *float64       `json:"marksObtained" validate:"required,gte=0"`
}
