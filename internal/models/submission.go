package models

import (
	"time"
)

type Answer struct {
	QuestionID    string   `json:"questionId" db:"question_id"`
	AnswerText    string   `json:"answerText" db:"answer_text"`
	IsCorrect     *bool    `json:"isCorrect,omitempty" db:"is_correct"`
	MarksObtained *float64 `json:"marksObtained,omitempty" db:"marks_obtained"`
}

type Submission struct {
	ID            string     `json:"id" db:"id"`
	AssignmentID  string     `json:"assignmentId" db:"assignment_id"`
	StudentID     string     `json:"studentId" db:"student_id"`
	Answers       []Answer   `json:"answers"`
	IsCompleted   bool       `json:"isCompleted" db:"is_completed"`
	TotalMarks    *float64   `json:"totalMarks,omitempty" db:"total_marks"`
	MarksObtained *float64   `json:"marksObtained,omitempty" db:"marks_obtained"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty" db:"reviewed_at"`
	SubmittedAt   time.Time  `json:"submittedAt" db:"submitted_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

func (s *Submission) IsReviewed() bool {
	return s.ReviewedAt != nil
}

// AnswerReview is the teacher's verdict on one answer.
type AnswerReview struct {
	QuestionID    string   `json:"questionId" validate:"required"`
	IsCorrect     bool     `json:"isCorrect"`
	MarksObtained *float64 `json:"marksObtained,omitempty" validate:"omitempty,gte=0"`
}

// SubmissionDetail pairs every question of an assignment with the student's
// answer, in question order.
type SubmissionDetail struct {
	Submission
	AssignmentTitle string             `json:"assignmentTitle"`
	StudentName     string             `json:"studentName"`
	Questions       []AnsweredQuestion `json:"questions"`
}

type AnsweredQuestion struct {
	QuestionID    string   `json:"questionId"`
	Question      string   `json:"question"`
	Answer        string   `json:"answer"`
	IsCorrect     *bool    `json:"isCorrect,omitempty"`
	MarksObtained *float64 `json:"marksObtained,omitempty"`
}
