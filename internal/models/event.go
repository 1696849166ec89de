package models

const (
	EventAssignmentPublished = "assignment.published"
	EventAssignmentCompleted = "assignment.completed"
	EventSubmissionCompleted = "submission.completed"
	EventSubmissionReviewed  = "submission.reviewed"
)

type AssignmentEvent struct {
	AssignmentID string `json:"assignment_id"`
	TeacherID    string `json:"teacher_id"`
	Status       string `json:"status"`
	Timestamp    int64  `json:"timestamp"`
}

type SubmissionEvent struct {
	SubmissionID  string   `json:"submission_id"`
	AssignmentID  string   `json:"assignment_id"`
	StudentID     string   `json:"student_id"`
	TotalMarks    *float64 `json:"total_marks,omitempty"`
	MarksObtained *float64 `json:"marks_obtained,omitempty"`
	Timestamp     int64    `json:"timestamp"`
}
