package validation

import (
	"fmt"
	"strings"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

func ValidateLogin(req *models.LoginRequest) error {
	return Struct(req)
}

func ValidateUser(req *models.CreateUserRequest) error {
	return Struct(req)
}

// ValidateAssignment checks the fields required to create or edit an
// assignment and that client-supplied question ids are unique.
func ValidateAssignment(req *models.AssignmentRequest) error {
	var fields []FieldError
	if err := Struct(req); err != nil {
		vErr, ok := err.(*ValidationError)
		if !ok {
			return err
		}
		fields = append(fields, vErr.Fields...)
	}

	seen := make(map[string]bool, len(req.Questions))
	for i, q := range req.Questions {
		if q.ID == "" {
			continue
		}
		if seen[q.ID] {
			fields = append(fields, FieldError{Field: fmt.Sprintf("questions[%d].id", i), Error: duplicateQuestionText})
		}
		seen[q.ID] = true
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func ValidateDatatable(req *models.DatatableRequest) error {
	return Struct(req)
}

func ValidateStudentList(req *models.StudentListRequest) error {
	return Struct(req)
}

// ValidateReview checks marks bounds: totalMarks > 0 and
// 0 <= marksObtained <= totalMarks. When submission is given, every
// reviewed question must be one of its answers, at most once.
func ValidateReview(req *models.ReviewRequest, submission *models.Submission) error {
	var fields []FieldError
	if err := Struct(req); err != nil {
		vErr, ok := err.(*ValidationError)
		if !ok {
			return err
		}
		fields = append(fields, vErr.Fields...)
	}

	if submission != nil {
		answered := make(map[string]bool, len(submission.Answers))
		for _, a := range submission.Answers {
			answered[a.QuestionID] = true
		}
		seen := make(map[string]bool, len(req.Answers))
		for i, a := range req.Answers {
			path := fmt.Sprintf("answers[%d].questionId", i)
			switch {
			case a.QuestionID == "":
			case !answered[a.QuestionID]:
				fields = append(fields, FieldError{Field: path, Error: unknownQuestionText})
			case seen[a.QuestionID]:
				fields = append(fields, FieldError{Field: path, Error: duplicateAnswerText})
			}
			seen[a.QuestionID] = true
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidateSubmission checks the payload shape and, when the assignment is
// known, that every question carries exactly one non-blank answer.
func ValidateSubmission(req *models.SubmitRequest, assignment *models.Assignment) error {
	var fields []FieldError
	if err := Struct(req); err != nil {
		vErr, ok := err.(*ValidationError)
		if !ok {
			return err
		}
		fields = append(fields, vErr.Fields...)
	}
	if assignment != nil {
		fields = append(fields, answerCoverage(req.Answers, assignment)...)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func answerCoverage(answers []models.AnswerRequest, assignment *models.Assignment) []FieldError {
	var fields []FieldError
	index := assignment.QuestionIndex()
	seen := make(map[string]bool, len(answers))

	for i, a := range answers {
		path := fmt.Sprintf("answers[%d].questionId", i)
		if a.QuestionID == "" {
			continue
		}
		if _, ok := index[a.QuestionID]; !ok {
			fields = append(fields, FieldError{Field: path, Error: unknownQuestionText})
			continue
		}
		if seen[a.QuestionID] {
			fields = append(fields, FieldError{Field: path, Error: duplicateAnswerText})
			continue
		}
		if strings.TrimSpace(a.AnswerText) != "" {
			seen[a.QuestionID] = true
		}
	}

	for i, q := range assignment.Questions {
		if !seen[q.ID] {
			fields = append(fields, FieldError{
				Field: fmt.Sprintf("questions[%d].answer", i),
				Error: "answer is required",
			})
		}
	}
	return fields
}

// CanSubmit mirrors the submit button guard: every question has a non-blank
// answer. It is a convenience only; ValidateSubmission is authoritative.
func CanSubmit(assignment *models.Assignment, answers map[string]string) bool {
	if len(assignment.Questions) == 0 {
		return false
	}
	for _, q := range assignment.Questions {
		if strings.TrimSpace(answers[q.ID]) == "" {
			return false
		}
	}
	return true
}
