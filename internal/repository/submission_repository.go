package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

type SubmissionRepository interface {
	// Create stores a new submission. It returns ErrDuplicate when the
	// student already submitted this assignment.
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error)
	CompletedStudentIDs(ctx context.Context, assignmentID string, studentIDs []string) (map[string]bool, error)
	SubmittedAssignmentIDs(ctx context.Context, studentID string, assignmentIDs []string) (map[string]bool, error)
	SaveReview(ctx context.Context, submission *models.Submission) error
}

type submissionRepository struct {
	*PostgresRepository
}

func NewSubmissionRepository(db *sql.DB, logger zerolog.Logger) SubmissionRepository {
	return &submissionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	query := `
		INSERT INTO submissions (id, assignment_id, student_id, is_completed, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	answerQuery := `
		INSERT INTO submission_answers (submission_id, question_id, position, answer_text)
		VALUES ($1, $2, $3, $4)
	`

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			submission.ID,
			submission.AssignmentID,
			submission.StudentID,
			submission.IsCompleted,
			submission.SubmittedAt,
			submission.UpdatedAt,
		)
		if err != nil {
			return err
		}

		for i, a := range submission.Answers {
			if _, err := tx.ExecContext(ctx, answerQuery, submission.ID, a.QuestionID, i, a.AnswerText); err != nil {
				return err
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return ErrDuplicate
	}

	return err
}

const submissionColumns = `
	id, assignment_id, student_id, is_completed, total_marks, marks_obtained, reviewed_at, submitted_at, updated_at
`

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE assignment_id = $1 AND student_id = $2`
	return r.getOne(ctx, query, assignmentID, studentID)
}

func (r *submissionRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Submission, error) {
	submission := &models.Submission{}
	var totalMarks, marksObtained sql.NullFloat64
	var reviewedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&submission.ID,
		&submission.AssignmentID,
		&submission.StudentID,
		&submission.IsCompleted,
		&totalMarks,
		&marksObtained,
		&reviewedAt,
		&submission.SubmittedAt,
		&submission.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if totalMarks.Valid {
		submission.TotalMarks = &totalMarks.Float64
	}
	if marksObtained.Valid {
		submission.MarksObtained = &marksObtained.Float64
	}
	if reviewedAt.Valid {
		submission.ReviewedAt = &reviewedAt.Time
	}

	answers, err := r.loadAnswers(ctx, submission.ID)
	if err != nil {
		return nil, err
	}
	submission.Answers = answers

	return submission, nil
}

func (r *submissionRepository) loadAnswers(ctx context.Context, submissionID string) ([]models.Answer, error) {
	query := `
		SELECT question_id, answer_text, is_correct, marks_obtained
		FROM submission_answers
		WHERE submission_id = $1
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		var isCorrect sql.NullBool
		var marks sql.NullFloat64
		if err := rows.Scan(&a.QuestionID, &a.AnswerText, &isCorrect, &marks); err != nil {
			return nil, err
		}
		if isCorrect.Valid {
			a.IsCorrect = &isCorrect.Bool
		}
		if marks.Valid {
			a.MarksObtained = &marks.Float64
		}
		answers = append(answers, a)
	}

	return answers, rows.Err()
}

func (r *submissionRepository) CompletedStudentIDs(ctx context.Context, assignmentID string, studentIDs []string) (map[string]bool, error) {
	query := `
		SELECT student_id
		FROM submissions
		WHERE assignment_id = $1 AND is_completed AND student_id = ANY($2)
	`
	return r.collectIDs(ctx, query, assignmentID, pq.Array(studentIDs))
}

func (r *submissionRepository) SubmittedAssignmentIDs(ctx context.Context, studentID string, assignmentIDs []string) (map[string]bool, error) {
	query := `
		SELECT assignment_id
		FROM submissions
		WHERE student_id = $1 AND is_completed AND assignment_id = ANY($2)
	`
	return r.collectIDs(ctx, query, studentID, pq.Array(assignmentIDs))
}

func (r *submissionRepository) collectIDs(ctx context.Context, query string, args ...interface{}) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}

	return ids, rows.Err()
}

func (r *submissionRepository) SaveReview(ctx context.Context, submission *models.Submission) error {
	query := `
		UPDATE submissions
		SET total_marks = $1, marks_obtained = $2, reviewed_at = $3, updated_at = $4
		WHERE id = $5
	`
	answerQuery := `
		UPDATE submission_answers
		SET is_correct = $1, marks_obtained = $2
		WHERE submission_id = $3 AND question_id = $4
	`

	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			submission.TotalMarks,
			submission.MarksObtained,
			submission.ReviewedAt,
			submission.UpdatedAt,
			submission.ID,
		)
		if err != nil {
			return err
		}

		for _, a := range submission.Answers {
			if _, err := tx.ExecContext(ctx, answerQuery, a.IsCorrect, a.MarksObtained, submission.ID, a.QuestionID); err != nil {
				return err
			}
		}
		return nil
	})
}
