package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
)

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	Query(ctx context.Context, filter models.AssignmentFilter, limit, offset int) ([]models.Assignment, int, error)
	// Update overwrites the assignment. A non-zero expectedVersion makes the
	// write conditional on the stored version.
	Update(ctx context.Context, assignment *models.Assignment, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}

type assignmentRepository struct {
	*PostgresRepository
}

func NewAssignmentRepository(db *sql.DB, logger zerolog.Logger) AssignmentRepository {
	return &assignmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	query := `
		INSERT INTO assignments (id, teacher_id, title, description, due_date, status, marks, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			assignment.ID,
			assignment.TeacherID,
			assignment.Title,
			assignment.Description,
			assignment.DueDate.Time,
			assignment.Status.String(),
			assignment.Marks,
			assignment.Version,
			assignment.CreatedAt,
			assignment.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return insertQuestions(ctx, tx, assignment)
	})
	if isUniqueViolation(err) {
		return ErrDuplicate
	}

	return err
}

func insertQuestions(ctx context.Context, tx *sql.Tx, assignment *models.Assignment) error {
	query := `
		INSERT INTO assignment_questions (id, assignment_id, position, question)
		VALUES ($1, $2, $3, $4)
	`

	for i, q := range assignment.Questions {
		if _, err := tx.ExecContext(ctx, query, q.ID, assignment.ID, i, q.Question); err != nil {
			return err
		}
	}
	return nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `
		SELECT id, teacher_id, title, description, due_date, status, marks, version, created_at, updated_at
		FROM assignments
		WHERE id = $1
	`

	assignment, err := scanAssignment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	questions, err := r.loadQuestions(ctx, []string{assignment.ID})
	if err != nil {
		return nil, err
	}
	assignment.Questions = questions[assignment.ID]

	return assignment, nil
}

func (r *assignmentRepository) Query(ctx context.Context, filter models.AssignmentFilter, limit, offset int) ([]models.Assignment, int, error) {
	where, args := assignmentWhere(filter)

	// Получаем общее количество
	countQuery := `SELECT COUNT(*) FROM assignments` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, teacher_id, title, description, due_date, status, marks, version, created_at, updated_at
		FROM assignments%s
		ORDER BY seq
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var assignments []models.Assignment
	var ids []string
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		assignments = append(assignments, *assignment)
		ids = append(ids, assignment.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		questions, err := r.loadQuestions(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range assignments {
			assignments[i].Questions = questions[assignments[i].ID]
		}
	}

	return assignments, total, nil
}

func assignmentWhere(filter models.AssignmentFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status.String())
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conds = append(conds, fmt.Sprintf("teacher_id = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment, expectedVersion int) error {
	query := `
		UPDATE assignments
		SET title = $1, description = $2, due_date = $3, status = $4, marks = $5, version = $6, updated_at = $7
		WHERE id = $8 AND ($9 = 0 OR version = $9)
	`

	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query,
			assignment.Title,
			assignment.Description,
			assignment.DueDate.Time,
			assignment.Status.String(),
			assignment.Marks,
			assignment.Version,
			assignment.UpdatedAt,
			assignment.ID,
			expectedVersion,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrVersionMismatch
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM assignment_questions WHERE assignment_id = $1`, assignment.ID); err != nil {
			return err
		}
		return insertQuestions(ctx, tx, assignment)
	})
}

func (r *assignmentRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM assignments WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *assignmentRepository) loadQuestions(ctx context.Context, assignmentIDs []string) (map[string][]models.Question, error) {
	query := `
		SELECT assignment_id, id, question
		FROM assignment_questions
		WHERE assignment_id = ANY($1)
		ORDER BY assignment_id, position
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(assignmentIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make(map[string][]models.Question, len(assignmentIDs))
	for rows.Next() {
		var assignmentID string
		var q models.Question
		if err := rows.Scan(&assignmentID, &q.ID, &q.Question); err != nil {
			return nil, err
		}
		questions[assignmentID] = append(questions[assignmentID], q)
	}

	return questions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	assignment := &models.Assignment{}
	var status string
	var marks sql.NullFloat64

	err := row.Scan(
		&assignment.ID,
		&assignment.TeacherID,
		&assignment.Title,
		&assignment.Description,
		&assignment.DueDate.Time,
		&status,
		&marks,
		&assignment.Version,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if !models.IsValidAssignmentStatus(status) {
		return nil, fmt.Errorf("unknown assignment status %q", status)
	}
	assignment.Status = models.AssignmentStatus(status)
	assignment.DueDate = models.DateFromTime(assignment.DueDate.Time)
	if marks.Valid {
		assignment.Marks = &marks.Float64
	}

	return assignment, nil
}
