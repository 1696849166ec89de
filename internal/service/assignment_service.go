package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/classroom-assignments/internal/metrics"
	"github.com/RubachokBoss/classroom-assignments/internal/models"
	"github.com/RubachokBoss/classroom-assignments/internal/repository"
	"github.com/RubachokBoss/classroom-assignments/internal/service/integration"
	"github.com/RubachokBoss/classroom-assignments/internal/validation"
)

type AssignmentService interface {
	Create(ctx context.Context, actor models.Actor, req *models.AssignmentRequest) (*models.AssignmentView, error)
	Edit(ctx context.Context, actor models.Actor, req *models.AssignmentRequest) (*models.AssignmentView, error)
	Publish(ctx context.Context, actor models.Actor, id string) (*models.AssignmentView, error)
	Complete(ctx context.Context, actor models.Actor, id string) (*models.AssignmentView, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Get(ctx context.Context, actor models.Actor, id string) (*models.AssignmentView, error)
	List(ctx context.Context, actor models.Actor, req *models.DatatableRequest) (*models.Page[models.AssignmentView], error)
}

type assignmentService struct {
	assignmentRepo repository.AssignmentRepository
	submissionRepo repository.SubmissionRepository
	publisher      integration.EventPublisher
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	now            func() time.Time
}

func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	submissionRepo repository.SubmissionRepository,
	publisher integration.EventPublisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentService{
		assignmentRepo: assignmentRepo,
		submissionRepo: submissionRepo,
		publisher:      publisher,
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *assignmentService) Create(ctx context.Context, actor models.Actor, req *models.AssignmentRequest) (*models.AssignmentView, error) {
	if !actor.IsTeacher() {
		return nil, ErrForbidden
	}
	if err := validation.ValidateAssignment(req); err != nil {
		return nil, err
	}

	requested := models.AssignmentStatus(req.Status)
	// Новое задание всегда начинается с Draft
	if !CanTransition(models.StatusDraft, requested) {
		return nil, fmt.Errorf("%w: cannot create assignment as %s", ErrInvalidTransition, requested)
	}

	now := s.now().UTC()
	assignment := &models.Assignment{
		ID:          uuid.New().String(),
		TeacherID:   actor.ID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      requested,
		Questions:   assignQuestionIDs(req.Questions),
		Marks:       req.Marks,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("teacher_id", actor.ID).
		Str("status", assignment.Status.String()).
		Msg("Assignment created")

	if requested != models.StatusDraft {
		s.transitioned(ctx, assignment, models.StatusDraft)
	}

	view := NewView(*assignment)
	return &view, nil
}

func assignQuestionIDs(questions []models.Question) []models.Question {
	out := make([]models.Question, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		out[i] = q
	}
	return out
}

func (s *assignmentService) Edit(ctx context.Context, actor models.Actor, req *models.AssignmentRequest) (*models.AssignmentView, error) {
	if err := validation.ValidateAssignment(req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, validation.New(validation.FieldError{Field: "id", Error: "this field is required"})
	}

	assignment, err := s.owned(ctx, actor, req.ID)
	if err != nil {
		return nil, err
	}

	if !CanEdit(assignment.Status) {
		return nil, fmt.Errorf("%w: assignment %s is %s", ErrInvalidTransition, assignment.ID, assignment.Status)
	}
	from := assignment.Status
	to := models.AssignmentStatus(req.Status)
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if req.Version != 0 && req.Version != assignment.Version {
		return nil, fmt.Errorf("%w: assignment %s is at version %d", ErrConflict, assignment.ID, assignment.Version)
	}

	assignment.Title = req.Title
	assignment.Description = req.Description
	assignment.DueDate = req.DueDate
	assignment.Status = to
	assignment.Questions = assignQuestionIDs(req.Questions)
	assignment.Marks = req.Marks

	if err := s.save(ctx, assignment, req.Version); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("status", assignment.Status.String()).
		Int("version", assignment.Version).
		Msg("Assignment updated")

	if from != to {
		s.transitioned(ctx, assignment, from)
	}

	view := NewView(*assignment)
	return &view, nil
}

func (s *assignmentService) Publish(ctx context.Context, actor models.Actor, id string) (*models.AssignmentView, error) {
	return s.moveTo(ctx, actor, id, models.StatusPublished)
}

func (s *assignmentService) Complete(ctx context.Context, actor models.Actor, id string) (*models.AssignmentView, error) {
	return s.moveTo(ctx, actor, id, models.StatusCompleted)
}

// moveTo applies a status-only edit. Unlike Edit it requires an actual change.
func (s *assignmentService) moveTo(ctx context.Context, actor models.Actor, id string, to models.AssignmentStatus) (*models.AssignmentView, error) {
	assignment, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	from := assignment.Status
	if from == to || !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	assignment.Status = to
	if err := s.save(ctx, assignment, assignment.Version); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Assignment status changed")

	s.transitioned(ctx, assignment, from)

	view := NewView(*assignment)
	return &view, nil
}

func (s *assignmentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	assignment, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}

	if !CanDelete(assignment.Status) {
		return fmt.Errorf("%w: assignment %s is %s", ErrInvalidTransition, assignment.ID, assignment.Status)
	}

	if err := s.assignmentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	s.logger.Info().Str("assignment_id", id).Msg("Assignment deleted")

	return nil
}

// Get returns one assignment. Teachers see only their own; students see
// anything past Draft, with isSubmit filled in.
func (s *assignmentService) Get(ctx context.Context, actor models.Actor, id string) (*models.AssignmentView, error) {
	if actor.IsTeacher() {
		assignment, err := s.owned(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		view := NewView(*assignment)
		return &view, nil
	}

	assignment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.Status == models.StatusDraft {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, id)
	}

	submitted, err := s.submissionRepo.SubmittedAssignmentIDs(ctx, actor.ID, []string{id})
	if err != nil {
		return nil, fmt.Errorf("failed to get submission state: %w", err)
	}

	view := NewStudentView(*assignment, submitted[id])
	return &view, nil
}

func (s *assignmentService) List(ctx context.Context, actor models.Actor, req *models.DatatableRequest) (*models.Page[models.AssignmentView], error) {
	if !actor.IsTeacher() {
		return nil, ErrForbidden
	}
	if err := validation.ValidateDatatable(req); err != nil {
		return nil, err
	}

	paging := models.Paging{Page: req.Page, Limit: req.Limit}.Normalize(models.DefaultPageLimit)
	filter := models.AssignmentFilter{
		Status:    models.AssignmentStatus(req.Status),
		TeacherID: actor.ID,
	}

	assignments, total, err := s.assignmentRepo.Query(ctx, filter, paging.Limit, paging.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	views := make([]models.AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		views = append(views, NewView(a))
	}

	return models.NewPage(views, total, paging), nil
}

func (s *assignmentService) find(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, id)
	}
	return assignment, nil
}

// owned loads an assignment the actor is allowed to manage.
func (s *assignmentService) owned(ctx context.Context, actor models.Actor, id string) (*models.Assignment, error) {
	if !actor.IsTeacher() {
		return nil, ErrForbidden
	}
	assignment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.TeacherID != actor.ID {
		return nil, fmt.Errorf("%w: assignment %s belongs to another teacher", ErrForbidden, id)
	}
	return assignment, nil
}

func (s *assignmentService) save(ctx context.Context, assignment *models.Assignment, expectedVersion int) error {
	assignment.Version++
	assignment.UpdatedAt = s.now().UTC()

	err := s.assignmentRepo.Update(ctx, assignment, expectedVersion)
	if errors.Is(err, repository.ErrVersionMismatch) {
		return fmt.Errorf("%w: assignment %s", ErrConflict, assignment.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return nil
}

func (s *assignmentService) transitioned(ctx context.Context, assignment *models.Assignment, from models.AssignmentStatus) {
	s.metrics.Transition(from.String(), assignment.Status.String())

	var key string
	switch assignment.Status {
	case models.StatusPublished:
		key = models.EventAssignmentPublished
	case models.StatusCompleted:
		key = models.EventAssignmentCompleted
	default:
		return
	}

	event := &models.AssignmentEvent{
		AssignmentID: assignment.ID,
		TeacherID:    assignment.TeacherID,
		Status:       assignment.Status.String(),
		Timestamp:    s.now().Unix(),
	}
	if err := s.publisher.Publish(ctx, key, event); err != nil {
		// Не прерываем выполнение, только логируем ошибку
		s.logger.Warn().Err(err).Str("assignment_id", assignment.ID).Msg("Failed to publish assignment event")
	}
}
