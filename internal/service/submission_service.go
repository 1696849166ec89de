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

// StudentPageLimit is the default page size of the student assignment list.
const StudentPageLimit = 100

type SubmissionService interface {
	ListPublished(ctx context.Context, actor models.Actor, paging models.Paging) (*models.Page[models.AssignmentView], error)
	Submit(ctx context.Context, actor models.Actor, req *models.SubmitRequest) (*models.Submission, error)
}

type submissionService struct {
	assignmentRepo repository.AssignmentRepository
	submissionRepo repository.SubmissionRepository
	publisher      integration.EventPublisher
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	now            func() time.Time
}

func NewSubmissionService(
	assignmentRepo repository.AssignmentRepository,
	submissionRepo repository.SubmissionRepository,
	publisher integration.EventPublisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		assignmentRepo: assignmentRepo,
		submissionRepo: submissionRepo,
		publisher:      publisher,
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *submissionService) ListPublished(ctx context.Context, actor models.Actor, paging models.Paging) (*models.Page[models.AssignmentView], error) {
	if !actor.IsStudent() {
		return nil, ErrForbidden
	}

	paging = paging.Normalize(StudentPageLimit)
	filter := models.AssignmentFilter{Status: models.StatusPublished}

	assignments, total, err := s.assignmentRepo.Query(ctx, filter, paging.Limit, paging.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list published assignments: %w", err)
	}

	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ID)
	}
	submitted, err := s.submissionRepo.SubmittedAssignmentIDs(ctx, actor.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission state: %w", err)
	}

	views := make([]models.AssignmentView, 0, len(assignments))
	for _, a := range assignments {
		views = append(views, NewStudentView(a, submitted[a.ID]))
	}

	return models.NewPage(views, total, paging), nil
}

func (s *submissionService) Submit(ctx context.Context, actor models.Actor, req *models.SubmitRequest) (*models.Submission, error) {
	if err := validation.ValidateSubmission(req, nil); err != nil {
		return nil, err
	}
	if !actor.IsStudent() || req.StudentID != actor.ID {
		return nil, fmt.Errorf("%w: students may only submit for themselves", ErrForbidden)
	}

	assignment, err := s.assignmentRepo.GetByID(ctx, req.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, req.AssignmentID)
	}
	if assignment.Status != models.StatusPublished {
		return nil, fmt.Errorf("%w: assignment %s is %s", ErrInvalidTransition, assignment.ID, assignment.Status)
	}

	if err := validation.ValidateSubmission(req, assignment); err != nil {
		s.metrics.Submission("invalid")
		return nil, err
	}

	// Проверяем, не сдавал ли уже студент это задание
	existing, err := s.submissionRepo.GetByAssignmentAndStudent(ctx, assignment.ID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}
	if existing != nil {
		s.metrics.Submission("duplicate")
		return nil, ErrDuplicateSubmission
	}

	now := s.now().UTC()
	submission := &models.Submission{
		ID:           uuid.New().String(),
		AssignmentID: assignment.ID,
		StudentID:    actor.ID,
		Answers:      orderAnswers(assignment, req.Answers),
		IsCompleted:  true,
		SubmittedAt:  now,
		UpdatedAt:    now,
	}

	err = s.submissionRepo.Create(ctx, submission)
	if errors.Is(err, repository.ErrDuplicate) {
		s.metrics.Submission("duplicate")
		return nil, ErrDuplicateSubmission
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	s.metrics.Submission("created")
	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("assignment_id", assignment.ID).
		Str("student_id", actor.ID).
		Msg("Submission created")

	event := &models.SubmissionEvent{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		Timestamp:    now.Unix(),
	}
	if err := s.publisher.Publish(ctx, models.EventSubmissionCompleted, event); err != nil {
		s.logger.Warn().Err(err).Str("submission_id", submission.ID).Msg("Failed to publish submission event")
	}

	return submission, nil
}

// orderAnswers returns the answers in the assignment's question order.
func orderAnswers(assignment *models.Assignment, answers []models.AnswerRequest) []models.Answer {
	byQuestion := make(map[string]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.AnswerText
	}

	out := make([]models.Answer, 0, len(assignment.Questions))
	for _, q := range assignment.Questions {
		out = append(out, models.Answer{QuestionID: q.ID, AnswerText: byQuestion[q.ID]})
	}
	return out
}
