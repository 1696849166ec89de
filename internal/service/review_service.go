package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/classroom-assignments/internal/metrics"
	"github.com/RubachokBoss/classroom-assignments/internal/models"
	"github.com/RubachokBoss/classroom-assignments/internal/repository"
	"github.com/RubachokBoss/classroom-assignments/internal/service/integration"
	"github.com/RubachokBoss/classroom-assignments/internal/validation"
)

type ReviewService interface {
	ListStudents(ctx context.Context, actor models.Actor, req *models.StudentListRequest) (*models.Page[models.StudentProgress], error)
	FetchSubmission(ctx context.Context, actor models.Actor, assignmentID, studentID string) (*models.SubmissionDetail, error)
	SubmitReview(ctx context.Context, actor models.Actor, submissionID string, req *models.ReviewRequest) (*models.Submission, error)
}

type reviewService struct {
	assignmentRepo repository.AssignmentRepository
	submissionRepo repository.SubmissionRepository
	userRepo       repository.UserRepository
	publisher      integration.EventPublisher
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	now            func() time.Time
}

func NewReviewService(
	assignmentRepo repository.AssignmentRepository,
	submissionRepo repository.SubmissionRepository,
	userRepo repository.UserRepository,
	publisher integration.EventPublisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) ReviewService {
	return &reviewService{
		assignmentRepo: assignmentRepo,
		submissionRepo: submissionRepo,
		userRepo:       userRepo,
		publisher:      publisher,
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *reviewService) ListStudents(ctx context.Context, actor models.Actor, req *models.StudentListRequest) (*models.Page[models.StudentProgress], error) {
	if err := validation.ValidateStudentList(req); err != nil {
		return nil, err
	}
	if _, err := s.ownedAssignment(ctx, actor, req.AssignmentID); err != nil {
		return nil, err
	}

	position := req.Position
	if position == "" {
		position = models.PositionStudent
	}
	paging := models.Paging{Page: req.Page, Limit: req.Limit}.Normalize(models.DefaultPageLimit)

	users, total, err := s.userRepo.ListByPosition(ctx, position, paging.Limit, paging.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	completed, err := s.submissionRepo.CompletedStudentIDs(ctx, req.AssignmentID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get completion state: %w", err)
	}

	rows := make([]models.StudentProgress, 0, len(users))
	for _, u := range users {
		done := completed[u.ID]
		rows = append(rows, models.StudentProgress{User: u, IsCompleted: done, CanReview: done})
	}

	return models.NewPage(rows, total, paging), nil
}

func (s *reviewService) FetchSubmission(ctx context.Context, actor models.Actor, assignmentID, studentID string) (*models.SubmissionDetail, error) {
	assignment, err := s.ownedAssignment(ctx, actor, assignmentID)
	if err != nil {
		return nil, err
	}

	submission, err := s.submissionRepo.GetByAssignmentAndStudent(ctx, assignmentID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil {
		return nil, fmt.Errorf("%w: no submission of %s for assignment %s", ErrNotFound, studentID, assignmentID)
	}

	detail := &models.SubmissionDetail{
		Submission:      *submission,
		AssignmentTitle: assignment.Title,
		Questions:       answeredQuestions(assignment, submission),
	}

	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student != nil {
		detail.StudentName = student.Name
	}

	return detail, nil
}

func answeredQuestions(assignment *models.Assignment, submission *models.Submission) []models.AnsweredQuestion {
	byQuestion := make(map[string]models.Answer, len(submission.Answers))
	for _, a := range submission.Answers {
		byQuestion[a.QuestionID] = a
	}

	rows := make([]models.AnsweredQuestion, 0, len(assignment.Questions))
	for _, q := range assignment.Questions {
		a := byQuestion[q.ID]
		rows = append(rows, models.AnsweredQuestion{
			QuestionID:    q.ID,
			Question:      q.Question,
			Answer:        a.AnswerText,
			IsCorrect:     a.IsCorrect,
			MarksObtained: a.MarksObtained,
		})
	}
	return rows
}

// SubmitReview stores the teacher's marks. A second review overwrites the
// first; the assignment status is left alone.
func (s *reviewService) SubmitReview(ctx context.Context, actor models.Actor, submissionID string, req *models.ReviewRequest) (*models.Submission, error) {
	if err := validation.ValidateReview(req, nil); err != nil {
		return nil, err
	}

	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if submission == nil {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
	}
	if _, err := s.ownedAssignment(ctx, actor, submission.AssignmentID); err != nil {
		return nil, err
	}

	if err := validation.ValidateReview(req, submission); err != nil {
		return nil, err
	}

	verdicts := make(map[string]models.AnswerReview, len(req.Answers))
	for _, r := range req.Answers {
		verdicts[r.QuestionID] = r
	}
	// Повторная проверка полностью заменяет предыдущую
	for i, a := range submission.Answers {
		submission.Answers[i].IsCorrect = nil
		submission.Answers[i].MarksObtained = nil

		v, ok := verdicts[a.QuestionID]
		if !ok {
			continue
		}
		isCorrect := v.IsCorrect
		submission.Answers[i].IsCorrect = &isCorrect
		submission.Answers[i].MarksObtained = v.MarksObtained
	}

	now := s.now().UTC()
	total, obtained := *req.TotalMarks, *req.MarksObtained
	submission.TotalMarks = &total
	submission.MarksObtained = &obtained
	submission.ReviewedAt = &now
	submission.UpdatedAt = now

	if err := s.submissionRepo.SaveReview(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}

	s.metrics.Review()
	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("assignment_id", submission.AssignmentID).
		Float64("marks_obtained", obtained).
		Float64("total_marks", total).
		Msg("Submission reviewed")

	event := &models.SubmissionEvent{
		SubmissionID:  submission.ID,
		AssignmentID:  submission.AssignmentID,
		StudentID:     submission.StudentID,
		TotalMarks:    submission.TotalMarks,
		MarksObtained: submission.MarksObtained,
		Timestamp:     now.Unix(),
	}
	if err := s.publisher.Publish(ctx, models.EventSubmissionReviewed, event); err != nil {
		s.logger.Warn().Err(err).Str("submission_id", submission.ID).Msg("Failed to publish review event")
	}

	return submission, nil
}

func (s *reviewService) ownedAssignment(ctx context.Context, actor models.Actor, id string) (*models.Assignment, error) {
	if !actor.IsTeacher() {
		return nil, ErrForbidden
	}
	assignment, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("%w: assignment %s", ErrNotFound, id)
	}
	if assignment.TeacherID != actor.ID {
		return nil, fmt.Errorf("%w: assignment %s belongs to another teacher", ErrForbidden, id)
	}
	return assignment, nil
}
