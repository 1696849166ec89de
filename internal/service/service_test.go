package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/classroom-assignments/internal/auth"
	"github.com/RubachokBoss/classroom-assignments/internal/metrics"
	"github.com/RubachokBoss/classroom-assignments/internal/models"
	"github.com/RubachokBoss/classroom-assignments/internal/repository"
	"github.com/RubachokBoss/classroom-assignments/internal/service/integration"
)

var (
	teacher      = models.Actor{ID: "teacher-1", Position: models.PositionTeacher}
	otherTeacher = models.Actor{ID: "teacher-2", Position: models.PositionTeacher}
	student      = models.Actor{ID: "student-1", Position: models.PositionStudent}
)

type testEnv struct {
	assignments AssignmentService
	submissions SubmissionService
	reviews     ReviewService
	users       UserService
	userRepo    repository.UserRepository
	subRepo     repository.SubmissionRepository
	publisher   *capturePublisher
}

type capturePublisher struct {
	keys []string
}

func (p *capturePublisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

var _ integration.EventPublisher = (*capturePublisher)(nil)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := repository.OpenBolt(filepath.Join(t.TempDir(), "service.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	assignmentRepo := repository.NewBoltAssignmentRepository(store)
	submissionRepo := repository.NewBoltSubmissionRepository(store)
	userRepo := repository.NewBoltUserRepository(store)
	pub := &capturePublisher{}
	m := metrics.New()
	log := zerolog.Nop()

	return &testEnv{
		assignments: NewAssignmentService(assignmentRepo, submissionRepo, pub, m, log),
		submissions: NewSubmissionService(assignmentRepo, submissionRepo, pub, m, log),
		reviews:     NewReviewService(assignmentRepo, submissionRepo, userRepo, pub, m, log),
		users:       NewUserService(userRepo, auth.NewTokenManager("secret", time.Hour, "test"), log),
		userRepo:    userRepo,
		subRepo:     submissionRepo,
		publisher:   pub,
	}
}

func assignmentRequest(title string, status models.AssignmentStatus, questions ...string) *models.AssignmentRequest {
	if len(questions) == 0 {
		questions = []string{"What is 2+2?"}
	}
	req := &models.AssignmentRequest{
		Title:       title,
		Description: title + " description",
		DueDate:     models.NewDate(2030, time.June, 1),
		Status:      status.String(),
	}
	for _, q := range questions {
		req.Questions = append(req.Questions, models.Question{Question: q})
	}
	return req
}

func (e *testEnv) create(t *testing.T, title string, status models.AssignmentStatus, questions ...string) *models.AssignmentView {
	t.Helper()
	view, err := e.assignments.Create(context.Background(), teacher, assignmentRequest(title, models.StatusDraft, questions...))
	require.NoError(t, err)
	if status == models.StatusDraft {
		return view
	}
	view, err = e.assignments.Publish(context.Background(), teacher, view.ID)
	require.NoError(t, err)
	if status == models.StatusCompleted {
		view, err = e.assignments.Complete(context.Background(), teacher, view.ID)
		require.NoError(t, err)
	}
	return view
}

func (e *testEnv) addStudents(t *testing.T, n int) []models.User {
	t.Helper()
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		u, err := e.users.SaveUser(context.Background(), &models.CreateUserRequest{
			Name:     fmt.Sprintf("Student %d", i),
			Email:    fmt.Sprintf("student%d@school.test", i),
			Password: "password",
			Position: models.PositionStudent,
		}, false)
		require.NoError(t, err)
		users = append(users, *u)
	}
	return users
}

func answersFor(view *models.AssignmentView, text string) []models.AnswerRequest {
	answers := make([]models.AnswerRequest, 0, len(view.Questions))
	for _, q := range view.Questions {
		answers = append(answers, models.AnswerRequest{QuestionID: q.ID, AnswerText: text})
	}
	return answers
}
