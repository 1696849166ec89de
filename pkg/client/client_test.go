package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/classroom-assignments/internal/auth"
	"github.com/RubachokBoss/classroom-assignments/internal/delivery/httpd"
	"github.com/RubachokBoss/classroom-assignments/internal/models"
	"github.com/RubachokBoss/classroom-assignments/internal/repository"
	"github.com/RubachokBoss/classroom-assignments/internal/service"
	"github.com/RubachokBoss/classroom-assignments/internal/service/integration"
	"github.com/RubachokBoss/classroom-assignments/internal/validation"
	"github.com/RubachokBoss/classroom-assignments/pkg/session"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

func newServer(t *testing.T) (*httptest.Server, service.UserService) {
	t.Helper()

	store, err := repository.OpenBolt(filepath.Join(t.TempDir(), "client.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	assignmentRepo := repository.NewBoltAssignmentRepository(store)
	submissionRepo := repository.NewBoltSubmissionRepository(store)
	userRepo := repository.NewBoltUserRepository(store)
	pub := integration.NewNopPublisher()
	log := zerolog.Nop()
	tokens := auth.NewTokenManager("secret", time.Hour, "test")

	users := service.NewUserService(userRepo, tokens, log)
	h := httpd.NewHandler(
		users,
		service.NewAssignmentService(assignmentRepo, submissionRepo, pub, nil, log),
		service.NewSubmissionService(assignmentRepo, submissionRepo, pub, nil, log),
		service.NewReviewService(assignmentRepo, submissionRepo, userRepo, pub, nil, log),
		tokens,
		store,
		nil,
		log,
	)

	router := chi.NewRouter()
	h.RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, users
}

// signIn registers a user, logs in through the client and keeps the result
// in a fresh session store.
func signIn(t *testing.T, srv *httptest.Server, users service.UserService, name, position string) (*Client, *session.Store) {
	t.Helper()

	email := name + "@school.test"
	_, err := users.SaveUser(context.Background(), &models.CreateUserRequest{
		Name: name, Email: email, Password: "password", Position: position,
	}, false)
	require.NoError(t, err)

	store, err := session.Open(filepath.Join(t.TempDir(), name+".session"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := New(srv.URL, 5*time.Second, store, zerolog.Nop())
	resp, err := c.Login(context.Background(), &models.LoginRequest{Email: email, Password: "password"})
	require.NoError(t, err)
	require.NoError(t, store.Set(session.FromLogin(resp)))
	require.Equal(t, session.Allow, session.GateFor(store.Current(), position))

	return c, store
}

func assignmentRequest(title, status string, questions ...string) *models.AssignmentRequest {
	req := &models.AssignmentRequest{
		Title:       title,
		Description: "About " + title,
		DueDate:     models.NewDate(2030, time.May, 20),
		Status:      status,
	}
	for _, q := range questions {
		req.Questions = append(req.Questions, models.Question{Question: q})
	}
	return req
}

func TestClient_TeacherAndStudentFlow(t *testing.T) {
	srv, users := newServer(t)
	ctx := context.Background()

	teacher, _ := signIn(t, srv, users, "teacher", models.PositionTeacher)
	student, studentSession := signIn(t, srv, users, "student", models.PositionStudent)

	draft, err := teacher.CreateAssignment(ctx, assignmentRequest("Math", "Draft", "2+2?"))
	require.NoError(t, err)
	require.NoError(t, teacher.DeleteAssignment(ctx, draft.ID))

	created, err := teacher.CreateAssignment(ctx, assignmentRequest("Physics", "Published", "g?", "c?"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, created.Status)

	err = teacher.DeleteAssignment(ctx, created.ID)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusConflict, serverErr.StatusCode)
	assert.Contains(t, Message(err, "Something went wrong"), "invalid status transition")

	page, err := student.ListAssignments(ctx, &models.DatatableRequest{Page: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].IsSubmit)
	assert.False(t, *page.Items[0].IsSubmit)

	assignment := page.Items[0].Assignment
	answers := map[string]string{assignment.Questions[0].ID: "9.8"}
	assert.False(t, CanSubmit(&assignment, answers))
	answers[assignment.Questions[1].ID] = "3e8"
	assert.True(t, CanSubmit(&assignment, answers))

	studentID := studentSession.Current().User.ID
	req := &models.SubmitRequest{
		AssignmentID: assignment.ID,
		StudentID:    studentID,
		Answers: []models.AnswerRequest{
			{QuestionID: assignment.Questions[0].ID, AnswerText: "9.8"},
			{QuestionID: assignment.Questions[1].ID, AnswerText: "3e8"},
		},
	}
	submission, err := student.Submit(ctx, &assignment, req)
	require.NoError(t, err)
	assert.True(t, submission.IsCompleted)

	_, err = student.Submit(ctx, &assignment, req)
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusConflict, serverErr.StatusCode)
	assert.Equal(t, "assignment already submitted", Message(err, "fallback"))

	students, err := teacher.ListStudents(ctx, &models.StudentListRequest{Page: 1, Limit: 10, AssignmentID: created.ID})
	require.NoError(t, err)
	require.Len(t, students.Items, 1)
	assert.True(t, students.Items[0].IsCompleted)
	assert.Equal(t, 1, students.TotalPages)

	detail, err := teacher.FetchSubmission(ctx, created.ID, studentID)
	require.NoError(t, err)
	require.Len(t, detail.Questions, 2)
	assert.Equal(t, "9.8", detail.Questions[0].Answer)

	total, obtained := 10.0, 5.0
	reviewed, err := teacher.SubmitReview(ctx, &detail.Submission, detail.ID, &models.ReviewRequest{
		Answers: []models.AnswerReview{
			{QuestionID: assignment.Questions[0].ID, IsCorrect: true},
			{QuestionID: assignment.Questions[1].ID, IsCorrect: false},
		},
		TotalMarks:    &total,
		MarksObtained: &obtained,
	})
	require.NoError(t, err)
	require.NotNil(t, reviewed.ReviewedAt)

	completed, err := teacher.CompleteAssignment(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	got, err := teacher.GetAssignment(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Locked)
}

func TestClient_ValidationNeverReachesNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, staticToken("t"), zerolog.Nop())
	ctx := context.Background()

	total, obtained := 5.0, 7.0
	_, err := c.SubmitReview(ctx, nil, "sub-1", &models.ReviewRequest{TotalMarks: &total, MarksObtained: &obtained})
	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.True(t, vErr.Has("marksObtained"))

	_, err = c.CreateAssignment(ctx, assignmentRequest("", "Draft"))
	require.ErrorAs(t, err, &vErr)

	_, err = c.EditAssignment(ctx, assignmentRequest("Math", "Draft", "q"))
	require.ErrorAs(t, err, &vErr)
	assert.True(t, vErr.Has("id"))

	_, err = c.Submit(ctx, nil, &models.SubmitRequest{AssignmentID: "a", StudentID: "s"})
	require.ErrorAs(t, err, &vErr)

	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestClient_ServerError(t *testing.T) {
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"Forbidden","message":"forbidden"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, staticToken("abc"), zerolog.Nop())
	_, err := c.GetAssignment(context.Background(), "a1")

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusForbidden, serverErr.StatusCode)
	assert.Equal(t, "forbidden", serverErr.Message)
	assert.Equal(t, "Bearer abc", authHeader)
}

func TestClient_ServerErrorWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil, zerolog.Nop())
	_, err := c.GetAssignment(context.Background(), "a1")

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusBadGateway, serverErr.StatusCode)
	assert.Equal(t, "Something went wrong", Message(err, "Something went wrong"))
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, nil, zerolog.Nop())
	_, err := c.PublishAssignment(context.Background(), "a1")

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Contains(t, netErr.Op, "/assigment/a1/publish")
	assert.Equal(t, "Could not reach server", Message(err, "Could not reach server"))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "fallback", Message(errors.New("boom"), "fallback"))
	assert.Equal(t, "fallback", Message(&ServerError{StatusCode: 500}, "fallback"))
	assert.Equal(t, "nope", Message(&ServerError{StatusCode: 409, Message: "nope"}, "fallback"))
}
