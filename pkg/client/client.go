package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/classroom-assignments/internal/models"
	"github.com/RubachokBoss/classroom-assignments/internal/validation"
)

const maxResponseBytes = 4 << 20

// TokenSource supplies the bearer token for each call. An empty token sends
// the request unauthenticated.
type TokenSource interface {
	AccessToken() string
}

// Client talks to the assignment service. Requests are validated locally
// before they are sent; a failed call is never retried.
type Client struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
	logger  zerolog.Logger
}

func New(baseURL string, timeout time.Duration, tokens TokenSource, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type envelope struct {
	Success    bool              `json:"success"`
	Data       json.RawMessage   `json:"data"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"totalPages"`
	Error      string            `json:"error"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields"`
}

func (c *Client) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if err := validation.ValidateLogin(req); err != nil {
		return nil, err
	}
	return call[models.LoginResponse](ctx, c, http.MethodPost, "/user/login", req)
}

// ListStudents returns one page of the per-assignment review list.
func (c *Client) ListStudents(ctx context.Context, req *models.StudentListRequest) (*models.Page[models.StudentProgress], error) {
	if err := validation.ValidateStudentList(req); err != nil {
		return nil, err
	}
	return list[models.StudentProgress](ctx, c, "/user/list", req)
}

func (c *Client) ListAssignments(ctx context.Context, req *models.DatatableRequest) (*models.Page[models.AssignmentView], error) {
	if err := validation.ValidateDatatable(req); err != nil {
		return nil, err
	}
	return list[models.AssignmentView](ctx, c, "/assigment/datatable", req)
}

func (c *Client) CreateAssignment(ctx context.Context, req *models.AssignmentRequest) (*models.AssignmentView, error) {
	if err := validation.ValidateAssignment(req); err != nil {
		return nil, err
	}
	return call[models.AssignmentView](ctx, c, http.MethodPost, "/assigment/create", req)
}

func (c *Client) EditAssignment(ctx context.Context, req *models.AssignmentRequest) (*models.AssignmentView, error) {
	if err := validation.ValidateAssignment(req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, validation.New(validation.FieldError{Field: "id", Error: "this field is required"})
	}
	return call[models.AssignmentView](ctx, c, http.MethodPost, "/assigment/edit", req)
}

func (c *Client) PublishAssignment(ctx context.Context, id string) (*models.AssignmentView, error) {
	return call[models.AssignmentView](ctx, c, http.MethodPost, "/assigment/"+url.PathEscape(id)+"/publish", nil)
}

func (c *Client) CompleteAssignment(ctx context.Context, id string) (*models.AssignmentView, error) {
	return call[models.AssignmentView](ctx, c, http.MethodPost, "/assigment/"+url.PathEscape(id)+"/complete", nil)
}

func (c *Client) GetAssignment(ctx context.Context, id string) (*models.AssignmentView, error) {
	return call[models.AssignmentView](ctx, c, http.MethodGet, "/assigment/"+url.PathEscape(id), nil)
}

func (c *Client) DeleteAssignment(ctx context.Context, id string) error {
	var env envelope
	return c.do(ctx, http.MethodDelete, "/assigment/"+url.PathEscape(id), nil, &env)
}

// Submit sends a student's answers. When assignment is known the answers are
// checked against its questions before anything goes over the wire.
func (c *Client) Submit(ctx context.Context, assignment *models.Assignment, req *models.SubmitRequest) (*models.Submission, error) {
	if err := validation.ValidateSubmission(req, assignment); err != nil {
		return nil, err
	}
	return call[models.Submission](ctx, c, http.MethodPost, "/assigment/student-submit", req)
}

func (c *Client) FetchSubmission(ctx context.Context, assignmentID, studentID string) (*models.SubmissionDetail, error) {
	path := fmt.Sprintf("/assigment/%s/student/%s", url.PathEscape(assignmentID), url.PathEscape(studentID))
	return call[models.SubmissionDetail](ctx, c, http.MethodGet, path, nil)
}

// SubmitReview sends the teacher's verdicts for a submission. Passing the
// fetched submission lets unknown question ids fail locally too.
func (c *Client) SubmitReview(ctx context.Context, submission *models.Submission, submissionID string, req *models.ReviewRequest) (*models.Submission, error) {
	if err := validation.ValidateReview(req, submission); err != nil {
		return nil, err
	}
	return call[models.Submission](ctx, c, http.MethodPost, "/assigment/review-teacher/"+url.PathEscape(submissionID), req)
}

// CanSubmit reports whether every question of the assignment has an answer.
func CanSubmit(assignment *models.Assignment, answers map[string]string) bool {
	return validation.CanSubmit(assignment, answers)
}

func call[T any](ctx context.Context, c *Client, method, path string, body interface{}) (*T, error) {
	var env envelope
	if err := c.do(ctx, method, path, body, &env); err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response data: %w", err)
	}
	return &out, nil
}

func list[T any](ctx context.Context, c *Client, path string, body interface{}) (*models.Page[T], error) {
	var env envelope
	if err := c.do(ctx, http.MethodPost, path, body, &env); err != nil {
		return nil, err
	}

	items := []T{}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, fmt.Errorf("failed to decode response data: %w", err)
		}
	}

	return &models.Page[T]{
		Items:      items,
		Total:      env.Total,
		Page:       env.Page,
		Limit:      env.Limit,
		TotalPages: env.TotalPages,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, env *envelope) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("Request failed")
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serverErr := &ServerError{StatusCode: resp.StatusCode}
		if json.Unmarshal(raw, env) == nil {
			serverErr.Message = env.Message
			serverErr.Fields = env.Fields
		}
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("path", path).
			Msg("Server rejected request")
		return serverErr
	}

	if err := json.Unmarshal(raw, env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
