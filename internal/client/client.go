// Package client talks to the gateway's JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	"github.com/mind-engage/eduhub-assess/internal/notify"
	"github.com/mind-engage/eduhub-assess/internal/users"
)

type Client struct {
	base  string
	token string
	http  *http.Client
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func New(cfg Config) *Client {
	h := &http.Client{Timeout: 30 * time.Second}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{base: strings.TrimSuffix(cfg.BaseURL, "/"), token: cfg.Token, http: h}
}

// WithToken returns a copy that sends the given bearer token.
func (c *Client) WithToken(tok string) *Client {
	cp := *c
	cp.token = tok
	return &cp
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Unwrap maps statuses onto the domain's sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return assessment.ErrNotFound
	case http.StatusConflict:
		return assessment.ErrAlreadySubmitted
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", &APIError{Status: res.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode login: %w", err)
	}
	return out.AccessToken, nil
}

// Me returns the account the token belongs to.
func (c *Client) Me(ctx context.Context) (users.User, error) {
	var u users.User
	err := c.do(ctx, http.MethodGet, "/api/users/me", nil, nil, &u)
	return u, err
}

func (c *Client) GetAssessment(ctx context.Context, id string) (assessment.Assessment, error) {
	var a assessment.Assessment
	err := c.do(ctx, http.MethodGet, "/api/assessments/"+url.PathEscape(id), nil, nil, &a)
	return a, err
}

func (c *Client) ListAssessments(ctx context.Context, courseID string) ([]assessment.Assessment, error) {
	q := url.Values{}
	if courseID != "" {
		q.Set("course", courseID)
	}
	var out []assessment.Assessment
	err := c.do(ctx, http.MethodGet, "/api/assessments", q, nil, &out)
	return out, err
}

func (c *Client) GetAssignment(ctx context.Context, id string) (assessment.Assignment, error) {
	var a assessment.Assignment
	err := c.do(ctx, http.MethodGet, "/api/assignments/"+url.PathEscape(id), nil, nil, &a)
	return a, err
}

func (c *Client) ListResults(ctx context.Context, f assessment.ResultFilter) ([]assessment.Result, error) {
	q := url.Values{}
	if f.StudentID != "" {
		q.Set("studentId", f.StudentID)
	}
	if f.AssessmentID != "" {
		q.Set("assessmentId", f.AssessmentID)
	}
	var out []assessment.Result
	err := c.do(ctx, http.MethodGet, "/api/assessment-results", q, nil, &out)
	return out, err
}

func (c *Client) CreateResult(ctx context.Context, r assessment.Result) (assessment.Result, error) {
	var out assessment.Result
	err := c.do(ctx, http.MethodPost, "/api/assessment-results", nil, r, &out)
	return out, err
}

func (c *Client) GradeResult(ctx context.Context, id string, g assessment.ManualGrade) (assessment.Result, error) {
	var out assessment.Result
	err := c.do(ctx, http.MethodPut, "/api/assessment-results/"+url.PathEscape(id)+"/grade", nil, g, &out)
	return out, err
}

func (c *Client) ListSubmissions(ctx context.Context, f assessment.SubmissionFilter) ([]assessment.Submission, error) {
	q := url.Values{}
	if f.StudentID != "" {
		q.Set("studentId", f.StudentID)
	}
	if f.AssignmentID != "" {
		q.Set("assignmentId", f.AssignmentID)
	}
	var out []assessment.Submission
	err := c.do(ctx, http.MethodGet, "/api/submissions", q, nil, &out)
	return out, err
}

func (c *Client) GradeSubmission(ctx context.Context, id string, g assessment.ManualGrade) (assessment.Submission, error) {
	var out assessment.Submission
	err := c.do(ctx, http.MethodPut, "/api/submissions/"+url.PathEscape(id)+"/grade", nil, g, &out)
	return out, err
}

func (c *Client) Notify(ctx context.Context, n notify.Notification) error {
	return c.do(ctx, http.MethodPost, "/api/notifications", nil, n, nil)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var env envelope
	decErr := json.NewDecoder(res.Body).Decode(&env)
	if res.StatusCode/100 != 2 {
		return &APIError{Status: res.StatusCode, Message: env.Error}
	}
	if decErr != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, decErr)
	}
	if !env.Success {
		return &APIError{Status: res.StatusCode, Message: env.Error}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: decode data: %w", method, path, err)
	}
	return nil
}

// IsNotFound reports whether err came from a 404.
func IsNotFound(err error) bool { return errors.Is(err, assessment.ErrNotFound) }
