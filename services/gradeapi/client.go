// Package gradeapi is the HTTP client of the gradebook REST API.
package gradeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/session"
)

// CodeSuccess is the only envelope code treated as success.
const CodeSuccess = 200

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 4 << 20
	requestIDKey   = "X-Request-ID"
)

type (
	Client struct {
		baseURL string
		http    *http.Client
		logger  core.Logger
	}

	Option func(c *Client)

	envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
)

var _ session.Backend = (*Client)(nil)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying http.Client; any timeout option must come after it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) StudentByNo(ctx context.Context, studentNo string) (grade.Student, error) {
	var student grade.Student
	err := c.do(ctx, http.MethodGet, "/api/students/no/"+url.PathEscape(studentNo), nil, nil, &student)
	return student, err
}

func (c *Client) CourseByNo(ctx context.Context, courseNo string) (grade.Course, error) {
	var course grade.Course
	err := c.do(ctx, http.MethodGet, "/api/courses/no/"+url.PathEscape(courseNo), nil, nil, &course)
	return course, err
}

func (c *Client) Select(ctx context.Context, key grade.EnrollmentKey) error {
	return c.do(ctx, http.MethodPost, "/api/student-courses/select", nil, keyValues(key), nil)
}

func (c *Client) Drop(ctx context.Context, key grade.EnrollmentKey) error {
	return c.do(ctx, http.MethodPost, "/api/student-courses/drop", nil, keyValues(key), nil)
}

func (c *Client) RecordRegularScore(ctx context.Context, key grade.EnrollmentKey, score float64) error {
	q := keyValues(key)
	q.Set("regularScore", strconv.FormatFloat(score, 'f', -1, 64))
	return c.do(ctx, http.MethodPost, "/api/student-courses/regular-score", q, nil, nil)
}

func (c *Client) RecordExamScore(ctx context.Context, key grade.EnrollmentKey, score float64) error {
	q := keyValues(key)
	q.Set("examScore", strconv.FormatFloat(score, 'f', -1, 64))
	return c.do(ctx, http.MethodPost, "/api/student-courses/exam-score", q, nil, nil)
}

func (c *Client) Finalize(ctx context.Context, key grade.EnrollmentKey) error {
	return c.do(ctx, http.MethodPost, "/api/student-courses/final-score", keyValues(key), nil, nil)
}

func (c *Client) StudentGrades(ctx context.Context, sid int64, semester string) ([]grade.Enrollment, error) {
	grades := make([]grade.Enrollment, 0)
	path := "/api/student-courses/grades/student/" + strconv.FormatInt(sid, 10)
	err := c.do(ctx, http.MethodGet, path, semesterValues(semester), nil, &grades)
	return grades, err
}

func (c *Client) CourseGrades(ctx context.Context, cid int64, semester string) ([]grade.Enrollment, error) {
	grades := make([]grade.Enrollment, 0)
	path := "/api/student-courses/grades/course/" + strconv.FormatInt(cid, 10)
	err := c.do(ctx, http.MethodGet, path, semesterValues(semester), nil, &grades)
	return grades, err
}

func (c *Client) CourseStats(ctx context.Context, cid int64, semester string) (grade.Stats, error) {
	var stats grade.Stats
	path := "/api/student-courses/grades/stats/" + strconv.FormatInt(cid, 10)
	err := c.do(ctx, http.MethodGet, path, semesterValues(semester), nil, &stats)
	return stats, err
}

func keyValues(key grade.EnrollmentKey) url.Values {
	v := make(url.Values)
	v.Set("studentSid", strconv.FormatInt(key.StudentSid, 10))
	v.Set("courseCid", strconv.FormatInt(key.CourseCid, 10))
	v.Set("semester", key.Semester)
	return v
}

func semesterValues(semester string) url.Values {
	v := make(url.Values)
	v.Set("semester", semester)
	return v
}

// do sends a request and decodes the envelope of the answer into out, whatever the HTTP status.
// form, when set, is sent url-encoded in the body.
func (c *Client) do(ctx context.Context, method, path string, query, form url.Values, out interface{}) error {
	op := method + " " + path

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &session.TransportError{Op: op, Err: errors.Wrap(err, "building request")}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDKey, reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return &session.TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &session.TransportError{Op: op, Err: errors.Wrap(err, "reading body")}
	}
	c.debug(op, reqID, resp.StatusCode)

	var env envelope
	if err = json.Unmarshal(data, &env); err != nil {
		return &session.TransportError{Op: op, Err: fmt.Errorf("unexpected %d answer: %w", resp.StatusCode, err)}
	}
	if env.Code != CodeSuccess {
		return &session.ServerError{Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err = json.Unmarshal(env.Data, out); err != nil {
		return &session.TransportError{Op: op, Err: errors.Wrap(err, "decoding data")}
	}
	return nil
}

func (c *Client) debug(op, reqID string, status int) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(op, map[string]interface{}{"requestID": reqID, "status": status})
}
