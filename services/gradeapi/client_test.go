package gradeapi_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/session"
	"github.com/trezcool/gradebook/services/gradeapi"
	"github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage/database/inmem"
	"github.com/trezcool/gradebook/tests"
)

const semester = "2024-2025-1"

func setup(t *testing.T) (*gradeapi.Client, grade.Repository) {
	t.Helper()

	repo := inmemdb.NewGradeRepository(inmemdb.Open())
	validate, translator := grade.NewValidator()
	logger := logsvc.NewConsoleLogger(log.New(io.Discard, "", 0), false)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       &core.Config{TestMode: true, Server: core.ServerConfig{DisableReqLogs: true}},
		Logger:     logger,
		GradeSvc:   grade.NewService(repo, validate),
		Validate:   validate,
		Translator: translator,
	})
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	return gradeapi.New(srv.URL+"/", gradeapi.WithTimeout(5*time.Second), gradeapi.WithLogger(logger)), repo
}

func serve(t *testing.T, handler http.HandlerFunc) *gradeapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return gradeapi.New(srv.URL)
}

func TestClient_lookup(t *testing.T) {
	client, repo := setup(t)
	ctx := context.Background()
	s1 := testutil.CreateStudent(t, repo, "S001", "Alice")
	c1 := testutil.CreateCourse(t, repo, "C001", "Algorithms", 4)

	student, err := client.StudentByNo(ctx, "S001")
	require.NoError(t, err)
	assert.Equal(t, s1.Sid, student.Sid)
	assert.Equal(t, "Alice", student.Name)

	course, err := client.CourseByNo(ctx, "C001")
	require.NoError(t, err)
	assert.Equal(t, c1.Cid, course.Cid)

	_, err = client.StudentByNo(ctx, "S404")
	srvErr, ok := session.AsServerError(err)
	require.True(t, ok, "err = %v", err)
	assert.Equal(t, http.StatusNotFound, srvErr.Code)
	assert.Equal(t, "student not found", srvErr.Message)

	_, err = client.CourseByNo(ctx, "C 1/2")
	_, ok = session.AsServerError(err)
	assert.True(t, ok)
}

func TestClient_workflow(t *testing.T) {
	client, repo := setup(t)
	ctx := context.Background()
	s1 := testutil.CreateStudent(t, repo, "S001", "Alice")
	c1 := testutil.CreateCourse(t, repo, "C001", "Algorithms", 4)
	key := grade.EnrollmentKey{StudentSid: s1.Sid, CourseCid: c1.Cid, Semester: semester}

	require.NoError(t, client.Select(ctx, key))
	err := client.Select(ctx, key)
	srvErr, ok := session.AsServerError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, srvErr.Code)

	require.NoError(t, client.RecordRegularScore(ctx, key, 85.5))
	require.NoError(t, client.RecordExamScore(ctx, key, 90))

	grades, err := client.StudentGrades(ctx, s1.Sid, semester)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, 85.5, *grades[0].RegularScore)
	assert.Equal(t, grade.StatusExamEntered, grades[0].Status)

	stats, err := client.CourseStats(ctx, c1.Cid, "")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GradedCount)
	assert.Equal(t, grade.FinalScore(85.5, 90), stats.AverageScore)

	require.NoError(t, client.Finalize(ctx, key))
	grades, err = client.CourseGrades(ctx, c1.Cid, semester)
	require.NoError(t, err)
	assert.Equal(t, grade.StatusCompleted, grades[0].Status)

	err = client.Drop(ctx, key)
	srvErr, ok = session.AsServerError(err)
	require.True(t, ok)
	assert.Equal(t, "a course with recorded scores cannot be dropped", srvErr.Message)

	grades, err = client.StudentGrades(ctx, s1.Sid, "2020-2021-1")
	require.NoError(t, err)
	assert.NotNil(t, grades)
	assert.Empty(t, grades)
}

func TestClient_envelope(t *testing.T) {
	ctx := context.Background()

	t.Run("code 0 is not success", func(t *testing.T) {
		client := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"code": 0, "message": "success", "data": {"sid": 1}}`)
		})
		_, err := client.StudentByNo(ctx, "S001")
		srvErr, ok := session.AsServerError(err)
		require.True(t, ok)
		assert.Equal(t, 0, srvErr.Code)
	})

	t.Run("error code with 200 status", func(t *testing.T) {
		client := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"code": 500, "message": "boom", "data": null}`)
		})
		err := client.Select(ctx, grade.EnrollmentKey{StudentSid: 1, CourseCid: 1, Semester: semester})
		assert.Equal(t, &session.ServerError{Code: 500, Message: "boom"}, err)
	})

	t.Run("garbage body", func(t *testing.T) {
		client := serve(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "<html>bad gateway</html>")
		})
		_, err := client.StudentByNo(ctx, "S001")
		assert.True(t, session.IsTransport(err), "err = %v", err)
	})

	t.Run("undecodable data", func(t *testing.T) {
		client := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"code": 200, "message": "success", "data": "lol"}`)
		})
		_, err := client.CourseStats(ctx, 1, semester)
		assert.True(t, session.IsTransport(err))
	})

	t.Run("request", func(t *testing.T) {
		var got *http.Request
		client := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			got = r
			_, _ = io.WriteString(w, `{"code": 200, "message": "success", "data": null}`)
		})
		key := grade.EnrollmentKey{StudentSid: 3, CourseCid: 7, Semester: semester}

		require.NoError(t, client.Select(ctx, key))
		assert.Equal(t, http.MethodPost, got.Method)
		assert.Equal(t, "/api/student-courses/select", got.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", got.Header.Get("Content-Type"))
		assert.Equal(t, "3", got.PostForm.Get("studentSid"))
		assert.Equal(t, "7", got.PostForm.Get("courseCid"))
		assert.Equal(t, semester, got.PostForm.Get("semester"))
		assert.Len(t, got.Header.Get("X-Request-ID"), 36)

		require.NoError(t, client.RecordExamScore(ctx, key, 72.5))
		assert.Equal(t, "/api/student-courses/exam-score", got.URL.Path)
		assert.Equal(t, "72.5", got.URL.Query().Get("examScore"))
		assert.Equal(t, "3", got.URL.Query().Get("studentSid"))
	})

	t.Run("server down", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		client := gradeapi.New(srv.URL)
		srv.Close()

		_, err := client.StudentByNo(ctx, "S001")
		assert.True(t, session.IsTransport(err))
		assert.Equal(t, "could not reach the server, please retry", session.Message(err))
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { <-release }))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })

		client := gradeapi.New(srv.URL, gradeapi.WithTimeout(50*time.Millisecond))
		_, err := client.StudentByNo(ctx, "S001")
		assert.True(t, session.IsTransport(err))
	})
}

// TestSession_overHTTP runs the enrollment scenario through the session, the client and the REST server.
func TestSession_overHTTP(t *testing.T) {
	client, repo := setup(t)
	ctx := context.Background()
	testutil.CreateStudent(t, repo, "S001", "Alice")
	testutil.CreateCourse(t, repo, "C001", "Algorithms", 4)

	sess := session.New(client, nil, session.Options{Semester: semester})

	err := sess.ResolveStudent(ctx, "S404")
	assert.Equal(t, "student not found", session.Message(err))
	assert.Nil(t, sess.Snapshot().Student)

	require.NoError(t, sess.ResolveStudent(ctx, "S001"))
	require.NoError(t, sess.ResolveCourse(ctx, "C001"))
	require.NoError(t, sess.Enroll(ctx))

	snap := sess.Snapshot()
	assert.Equal(t, session.FocusCourse, snap.Focus)
	require.Len(t, snap.Grades, 1)
	assert.Equal(t, grade.StatusEnrolled, snap.Grades[0].Status)
	assert.Nil(t, snap.Grades[0].RegularScore)
	assert.Nil(t, snap.Grades[0].ExamScore)
	assert.True(t, snap.StatsVisible())

	require.NoError(t, sess.RecordRegularScore(ctx, "85"))
	snap = sess.Snapshot()
	assert.Equal(t, grade.StatusRegularEntered, snap.Grades[0].Status)
	assert.Equal(t, 85.0, *snap.Grades[0].RegularScore)

	require.NoError(t, sess.RecordExamScore(ctx, "90"))
	snap = sess.Snapshot()
	assert.Equal(t, grade.StatusExamEntered, snap.Grades[0].Status)
	assert.Equal(t, 90.0, *snap.Grades[0].ExamScore)
	assert.Equal(t, 88.0, snap.Stats.AverageScore)

	require.NoError(t, sess.Focus(ctx, session.FocusStudent))
	assert.False(t, sess.Snapshot().StatsVisible())
}
