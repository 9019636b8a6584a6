package echoapi_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/tests"
)

func keyForm(sid, cid int64, sem string) url.Values {
	v := make(url.Values)
	v.Set("studentSid", fmt.Sprint(sid))
	v.Set("courseCid", fmt.Sprint(cid))
	v.Set("semester", sem)
	return v
}

func scorePath(endpoint string, sid, cid int64, sem, param, score string) string {
	v := keyForm(sid, cid, sem)
	if param != "" {
		v.Set(param, score)
	}
	return "/api/student-courses/" + endpoint + "?" + v.Encode()
}

func Test_gradeApi_workflow(t *testing.T) {
	app, repo := setup(t)
	s1 := testutil.CreateStudent(t, repo, "S001", "Alice")
	c1 := testutil.CreateCourse(t, repo, "C001", "Algorithms", 4)
	sid, cid := s1.Sid, c1.Cid

	okEnv := success(t, nil)
	badRequest := func(msg string, fields map[string]string) []byte {
		if fields == nil {
			return envelope(t, http.StatusBadRequest, msg, nil)
		}
		return envelope(t, http.StatusBadRequest, msg, fields)
	}

	runHTTPTests(t, app, []httpTest{
		{
			name: "select, missing semester", method: http.MethodPost, path: "/api/student-courses/select",
			form: keyForm(sid, cid, ""), wantCode: http.StatusBadRequest,
			wantData: badRequest("semester: this field is required", map[string]string{"semester": "this field is required"}),
		},
		{
			name: "select, invalid semester", method: http.MethodPost, path: "/api/student-courses/select",
			form: keyForm(sid, cid, "2024-2026-1"), wantCode: http.StatusBadRequest,
			wantData: badRequest("semester: semester must look like 2024-2025-1", map[string]string{"semester": "semester must look like 2024-2025-1"}),
		},
		{
			name: "select, unknown course", method: http.MethodPost, path: "/api/student-courses/select",
			form: keyForm(sid, 404, semester), wantCode: http.StatusNotFound,
			wantData: envelope(t, http.StatusNotFound, "course not found", nil),
		},
		{
			name: "select", method: http.MethodPost, path: "/api/student-courses/select",
			form: keyForm(sid, cid, semester), wantCode: http.StatusOK, wantData: okEnv,
		},
		{
			name: "select, duplicate", method: http.MethodPost, path: "/api/student-courses/select",
			form: keyForm(sid, cid, semester), wantCode: http.StatusConflict,
			wantData: envelope(t, http.StatusConflict, "student already enrolled in this course for this semester", nil),
		},
		{
			name: "exam before regular", method: http.MethodPost, path: scorePath("exam-score", sid, cid, semester, "examScore", "90"),
			wantCode: http.StatusBadRequest, wantData: badRequest("the regular score must be recorded first", nil),
		},
		{
			name: "regular, missing score", method: http.MethodPost, path: scorePath("regular-score", sid, cid, semester, "", ""),
			wantCode: http.StatusBadRequest,
			wantData: badRequest("regularScore: this field is required", map[string]string{"regularScore": "this field is required"}),
		},
		{
			name: "regular, out of range", method: http.MethodPost, path: scorePath("regular-score", sid, cid, semester, "regularScore", "101"),
			wantCode: http.StatusBadRequest,
			wantData: badRequest("regularScore: must be a number between 0 and 100", map[string]string{"regularScore": "must be a number between 0 and 100"}),
		},
		{
			name: "regular, not a number", method: http.MethodPost, path: scorePath("regular-score", sid, cid, semester, "regularScore", "NaN"),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "regular", method: http.MethodPost, path: scorePath("regular-score", sid, cid, semester, "regularScore", "85"),
			wantCode: http.StatusOK, wantData: okEnv,
		},
		{
			name: "drop after scores", method: http.MethodPost, path: "/api/student-courses/drop",
			form: keyForm(sid, cid, semester), wantCode: http.StatusBadRequest,
			wantData: badRequest("a course with recorded scores cannot be dropped", nil),
		},
		{
			name: "finalize before exam", method: http.MethodPost, path: scorePath("final-score", sid, cid, semester, "", ""),
			wantCode: http.StatusBadRequest, wantData: badRequest("the exam score must be recorded first", nil),
		},
		{
			name: "exam", method: http.MethodPost, path: scorePath("exam-score", sid, cid, semester, "examScore", "90"),
			wantCode: http.StatusOK, wantData: okEnv,
		},
	})

	t.Run("grades by student", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/student-courses/grades/student/1?semester="+semester)
		app.ServeHTTP(rec, req)
		var grades []grade.Enrollment
		decodeData(t, rec, &grades)
		require.Len(t, grades, 1)

		row := grades[0]
		assert.Equal(t, grade.StatusExamEntered, row.Status)
		assert.Equal(t, 85.0, *row.RegularScore)
		assert.Equal(t, 90.0, *row.ExamScore)
		assert.Equal(t, 88.0, *row.FinalScore)
		assert.Equal(t, "Alice", row.StudentName)
		assert.Equal(t, "Algorithms", row.CourseName)
	})

	t.Run("grades by course, legacy path", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/student-courses/course/1")
		app.ServeHTTP(rec, req)
		var grades []grade.Enrollment
		decodeData(t, rec, &grades)
		assert.Len(t, grades, 1)
	})

	t.Run("stats", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/student-courses/grades/stats/1?semester="+semester)
		app.ServeHTTP(rec, req)
		var stats grade.Stats
		decodeData(t, rec, &stats)
		assert.Equal(t, grade.Stats{AverageScore: 88, MaxScore: 88, MinScore: 88, PassRate: 1, GradedCount: 1, EnrolledCount: 1}, stats)
	})

	runHTTPTests(t, app, []httpTest{
		{
			name: "finalize", method: http.MethodPost, path: "/api/student-courses/final-score",
			form: keyForm(sid, cid, semester), wantCode: http.StatusOK, wantData: okEnv,
		},
		{
			name: "regular after completion", method: http.MethodPost, path: scorePath("regular-score", sid, cid, semester, "regularScore", "50"),
			wantCode: http.StatusBadRequest, wantData: badRequest("the enrollment is already completed", nil),
		},
		{
			name: "grades of unknown student", path: "/api/student-courses/grades/student/404",
			wantCode: http.StatusNotFound, wantData: envelope(t, http.StatusNotFound, "student not found", nil),
		},
		{
			name: "stats of unknown course", path: "/api/student-courses/grades/stats/404",
			wantCode: http.StatusNotFound, wantData: envelope(t, http.StatusNotFound, "course not found", nil),
		},
		{
			name: "stats, empty semester", path: "/api/student-courses/grades/stats/1?semester=2020-2021-1",
			wantCode: http.StatusOK, wantData: success(t, grade.Stats{}),
		},
	})
}

func Test_gradeApi_drop(t *testing.T) {
	app, repo := setup(t)
	s1 := testutil.CreateStudent(t, repo, "S001", "Alice")
	c1 := testutil.CreateCourse(t, repo, "C001", "Algorithms", 4)
	testutil.Enroll(t, repo, s1, c1, semester, nil, nil)

	runHTTPTests(t, app, []httpTest{
		{
			name: "drop", method: http.MethodPost, path: "/api/student-courses/drop",
			form: keyForm(s1.Sid, c1.Cid, semester), wantCode: http.StatusOK, wantData: success(t, nil),
		},
		{
			name: "drop again", method: http.MethodPost, path: "/api/student-courses/drop",
			form: keyForm(s1.Sid, c1.Cid, semester), wantCode: http.StatusNotFound,
			wantData: envelope(t, http.StatusNotFound, "enrollment not found", nil),
		},
		{
			name: "list after drop", path: "/api/student-courses/grades/student/1",
			wantCode: http.StatusOK, wantData: success(t, []grade.Enrollment{}),
		},
		{
			name: "invalid ids", method: http.MethodPost, path: "/api/student-courses/drop",
			form: url.Values{"studentSid": {"abc"}}, wantCode: http.StatusBadRequest,
		},
	})
}

func Test_gradeApi_query(t *testing.T) {
	app, repo := setup(t)
	s1 := testutil.CreateStudent(t, repo, "S001", "Alice")
	s2 := testutil.CreateStudent(t, repo, "S002", "Bob")
	c1 := testutil.CreateCourse(t, repo, "C001", "Algorithms", 4)
	c2 := testutil.CreateCourse(t, repo, "C002", "Databases", 3)
	testutil.Enroll(t, repo, s1, c1, semester, nil, nil)
	testutil.Enroll(t, repo, s2, c1, semester, nil, nil)
	testutil.Enroll(t, repo, s1, c2, "2023-2024-2", nil, nil)

	type page struct {
		PageNum  int                `json:"pageNum"`
		PageSize int                `json:"pageSize"`
		Total    int                `json:"total"`
		List     []grade.Enrollment `json:"list"`
	}
	get := func(t *testing.T, query string) page {
		req, rec := newRequest(http.MethodGet, "/api/student-courses?"+query)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res page
		decodeData(t, rec, &res)
		return res
	}

	t.Run("by course, paged", func(t *testing.T) {
		res := get(t, fmt.Sprintf("courseCid=%d&page=2&pageSize=1", c1.Cid))
		assert.Equal(t, 2, res.Total)
		assert.Equal(t, 2, res.PageNum)
		if assert.Len(t, res.List, 1) {
			assert.Equal(t, "S002", res.List[0].StudentNo)
		}
	})

	t.Run("by student, latest semester first", func(t *testing.T) {
		res := get(t, fmt.Sprintf("studentSid=%d", s1.Sid))
		assert.Equal(t, 2, res.Total)
		if assert.Len(t, res.List, 2) {
			assert.Equal(t, semester, res.List[0].Semester)
			assert.Equal(t, "2023-2024-2", res.List[1].Semester)
		}
	})

	t.Run("by semester", func(t *testing.T) {
		res := get(t, "semester=2023-2024-2")
		assert.Equal(t, 1, res.Total)
	})

	t.Run("everything", func(t *testing.T) {
		assert.Equal(t, 3, get(t, "").Total)
	})

	runHTTPTests(t, app, []httpTest{
		{name: "invalid student id", path: "/api/student-courses?studentSid=abc", wantCode: http.StatusBadRequest},
	})
}
