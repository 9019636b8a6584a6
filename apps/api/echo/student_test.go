package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/tests"
)

func Test_home(t *testing.T) {
	app, _ := setup(t)
	runHTTPTests(t, app, []httpTest{
		{name: "home", path: "/", wantCode: http.StatusOK, wantData: success(t, echo.Map{"app": "Gradebook", "build": "test"})},
		{name: "unknown route", path: "/api/lol", wantCode: http.StatusNotFound, wantData: envelope(t, http.StatusNotFound, "Not Found", nil)},
	})
}

func Test_studentApi(t *testing.T) {
	app, repo := setup(t)
	s1 := testutil.CreateStudent(t, repo, "S001", "Alice")
	s2 := testutil.CreateStudent(t, repo, "S002", "Bob")

	invalidSid := map[string]string{"sid": "must be a positive integer"}

	runHTTPTests(t, app, []httpTest{
		{name: "by number", path: "/api/students/no/S001", wantCode: http.StatusOK, wantData: success(t, s1)},
		{name: "by number, trailing slash", path: "/api/students/no/S002/", wantCode: http.StatusOK, wantData: success(t, s2)},
		{
			name: "by number, unknown", path: "/api/students/no/S404",
			wantCode: http.StatusNotFound, wantData: envelope(t, http.StatusNotFound, "student not found", nil),
		},
		{name: "by id", path: "/api/students/2", wantCode: http.StatusOK, wantData: success(t, s2)},
		{
			name: "by id, invalid", path: "/api/students/lol",
			wantCode: http.StatusBadRequest, wantData: envelope(t, http.StatusBadRequest, "sid: must be a positive integer", invalidSid),
		},
		{
			name: "by id, unknown", path: "/api/students/404",
			wantCode: http.StatusNotFound, wantData: envelope(t, http.StatusNotFound, "student not found", nil),
		},
		{
			name: "list", path: "/api/students?page=1&pageSize=1", wantCode: http.StatusOK,
			wantData: success(t, core.PageResult{PageNum: 1, PageSize: 1, Total: 2, List: []grade.Student{s1}}),
		},
		{
			name: "list, defaults", path: "/api/students", wantCode: http.StatusOK,
			wantData: success(t, core.PageResult{PageNum: 1, PageSize: core.DefaultPageSize, Total: 2, List: []grade.Student{s1, s2}}),
		},
		{
			name: "create, missing fields", method: http.MethodPost, path: "/api/students", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "create, duplicate", method: http.MethodPost, path: "/api/students",
			body:     []byte(`{"studentNo": "S001", "name": "Alice"}`),
			wantCode: http.StatusConflict, wantData: envelope(t, http.StatusConflict, "a student with this number already exists", nil),
		},
		{
			name: "create, malformed", method: http.MethodPost, path: "/api/students", body: []byte(`{"studentNo": `),
			wantCode: http.StatusBadRequest,
		},
	})

	t.Run("create", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/students", []byte(`{"studentNo": "S003", "name": "Carol", "gender": "F", "major": "Maths"}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var student grade.Student
		decodeData(t, rec, &student)
		assert.Equal(t, int64(3), student.Sid)
		assert.Equal(t, "Carol", student.Name)
		assert.Equal(t, "F", student.Gender)
		assert.Equal(t, "Maths", student.Major)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	})
}

func Test_courseApi(t *testing.T) {
	app, repo := setup(t)
	c1 := testutil.CreateCourse(t, repo, "C001", "Algorithms", 4)

	runHTTPTests(t, app, []httpTest{
		{name: "by number", path: "/api/courses/no/C001", wantCode: http.StatusOK, wantData: success(t, c1)},
		{
			name: "by number, unknown", path: "/api/courses/no/C404",
			wantCode: http.StatusNotFound, wantData: envelope(t, http.StatusNotFound, "course not found", nil),
		},
		{name: "by id", path: "/api/courses/1", wantCode: http.StatusOK, wantData: success(t, c1)},
		{
			name: "list", path: "/api/courses", wantCode: http.StatusOK,
			wantData: success(t, core.PageResult{PageNum: 1, PageSize: core.DefaultPageSize, Total: 1, List: []grade.Course{c1}}),
		},
		{
			name: "create, invalid credit", method: http.MethodPost, path: "/api/courses",
			body: []byte(`{"courseNo": "C002", "name": "Databases", "credit": 0}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "create, duplicate", method: http.MethodPost, path: "/api/courses",
			body:     []byte(`{"courseNo": "C001", "name": "Algorithms", "credit": 4}`),
			wantCode: http.StatusConflict, wantData: envelope(t, http.StatusConflict, "a course with this number already exists", nil),
		},
	})

	t.Run("create", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/courses", []byte(`{"courseNo": "C002", "name": "Databases", "credit": 3.5}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var course grade.Course
		decodeData(t, rec, &course)
		assert.Equal(t, "C002", course.CourseNo)
		assert.Equal(t, 3.5, course.Credit)
	})
}

func Test_studentApi_updateDelete(t *testing.T) {
	app, repo := setup(t)
	testutil.CreateStudent(t, repo, "S001", "Alice")
	s2 := testutil.CreateStudent(t, repo, "S002", "Bob")
	c1 := testutil.CreateCourse(t, repo, "C001", "Algorithms", 4)
	testutil.Enroll(t, repo, s2, c1, semester, nil, nil)

	t.Run("update", func(t *testing.T) {
		req, rec := newRequest(http.MethodPut, "/api/students/1", []byte(`{"studentNo": " S010 ", "name": "Alice B", "gender": "F"}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var student grade.Student
		decodeData(t, rec, &student)
		assert.Equal(t, int64(1), student.Sid)
		assert.Equal(t, "S010", student.StudentNo)
		assert.Equal(t, "Alice B", student.Name)
		assert.Equal(t, "F", student.Gender)
	})

	runHTTPTests(t, app, []httpTest{
		{name: "renamed", path: "/api/students/no/S001", wantCode: http.StatusNotFound},
		{
			name: "update, number taken", method: http.MethodPut, path: "/api/students/2",
			body:     []byte(`{"studentNo": "S010", "name": "Bob"}`),
			wantCode: http.StatusConflict, wantData: envelope(t, http.StatusConflict, "a student with this number already exists", nil),
		},
		{
			name: "update, unknown", method: http.MethodPut, path: "/api/students/404",
			body:     []byte(`{"studentNo": "S404", "name": "Nobody"}`),
			wantCode: http.StatusNotFound, wantData: envelope(t, http.StatusNotFound, "student not found", nil),
		},
		{name: "update, missing fields", method: http.MethodPut, path: "/api/students/2", body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "update, invalid id", method: http.MethodPut, path: "/api/students/lol", body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "delete", method: http.MethodDelete, path: "/api/students/2", wantCode: http.StatusOK, wantData: success(t, nil)},
		{name: "deleted", path: "/api/students/2", wantCode: http.StatusNotFound},
		{
			name: "deleted enrollments", path: "/api/student-courses?courseCid=1", wantCode: http.StatusOK,
			wantData: success(t, core.PageResult{PageNum: 1, PageSize: core.DefaultPageSize, Total: 0, List: []grade.Enrollment{}}),
		},
		{
			name: "delete, unknown", method: http.MethodDelete, path: "/api/students/2",
			wantCode: http.StatusNotFound, wantData: envelope(t, http.StatusNotFound, "student not found", nil),
		},
	})
}

func Test_courseApi_updateDelete(t *testing.T) {
	app, repo := setup(t)
	testutil.CreateCourse(t, repo, "C001", "Algorithms", 4)
	testutil.CreateCourse(t, repo, "C002", "Databases", 3)

	t.Run("update", func(t *testing.T) {
		req, rec := newRequest(http.MethodPut, "/api/courses/2", []byte(`{"courseNo": "C002", "name": "Databases II", "credit": 3.5}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var course grade.Course
		decodeData(t, rec, &course)
		assert.Equal(t, "Databases II", course.Name)
		assert.Equal(t, 3.5, course.Credit)
	})

	runHTTPTests(t, app, []httpTest{
		{
			name: "update, number taken", method: http.MethodPut, path: "/api/courses/2",
			body:     []byte(`{"courseNo": "C001", "name": "Databases", "credit": 3}`),
			wantCode: http.StatusConflict, wantData: envelope(t, http.StatusConflict, "a course with this number already exists", nil),
		},
		{
			name: "update, invalid credit", method: http.MethodPut, path: "/api/courses/2",
			body: []byte(`{"courseNo": "C002", "name": "Databases", "credit": -1}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "update, unknown", method: http.MethodPut, path: "/api/courses/404",
			body:     []byte(`{"courseNo": "C404", "name": "None", "credit": 1}`),
			wantCode: http.StatusNotFound, wantData: envelope(t, http.StatusNotFound, "course not found", nil),
		},
		{name: "delete", method: http.MethodDelete, path: "/api/courses/1", wantCode: http.StatusOK, wantData: success(t, nil)},
		{name: "deleted", path: "/api/courses/no/C001", wantCode: http.StatusNotFound},
		{name: "delete, unknown", method: http.MethodDelete, path: "/api/courses/1", wantCode: http.StatusNotFound},
	})
}
