package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

// RepositoryTests runs the behaviour every grade.Repository must share against an empty repo.
func RepositoryTests(t *testing.T, repo grade.Repository) {
	ctx := context.Background()

	alice := CreateStudent(t, repo, "S002", "Alice")
	bob := CreateStudent(t, repo, "S001", "Bob")
	maths := CreateCourse(t, repo, "C001", "Maths", 3)
	physics := CreateCourse(t, repo, "C002", "Physics", 2.5)

	t.Run("students", func(t *testing.T) {
		assert.NotZero(t, alice.Sid)
		assert.NotEqual(t, alice.Sid, bob.Sid)

		got, err := repo.GetStudent(ctx, alice.Sid)
		require.NoError(t, err)
		assert.Equal(t, "S002", got.StudentNo)
		assert.Equal(t, "Alice", got.Name)

		got, err = repo.GetStudentByNo(ctx, "S001")
		require.NoError(t, err)
		assert.Equal(t, bob.Sid, got.Sid)

		_, err = repo.GetStudent(ctx, 987654)
		assert.Equal(t, grade.ErrStudentNotFound, err)
		_, err = repo.GetStudentByNo(ctx, "S999")
		assert.Equal(t, grade.ErrStudentNotFound, err)

		_, err = repo.CreateStudent(ctx, grade.Student{StudentNo: "S001", Name: "Bobby", CreatedTime: time.Now()})
		assert.Equal(t, grade.ErrStudentNoExists, err)

		list, total, err := repo.QueryStudents(ctx, core.Page{Number: 1, Size: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		if assert.Len(t, list, 1) {
			assert.Equal(t, "S001", list[0].StudentNo)
		}
		list, _, err = repo.QueryStudents(ctx, core.Page{Number: 3, Size: 1})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("courses", func(t *testing.T) {
		got, err := repo.GetCourse(ctx, physics.Cid)
		require.NoError(t, err)
		assert.Equal(t, "Physics", got.Name)
		assert.Equal(t, 2.5, got.Credit)

		got, err = repo.GetCourseByNo(ctx, "C001")
		require.NoError(t, err)
		assert.Equal(t, maths.Cid, got.Cid)

		_, err = repo.GetCourse(ctx, 987654)
		assert.Equal(t, grade.ErrCourseNotFound, err)
		_, err = repo.GetCourseByNo(ctx, "C999")
		assert.Equal(t, grade.ErrCourseNotFound, err)

		_, err = repo.CreateCourse(ctx, grade.Course{CourseNo: "C002", Name: "Other", Credit: 1, CreatedTime: time.Now()})
		assert.Equal(t, grade.ErrCourseNoExists, err)

		list, total, err := repo.QueryCourses(ctx, core.Page{Number: 1, Size: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		if assert.Len(t, list, 2) {
			assert.Equal(t, "C001", list[0].CourseNo)
			assert.Equal(t, "C002", list[1].CourseNo)
		}
	})

	t.Run("enrollments", func(t *testing.T) {
		enr := Enroll(t, repo, alice, maths, "2024-2025-1", Score(80), Score(90))
		assert.Equal(t, grade.StatusExamEntered, enr.Status)
		if assert.NotNil(t, enr.FinalScore) {
			assert.Equal(t, 86.0, *enr.FinalScore)
		}
		assert.NotNil(t, enr.ExamScoreDate)
		assert.Equal(t, "S002", enr.StudentNo)
		assert.Equal(t, "Alice", enr.StudentName)
		assert.Equal(t, "Maths", enr.CourseName)
		assert.Equal(t, 3.0, enr.Credit)

		Enroll(t, repo, bob, maths, "2024-2025-1", nil, nil)
		Enroll(t, repo, bob, physics, "2023-2024-2", Score(50), nil)
		Enroll(t, repo, bob, maths, "2023-2024-2", nil, nil)

		err := repo.CreateEnrollment(ctx, grade.Enrollment{
			EnrollmentKey: enr.EnrollmentKey,
			Status:        grade.StatusEnrolled,
			SelectionDate: time.Now(),
			CreatedTime:   time.Now(),
			UpdatedTime:   time.Now(),
		})
		assert.Equal(t, grade.ErrAlreadyEnrolled, err)

		// update
		enr.Status = grade.StatusCompleted
		enr.Remark = "checked"
		require.NoError(t, repo.UpdateEnrollment(ctx, enr))
		got, err := repo.GetEnrollment(ctx, enr.EnrollmentKey)
		require.NoError(t, err)
		assert.Equal(t, grade.StatusCompleted, got.Status)
		assert.Equal(t, "checked", got.Remark)

		missing := grade.EnrollmentKey{StudentSid: alice.Sid, CourseCid: physics.Cid, Semester: "2024-2025-1"}
		_, err = repo.GetEnrollment(ctx, missing)
		assert.Equal(t, grade.ErrEnrollmentNotFound, err)
		assert.Equal(t, grade.ErrEnrollmentNotFound, repo.UpdateEnrollment(ctx, grade.Enrollment{EnrollmentKey: missing}))
		assert.Equal(t, grade.ErrEnrollmentNotFound, repo.DeleteEnrollment(ctx, missing))

		// listing order: semester desc, student number, course number
		keys := func(list []grade.Enrollment) []string {
			out := make([]string, 0, len(list))
			for _, e := range list {
				out = append(out, e.Semester+"/"+e.StudentNo+"/"+e.CourseNo)
			}
			return out
		}

		list, err := repo.QueryEnrollments(ctx, grade.GradeFilter{CourseCid: maths.Cid})
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-2025-1/S001/C001", "2024-2025-1/S002/C001", "2023-2024-2/S001/C001"}, keys(list))

		list, err = repo.QueryEnrollments(ctx, grade.GradeFilter{StudentSid: bob.Sid, Semester: "2023-2024-2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"2023-2024-2/S001/C001", "2023-2024-2/S001/C002"}, keys(list))

		list, err = repo.QueryEnrollments(ctx, grade.GradeFilter{StudentSid: alice.Sid, Semester: "2022-2023-1"})
		require.NoError(t, err)
		assert.Empty(t, list)

		// delete
		dropped := grade.EnrollmentKey{StudentSid: bob.Sid, CourseCid: maths.Cid, Semester: "2023-2024-2"}
		require.NoError(t, repo.DeleteEnrollment(ctx, dropped))
		_, err = repo.GetEnrollment(ctx, dropped)
		assert.Equal(t, grade.ErrEnrollmentNotFound, err)
	})

	studentNos := func(t *testing.T) []string {
		list, _, err := repo.QueryStudents(ctx, core.Page{Number: 1, Size: 10})
		require.NoError(t, err)
		out := make([]string, 0, len(list))
		for _, s := range list {
			out = append(out, s.StudentNo)
		}
		return out
	}

	t.Run("number ordering", func(t *testing.T) {
		CreateStudent(t, repo, "S10", "Dan")
		CreateStudent(t, repo, "S1", "Carol")
		assert.Equal(t, []string{"S001", "S002", "S1", "S10"}, studentNos(t))

		CreateCourse(t, repo, "C10", "Chemistry", 2)
		CreateCourse(t, repo, "C1", "Biology", 2)
		list, _, err := repo.QueryCourses(ctx, core.Page{Number: 1, Size: 10})
		require.NoError(t, err)
		nos := make([]string, 0, len(list))
		for _, c := range list {
			nos = append(nos, c.CourseNo)
		}
		assert.Equal(t, []string{"C001", "C002", "C1", "C10"}, nos)
	})

	t.Run("update and delete students", func(t *testing.T) {
		student, err := repo.GetStudent(ctx, alice.Sid)
		require.NoError(t, err)
		student.StudentNo = "S003"
		student.Name = "Alice B"
		student.Major = "Physics"
		student.UpdatedTime = time.Now().UTC()
		require.NoError(t, repo.UpdateStudent(ctx, student))

		got, err := repo.GetStudentByNo(ctx, "S003")
		require.NoError(t, err)
		assert.Equal(t, alice.Sid, got.Sid)
		assert.Equal(t, "Alice B", got.Name)
		assert.Equal(t, "Physics", got.Major)
		_, err = repo.GetStudentByNo(ctx, "S002")
		assert.Equal(t, grade.ErrStudentNotFound, err)
		assert.Equal(t, []string{"S001", "S003", "S1", "S10"}, studentNos(t))

		enr, err := repo.GetEnrollment(ctx, grade.EnrollmentKey{StudentSid: alice.Sid, CourseCid: maths.Cid, Semester: "2024-2025-1"})
		require.NoError(t, err)
		assert.Equal(t, "S003", enr.StudentNo)

		student.StudentNo = "S001"
		assert.Equal(t, grade.ErrStudentNoExists, repo.UpdateStudent(ctx, student))
		assert.Equal(t, grade.ErrStudentNotFound, repo.UpdateStudent(ctx, grade.Student{Sid: 987654, StudentNo: "S987", Name: "Nobody"}))

		// bob goes, with his enrollments
		require.NoError(t, repo.DeleteStudent(ctx, bob.Sid))
		_, err = repo.GetStudent(ctx, bob.Sid)
		assert.Equal(t, grade.ErrStudentNotFound, err)
		_, err = repo.GetStudentByNo(ctx, "S001")
		assert.Equal(t, grade.ErrStudentNotFound, err)
		assert.Equal(t, grade.ErrStudentNotFound, repo.DeleteStudent(ctx, bob.Sid))

		list, err := repo.QueryEnrollments(ctx, grade.GradeFilter{StudentSid: bob.Sid})
		require.NoError(t, err)
		assert.Empty(t, list)
		list, err = repo.QueryEnrollments(ctx, grade.GradeFilter{CourseCid: maths.Cid})
		require.NoError(t, err)
		if assert.Len(t, list, 1) {
			assert.Equal(t, alice.Sid, list[0].StudentSid)
		}

		// the number is free again
		CreateStudent(t, repo, "S001", "Bob")
	})

	t.Run("update and delete courses", func(t *testing.T) {
		course, err := repo.GetCourse(ctx, physics.Cid)
		require.NoError(t, err)
		course.CourseNo = "C003"
		course.Name = "Physics II"
		course.Credit = 4
		course.UpdatedTime = time.Now().UTC()
		require.NoError(t, repo.UpdateCourse(ctx, course))

		got, err := repo.GetCourseByNo(ctx, "C003")
		require.NoError(t, err)
		assert.Equal(t, physics.Cid, got.Cid)
		assert.Equal(t, "Physics II", got.Name)
		assert.Equal(t, 4.0, got.Credit)
		_, err = repo.GetCourseByNo(ctx, "C002")
		assert.Equal(t, grade.ErrCourseNotFound, err)

		course.CourseNo = "C001"
		assert.Equal(t, grade.ErrCourseNoExists, repo.UpdateCourse(ctx, course))
		assert.Equal(t, grade.ErrCourseNotFound, repo.UpdateCourse(ctx, grade.Course{Cid: 987654, CourseNo: "C987", Name: "None", Credit: 1}))

		require.NoError(t, repo.DeleteCourse(ctx, maths.Cid))
		_, err = repo.GetCourse(ctx, maths.Cid)
		assert.Equal(t, grade.ErrCourseNotFound, err)
		_, err = repo.GetEnrollment(ctx, grade.EnrollmentKey{StudentSid: alice.Sid, CourseCid: maths.Cid, Semester: "2024-2025-1"})
		assert.Equal(t, grade.ErrEnrollmentNotFound, err)
		list, err := repo.QueryEnrollments(ctx, grade.GradeFilter{StudentSid: alice.Sid})
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.Equal(t, grade.ErrCourseNotFound, repo.DeleteCourse(ctx, maths.Cid))
	})
}
