package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/gradebook/core/grade"
)

func CreateStudent(t *testing.T, repo grade.Repository, studentNo, name string, createdTime ...time.Time) grade.Student {
	tstamp := time.Now().UTC()
	if len(createdTime) > 0 {
		tstamp = createdTime[0].UTC()
	}
	student, err := repo.CreateStudent(context.Background(), grade.Student{
		StudentNo:   studentNo,
		Name:        name,
		CreatedTime: tstamp,
		UpdatedTime: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return student
}

func CreateCourse(t *testing.T, repo grade.Repository, courseNo, name string, credit float64) grade.Course {
	tstamp := time.Now().UTC()
	course, err := repo.CreateCourse(context.Background(), grade.Course{
		CourseNo:    courseNo,
		Name:        name,
		Credit:      credit,
		CreatedTime: tstamp,
		UpdatedTime: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return course
}

// Enroll stores an enrollment with the given scores, deriving the status and final score from them.
func Enroll(
	t *testing.T,
	repo grade.Repository,
	student grade.Student,
	course grade.Course,
	semester string,
	regular, exam *float64,
) grade.Enrollment {
	tstamp := time.Now().UTC()
	enr := grade.Enrollment{
		EnrollmentKey: grade.EnrollmentKey{StudentSid: student.Sid, CourseCid: course.Cid, Semester: semester},
		Status:        grade.StatusEnrolled,
		SelectionDate: tstamp,
		CreatedTime:   tstamp,
		UpdatedTime:   tstamp,
	}
	if regular != nil {
		enr.RegularScore = regular
		enr.RegularScoreDate = &tstamp
		enr.Status = grade.StatusRegularEntered
	}
	if regular != nil && exam != nil {
		final := grade.FinalScore(*regular, *exam)
		enr.ExamScore = exam
		enr.ExamScoreDate = &tstamp
		enr.FinalScore = &final
		enr.FinalScoreDate = &tstamp
		enr.Status = grade.StatusExamEntered
	}
	if err := repo.CreateEnrollment(context.Background(), enr); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	enr, err := repo.GetEnrollment(context.Background(), enr.EnrollmentKey)
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

// Score returns a pointer to v.
func Score(v float64) *float64 { return &v }
