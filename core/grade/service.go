package grade

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

var (
	// errors
	ErrStudentNotFound    = errors.New("student not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyEnrolled    = errors.New("student already enrolled in this course for this semester")
	ErrStudentNoExists    = errors.New("a student with this number already exists")
	ErrCourseNoExists     = errors.New("a course with this number already exists")

	errDropScored       = errors.New("a course with recorded scores cannot be dropped")
	errRegularFirst     = errors.New("the regular score must be recorded first")
	errExamFirst        = errors.New("the exam score must be recorded first")
	errAlreadyCompleted = errors.New("the enrollment is already completed")
	errInvalidScore     = errors.New("score must be a number between 0 and 100")
)

// IsNotFound reports whether err is caused by a missing student, course or enrollment.
func IsNotFound(err error) bool {
	switch errors.Cause(err) {
	case ErrStudentNotFound, ErrCourseNotFound, ErrEnrollmentNotFound:
		return true
	}
	return false
}

// IsConflict reports whether err is caused by a uniqueness violation.
func IsConflict(err error) bool {
	switch errors.Cause(err) {
	case ErrAlreadyEnrolled, ErrStudentNoExists, ErrCourseNoExists:
		return true
	}
	return false
}

type (
	Repository interface {
		CreateStudent(ctx context.Context, student Student) (Student, error)
		GetStudent(ctx context.Context, sid int64) (Student, error)
		GetStudentByNo(ctx context.Context, studentNo string) (Student, error)
		// QueryStudents returns one page of students ordered by number, and the total count.
		QueryStudents(ctx context.Context, page core.Page) ([]Student, int, error)
		// UpdateStudent saves every field but Sid and CreatedTime.
		UpdateStudent(ctx context.Context, student Student) error
		// DeleteStudent removes the student and its enrollments.
		DeleteStudent(ctx context.Context, sid int64) error

		CreateCourse(ctx context.Context, course Course) (Course, error)
		GetCourse(ctx context.Context, cid int64) (Course, error)
		GetCourseByNo(ctx context.Context, courseNo string) (Course, error)
		QueryCourses(ctx context.Context, page core.Page) ([]Course, int, error)
		UpdateCourse(ctx context.Context, course Course) error
		DeleteCourse(ctx context.Context, cid int64) error

		CreateEnrollment(ctx context.Context, enrollment Enrollment) error
		GetEnrollment(ctx context.Context, key EnrollmentKey) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, enrollment Enrollment) error
		DeleteEnrollment(ctx context.Context, key EnrollmentKey) error
		// QueryEnrollments lists the enrollments matching filter, joined with student and course display fields,
		// ordered by semester (desc), then student number and course number.
		QueryEnrollments(ctx context.Context, filter GradeFilter) ([]Enrollment, error)
	}

	Service interface {
		StudentByID(ctx context.Context, sid int64) (Student, error)
		StudentByNo(ctx context.Context, studentNo string) (Student, error)
		CreateStudent(ctx context.Context, ns NewStudent) (Student, error)
		QueryStudents(ctx context.Context, page core.Page) (core.PageResult, error)
		UpdateStudent(ctx context.Context, sid int64, ns NewStudent) (Student, error)
		DeleteStudent(ctx context.Context, sid int64) error

		CourseByID(ctx context.Context, cid int64) (Course, error)
		CourseByNo(ctx context.Context, courseNo string) (Course, error)
		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		QueryCourses(ctx context.Context, page core.Page) (core.PageResult, error)
		UpdateCourse(ctx context.Context, cid int64, nc NewCourse) (Course, error)
		DeleteCourse(ctx context.Context, cid int64) error

		Select(ctx context.Context, key EnrollmentKey) error
		Drop(ctx context.Context, key EnrollmentKey) error
		RecordRegularScore(ctx context.Context, key EnrollmentKey, score float64) error
		RecordExamScore(ctx context.Context, key EnrollmentKey, score float64) error
		Finalize(ctx context.Context, key EnrollmentKey) error

		StudentGrades(ctx context.Context, sid int64, semester string) ([]Enrollment, error)
		CourseGrades(ctx context.Context, cid int64, semester string) ([]Enrollment, error)
		CourseStats(ctx context.Context, cid int64, semester string) (Stats, error)
		QueryEnrollments(ctx context.Context, filter GradeFilter, page core.Page) (core.PageResult, error)
	}

	service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

var nowFunc = time.Now // mockable

func NewService(repo Repository, validate *validator.Validate) Service {
	return &service{repo: repo, validate: validate}
}

func now() time.Time { return nowFunc().UTC() }

// Students

func (svc *service) StudentByID(ctx context.Context, sid int64) (Student, error) {
	return svc.repo.GetStudent(ctx, sid)
}

func (svc *service) StudentByNo(ctx context.Context, studentNo string) (Student, error) {
	return svc.repo.GetStudentByNo(ctx, core.CleanString(studentNo))
}

func (svc *service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	if _, err := svc.repo.GetStudentByNo(ctx, ns.StudentNo); err == nil {
		return Student{}, ErrStudentNoExists
	} else if errors.Cause(err) != ErrStudentNotFound {
		return Student{}, errors.Wrap(err, "checking student number")
	}

	t := now()
	return svc.repo.CreateStudent(ctx, Student{
		StudentNo:   ns.StudentNo,
		Name:        ns.Name,
		Gender:      ns.Gender,
		Major:       ns.Major,
		Remark:      ns.Remark,
		CreatedTime: t,
		UpdatedTime: t,
	})
}

func (svc *service) QueryStudents(ctx context.Context, page core.Page) (core.PageResult, error) {
	page = page.Clean()
	students, total, err := svc.repo.QueryStudents(ctx, page)
	if err != nil {
		return core.PageResult{}, errors.Wrap(err, "querying students")
	}
	return core.PageResult{PageNum: page.Number, PageSize: page.Size, Total: total, List: students}, nil
}

func (svc *service) UpdateStudent(ctx context.Context, sid int64, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Student{}, err
	}
	student, err := svc.repo.GetStudent(ctx, sid)
	if err != nil {
		return Student{}, err
	}
	if ns.StudentNo != student.StudentNo {
		if _, err = svc.repo.GetStudentByNo(ctx, ns.StudentNo); err == nil {
			return Student{}, ErrStudentNoExists
		} else if errors.Cause(err) != ErrStudentNotFound {
			return Student{}, errors.Wrap(err, "checking student number")
		}
	}

	student.StudentNo = ns.StudentNo
	student.Name = ns.Name
	student.Gender = ns.Gender
	student.Major = ns.Major
	student.Remark = ns.Remark
	student.UpdatedTime = now()
	if err = svc.repo.UpdateStudent(ctx, student); err != nil {
		return Student{}, err
	}
	return student, nil
}

// DeleteStudent removes a student together with all its enrollments.
func (svc *service) DeleteStudent(ctx context.Context, sid int64) error {
	return svc.repo.DeleteStudent(ctx, sid)
}

// Courses

func (svc *service) CourseByID(ctx context.Context, cid int64) (Course, error) {
	return svc.repo.GetCourse(ctx, cid)
}

func (svc *service) CourseByNo(ctx context.Context, courseNo string) (Course, error) {
	return svc.repo.GetCourseByNo(ctx, core.CleanString(courseNo))
}

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	if _, err := svc.repo.GetCourseByNo(ctx, nc.CourseNo); err == nil {
		return Course{}, ErrCourseNoExists
	} else if errors.Cause(err) != ErrCourseNotFound {
		return Course{}, errors.Wrap(err, "checking course number")
	}

	t := now()
	return svc.repo.CreateCourse(ctx, Course{
		CourseNo:    nc.CourseNo,
		Name:        nc.Name,
		Credit:      nc.Credit,
		CreatedTime: t,
		UpdatedTime: t,
	})
}

func (svc *service) QueryCourses(ctx context.Context, page core.Page) (core.PageResult, error) {
	page = page.Clean()
	courses, total, err := svc.repo.QueryCourses(ctx, page)
	if err != nil {
		return core.PageResult{}, errors.Wrap(err, "querying courses")
	}
	return core.PageResult{PageNum: page.Number, PageSize: page.Size, Total: total, List: courses}, nil
}

func (svc *service) UpdateCourse(ctx context.Context, cid int64, nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	course, err := svc.repo.GetCourse(ctx, cid)
	if err != nil {
		return Course{}, err
	}
	if nc.CourseNo != course.CourseNo {
		if _, err = svc.repo.GetCourseByNo(ctx, nc.CourseNo); err == nil {
			return Course{}, ErrCourseNoExists
		} else if errors.Cause(err) != ErrCourseNotFound {
			return Course{}, errors.Wrap(err, "checking course number")
		}
	}

	course.CourseNo = nc.CourseNo
	course.Name = nc.Name
	course.Credit = nc.Credit
	course.UpdatedTime = now()
	if err = svc.repo.UpdateCourse(ctx, course); err != nil {
		return Course{}, err
	}
	return course, nil
}

func (svc *service) DeleteCourse(ctx context.Context, cid int64) error {
	return svc.repo.DeleteCourse(ctx, cid)
}

// Enrollments

func (svc *service) validateKey(key *EnrollmentKey) error {
	key.Semester = core.CleanString(key.Semester)
	return svc.validate.Struct(key)
}

func validateScore(field string, score float64) error {
	if !ValidScore(score) {
		return core.NewValidationError(errInvalidScore, core.FieldError{Field: field, Error: errInvalidScore.Error()})
	}
	return nil
}

func (svc *service) Select(ctx context.Context, key EnrollmentKey) error {
	if err := svc.validateKey(&key); err != nil {
		return err
	}
	if _, err := svc.repo.GetStudent(ctx, key.StudentSid); err != nil {
		return err
	}
	if _, err := svc.repo.GetCourse(ctx, key.CourseCid); err != nil {
		return err
	}
	if _, err := svc.repo.GetEnrollment(ctx, key); err == nil {
		return ErrAlreadyEnrolled
	} else if errors.Cause(err) != ErrEnrollmentNotFound {
		return errors.Wrap(err, "checking enrollment")
	}

	t := now()
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		EnrollmentKey: key,
		Status:        StatusEnrolled,
		SelectionDate: t,
		CreatedTime:   t,
		UpdatedTime:   t,
	})
}

func (svc *service) Drop(ctx context.Context, key EnrollmentKey) error {
	if err := svc.validateKey(&key); err != nil {
		return err
	}
	enr, err := svc.repo.GetEnrollment(ctx, key)
	if err != nil {
		return err
	}
	if !enr.Status.Droppable() {
		return core.NewValidationError(errDropScored)
	}
	return svc.repo.DeleteEnrollment(ctx, key)
}

func (svc *service) RecordRegularScore(ctx context.Context, key EnrollmentKey, score float64) error {
	if err := svc.validateKey(&key); err != nil {
		return err
	}
	if err := validateScore("regularScore", score); err != nil {
		return err
	}
	enr, err := svc.repo.GetEnrollment(ctx, key)
	if err != nil {
		return err
	}
	if enr.Status >= StatusCompleted {
		return core.NewValidationError(errAlreadyCompleted)
	}

	t := now()
	enr.RegularScore = &score
	enr.RegularScoreDate = &t
	if enr.Status < StatusRegularEntered {
		enr.Status = StatusRegularEntered
	}
	// a corrected regular score changes an already computed final score
	if enr.ExamScore != nil {
		final := FinalScore(score, *enr.ExamScore)
		enr.FinalScore = &final
		enr.FinalScoreDate = &t
	}
	enr.UpdatedTime = t
	return svc.repo.UpdateEnrollment(ctx, enr)
}

func (svc *service) RecordExamScore(ctx context.Context, key EnrollmentKey, score float64) error {
	if err := svc.validateKey(&key); err != nil {
		return err
	}
	if err := validateScore("examScore", score); err != nil {
		return err
	}
	enr, err := svc.repo.GetEnrollment(ctx, key)
	if err != nil {
		return err
	}
	if enr.Status >= StatusCompleted {
		return core.NewValidationError(errAlreadyCompleted)
	}
	if enr.Status < StatusRegularEntered || enr.RegularScore == nil {
		return core.NewValidationError(errRegularFirst)
	}

	t := now()
	final := FinalScore(*enr.RegularScore, score)
	enr.ExamScore = &score
	enr.ExamScoreDate = &t
	enr.FinalScore = &final
	enr.FinalScoreDate = &t
	enr.Status = StatusExamEntered
	enr.UpdatedTime = t
	return svc.repo.UpdateEnrollment(ctx, enr)
}

func (svc *service) Finalize(ctx context.Context, key EnrollmentKey) error {
	if err := svc.validateKey(&key); err != nil {
		return err
	}
	enr, err := svc.repo.GetEnrollment(ctx, key)
	if err != nil {
		return err
	}
	switch {
	case enr.Status >= StatusCompleted:
		return core.NewValidationError(errAlreadyCompleted)
	case enr.Status < StatusExamEntered || enr.FinalScore == nil:
		return core.NewValidationError(errExamFirst)
	}

	enr.Status = StatusCompleted
	enr.UpdatedTime = now()
	return svc.repo.UpdateEnrollment(ctx, enr)
}

// Grades

func (svc *service) StudentGrades(ctx context.Context, sid int64, semester string) ([]Enrollment, error) {
	if _, err := svc.repo.GetStudent(ctx, sid); err != nil {
		return nil, err
	}
	return svc.queryGrades(ctx, GradeFilter{StudentSid: sid, Semester: core.CleanString(semester)})
}

func (svc *service) CourseGrades(ctx context.Context, cid int64, semester string) ([]Enrollment, error) {
	if _, err := svc.repo.GetCourse(ctx, cid); err != nil {
		return nil, err
	}
	return svc.queryGrades(ctx, GradeFilter{CourseCid: cid, Semester: core.CleanString(semester)})
}

func (svc *service) CourseStats(ctx context.Context, cid int64, semester string) (Stats, error) {
	grades, err := svc.CourseGrades(ctx, cid, semester)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(grades), nil
}

// QueryEnrollments lists one page of the enrollments matching filter. Zero filter fields match everything.
func (svc *service) QueryEnrollments(ctx context.Context, filter GradeFilter, page core.Page) (core.PageResult, error) {
	page = page.Clean()
	filter.Semester = core.CleanString(filter.Semester)
	enrollments, err := svc.queryGrades(ctx, filter)
	if err != nil {
		return core.PageResult{}, err
	}
	start, end := page.Window(len(enrollments))
	return core.PageResult{PageNum: page.Number, PageSize: page.Size, Total: len(enrollments), List: enrollments[start:end]}, nil
}

func (svc *service) queryGrades(ctx context.Context, filter GradeFilter) ([]Enrollment, error) {
	grades, err := svc.repo.QueryEnrollments(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	if grades == nil {
		grades = []Enrollment{}
	}
	return grades, nil
}
