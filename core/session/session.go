// Package session holds the enrollment/grade session: the student and course a user is working on,
// the semester, and the grade list shown for the current selection.
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

// Focus is the active selection, the one grade lists are fetched for.
type Focus int

const (
	FocusNone Focus = iota
	FocusStudent
	FocusCourse
)

func (f Focus) String() string {
	switch f {
	case FocusStudent:
		return "student"
	case FocusCourse:
		return "course"
	}
	return "none"
}

// request slots, each with its own sequence
const (
	slotStudent = iota
	slotCourse
	slotGrades
	slotCount
)

type (
	// Backend is the server side of the session. grade.Service satisfies it, as does the REST client.
	Backend interface {
		StudentByNo(ctx context.Context, studentNo string) (grade.Student, error)
		CourseByNo(ctx context.Context, courseNo string) (grade.Course, error)
		Select(ctx context.Context, key grade.EnrollmentKey) error
		Drop(ctx context.Context, key grade.EnrollmentKey) error
		RecordRegularScore(ctx context.Context, key grade.EnrollmentKey, score float64) error
		RecordExamScore(ctx context.Context, key grade.EnrollmentKey, score float64) error
		Finalize(ctx context.Context, key grade.EnrollmentKey) error
		StudentGrades(ctx context.Context, sid int64, semester string) ([]grade.Enrollment, error)
		CourseGrades(ctx context.Context, cid int64, semester string) ([]grade.Enrollment, error)
		CourseStats(ctx context.Context, cid int64, semester string) (grade.Stats, error)
	}

	// View renders session snapshots. It must not call back into the session.
	View interface {
		Render(snap Snapshot)
	}

	Options struct {
		Semester string
		// Confirm asks the user to confirm an irreversible action. A nil Confirm declines everything.
		Confirm func(prompt string) bool
		Logger  core.Logger
	}

	// Snapshot is a copy of the session state.
	Snapshot struct {
		Student  *grade.Student
		Course   *grade.Course
		Semester string
		Focus    Focus
		Grades   []grade.Enrollment
		Stats    *grade.Stats
		Notice   string
		Err      error
	}

	Session struct {
		backend Backend
		view    View
		confirm func(prompt string) bool
		logger  core.Logger

		mu       sync.Mutex // never held across a backend call
		seq      [slotCount]uint64
		student  *grade.Student
		course   *grade.Course
		semester string
		focus    Focus
		grades   []grade.Enrollment
		stats    *grade.Stats
		notice   string
		err      error
	}
)

var _ Backend = (grade.Service)(nil)

// StatsVisible reports whether the statistics panel is shown: only for a course selection.
func (snap Snapshot) StatsVisible() bool {
	return snap.Focus == FocusCourse && snap.Stats != nil
}

func New(backend Backend, view View, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Session{
		backend:  backend,
		view:     view,
		confirm:  opts.Confirm,
		logger:   logger,
		semester: core.CleanString(opts.Semester),
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// snapshot copies the state. The caller holds the lock.
func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		Semester: s.semester,
		Focus:    s.focus,
		Notice:   s.notice,
		Err:      s.err,
	}
	if s.student != nil {
		student := *s.student
		snap.Student = &student
	}
	if s.course != nil {
		course := *s.course
		snap.Course = &course
	}
	if s.grades != nil {
		snap.Grades = make([]grade.Enrollment, len(s.grades))
		copy(snap.Grades, s.grades)
	}
	if s.stats != nil && s.focus == FocusCourse {
		stats := *s.stats
		snap.Stats = &stats
	}
	return snap
}

// update applies fn under the lock, then renders the resulting state.
func (s *Session) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshot()
	s.mu.Unlock()
	s.render(snap)
}

func (s *Session) render(snap Snapshot) {
	if s.view != nil {
		s.view.Render(snap)
	}
}

// fail records err as the outcome of the current action and returns it.
func (s *Session) fail(err error) error {
	s.update(func() {
		s.notice = ""
		s.err = err
	})
	return err
}

// succeed records a notice without rendering; the refresh that follows renders it.
func (s *Session) succeed(notice string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = notice
	s.err = nil
}

// begin issues a new sequence number for slot.
func (s *Session) begin(slot int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[slot]++
	return s.seq[slot]
}

// clearGrades drops the grade list of a selection that is gone. The caller holds the lock.
func (s *Session) clearGrades() {
	s.seq[slotGrades]++
	s.grades = nil
	s.stats = nil
}

// ResolveStudent looks up a student by number and makes it the active selection.
// A lookup the server rejects clears the student reference; a transport failure leaves it as is.
func (s *Session) ResolveStudent(ctx context.Context, studentNo string) error {
	studentNo = core.CleanString(studentNo)
	if studentNo == "" {
		return s.fail(validationError("studentNo", errNoStudentNo))
	}

	seq := s.begin(slotStudent)
	student, err := s.backend.StudentByNo(ctx, studentNo)

	s.mu.Lock()
	if seq != s.seq[slotStudent] {
		s.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		if !IsTransport(err) {
			s.student = nil
			if s.focus == FocusStudent {
				s.clearGrades()
				s.focus = FocusNone
				if s.course != nil {
					s.focus = FocusCourse
				}
			}
		}
		s.notice = ""
		s.err = err
		snap := s.snapshot()
		s.mu.Unlock()
		s.render(snap)
		return err
	}
	s.student = &student
	s.focus = FocusStudent
	s.clearGrades()
	s.notice = fmt.Sprintf("student %s: %s", student.StudentNo, student.Name)
	s.err = nil
	s.mu.Unlock()

	return s.RefreshGrades(ctx)
}

// ResolveCourse looks up a course by number and makes it the active selection.
// A lookup the server rejects clears the course reference; a transport failure leaves it as is.
func (s *Session) ResolveCourse(ctx context.Context, courseNo string) error {
	courseNo = core.CleanString(courseNo)
	if courseNo == "" {
		return s.fail(validationError("courseNo", errNoCourseNo))
	}

	seq := s.begin(slotCourse)
	course, err := s.backend.CourseByNo(ctx, courseNo)

	s.mu.Lock()
	if seq != s.seq[slotCourse] {
		s.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		if !IsTransport(err) {
			s.course = nil
			if s.focus == FocusCourse {
				s.clearGrades()
				s.focus = FocusNone
				if s.student != nil {
					s.focus = FocusStudent
				}
			}
		}
		s.notice = ""
		s.err = err
		snap := s.snapshot()
		s.mu.Unlock()
		s.render(snap)
		return err
	}
	s.course = &course
	s.focus = FocusCourse
	s.clearGrades()
	s.notice = fmt.Sprintf("course %s: %s", course.CourseNo, course.Name)
	s.err = nil
	s.mu.Unlock()

	return s.RefreshGrades(ctx)
}

// Focus makes an already resolved reference the active selection and refreshes the grades.
func (s *Session) Focus(ctx context.Context, focus Focus) error {
	s.mu.Lock()
	var err error
	switch {
	case focus == FocusStudent && s.student == nil:
		err = validationError("student", errNoStudent)
	case focus == FocusCourse && s.course == nil:
		err = validationError("course", errNoCourse)
	case focus != FocusStudent && focus != FocusCourse:
		err = validationError("focus", errNoSelection)
	}
	if err == nil && focus != s.focus {
		s.focus = focus
		s.clearGrades()
	}
	s.mu.Unlock()

	if err != nil {
		return s.fail(err)
	}
	return s.RefreshGrades(ctx)
}

func (s *Session) SetSemester(token string) {
	s.update(func() {
		s.semester = core.CleanString(token)
	})
}

func (s *Session) Semester() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.semester
}

// selectedKey returns the enrollment key of the selected student, course and semester.
func (s *Session) selectedKey() (grade.EnrollmentKey, grade.Student, grade.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.student == nil:
		return grade.EnrollmentKey{}, grade.Student{}, grade.Course{}, validationError("student", errNoStudent)
	case s.course == nil:
		return grade.EnrollmentKey{}, grade.Student{}, grade.Course{}, validationError("course", errNoCourse)
	case s.semester == "":
		return grade.EnrollmentKey{}, grade.Student{}, grade.Course{}, validationError("semester", errNoSemester)
	}
	key := grade.EnrollmentKey{StudentSid: s.student.Sid, CourseCid: s.course.Cid, Semester: s.semester}
	return key, *s.student, *s.course, nil
}

// Enroll enrolls the selected student in the selected course for the semester.
func (s *Session) Enroll(ctx context.Context) error {
	key, student, course, err := s.selectedKey()
	if err != nil {
		return s.fail(err)
	}
	if err = s.backend.Select(ctx, key); err != nil {
		return s.fail(err)
	}
	s.succeed(fmt.Sprintf("%s enrolled in %s for %s", student.Name, course.Name, key.Semester))
	return s.refreshAfterChange(ctx)
}

// Drop removes an enrollment once the user confirmed it.
func (s *Session) Drop(ctx context.Context, studentSid, courseCid int64, semester string) error {
	key := grade.EnrollmentKey{StudentSid: studentSid, CourseCid: courseCid, Semester: core.CleanString(semester)}
	if key.StudentSid <= 0 || key.CourseCid <= 0 || key.Semester == "" {
		return s.fail(core.NewValidationError(errInvalidDropKey))
	}

	prompt := fmt.Sprintf("Drop course %d of student %d for %s? This cannot be undone.", courseCid, studentSid, key.Semester)
	if s.confirm == nil || !s.confirm(prompt) {
		s.update(func() {
			s.notice = "drop cancelled"
			s.err = nil
		})
		return ErrCancelled
	}

	if err := s.backend.Drop(ctx, key); err != nil {
		return s.fail(err)
	}
	s.succeed(fmt.Sprintf("dropped course %d of student %d for %s", courseCid, studentSid, key.Semester))
	return s.refreshAfterChange(ctx)
}

// parseScore checks a user entered score: a finite number in [0, 100].
func parseScore(field, value string) (float64, error) {
	value = core.CleanString(value)
	if value == "" {
		return 0, validationError(field, errNoScore)
	}
	score, err := strconv.ParseFloat(value, 64)
	if err != nil || !grade.ValidScore(score) {
		return 0, validationError(field, errScoreRange)
	}
	return score, nil
}

func (s *Session) RecordRegularScore(ctx context.Context, value string) error {
	return s.recordScore(ctx, "regularScore", value, s.backend.RecordRegularScore)
}

func (s *Session) RecordExamScore(ctx context.Context, value string) error {
	return s.recordScore(ctx, "examScore", value, s.backend.RecordExamScore)
}

func (s *Session) recordScore(
	ctx context.Context,
	field, value string,
	record func(ctx context.Context, key grade.EnrollmentKey, score float64) error,
) error {
	key, student, course, err := s.selectedKey()
	if err != nil {
		return s.fail(err)
	}
	score, err := parseScore(field, value)
	if err != nil {
		return s.fail(err)
	}
	if err = record(ctx, key, score); err != nil {
		return s.fail(err)
	}
	s.succeed(fmt.Sprintf("%s of %s in %s set to %.1f", field, student.Name, course.Name, score))
	return s.refreshAfterChange(ctx)
}

// Finalize marks the selected enrollment completed.
func (s *Session) Finalize(ctx context.Context) error {
	key, student, course, err := s.selectedKey()
	if err != nil {
		return s.fail(err)
	}
	if err = s.backend.Finalize(ctx, key); err != nil {
		return s.fail(err)
	}
	s.succeed(fmt.Sprintf("grade of %s in %s completed", student.Name, course.Name))
	return s.refreshAfterChange(ctx)
}

// refreshAfterChange refreshes the grades if there is something to show them for.
func (s *Session) refreshAfterChange(ctx context.Context) error {
	s.mu.Lock()
	focus := s.focus
	s.mu.Unlock()

	if focus == FocusNone {
		s.update(func() {})
		return nil
	}
	return s.RefreshGrades(ctx)
}

// RefreshGrades fetches the grade list of the active selection.
// For a course, the statistics are fetched too; failing to get them only hides the panel.
func (s *Session) RefreshGrades(ctx context.Context) error {
	s.mu.Lock()
	focus, semester := s.focus, s.semester
	var sid, cid int64
	if s.student != nil {
		sid = s.student.Sid
	}
	if s.course != nil {
		cid = s.course.Cid
	}
	s.seq[slotGrades]++
	seq := s.seq[slotGrades]
	s.mu.Unlock()

	var (
		grades   []grade.Enrollment
		stats    *grade.Stats
		err      error
		statsErr error
	)
	switch focus {
	case FocusStudent:
		grades, err = s.backend.StudentGrades(ctx, sid, semester)
	case FocusCourse:
		grades, err = s.backend.CourseGrades(ctx, cid, semester)
		if err == nil {
			var st grade.Stats
			if st, statsErr = s.backend.CourseStats(ctx, cid, semester); statsErr == nil {
				stats = &st
			}
		}
	default:
		return s.fail(validationError("selection", errNoSelection))
	}

	if statsErr != nil {
		s.logger.Warn("loading course statistics failed", map[string]interface{}{"cid": cid, "semester": semester}, statsErr)
	}

	s.mu.Lock()
	if seq != s.seq[slotGrades] {
		s.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		s.notice = ""
		s.err = err
	} else {
		if grades == nil {
			grades = []grade.Enrollment{}
		}
		s.grades = grades
		s.stats = stats
		s.err = nil
	}
	snap := s.snapshot()
	s.mu.Unlock()

	s.render(snap)
	return err
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
