package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

// Students

func (repo *gradeRepository) CreateStudent(_ context.Context, student grade.Student) (grade.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, s := range repo.db.students {
		if s.StudentNo == student.StudentNo {
			return grade.Student{}, grade.ErrStudentNoExists
		}
	}
	repo.db.studentPK++
	student.Sid = repo.db.studentPK
	repo.db.students[student.Sid] = &student
	return student, nil
}

func (repo *gradeRepository) GetStudent(_ context.Context, sid int64) (grade.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.students[sid]; ok {
		return *s, nil
	}
	return grade.Student{}, grade.ErrStudentNotFound
}

func (repo *gradeRepository) GetStudentByNo(_ context.Context, studentNo string) (grade.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.students {
		if s.StudentNo == studentNo {
			return *s, nil
		}
	}
	return grade.Student{}, grade.ErrStudentNotFound
}

func (repo *gradeRepository) QueryStudents(_ context.Context, page core.Page) ([]grade.Student, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]grade.Student, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].StudentNo < students[j].StudentNo })

	start, end := page.Window(len(students))
	return students[start:end], len(students), nil
}

func (repo *gradeRepository) UpdateStudent(_ context.Context, student grade.Student) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.students[student.Sid]
	if !ok {
		return grade.ErrStudentNotFound
	}
	for _, s := range repo.db.students {
		if s.Sid != student.Sid && s.StudentNo == student.StudentNo {
			return grade.ErrStudentNoExists
		}
	}
	student.CreatedTime = orig.CreatedTime
	*orig = student
	return nil
}

func (repo *gradeRepository) DeleteStudent(_ context.Context, sid int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.students[sid]; !ok {
		return grade.ErrStudentNotFound
	}
	delete(repo.db.students, sid)
	for key := range repo.db.enrollments {
		if key.StudentSid == sid {
			delete(repo.db.enrollments, key)
		}
	}
	return nil
}

// Courses

func (repo *gradeRepository) CreateCourse(_ context.Context, course grade.Course) (grade.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range repo.db.courses {
		if c.CourseNo == course.CourseNo {
			return grade.Course{}, grade.ErrCourseNoExists
		}
	}
	repo.db.coursePK++
	course.Cid = repo.db.coursePK
	repo.db.courses[course.Cid] = &course
	return course, nil
}

func (repo *gradeRepository) GetCourse(_ context.Context, cid int64) (grade.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.courses[cid]; ok {
		return *c, nil
	}
	return grade.Course{}, grade.ErrCourseNotFound
}

func (repo *gradeRepository) GetCourseByNo(_ context.Context, courseNo string) (grade.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, c := range repo.db.courses {
		if c.CourseNo == courseNo {
			return *c, nil
		}
	}
	return grade.Course{}, grade.ErrCourseNotFound
}

func (repo *gradeRepository) QueryCourses(_ context.Context, page core.Page) ([]grade.Course, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]grade.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CourseNo < courses[j].CourseNo })

	start, end := page.Window(len(courses))
	return courses[start:end], len(courses), nil
}

func (repo *gradeRepository) UpdateCourse(_ context.Context, course grade.Course) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.courses[course.Cid]
	if !ok {
		return grade.ErrCourseNotFound
	}
	for _, c := range repo.db.courses {
		if c.Cid != course.Cid && c.CourseNo == course.CourseNo {
			return grade.ErrCourseNoExists
		}
	}
	course.CreatedTime = orig.CreatedTime
	*orig = course
	return nil
}

func (repo *gradeRepository) DeleteCourse(_ context.Context, cid int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[cid]; !ok {
		return grade.ErrCourseNotFound
	}
	delete(repo.db.courses, cid)
	for key := range repo.db.enrollments {
		if key.CourseCid == cid {
			delete(repo.db.enrollments, key)
		}
	}
	return nil
}

// Enrollments

func (repo *gradeRepository) CreateEnrollment(_ context.Context, enrollment grade.Enrollment) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.enrollments[enrollment.EnrollmentKey]; ok {
		return grade.ErrAlreadyEnrolled
	}
	repo.db.enrollments[enrollment.EnrollmentKey] = &enrollment
	return nil
}

func (repo *gradeRepository) GetEnrollment(_ context.Context, key grade.EnrollmentKey) (grade.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.enrollments[key]; ok {
		return repo.join(*e), nil
	}
	return grade.Enrollment{}, grade.ErrEnrollmentNotFound
}

func (repo *gradeRepository) UpdateEnrollment(_ context.Context, enrollment grade.Enrollment) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.enrollments[enrollment.EnrollmentKey]
	if !ok {
		return grade.ErrEnrollmentNotFound
	}
	// only save stored fields
	orig.Status = enrollment.Status
	orig.RegularScore = enrollment.RegularScore
	orig.RegularScoreDate = enrollment.RegularScoreDate
	orig.ExamScore = enrollment.ExamScore
	orig.ExamScoreDate = enrollment.ExamScoreDate
	orig.FinalScore = enrollment.FinalScore
	orig.FinalScoreDate = enrollment.FinalScoreDate
	orig.Remark = enrollment.Remark
	orig.UpdatedTime = enrollment.UpdatedTime
	return nil
}

func (repo *gradeRepository) DeleteEnrollment(_ context.Context, key grade.EnrollmentKey) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.enrollments[key]; !ok {
		return grade.ErrEnrollmentNotFound
	}
	delete(repo.db.enrollments, key)
	return nil
}

func (repo *gradeRepository) QueryEnrollments(_ context.Context, filter grade.GradeFilter) ([]grade.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]grade.Enrollment, 0)
	for key, e := range repo.db.enrollments {
		if filter.StudentSid != 0 && key.StudentSid != filter.StudentSid {
			continue
		}
		if filter.CourseCid != 0 && key.CourseCid != filter.CourseCid {
			continue
		}
		if filter.Semester != "" && key.Semester != filter.Semester {
			continue
		}
		res = append(res, repo.join(*e))
	}
	grade.SortEnrollments(res)
	return res, nil
}

// join fills the display fields. The caller holds the lock.
func (repo *gradeRepository) join(e grade.Enrollment) grade.Enrollment {
	if s, ok := repo.db.students[e.StudentSid]; ok {
		e.StudentNo = s.StudentNo
		e.StudentName = s.Name
	}
	if c, ok := repo.db.courses[e.CourseCid]; ok {
		e.CourseNo = c.CourseNo
		e.CourseName = c.Name
		e.Credit = c.Credit
	}
	return e
}
