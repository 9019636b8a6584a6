package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

// postgres error codes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type (
	studentRow struct {
		Sid         int64       `db:"sid"`
		StudentNo   string      `db:"student_no"`
		Name        string      `db:"name"`
		Gender      null.String `db:"gender"`
		Major       null.String `db:"major"`
		Remark      null.String `db:"remark"`
		CreatedTime time.Time   `db:"created_time"`
		UpdatedTime time.Time   `db:"updated_time"`
	}

	courseRow struct {
		Cid         int64     `db:"cid"`
		CourseNo    string    `db:"course_no"`
		Name        string    `db:"name"`
		Credit      float64   `db:"credit"`
		CreatedTime time.Time `db:"created_time"`
		UpdatedTime time.Time `db:"updated_time"`
	}

	enrollmentRow struct {
		StudentSid       int64        `db:"student_sid"`
		CourseCid        int64        `db:"course_cid"`
		Semester         string       `db:"semester"`
		Status           int          `db:"status"`
		SelectionDate    time.Time    `db:"selection_date"`
		RegularScore     null.Float64 `db:"regular_score"`
		ExamScore        null.Float64 `db:"exam_score"`
		FinalScore       null.Float64 `db:"final_score"`
		RegularScoreDate null.Time    `db:"regular_score_date"`
		ExamScoreDate    null.Time    `db:"exam_score_date"`
		FinalScoreDate   null.Time    `db:"final_score_date"`
		Remark           null.String  `db:"remark"`
		CreatedTime      time.Time    `db:"created_time"`
		UpdatedTime      time.Time    `db:"updated_time"`

		StudentNo   null.String  `db:"student_no"`
		StudentName null.String  `db:"student_name"`
		CourseNo    null.String  `db:"course_no"`
		CourseName  null.String  `db:"course_name"`
		Credit      null.Float64 `db:"credit"`
	}
)

func (r studentRow) unboil() grade.Student {
	return grade.Student{
		Sid:         r.Sid,
		StudentNo:   r.StudentNo,
		Name:        r.Name,
		Gender:      r.Gender.String,
		Major:       r.Major.String,
		Remark:      r.Remark.String,
		CreatedTime: r.CreatedTime.UTC(),
		UpdatedTime: r.UpdatedTime.UTC(),
	}
}

func (r courseRow) unboil() grade.Course {
	return grade.Course{
		Cid:         r.Cid,
		CourseNo:    r.CourseNo,
		Name:        r.Name,
		Credit:      r.Credit,
		CreatedTime: r.CreatedTime.UTC(),
		UpdatedTime: r.UpdatedTime.UTC(),
	}
}

func boilEnrollment(e grade.Enrollment) enrollmentRow {
	return enrollmentRow{
		StudentSid:       e.StudentSid,
		CourseCid:        e.CourseCid,
		Semester:         e.Semester,
		Status:           int(e.Status),
		SelectionDate:    e.SelectionDate.UTC(),
		RegularScore:     null.Float64FromPtr(e.RegularScore),
		ExamScore:        null.Float64FromPtr(e.ExamScore),
		FinalScore:       null.Float64FromPtr(e.FinalScore),
		RegularScoreDate: utcTime(e.RegularScoreDate),
		ExamScoreDate:    utcTime(e.ExamScoreDate),
		FinalScoreDate:   utcTime(e.FinalScoreDate),
		Remark:           null.NewString(e.Remark, e.Remark != ""),
		CreatedTime:      e.CreatedTime.UTC(),
		UpdatedTime:      e.UpdatedTime.UTC(),
	}
}

func (r enrollmentRow) unboil() grade.Enrollment {
	return grade.Enrollment{
		EnrollmentKey: grade.EnrollmentKey{
			StudentSid: r.StudentSid,
			CourseCid:  r.CourseCid,
			Semester:   r.Semester,
		},
		Status:           grade.Status(r.Status),
		SelectionDate:    r.SelectionDate.UTC(),
		RegularScore:     r.RegularScore.Ptr(),
		ExamScore:        r.ExamScore.Ptr(),
		FinalScore:       r.FinalScore.Ptr(),
		RegularScoreDate: timePtr(r.RegularScoreDate),
		ExamScoreDate:    timePtr(r.ExamScoreDate),
		FinalScoreDate:   timePtr(r.FinalScoreDate),
		Remark:           r.Remark.String,
		CreatedTime:      r.CreatedTime.UTC(),
		UpdatedTime:      r.UpdatedTime.UTC(),
		StudentNo:        r.StudentNo.String,
		StudentName:      r.StudentName.String,
		CourseNo:         r.CourseNo.String,
		CourseName:       r.CourseName.String,
		Credit:           r.Credit.Float64,
	}
}

func utcTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) grade.Repository {
	return &gradeRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func pqError(err error) *pq.Error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr
	}
	return &pq.Error{}
}

// Students

const studentColumns = `sid, student_no, name, gender, major, remark, created_time, updated_time`

func (repo *gradeRepository) CreateStudent(ctx context.Context, student grade.Student) (grade.Student, error) {
	q := `INSERT INTO student (student_no, name, gender, major, remark, created_time, updated_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING sid`

	err := repo.db.QueryRowxContext(ctx, q,
		student.StudentNo,
		student.Name,
		null.NewString(student.Gender, student.Gender != ""),
		null.NewString(student.Major, student.Major != ""),
		null.NewString(student.Remark, student.Remark != ""),
		student.CreatedTime.UTC(),
		student.UpdatedTime.UTC(),
	).Scan(&student.Sid)
	if err != nil {
		if pqError(err).Code == pqUniqueViolation {
			return grade.Student{}, grade.ErrStudentNoExists
		}
		return grade.Student{}, errors.Wrap(err, "inserting student")
	}
	return student, nil
}

func (repo *gradeRepository) GetStudent(ctx context.Context, sid int64) (grade.Student, error) {
	var row studentRow
	q := `SELECT ` + studentColumns + ` FROM student WHERE sid = $1`
	if err := repo.db.GetContext(ctx, &row, q, sid); err != nil {
		return grade.Student{}, trapNoRowsErr(err, grade.ErrStudentNotFound, "getting student")
	}
	return row.unboil(), nil
}

func (repo *gradeRepository) GetStudentByNo(ctx context.Context, studentNo string) (grade.Student, error) {
	var row studentRow
	q := `SELECT ` + studentColumns + ` FROM student WHERE student_no = $1`
	if err := repo.db.GetContext(ctx, &row, q, studentNo); err != nil {
		return grade.Student{}, trapNoRowsErr(err, grade.ErrStudentNotFound, "getting student by number")
	}
	return row.unboil(), nil
}

func (repo *gradeRepository) QueryStudents(ctx context.Context, page core.Page) ([]grade.Student, int, error) {
	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM student`); err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	var rows []studentRow
	q := `SELECT ` + studentColumns + ` FROM student ORDER BY student_no LIMIT $1 OFFSET $2`
	if err := repo.db.SelectContext(ctx, &rows, q, page.Limit(), page.Offset()); err != nil {
		return nil, 0, errors.Wrap(err, "querying students")
	}

	students := make([]grade.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.unboil())
	}
	return students, total, nil
}

func (repo *gradeRepository) UpdateStudent(ctx context.Context, student grade.Student) error {
	q := `UPDATE student SET student_no = $1, name = $2, gender = $3, major = $4, remark = $5, updated_time = $6
		WHERE sid = $7`

	res, err := repo.db.ExecContext(ctx, q,
		student.StudentNo,
		student.Name,
		null.NewString(student.Gender, student.Gender != ""),
		null.NewString(student.Major, student.Major != ""),
		null.NewString(student.Remark, student.Remark != ""),
		student.UpdatedTime.UTC(),
		student.Sid,
	)
	if err != nil {
		if pqError(err).Code == pqUniqueViolation {
			return grade.ErrStudentNoExists
		}
		return errors.Wrap(err, "updating student")
	}
	return checkAffected(res, grade.ErrStudentNotFound, "updating student")
}

// DeleteStudent relies on ON DELETE CASCADE to drop the enrollments.
func (repo *gradeRepository) DeleteStudent(ctx context.Context, sid int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student WHERE sid = $1`, sid)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return checkAffected(res, grade.ErrStudentNotFound, "deleting student")
}

// Courses

const courseColumns = `cid, course_no, name, credit, created_time, updated_time`

func (repo *gradeRepository) CreateCourse(ctx context.Context, course grade.Course) (grade.Course, error) {
	q := `INSERT INTO course (course_no, name, credit, created_time, updated_time)
		VALUES ($1, $2, $3, $4, $5) RETURNING cid`

	err := repo.db.QueryRowxContext(ctx, q,
		course.CourseNo,
		course.Name,
		course.Credit,
		course.CreatedTime.UTC(),
		course.UpdatedTime.UTC(),
	).Scan(&course.Cid)
	if err != nil {
		if pqError(err).Code == pqUniqueViolation {
			return grade.Course{}, grade.ErrCourseNoExists
		}
		return grade.Course{}, errors.Wrap(err, "inserting course")
	}
	return course, nil
}

func (repo *gradeRepository) GetCourse(ctx context.Context, cid int64) (grade.Course, error) {
	var row courseRow
	q := `SELECT ` + courseColumns + ` FROM course WHERE cid = $1`
	if err := repo.db.GetContext(ctx, &row, q, cid); err != nil {
		return grade.Course{}, trapNoRowsErr(err, grade.ErrCourseNotFound, "getting course")
	}
	return row.unboil(), nil
}

func (repo *gradeRepository) GetCourseByNo(ctx context.Context, courseNo string) (grade.Course, error) {
	var row courseRow
	q := `SELECT ` + courseColumns + ` FROM course WHERE course_no = $1`
	if err := repo.db.GetContext(ctx, &row, q, courseNo); err != nil {
		return grade.Course{}, trapNoRowsErr(err, grade.ErrCourseNotFound, "getting course by number")
	}
	return row.unboil(), nil
}

func (repo *gradeRepository) QueryCourses(ctx context.Context, page core.Page) ([]grade.Course, int, error) {
	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM course`); err != nil {
		return nil, 0, errors.Wrap(err, "counting courses")
	}

	var rows []courseRow
	q := `SELECT ` + courseColumns + ` FROM course ORDER BY course_no LIMIT $1 OFFSET $2`
	if err := repo.db.SelectContext(ctx, &rows, q, page.Limit(), page.Offset()); err != nil {
		return nil, 0, errors.Wrap(err, "querying courses")
	}

	courses := make([]grade.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unboil())
	}
	return courses, total, nil
}

func (repo *gradeRepository) UpdateCourse(ctx context.Context, course grade.Course) error {
	q := `UPDATE course SET course_no = $1, name = $2, credit = $3, updated_time = $4 WHERE cid = $5`

	res, err := repo.db.ExecContext(ctx, q, course.CourseNo, course.Name, course.Credit, course.UpdatedTime.UTC(), course.Cid)
	if err != nil {
		if pqError(err).Code == pqUniqueViolation {
			return grade.ErrCourseNoExists
		}
		return errors.Wrap(err, "updating course")
	}
	return checkAffected(res, grade.ErrCourseNotFound, "updating course")
}

func (repo *gradeRepository) DeleteCourse(ctx context.Context, cid int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE cid = $1`, cid)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return checkAffected(res, grade.ErrCourseNotFound, "deleting course")
}

// Enrollments

const enrollmentSelect = `SELECT sc.student_sid, sc.course_cid, sc.semester, sc.status, sc.selection_date,
		sc.regular_score, sc.exam_score, sc.final_score,
		sc.regular_score_date, sc.exam_score_date, sc.final_score_date,
		sc.remark, sc.created_time, sc.updated_time,
		s.student_no, s.name AS student_name, c.course_no, c.name AS course_name, c.credit
	FROM student_course sc
	LEFT JOIN student s ON s.sid = sc.student_sid
	LEFT JOIN course c ON c.cid = sc.course_cid`

func (repo *gradeRepository) CreateEnrollment(ctx context.Context, enrollment grade.Enrollment) error {
	q := `INSERT INTO student_course (student_sid, course_cid, semester, status, selection_date,
			regular_score, exam_score, final_score, regular_score_date, exam_score_date, final_score_date,
			remark, created_time, updated_time)
		VALUES (:student_sid, :course_cid, :semester, :status, :selection_date,
			:regular_score, :exam_score, :final_score, :regular_score_date, :exam_score_date, :final_score_date,
			:remark, :created_time, :updated_time)`

	if _, err := repo.db.NamedExecContext(ctx, q, boilEnrollment(enrollment)); err != nil {
		pqErr := pqError(err)
		switch pqErr.Code {
		case pqUniqueViolation:
			return grade.ErrAlreadyEnrolled
		case pqForeignKeyViolation:
			if strings.Contains(pqErr.Constraint, "course_cid") {
				return grade.ErrCourseNotFound
			}
			return grade.ErrStudentNotFound
		}
		return errors.Wrap(err, "inserting enrollment")
	}
	return nil
}

func (repo *gradeRepository) GetEnrollment(ctx context.Context, key grade.EnrollmentKey) (grade.Enrollment, error) {
	var row enrollmentRow
	q := enrollmentSelect + ` WHERE sc.student_sid = $1 AND sc.course_cid = $2 AND sc.semester = $3`
	if err := repo.db.GetContext(ctx, &row, q, key.StudentSid, key.CourseCid, key.Semester); err != nil {
		return grade.Enrollment{}, trapNoRowsErr(err, grade.ErrEnrollmentNotFound, "getting enrollment")
	}
	return row.unboil(), nil
}

func (repo *gradeRepository) UpdateEnrollment(ctx context.Context, enrollment grade.Enrollment) error {
	q := `UPDATE student_course SET
			status = :status,
			regular_score = :regular_score,
			exam_score = :exam_score,
			final_score = :final_score,
			regular_score_date = :regular_score_date,
			exam_score_date = :exam_score_date,
			final_score_date = :final_score_date,
			remark = :remark,
			updated_time = :updated_time
		WHERE student_sid = :student_sid AND course_cid = :course_cid AND semester = :semester`

	res, err := repo.db.NamedExecContext(ctx, q, boilEnrollment(enrollment))
	if err != nil {
		return errors.Wrap(err, "updating enrollment")
	}
	return checkAffected(res, grade.ErrEnrollmentNotFound, "updating enrollment")
}

func (repo *gradeRepository) DeleteEnrollment(ctx context.Context, key grade.EnrollmentKey) error {
	q := `DELETE FROM student_course WHERE student_sid = $1 AND course_cid = $2 AND semester = $3`
	res, err := repo.db.ExecContext(ctx, q, key.StudentSid, key.CourseCid, key.Semester)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return checkAffected(res, grade.ErrEnrollmentNotFound, "deleting enrollment")
}

// checkAffected maps an UPDATE or DELETE that matched no row to notFound.
func checkAffected(res sql.Result, notFound error, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (repo *gradeRepository) QueryEnrollments(ctx context.Context, filter grade.GradeFilter) ([]grade.Enrollment, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.StudentSid > 0 {
		conds = append(conds, "sc.student_sid = ?")
		args = append(args, filter.StudentSid)
	}
	if filter.CourseCid > 0 {
		conds = append(conds, "sc.course_cid = ?")
		args = append(args, filter.CourseCid)
	}
	if filter.Semester != "" {
		conds = append(conds, "sc.semester = ?")
		args = append(args, filter.Semester)
	}

	q := enrollmentSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY sc.semester DESC, s.student_no, c.course_no"

	var rows []enrollmentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	enrollments := make([]grade.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrollments = append(enrollments, r.unboil())
	}
	return enrollments, nil
}
