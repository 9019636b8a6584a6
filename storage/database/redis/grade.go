package redisrepos

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

// Key layout. Students and courses live in hashes keyed by id; their number index is a hash (no -> id)
// and their listing is a sorted set of "no id" members, all scored 0 so that they sort by number
// (numbers are alphanumeric, so the space sorts below any character that could follow a shorter number).
// An enrollment hash is keyed by "sid:cid:semester"; that id is also kept in a global set and
// in one set per student and per course.
const (
	keyPrefix = "gradebook:"

	studentPKKey    = keyPrefix + "student:pk"
	studentNoKey    = keyPrefix + "student:no"
	studentListKey  = keyPrefix + "students"
	coursePKKey     = keyPrefix + "course:pk"
	courseNoKey     = keyPrefix + "course:no"
	courseListKey   = keyPrefix + "courses"
	enrollmentsKey  = keyPrefix + "enrollments"
	studentInfoTmpl = keyPrefix + "student:%d"
	courseInfoTmpl  = keyPrefix + "course:%d"
	enrollmentTmpl  = keyPrefix + "enrollment:%s"
	studentEnrTmpl  = keyPrefix + "student:%d:enrollments"
	courseEnrTmpl   = keyPrefix + "course:%d:enrollments"
)

func studentKey(sid int64) string            { return fmt.Sprintf(studentInfoTmpl, sid) }
func courseKey(cid int64) string             { return fmt.Sprintf(courseInfoTmpl, cid) }
func enrollmentKey(id string) string         { return fmt.Sprintf(enrollmentTmpl, id) }
func studentEnrollmentsKey(sid int64) string { return fmt.Sprintf(studentEnrTmpl, sid) }
func courseEnrollmentsKey(cid int64) string  { return fmt.Sprintf(courseEnrTmpl, cid) }

func enrollmentID(key grade.EnrollmentKey) string {
	return fmt.Sprintf("%d:%d:%s", key.StudentSid, key.CourseCid, key.Semester)
}

func parseEnrollmentID(id string) (grade.EnrollmentKey, error) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 {
		return grade.EnrollmentKey{}, errors.Errorf("malformed enrollment id %q", id)
	}
	sid, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return grade.EnrollmentKey{}, errors.Wrapf(err, "malformed enrollment id %q", id)
	}
	cid, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return grade.EnrollmentKey{}, errors.Wrapf(err, "malformed enrollment id %q", id)
	}
	return grade.EnrollmentKey{StudentSid: sid, CourseCid: cid, Semester: parts[2]}, nil
}

func listMember(no string, id int64) string { return no + " " + strconv.FormatInt(id, 10) }

func listMemberID(member string) (int64, error) {
	i := strings.LastIndexByte(member, ' ')
	return strconv.ParseInt(member[i+1:], 10, 64)
}

type gradeRepository struct {
	client redis.UniversalClient
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(client redis.UniversalClient) grade.Repository {
	return &gradeRepository{client: client}
}

// Students

func (repo *gradeRepository) CreateStudent(ctx context.Context, student grade.Student) (grade.Student, error) {
	sid, err := repo.client.Incr(ctx, studentPKKey).Result()
	if err != nil {
		return grade.Student{}, errors.Wrap(err, "allocating student id")
	}
	ok, err := repo.client.HSetNX(ctx, studentNoKey, student.StudentNo, sid).Result()
	if err != nil {
		return grade.Student{}, errors.Wrap(err, "indexing student number")
	}
	if !ok {
		return grade.Student{}, grade.ErrStudentNoExists
	}

	student.Sid = sid
	pipe := repo.client.TxPipeline()
	pipe.HSet(ctx, studentKey(sid), encodeStudent(student))
	pipe.ZAdd(ctx, studentListKey, &redis.Z{Member: listMember(student.StudentNo, sid)})
	if _, err = pipe.Exec(ctx); err != nil {
		repo.unindex(ctx, studentNoKey, student.StudentNo)
		return grade.Student{}, errors.Wrap(err, "storing student")
	}
	return student, nil
}

func (repo *gradeRepository) GetStudent(ctx context.Context, sid int64) (grade.Student, error) {
	data, err := repo.client.HGetAll(ctx, studentKey(sid)).Result()
	if err != nil {
		return grade.Student{}, errors.Wrap(err, "getting student")
	}
	if len(data) == 0 {
		return grade.Student{}, grade.ErrStudentNotFound
	}
	return decodeStudent(data), nil
}

func (repo *gradeRepository) GetStudentByNo(ctx context.Context, studentNo string) (grade.Student, error) {
	sid, err := repo.client.HGet(ctx, studentNoKey, studentNo).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return grade.Student{}, grade.ErrStudentNotFound
		}
		return grade.Student{}, errors.Wrap(err, "getting student by number")
	}
	return repo.GetStudent(ctx, sid)
}

func (repo *gradeRepository) QueryStudents(ctx context.Context, page core.Page) ([]grade.Student, int, error) {
	hashes, total, err := repo.page(ctx, studentListKey, studentKey, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying students")
	}
	students := make([]grade.Student, 0, len(hashes))
	for _, data := range hashes {
		students = append(students, decodeStudent(data))
	}
	return students, total, nil
}

func (repo *gradeRepository) UpdateStudent(ctx context.Context, student grade.Student) error {
	orig, err := repo.GetStudent(ctx, student.Sid)
	if err != nil {
		return err
	}
	renumbered := orig.StudentNo != student.StudentNo
	if renumbered {
		ok, err := repo.client.HSetNX(ctx, studentNoKey, student.StudentNo, student.Sid).Result()
		if err != nil {
			return errors.Wrap(err, "indexing student number")
		}
		if !ok {
			return grade.ErrStudentNoExists
		}
	}

	student.CreatedTime = orig.CreatedTime
	pipe := repo.client.TxPipeline()
	pipe.HSet(ctx, studentKey(student.Sid), encodeStudent(student))
	if renumbered {
		pipe.HDel(ctx, studentNoKey, orig.StudentNo)
		pipe.ZRem(ctx, studentListKey, listMember(orig.StudentNo, orig.Sid))
		pipe.ZAdd(ctx, studentListKey, &redis.Z{Member: listMember(student.StudentNo, student.Sid)})
	}
	if _, err = pipe.Exec(ctx); err != nil {
		if renumbered {
			repo.unindex(ctx, studentNoKey, student.StudentNo)
		}
		return errors.Wrap(err, "updating student")
	}
	return nil
}

func (repo *gradeRepository) DeleteStudent(ctx context.Context, sid int64) error {
	student, err := repo.GetStudent(ctx, sid)
	if err != nil {
		return err
	}
	ids, err := repo.client.SMembers(ctx, studentEnrollmentsKey(sid)).Result()
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}

	pipe := repo.client.TxPipeline()
	pipe.Del(ctx, studentKey(sid), studentEnrollmentsKey(sid))
	pipe.HDel(ctx, studentNoKey, student.StudentNo)
	pipe.ZRem(ctx, studentListKey, listMember(student.StudentNo, sid))
	if err = repo.dropEnrollments(ctx, pipe, ids); err != nil {
		return err
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return nil
}

// Courses

func (repo *gradeRepository) CreateCourse(ctx context.Context, course grade.Course) (grade.Course, error) {
	cid, err := repo.client.Incr(ctx, coursePKKey).Result()
	if err != nil {
		return grade.Course{}, errors.Wrap(err, "allocating course id")
	}
	ok, err := repo.client.HSetNX(ctx, courseNoKey, course.CourseNo, cid).Result()
	if err != nil {
		return grade.Course{}, errors.Wrap(err, "indexing course number")
	}
	if !ok {
		return grade.Course{}, grade.ErrCourseNoExists
	}

	course.Cid = cid
	pipe := repo.client.TxPipeline()
	pipe.HSet(ctx, courseKey(cid), encodeCourse(course))
	pipe.ZAdd(ctx, courseListKey, &redis.Z{Member: listMember(course.CourseNo, cid)})
	if _, err = pipe.Exec(ctx); err != nil {
		repo.unindex(ctx, courseNoKey, course.CourseNo)
		return grade.Course{}, errors.Wrap(err, "storing course")
	}
	return course, nil
}

func (repo *gradeRepository) GetCourse(ctx context.Context, cid int64) (grade.Course, error) {
	data, err := repo.client.HGetAll(ctx, courseKey(cid)).Result()
	if err != nil {
		return grade.Course{}, errors.Wrap(err, "getting course")
	}
	if len(data) == 0 {
		return grade.Course{}, grade.ErrCourseNotFound
	}
	return decodeCourse(data), nil
}

func (repo *gradeRepository) GetCourseByNo(ctx context.Context, courseNo string) (grade.Course, error) {
	cid, err := repo.client.HGet(ctx, courseNoKey, courseNo).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return grade.Course{}, grade.ErrCourseNotFound
		}
		return grade.Course{}, errors.Wrap(err, "getting course by number")
	}
	return repo.GetCourse(ctx, cid)
}

func (repo *gradeRepository) QueryCourses(ctx context.Context, page core.Page) ([]grade.Course, int, error) {
	hashes, total, err := repo.page(ctx, courseListKey, courseKey, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying courses")
	}
	courses := make([]grade.Course, 0, len(hashes))
	for _, data := range hashes {
		courses = append(courses, decodeCourse(data))
	}
	return courses, total, nil
}

func (repo *gradeRepository) UpdateCourse(ctx context.Context, course grade.Course) error {
	orig, err := repo.GetCourse(ctx, course.Cid)
	if err != nil {
		return err
	}
	renumbered := orig.CourseNo != course.CourseNo
	if renumbered {
		ok, err := repo.client.HSetNX(ctx, courseNoKey, course.CourseNo, course.Cid).Result()
		if err != nil {
			return errors.Wrap(err, "indexing course number")
		}
		if !ok {
			return grade.ErrCourseNoExists
		}
	}

	course.CreatedTime = orig.CreatedTime
	pipe := repo.client.TxPipeline()
	pipe.HSet(ctx, courseKey(course.Cid), encodeCourse(course))
	if renumbered {
		pipe.HDel(ctx, courseNoKey, orig.CourseNo)
		pipe.ZRem(ctx, courseListKey, listMember(orig.CourseNo, orig.Cid))
		pipe.ZAdd(ctx, courseListKey, &redis.Z{Member: listMember(course.CourseNo, course.Cid)})
	}
	if _, err = pipe.Exec(ctx); err != nil {
		if renumbered {
			repo.unindex(ctx, courseNoKey, course.CourseNo)
		}
		return errors.Wrap(err, "updating course")
	}
	return nil
}

func (repo *gradeRepository) DeleteCourse(ctx context.Context, cid int64) error {
	course, err := repo.GetCourse(ctx, cid)
	if err != nil {
		return err
	}
	ids, err := repo.client.SMembers(ctx, courseEnrollmentsKey(cid)).Result()
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}

	pipe := repo.client.TxPipeline()
	pipe.Del(ctx, courseKey(cid), courseEnrollmentsKey(cid))
	pipe.HDel(ctx, courseNoKey, course.CourseNo)
	pipe.ZRem(ctx, courseListKey, listMember(course.CourseNo, cid))
	if err = repo.dropEnrollments(ctx, pipe, ids); err != nil {
		return err
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

// unindex releases a number claimed with HSETNX when the write it guarded failed.
// Best effort: the write error is what the caller reports.
func (repo *gradeRepository) unindex(ctx context.Context, indexKey, no string) {
	_ = repo.client.HDel(ctx, indexKey, no).Err()
}

// dropEnrollments queues the removal of the given enrollments and of their index entries.
func (repo *gradeRepository) dropEnrollments(ctx context.Context, pipe redis.Pipeliner, ids []string) error {
	for _, id := range ids {
		key, err := parseEnrollmentID(id)
		if err != nil {
			return err
		}
		pipe.Del(ctx, enrollmentKey(id))
		pipe.SRem(ctx, enrollmentsKey, id)
		pipe.SRem(ctx, studentEnrollmentsKey(key.StudentSid), id)
		pipe.SRem(ctx, courseEnrollmentsKey(key.CourseCid), id)
	}
	return nil
}

// page reads one page of a listing sorted set, then the hashes it points to.
func (repo *gradeRepository) page(
	ctx context.Context,
	listKey string,
	hashKey func(int64) string,
	page core.Page,
) ([]map[string]string, int, error) {
	total, err := repo.client.ZCard(ctx, listKey).Result()
	if err != nil {
		return nil, 0, err
	}
	start := int64(page.Offset())
	members, err := repo.client.ZRange(ctx, listKey, start, start+int64(page.Limit())-1).Result()
	if err != nil {
		return nil, 0, err
	}
	if len(members) == 0 {
		return nil, int(total), nil
	}

	pipe := repo.client.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, 0, len(members))
	for _, m := range members {
		id, err := listMemberID(m)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "malformed listing member %q", m)
		}
		cmds = append(cmds, pipe.HGetAll(ctx, hashKey(id)))
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return nil, 0, err
	}

	hashes := make([]map[string]string, 0, len(cmds))
	for _, cmd := range cmds {
		if data := cmd.Val(); len(data) > 0 {
			hashes = append(hashes, data)
		}
	}
	return hashes, int(total), nil
}

// Enrollments

func (repo *gradeRepository) CreateEnrollment(ctx context.Context, enrollment grade.Enrollment) error {
	id := enrollmentID(enrollment.EnrollmentKey)
	added, err := repo.client.SAdd(ctx, enrollmentsKey, id).Result()
	if err != nil {
		return errors.Wrap(err, "indexing enrollment")
	}
	if added == 0 {
		return grade.ErrAlreadyEnrolled
	}

	pipe := repo.client.TxPipeline()
	pipe.HSet(ctx, enrollmentKey(id), encodeEnrollment(enrollment))
	pipe.SAdd(ctx, studentEnrollmentsKey(enrollment.StudentSid), id)
	pipe.SAdd(ctx, courseEnrollmentsKey(enrollment.CourseCid), id)
	if _, err = pipe.Exec(ctx); err != nil {
		_ = repo.client.SRem(ctx, enrollmentsKey, id).Err()
		return errors.Wrap(err, "storing enrollment")
	}
	return nil
}

func (repo *gradeRepository) GetEnrollment(ctx context.Context, key grade.EnrollmentKey) (grade.Enrollment, error) {
	data, err := repo.client.HGetAll(ctx, enrollmentKey(enrollmentID(key))).Result()
	if err != nil {
		return grade.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	if len(data) == 0 {
		return grade.Enrollment{}, grade.ErrEnrollmentNotFound
	}
	enr := decodeEnrollment(key, data)
	if err = repo.join(ctx, &enr, map[int64]grade.Student{}, map[int64]grade.Course{}); err != nil {
		return grade.Enrollment{}, err
	}
	return enr, nil
}

func (repo *gradeRepository) UpdateEnrollment(ctx context.Context, enrollment grade.Enrollment) error {
	id := enrollmentID(enrollment.EnrollmentKey)
	exists, err := repo.client.SIsMember(ctx, enrollmentsKey, id).Result()
	if err != nil {
		return errors.Wrap(err, "updating enrollment")
	}
	if !exists {
		return grade.ErrEnrollmentNotFound
	}

	fields := encodeEnrollment(enrollment)
	// the key and creation fields never change
	for _, f := range []string{"semester", "selectionDate", "createdTime"} {
		delete(fields, f)
	}
	var cleared []string
	for f, v := range fields {
		if v == "" {
			cleared = append(cleared, f)
			delete(fields, f)
		}
	}

	pipe := repo.client.TxPipeline()
	pipe.HSet(ctx, enrollmentKey(id), fields)
	if len(cleared) > 0 {
		pipe.HDel(ctx, enrollmentKey(id), cleared...)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "updating enrollment")
	}
	return nil
}

func (repo *gradeRepository) DeleteEnrollment(ctx context.Context, key grade.EnrollmentKey) error {
	id := enrollmentID(key)
	removed, err := repo.client.SRem(ctx, enrollmentsKey, id).Result()
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if removed == 0 {
		return grade.ErrEnrollmentNotFound
	}

	pipe := repo.client.TxPipeline()
	pipe.Del(ctx, enrollmentKey(id))
	pipe.SRem(ctx, studentEnrollmentsKey(key.StudentSid), id)
	pipe.SRem(ctx, courseEnrollmentsKey(key.CourseCid), id)
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return nil
}

func (repo *gradeRepository) QueryEnrollments(ctx context.Context, filter grade.GradeFilter) ([]grade.Enrollment, error) {
	setKey := enrollmentsKey
	switch {
	case filter.StudentSid > 0:
		setKey = studentEnrollmentsKey(filter.StudentSid)
	case filter.CourseCid > 0:
		setKey = courseEnrollmentsKey(filter.CourseCid)
	}
	ids, err := repo.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	keys := make([]grade.EnrollmentKey, 0, len(ids))
	pipe := repo.client.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, 0, len(ids))
	for _, id := range ids {
		key, err := parseEnrollmentID(id)
		if err != nil {
			return nil, err
		}
		if filter.StudentSid > 0 && key.StudentSid != filter.StudentSid {
			continue
		}
		if filter.CourseCid > 0 && key.CourseCid != filter.CourseCid {
			continue
		}
		if filter.Semester != "" && key.Semester != filter.Semester {
			continue
		}
		keys = append(keys, key)
		cmds = append(cmds, pipe.HGetAll(ctx, enrollmentKey(id)))
	}

	res := make([]grade.Enrollment, 0, len(keys))
	if len(cmds) == 0 {
		return res, nil
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	students := make(map[int64]grade.Student)
	courses := make(map[int64]grade.Course)
	for i, cmd := range cmds {
		data := cmd.Val()
		if len(data) == 0 {
			continue
		}
		enr := decodeEnrollment(keys[i], data)
		if err = repo.join(ctx, &enr, students, courses); err != nil {
			return nil, err
		}
		res = append(res, enr)
	}
	grade.SortEnrollments(res)
	return res, nil
}

// join fills the display fields, caching the students and courses it reads.
func (repo *gradeRepository) join(
	ctx context.Context,
	enr *grade.Enrollment,
	students map[int64]grade.Student,
	courses map[int64]grade.Course,
) error {
	s, ok := students[enr.StudentSid]
	if !ok {
		var err error
		if s, err = repo.GetStudent(ctx, enr.StudentSid); err != nil && err != grade.ErrStudentNotFound {
			return err
		}
		students[enr.StudentSid] = s
	}
	c, ok := courses[enr.CourseCid]
	if !ok {
		var err error
		if c, err = repo.GetCourse(ctx, enr.CourseCid); err != nil && err != grade.ErrCourseNotFound {
			return err
		}
		courses[enr.CourseCid] = c
	}
	enr.StudentNo = s.StudentNo
	enr.StudentName = s.Name
	enr.CourseNo = c.CourseNo
	enr.CourseName = c.Name
	enr.Credit = c.Credit
	return nil
}
