package grade

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

// Status is the lifecycle stage of an Enrollment. It only moves forward and is assigned server side.
type Status int

const (
	StatusEnrolled       Status = 1
	StatusRegularEntered Status = 2
	StatusExamEntered    Status = 3
	StatusCompleted      Status = 4
)

var statusTexts = map[Status]string{
	StatusEnrolled:       "enrolled",
	StatusRegularEntered: "regular score entered",
	StatusExamEntered:    "exam score entered",
	StatusCompleted:      "completed",
}

func (s Status) String() string {
	if txt, ok := statusTexts[s]; ok {
		return txt
	}
	return "unknown"
}

// Droppable reports whether an enrollment in this status may still be dropped.
func (s Status) Droppable() bool { return s == StatusEnrolled }

type Student struct {
	Sid         int64     `json:"sid"`
	StudentNo   string    `json:"studentNo"`
	Name        string    `json:"name"`
	Gender      string    `json:"gender,omitempty"`
	Major       string    `json:"major,omitempty"`
	Remark      string    `json:"remark,omitempty"`
	CreatedTime time.Time `json:"createdTime"` // UTC
	UpdatedTime time.Time `json:"updatedTime"` // UTC
}

type Course struct {
	Cid         int64     `json:"cid"`
	CourseNo    string    `json:"courseNo"`
	Name        string    `json:"name"`
	Credit      float64   `json:"credit"`
	CreatedTime time.Time `json:"createdTime"` // UTC
	UpdatedTime time.Time `json:"updatedTime"` // UTC
}

// EnrollmentKey identifies an Enrollment: one student in one course during one semester.
type EnrollmentKey struct {
	StudentSid int64  `json:"studentSid" query:"studentSid" form:"studentSid" validate:"required,gt=0"`
	CourseCid  int64  `json:"courseCid" query:"courseCid" form:"courseCid" validate:"required,gt=0"`
	Semester   string `json:"semester" query:"semester" form:"semester" validate:"required,semester"`
}

// Enrollment is a course selection and the scores recorded for it.
// Scores are nil until recorded.
type Enrollment struct {
	EnrollmentKey
	Status           Status     `json:"status"`
	SelectionDate    time.Time  `json:"selectionDate"`
	RegularScore     *float64   `json:"regularScore"`
	ExamScore        *float64   `json:"examScore"`
	FinalScore       *float64   `json:"finalScore"`
	RegularScoreDate *time.Time `json:"regularScoreDate,omitempty"`
	ExamScoreDate    *time.Time `json:"examScoreDate,omitempty"`
	FinalScoreDate   *time.Time `json:"finalScoreDate,omitempty"`
	Remark           string     `json:"remark,omitempty"`
	CreatedTime      time.Time  `json:"createdTime"`
	UpdatedTime      time.Time  `json:"updatedTime"`

	// joined for display
	StudentNo   string  `json:"studentNo,omitempty"`
	StudentName string  `json:"studentName,omitempty"`
	CourseNo    string  `json:"courseNo,omitempty"`
	CourseName  string  `json:"courseName,omitempty"`
	Credit      float64 `json:"credit,omitempty"`
}

// Stats aggregates the final scores of a course.
type Stats struct {
	AverageScore  float64 `json:"averageScore"`
	MaxScore      float64 `json:"maxScore"`
	MinScore      float64 `json:"minScore"`
	PassRate      float64 `json:"passRate"` // fraction in [0, 1]
	GradedCount   int     `json:"gradedCount"`
	EnrolledCount int     `json:"enrolledCount"`
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	StudentNo string `json:"studentNo" validate:"required,max=32,alphanum"`
	Name      string `json:"name" validate:"required,max=64"`
	Gender    string `json:"gender" validate:"omitempty,oneof=M F"`
	Major     string `json:"major" validate:"max=64"`
	Remark    string `json:"remark" validate:"max=255"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.StudentNo = core.CleanString(ns.StudentNo)
	ns.Name = core.CleanString(ns.Name)
	ns.Gender = core.CleanString(ns.Gender)
	ns.Major = core.CleanString(ns.Major)
	ns.Remark = core.CleanString(ns.Remark)
	return validate.Struct(ns)
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	CourseNo string  `json:"courseNo" validate:"required,max=32,alphanum"`
	Name     string  `json:"name" validate:"required,max=64"`
	Credit   float64 `json:"credit" validate:"gt=0,lte=30"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.CourseNo = core.CleanString(nc.CourseNo)
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// GradeFilter narrows a grade listing to one student and/or one course, optionally to one semester.
type GradeFilter struct {
	StudentSid int64  `query:"studentSid"`
	CourseCid  int64  `query:"courseCid"`
	Semester   string `query:"semester"`
}

// SortEnrollments orders enrollments by semester (latest first), then student number and course number.
func SortEnrollments(enrollments []Enrollment) {
	sort.SliceStable(enrollments, func(i, j int) bool {
		a, b := enrollments[i], enrollments[j]
		if a.Semester != b.Semester {
			return a.Semester > b.Semester
		}
		if a.StudentNo != b.StudentNo {
			return a.StudentNo < b.StudentNo
		}
		return a.CourseNo < b.CourseNo
	})
}
