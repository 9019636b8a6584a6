package redisrepos

import (
	"strconv"
	"time"

	"github.com/trezcool/gradebook/core/grade"
)

// Hash values are strings. An empty string stands for a missing optional value.

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func formatScore(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func parseScore(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseTime(s)
	return &t
}

func parseID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

func encodeStudent(s grade.Student) map[string]interface{} {
	return map[string]interface{}{
		"sid":         s.Sid,
		"studentNo":   s.StudentNo,
		"name":        s.Name,
		"gender":      s.Gender,
		"major":       s.Major,
		"remark":      s.Remark,
		"createdTime": formatTime(s.CreatedTime),
		"updatedTime": formatTime(s.UpdatedTime),
	}
}

func decodeStudent(data map[string]string) grade.Student {
	return grade.Student{
		Sid:         parseID(data["sid"]),
		StudentNo:   data["studentNo"],
		Name:        data["name"],
		Gender:      data["gender"],
		Major:       data["major"],
		Remark:      data["remark"],
		CreatedTime: parseTime(data["createdTime"]),
		UpdatedTime: parseTime(data["updatedTime"]),
	}
}

func encodeCourse(c grade.Course) map[string]interface{} {
	return map[string]interface{}{
		"cid":         c.Cid,
		"courseNo":    c.CourseNo,
		"name":        c.Name,
		"credit":      formatFloat(c.Credit),
		"createdTime": formatTime(c.CreatedTime),
		"updatedTime": formatTime(c.UpdatedTime),
	}
}

func decodeCourse(data map[string]string) grade.Course {
	return grade.Course{
		Cid:         parseID(data["cid"]),
		CourseNo:    data["courseNo"],
		Name:        data["name"],
		Credit:      parseFloat(data["credit"]),
		CreatedTime: parseTime(data["createdTime"]),
		UpdatedTime: parseTime(data["updatedTime"]),
	}
}

func encodeEnrollment(e grade.Enrollment) map[string]interface{} {
	return map[string]interface{}{
		"semester":         e.Semester,
		"status":           strconv.Itoa(int(e.Status)),
		"selectionDate":    formatTime(e.SelectionDate),
		"regularScore":     formatScore(e.RegularScore),
		"examScore":        formatScore(e.ExamScore),
		"finalScore":       formatScore(e.FinalScore),
		"regularScoreDate": formatTimePtr(e.RegularScoreDate),
		"examScoreDate":    formatTimePtr(e.ExamScoreDate),
		"finalScoreDate":   formatTimePtr(e.FinalScoreDate),
		"remark":           e.Remark,
		"createdTime":      formatTime(e.CreatedTime),
		"updatedTime":      formatTime(e.UpdatedTime),
	}
}

func decodeEnrollment(key grade.EnrollmentKey, data map[string]string) grade.Enrollment {
	status, _ := strconv.Atoi(data["status"])
	return grade.Enrollment{
		EnrollmentKey:    key,
		Status:           grade.Status(status),
		SelectionDate:    parseTime(data["selectionDate"]),
		RegularScore:     parseScore(data["regularScore"]),
		ExamScore:        parseScore(data["examScore"]),
		FinalScore:       parseScore(data["finalScore"]),
		RegularScoreDate: parseTimePtr(data["regularScoreDate"]),
		ExamScoreDate:    parseTimePtr(data["examScoreDate"]),
		FinalScoreDate:   parseTimePtr(data["finalScoreDate"]),
		Remark:           data["remark"],
		CreatedTime:      parseTime(data["createdTime"]),
		UpdatedTime:      parseTime(data["updatedTime"]),
	}
}
