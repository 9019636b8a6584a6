package sheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/gradebook/core/grade"
)

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheetName := f.GetSheetName(0)
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheetName, cell, &rows[i]))
	}
	buf := new(bytes.Buffer)
	_, err := f.WriteTo(buf)
	require.NoError(t, err)
	return buf
}

func TestWriteGrades(t *testing.T) {
	regular, exam, final := 80.0, 90.0, 86.0
	enrollments := []grade.Enrollment{
		{
			EnrollmentKey: grade.EnrollmentKey{StudentSid: 1, CourseCid: 1, Semester: "2024-2025-1"},
			Status:        grade.StatusExamEntered,
			RegularScore:  &regular,
			ExamScore:     &exam,
			FinalScore:    &final,
			StudentNo:     "S001",
			StudentName:   "Alice",
			CourseNo:      "C001",
			CourseName:    "Maths",
			Credit:        3,
		},
		{
			EnrollmentKey: grade.EnrollmentKey{StudentSid: 2, CourseCid: 1, Semester: "2024-2025-1"},
			Status:        grade.StatusEnrolled,
			StudentNo:     "S002",
			StudentName:   "Bob",
			CourseNo:      "C001",
			CourseName:    "Maths",
			Credit:        3,
		},
	}

	buf := new(bytes.Buffer)
	require.NoError(t, WriteGrades(buf, enrollments))

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, gradesSheet, f.GetSheetName(0))
	rows, err := f.GetRows(gradesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Semester", rows[0][0])
	assert.Equal(t, []string{"2024-2025-1", "S001", "Alice", "C001", "Maths", "3", "80", "90", "86", "exam score entered"}, rows[1])
	assert.Equal(t, []string{"2024-2025-1", "S002", "Bob", "C001", "Maths", "3", "", "", "", "enrolled"}, rows[2])
}

func TestReadStudents(t *testing.T) {
	buf := workbook(t,
		[]interface{}{"No", "Name", "Gender", "Major"},
		[]interface{}{"S001", " Alice ", "F", "Maths"},
		[]interface{}{},
		[]interface{}{"S002", "Bob"},
	)

	students, err := ReadStudents(buf)
	require.NoError(t, err)
	assert.Equal(t, []grade.NewStudent{
		{StudentNo: "S001", Name: "Alice", Gender: "F", Major: "Maths"},
		{StudentNo: "S002", Name: "Bob"},
	}, students)
}

func TestReadCourses(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		buf := workbook(t,
			[]interface{}{"No", "Name", "Credit"},
			[]interface{}{"C001", "Maths", 3},
			[]interface{}{"C002", "Physics", "2.5"},
		)
		courses, err := ReadCourses(buf)
		require.NoError(t, err)
		assert.Equal(t, []grade.NewCourse{
			{CourseNo: "C001", Name: "Maths", Credit: 3},
			{CourseNo: "C002", Name: "Physics", Credit: 2.5},
		}, courses)
	})

	t.Run("bad credit", func(t *testing.T) {
		buf := workbook(t,
			[]interface{}{"No", "Name", "Credit"},
			[]interface{}{"C001", "Maths", "three"},
		)
		_, err := ReadCourses(buf)
		assert.EqualError(t, err, `row 2: invalid credit "three"`)
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := ReadCourses(bytes.NewBufferString("no,name\n"))
		assert.Error(t, err)
	})
}
