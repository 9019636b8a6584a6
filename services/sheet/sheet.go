package sheet

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/gradebook/core/grade"
)

const gradesSheet = "Grades"

var gradeHeader = []interface{}{
	"Semester", "Student No", "Student", "Course No", "Course", "Credit",
	"Regular", "Exam", "Final", "Status",
}

// WriteGrades writes the enrollments as an xlsx workbook with a single "Grades" sheet.
func WriteGrades(w io.Writer, enrollments []grade.Enrollment) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), gradesSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err := f.SetSheetRow(gradesSheet, "A1", &gradeHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}

	for i, e := range enrollments {
		row := []interface{}{
			e.Semester, e.StudentNo, e.StudentName, e.CourseNo, e.CourseName, e.Credit,
			scoreCell(e.RegularScore), scoreCell(e.ExamScore), scoreCell(e.FinalScore), e.Status.String(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "locating row")
		}
		if err = f.SetSheetRow(gradesSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

// scoreCell leaves absent scores blank.
func scoreCell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// ReadStudents reads students from the first sheet of an xlsx workbook.
// The first row is a header; columns are number, name, gender, major, remark. Blank rows are skipped.
func ReadStudents(r io.Reader) ([]grade.NewStudent, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	students := make([]grade.NewStudent, 0, len(rows))
	for _, row := range rows {
		students = append(students, grade.NewStudent{
			StudentNo: row.col(0),
			Name:      row.col(1),
			Gender:    row.col(2),
			Major:     row.col(3),
			Remark:    row.col(4),
		})
	}
	return students, nil
}

// ReadCourses reads courses from the first sheet of an xlsx workbook.
// The first row is a header; columns are number, name, credit. Blank rows are skipped.
func ReadCourses(r io.Reader) ([]grade.NewCourse, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	courses := make([]grade.NewCourse, 0, len(rows))
	for _, row := range rows {
		credit, err := strconv.ParseFloat(row.col(2), 64)
		if err != nil {
			return nil, errors.Errorf("row %d: invalid credit %q", row.num, row.col(2))
		}
		courses = append(courses, grade.NewCourse{
			CourseNo: row.col(0),
			Name:     row.col(1),
			Credit:   credit,
		})
	}
	return courses, nil
}

type row struct {
	num   int // 1-based, as shown by spreadsheet apps
	cells []string
}

func (r row) col(i int) string {
	if i < len(r.cells) {
		return strings.TrimSpace(r.cells[i])
	}
	return ""
}

func readRows(r io.Reader) ([]row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("workbook has no sheet")
	}
	all, err := f.GetRows(sheetName)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheetName)
	}

	rows := make([]row, 0, len(all))
	for i, cells := range all {
		if i == 0 {
			continue // header
		}
		r := row{num: i + 1, cells: cells}
		if r.col(0) == "" && r.col(1) == "" {
			continue
		}
		rows = append(rows, r)
	}
	return rows, nil
}
