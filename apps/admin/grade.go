package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/services/sheet"
)

func (cli *commandLine) addStudent(ns grade.NewStudent) error {
	s, err := cli.gradeSvc.CreateStudent(context.Background(), ns)
	if err != nil {
		return cli.describe(err)
	}
	_, _ = fmt.Fprintf(cli.out, "created student %s %s (sid %d)\n", s.StudentNo, s.Name, s.Sid)
	return nil
}

func (cli *commandLine) addCourse(nc grade.NewCourse) error {
	c, err := cli.gradeSvc.CreateCourse(context.Background(), nc)
	if err != nil {
		return cli.describe(err)
	}
	_, _ = fmt.Fprintf(cli.out, "created course %s %s (cid %d)\n", c.CourseNo, c.Name, c.Cid)
	return nil
}

// importFile creates every row of the spreadsheet. Rows that fail are reported and skipped.
func (cli *commandLine) importFile(kind, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	ctx := context.Background()
	var total, created int
	report := func(no string, err error) {
		if err != nil {
			_, _ = fmt.Fprintf(cli.out, "skipped %s: %v\n", no, cli.describe(err))
			return
		}
		created++
	}

	switch kind {
	case "students":
		students, err := sheet.ReadStudents(f)
		if err != nil {
			return errors.Wrap(err, path)
		}
		total = len(students)
		for _, ns := range students {
			_, err := cli.gradeSvc.CreateStudent(ctx, ns)
			report(ns.StudentNo, err)
		}
	case "courses":
		courses, err := sheet.ReadCourses(f)
		if err != nil {
			return errors.Wrap(err, path)
		}
		total = len(courses)
		for _, nc := range courses {
			_, err := cli.gradeSvc.CreateCourse(ctx, nc)
			report(nc.CourseNo, err)
		}
	}

	_, _ = fmt.Fprintf(cli.out, "imported %d of %d %s\n", created, total, kind)
	return nil
}
