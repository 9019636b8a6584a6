package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/session"
	"github.com/trezcool/gradebook/services/sheet"
)

var usage = []string{
	"student NO                   select a student by number",
	"course NO                    select a course by number",
	"focus student|course         show the grades of the selected student or course",
	"semester [TOKEN]             show or set the semester, e.g. 2024-2025-1",
	"enroll                       enroll the selected student in the selected course",
	"drop SID CID [SEMESTER]      drop an enrollment (asks for confirmation)",
	"regular SCORE                record the regular score of the selection",
	"exam SCORE                   record the exam score of the selection",
	"finalize                     complete the grade of the selection",
	"refresh                      reload the grades",
	"export FILE.xlsx             save the grades shown to a spreadsheet",
	"help                         show this help",
	"quit                         leave",
}

type app struct {
	sess   *session.Session
	con    console
	logger core.Logger
}

func newApp(backend session.Backend, con console, semester string, logger core.Logger) *app {
	a := &app{con: con, logger: logger}
	a.sess = session.New(backend, &textView{out: con}, session.Options{
		Semester: semester,
		Confirm:  confirmer(con),
		Logger:   logger,
	})
	return a
}

func (a *app) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.con, format, args...)
}

// run reads and executes commands until quit or end of input.
func (a *app) run(ctx context.Context) {
	a.printf("Gradebook, semester %s. Type help for the list of commands.\n", dash(a.sess.Semester()))
	for {
		line, err := a.con.ReadLine()
		if err != nil {
			return
		}
		if quit := a.exec(ctx, line); quit {
			return
		}
	}
}

// exec runs one command line. Session failures are rendered by the view.
func (a *app) exec(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	rest := strings.Join(args, " ")

	var err error
	switch cmd {
	case "student":
		err = a.sess.ResolveStudent(ctx, rest)
	case "course":
		err = a.sess.ResolveCourse(ctx, rest)
	case "focus":
		focus := session.FocusNone
		switch strings.ToLower(rest) {
		case "student":
			focus = session.FocusStudent
		case "course":
			focus = session.FocusCourse
		}
		err = a.sess.Focus(ctx, focus)
	case "semester":
		err = a.semester(ctx, rest)
	case "enroll":
		err = a.sess.Enroll(ctx)
	case "drop":
		err = a.drop(ctx, args)
	case "regular":
		err = a.sess.RecordRegularScore(ctx, rest)
	case "exam":
		err = a.sess.RecordExamScore(ctx, rest)
	case "finalize":
		err = a.sess.Finalize(ctx)
	case "refresh":
		err = a.sess.RefreshGrades(ctx)
	case "export":
		err = a.export(rest)
	case "help":
		a.printf("%s\n", strings.Join(usage, "\n"))
	case "quit", "exit":
		return true
	default:
		a.printf("unknown command %q, type help for the list of commands\n", cmd)
	}

	if err != nil {
		a.logger.Debug(fmt.Sprintf("%s failed", cmd), err)
	}
	return false
}

func (a *app) semester(ctx context.Context, token string) error {
	if token == "" {
		a.printf("semester %s\n", dash(a.sess.Semester()))
		return nil
	}
	a.sess.SetSemester(token)
	if a.sess.Snapshot().Focus == session.FocusNone {
		return nil
	}
	return a.sess.RefreshGrades(ctx)
}

func (a *app) drop(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		a.printf("usage: drop SID CID [SEMESTER]\n")
		return nil
	}
	// unparsable ids are left at 0 and rejected by the session
	sid, _ := strconv.ParseInt(args[0], 10, 64)
	cid, _ := strconv.ParseInt(args[1], 10, 64)
	semester := a.sess.Semester()
	if len(args) == 3 {
		semester = args[2]
	}
	return a.sess.Drop(ctx, sid, cid, semester)
}

func (a *app) export(path string) error {
	if path == "" {
		a.printf("usage: export FILE.xlsx\n")
		return nil
	}
	grades := a.sess.Snapshot().Grades
	if len(grades) == 0 {
		a.printf("no grades to export\n")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		a.printf("error: %v\n", err)
		return err
	}
	if err = sheet.WriteGrades(f, grades); err != nil {
		_ = f.Close()
		a.printf("error: %v\n", err)
		return err
	}
	if err = f.Close(); err != nil {
		a.printf("error: %v\n", err)
		return err
	}
	a.printf("exported %d grades to %s\n", len(grades), path)
	return nil
}
