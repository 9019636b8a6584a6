package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/gradebook/core/grade"
	logsvc "github.com/trezcool/gradebook/services/logger"
	inmemdb "github.com/trezcool/gradebook/storage/database/inmem"
	testutil "github.com/trezcool/gradebook/tests"
)

const semester = "2024-2025-1"

// scriptConsole replays lines and records everything written.
type scriptConsole struct {
	lines   []string
	out     bytes.Buffer
	prompts []string
}

func (c *scriptConsole) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c *scriptConsole) SetPrompt(prompt string) { c.prompts = append(c.prompts, prompt) }

func (c *scriptConsole) ReadLine() (string, error) {
	if len(c.lines) == 0 {
		return "", io.EOF
	}
	line := c.lines[0]
	c.lines = c.lines[1:]
	return line, nil
}

func setup(t *testing.T, lines ...string) (*app, *scriptConsole) {
	t.Helper()
	repo := inmemdb.NewGradeRepository(inmemdb.Open())
	testutil.CreateStudent(t, repo, "S001", "Alice")
	testutil.CreateCourse(t, repo, "C001", "Algorithms", 4)

	validate, _ := grade.NewValidator()
	con := &scriptConsole{lines: lines}
	logger := logsvc.NewConsoleLogger(log.New(io.Discard, "", 0), false)
	return newApp(grade.NewService(repo, validate), con, semester, logger), con
}

func TestApp_workflow(t *testing.T) {
	export := filepath.Join(t.TempDir(), "grades.xlsx")
	a, con := setup(t,
		"help",
		"student S001",
		"course C001",
		"enroll",
		"regular 80",
		"exam 90",
		"finalize",
		"focus student",
		"export "+export,
		"quit",
		"student S001", // never read
	)
	a.run(context.Background())
	out := con.out.String()

	assert.Contains(t, out, "Gradebook, semester 2024-2025-1.")
	assert.Contains(t, out, "drop SID CID [SEMESTER]")
	assert.Contains(t, out, "student S001: Alice")
	assert.Contains(t, out, "course C001: Algorithms")
	assert.Contains(t, out, "Alice enrolled in Algorithms for 2024-2025-1")
	assert.Contains(t, out, "regularScore of Alice in Algorithms set to 80.0")
	assert.Contains(t, out, "average 86.0  max 86.0  min 86.0  pass rate 100.0%  graded 1/1")
	assert.Contains(t, out, "grade of Alice in Algorithms completed")
	assert.Contains(t, out, "course C001 Algorithms | focus student")
	assert.Contains(t, out, "exported 1 grades to "+export)
	assert.NotContains(t, out, "error:")
	assert.Equal(t, []string{"student S001"}, con.lines)

	// last table: one completed row
	last := out[strings.LastIndex(out, "SEMESTER"):]
	assert.Regexp(t, `2024-2025-1\s+S001\s+Alice\s+C001\s+Algorithms\s+4\.0\s+80\.0\s+90\.0\s+86\.0\s+completed`, last)

	f, err := excelize.OpenFile(export)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Grades")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestApp_drop(t *testing.T) {
	a, con := setup(t,
		"student S001",
		"course C001",
		"enroll",
		"drop 1 1",
		"n",
		"drop 1 1 "+semester,
		"yes",
	)
	a.run(context.Background())
	out := con.out.String()

	assert.Contains(t, out, "drop cancelled")
	assert.Contains(t, out, "dropped course 1 of student 1 for 2024-2025-1")
	assert.Contains(t, out, "no grades")
	assert.Equal(t, []string{
		"Drop course 1 of student 1 for 2024-2025-1? This cannot be undone. [y/N] ", defaultPrompt,
		"Drop course 1 of student 1 for 2024-2025-1? This cannot be undone. [y/N] ", defaultPrompt,
	}, con.prompts)
}

func TestApp_errors(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		wantOut string
	}{
		{name: "unknown command", lines: []string{"lol"}, wantOut: `unknown command "lol"`},
		{name: "enroll without selection", lines: []string{"enroll"}, wantOut: "error: select a student first"},
		{name: "enroll without course", lines: []string{"student S001", "enroll"}, wantOut: "error: select a course first"},
		{name: "unknown student", lines: []string{"student S404"}, wantOut: "error: student not found"},
		{name: "no student number", lines: []string{"student"}, wantOut: "error: enter a student number"},
		{name: "bad score", lines: []string{"student S001", "course C001", "regular abc"}, wantOut: "error: score must be a number between 0 and 100"},
		{name: "score out of range", lines: []string{"student S001", "course C001", "exam 101"}, wantOut: "error: score must be a number between 0 and 100"},
		{name: "not enrolled", lines: []string{"student S001", "course C001", "regular 50"}, wantOut: "error: enrollment not found"},
		{name: "bad focus", lines: []string{"focus room"}, wantOut: "error: select a student or a course first"},
		{name: "focus unresolved", lines: []string{"focus course"}, wantOut: "error: select a course first"},
		{name: "drop usage", lines: []string{"drop 1"}, wantOut: "usage: drop SID CID [SEMESTER]"},
		{name: "drop bad ids", lines: []string{"drop x y"}, wantOut: "error: student id, course id and semester are required"},
		{name: "export nothing", lines: []string{"export grades.xlsx"}, wantOut: "no grades to export"},
		{name: "semester", lines: []string{"semester"}, wantOut: "semester 2024-2025-1"},
		{name: "duplicate enrollment", lines: []string{"student S001", "course C001", "enroll", "enroll"}, wantOut: "error: " + grade.ErrAlreadyEnrolled.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, con := setup(t, tt.lines...)
			a.run(context.Background())
			assert.Contains(t, con.out.String(), tt.wantOut)
		})
	}
}

func TestApp_semester(t *testing.T) {
	a, con := setup(t,
		"student S001",
		"course C001",
		"enroll",
		"semester 2023-2024-2",
		"focus student",
	)
	a.run(context.Background())
	out := con.out.String()

	assert.Equal(t, "2023-2024-2", a.sess.Semester())
	header := "semester 2023-2024-2 | student S001 Alice | course C001 Algorithms | focus student"
	i := strings.LastIndex(out, header)
	require.NotEqual(t, -1, i, out)
	last := out[i:]
	assert.Contains(t, last, "no grades")
	assert.NotContains(t, last, "average")
}

func TestConfirmer(t *testing.T) {
	for answer, want := range map[string]bool{"y": true, " Yes ": true, "": false, "no": false, "yep": false} {
		con := &scriptConsole{lines: []string{answer}}
		assert.Equal(t, want, confirmer(con)("sure?"), answer)
	}
	assert.False(t, confirmer(&scriptConsole{})("sure?"))
}

func TestLineConsole(t *testing.T) {
	out := new(bytes.Buffer)
	con := newLineConsole(strings.NewReader("first\nsecond\n"), out)

	line, err := con.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	con.SetPrompt("? ")
	line, err = con.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "second", line)

	_, err = con.ReadLine()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, defaultPrompt+"? ? ", out.String())
}
