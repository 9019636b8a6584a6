package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/session"
)

type textView struct {
	out io.Writer
}

func (v *textView) Render(snap session.Snapshot) {
	w := tabwriter.NewWriter(v.out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "semester %s | student %s | course %s | focus %s\n",
		dash(snap.Semester), studentLabel(snap.Student), courseLabel(snap.Course), snap.Focus)

	switch {
	case snap.Grades == nil:
	case len(snap.Grades) == 0:
		_, _ = fmt.Fprintln(w, "no grades")
	default:
		_, _ = fmt.Fprintln(w, "SEMESTER\tSTUDENT\tNAME\tCOURSE\tTITLE\tCREDIT\tREGULAR\tEXAM\tFINAL\tSTATUS\t")
		for _, e := range snap.Grades {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f\t%s\t%s\t%s\t%s\t\n",
				e.Semester, e.StudentNo, e.StudentName, e.CourseNo, e.CourseName, e.Credit,
				score(e.RegularScore), score(e.ExamScore), score(e.FinalScore), e.Status)
		}
	}
	_ = w.Flush()

	if snap.StatsVisible() {
		st := snap.Stats
		_, _ = fmt.Fprintf(v.out, "average %.1f  max %.1f  min %.1f  pass rate %.1f%%  graded %d/%d\n",
			st.AverageScore, st.MaxScore, st.MinScore, st.PassRate*100, st.GradedCount, st.EnrolledCount)
	}
	if snap.Notice != "" {
		_, _ = fmt.Fprintln(v.out, snap.Notice)
	}
	if snap.Err != nil {
		_, _ = fmt.Fprintln(v.out, "error: "+session.Message(snap.Err))
	}
}

func score(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func studentLabel(s *grade.Student) string {
	if s == nil {
		return "-"
	}
	return s.StudentNo + " " + s.Name
}

func courseLabel(c *grade.Course) string {
	if c == nil {
		return "-"
	}
	return c.CourseNo + " " + c.Name
}
