package grade

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// DefaultCutoverMonth is the month the first term of an academic year starts in.
const DefaultCutoverMonth = 9

// secondTermMonth is the month the second term starts in, whatever the cutover.
const secondTermMonth = 3

var (
	semesterRegex = regexp.MustCompile(`^(\d{4})-(\d{4})-([12])$`)

	ErrInvalidSemester = errors.New("semester must look like 2024-2025-1")
)

// Semester is a parsed semester token: "<startYear>-<endYear>-<term>".
type Semester struct {
	StartYear int
	Term      int
}

func (s Semester) EndYear() int { return s.StartYear + 1 }

func (s Semester) String() string {
	return fmt.Sprintf("%d-%d-%d", s.StartYear, s.EndYear(), s.Term)
}

// ParseSemester parses and validates a semester token.
func ParseSemester(token string) (Semester, error) {
	m := semesterRegex.FindStringSubmatch(token)
	if m == nil {
		return Semester{}, ErrInvalidSemester
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	term, _ := strconv.Atoi(m[3])
	if end != start+1 {
		return Semester{}, ErrInvalidSemester
	}
	return Semester{StartYear: start, Term: term}, nil
}

// DefaultSemester returns the semester `now` falls in.
// From cutoverMonth on, the first term of the academic year starting this year is running.
// From March until the cutover, the second term of the year that started last year.
// January and February still belong to the first term of last year's academic year.
func DefaultSemester(now time.Time, cutoverMonth int) string {
	if cutoverMonth <= secondTermMonth || cutoverMonth > 12 {
		cutoverMonth = DefaultCutoverMonth
	}
	year, month := now.Year(), int(now.Month())

	var sem Semester
	switch {
	case month >= cutoverMonth:
		sem = Semester{StartYear: year, Term: 1}
	case month >= secondTermMonth:
		sem = Semester{StartYear: year - 1, Term: 2}
	default:
		sem = Semester{StartYear: year - 1, Term: 1}
	}
	return sem.String()
}
