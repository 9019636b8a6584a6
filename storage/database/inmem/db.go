package inmemdb

import (
	"sync"

	"github.com/trezcool/gradebook/core/grade"
)

type (
	// DB is an in-memory store, used in tests and with the "memory" storage setting.
	DB struct {
		mutex       sync.RWMutex
		studentPK   int64
		coursePK    int64
		students    map[int64]*grade.Student
		courses     map[int64]*grade.Course
		enrollments map[grade.EnrollmentKey]*grade.Enrollment
	}
)

func Open() *DB {
	return &DB{
		students:    make(map[int64]*grade.Student),
		courses:     make(map[int64]*grade.Course),
		enrollments: make(map[grade.EnrollmentKey]*grade.Enrollment),
	}
}
