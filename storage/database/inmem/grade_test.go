package inmemdb_test

import (
	"testing"

	inmemdb "github.com/trezcool/gradebook/storage/database/inmem"
	testutil "github.com/trezcool/gradebook/tests"
)

func TestGradeRepository(t *testing.T) {
	testutil.RepositoryTests(t, inmemdb.NewGradeRepository(inmemdb.Open()))
}
