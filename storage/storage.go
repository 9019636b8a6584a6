package storage

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/storage/database"
	inmemdb "github.com/trezcool/gradebook/storage/database/inmem"
	redisrepos "github.com/trezcool/gradebook/storage/database/redis"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
)

// OpenGradeRepository opens the grade repository selected by conf.Storage.
// The postgres database is created and migrated when needed.
// The returned func releases the underlying connections.
func OpenGradeRepository(conf *core.Config) (grade.Repository, func() error, error) {
	switch conf.Storage {
	case core.StorageMemory, "":
		return inmemdb.NewGradeRepository(inmemdb.Open()), func() error { return nil }, nil

	case core.StoragePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, nil, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return sqlxrepos.NewGradeRepository(sqlx.NewDb(db, conf.Database.Engine)), db.Close, nil

	case core.StorageRedis:
		client, err := redisrepos.Open(conf)
		if err != nil {
			return nil, nil, err
		}
		return redisrepos.NewGradeRepository(client), client.Close, nil
	}
	return nil, nil, errors.Errorf("unknown storage %q", conf.Storage)
}
