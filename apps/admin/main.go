package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage"
	"github.com/trezcool/gradebook/storage/database"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewConsoleLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf.Debug)

	cli, closeAll, err := newCommandLine(conf)
	if err != nil {
		logger.Fatal("setting up storage", err)
	}

	err = cli.run(os.Args)
	if cerr := closeAll(); cerr != nil {
		logger.Error("closing storage", cerr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

func newCommandLine(conf *core.Config) (*commandLine, func() error, error) {
	validate, translator := grade.NewValidator()
	cli := &commandLine{translator: translator, out: os.Stdout}

	// migrations are run by hand here: the database is not migrated on open
	if conf.Storage == core.StoragePostgres {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, nil, err
		}
		cli.db = db
		cli.gradeSvc = grade.NewService(sqlxrepos.NewGradeRepository(sqlx.NewDb(db, conf.Database.Engine)), validate)
		return cli, db.Close, nil
	}

	repo, closeRepo, err := storage.OpenGradeRepository(conf)
	if err != nil {
		return nil, nil, err
	}
	cli.gradeSvc = grade.NewService(repo, validate)
	return cli, closeRepo, nil
}
