package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/services/gradeapi"
	logsvc "github.com/trezcool/gradebook/services/logger"
)

func main() {
	conf := core.NewConfig()

	apiURL := flag.String("api", conf.APIBaseURL, "Base URL of the gradebook API.")
	semester := flag.String("semester", "", "Semester to work on, e.g. 2024-2025-1. Defaults to the current one.")
	flag.Parse()

	logger := logsvc.NewConsoleLogger(log.New(os.Stderr, "GRADEBOOK : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf.Debug)

	if *semester == "" {
		*semester = grade.DefaultSemester(time.Now(), conf.SemesterCutoverMonth)
	}

	con, restore, err := openConsole(os.Stdin, os.Stdout)
	if err != nil {
		logger.Fatal("opening console", err)
	}
	defer restore()

	client := gradeapi.New(*apiURL, gradeapi.WithTimeout(conf.APITimeout), gradeapi.WithLogger(logger))
	newApp(client, con, *semester, logger).run(context.Background())
}
