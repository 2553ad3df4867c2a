package main

import (
	"log"
	"os"

	"github.com/edusync/edusync/core"
	"github.com/edusync/edusync/core/period"
	"github.com/edusync/edusync/core/report"
	"github.com/edusync/edusync/storage/database"
	"github.com/edusync/edusync/storage/database/sqlxrepos"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	periodRepo := sqlxrepos.NewPeriodRepository(db)
	reportSvc := report.NewService(
		core.WrapDB(db),
		sqlxrepos.NewReportRepository(db),
		periodRepo,
		sqlxrepos.NewAssessmentSource(db),
		sqlxrepos.NewSubjectSource(db),
		sqlxrepos.NewEnrollmentSource(db),
		sqlxrepos.NewAttendanceSource(db),
		conf,
		core.NopLogger{},
	)

	// start CLI
	cli := commandLine{
		db:        db,
		reportSvc: reportSvc,
		periodSvc: period.NewService(periodRepo),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
