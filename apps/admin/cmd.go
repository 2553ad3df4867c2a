package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edusync/edusync/core/period"
	"github.com/edusync/edusync/core/report"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db        *sqlx.DB
	reportSvc *report.Service
	periodSvc *period.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
	fmt.Println("  generate -cohort COHORT -period PERIOD [-course COURSE] [-regenerate] [-calculate] [-validate] - generate reports for a cohort")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	generateCmd := flag.NewFlagSet("generate", flag.ExitOnError)
	generateCohort := generateCmd.String("cohort", "", "The cohort to generate reports for.")
	generatePeriod := generateCmd.String("period", "", "The grading period to generate reports for.")
	generateCourse := generateCmd.String("course", "", "Restrict generation to students of this course.")
	generateRegen := generateCmd.Bool("regenerate", false, "Recompute students who already have an active report.")
	generateCalc := generateCmd.Bool("calculate", false, "Calculate each report after creation.")
	generateValidate := generateCmd.Bool("validate", false, "Validate each report after calculation.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "generate":
		if err := generateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *generateCohort == "" || *generatePeriod == "" {
			generateCmd.Usage()
			return errHelp
		}
		return cli.generate(report.BatchOptions{
			CohortID:           *generateCohort,
			PeriodID:           *generatePeriod,
			CourseID:           *generateCourse,
			RegenerateExisting: *generateRegen,
			AutoCalculate:      *generateCalc,
			AutoValidate:       *generateValidate,
		})
	default:
		cli.printUsage()
		return errHelp
	}
}
