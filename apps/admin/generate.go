package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/edusync/edusync/core/report"
)

// generate runs a cohort-wide batch generation and prints the outcome.
func (cli *commandLine) generate(opts report.BatchOptions) error {
	opts.Actor = "admin-cli"

	res, err := cli.reportSvc.GenerateBatch(context.Background(), opts)
	if err != nil && errors.Cause(err) != report.ErrPartialBatchFailure {
		return err
	}

	fmt.Printf("created: %d, updated: %d, skipped: %d, errors: %d\n", res.Created, res.Updated, res.Skipped, res.Errors)
	for _, item := range res.Items {
		if item.Action == "error" {
			fmt.Printf("  %s (%s): %s\n", item.StudentName, item.StudentID, item.Error)
		}
	}
	return err
}
