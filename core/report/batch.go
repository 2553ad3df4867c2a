package report

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/go-playground/validator/v10"

	"github.com/edusync/edusync/core"
)

// ErrPartialBatchFailure signals that a batch run finished but some
// students could not be processed; per-student details are in the result.
var ErrPartialBatchFailure = errors.New("some reports could not be generated")

type (
	// BatchOptions drives a cohort-wide generation run.
	BatchOptions struct {
		CohortID string `json:"cohort_id" validate:"required"`
		PeriodID string `json:"period_id" validate:"required"`
		CourseID string `json:"course_id"`

		// RegenerateExisting recomputes students who already have an active
		// report instead of skipping them.
		RegenerateExisting bool `json:"regenerate_existing"`
		AutoCalculate      bool `json:"auto_calculate"`
		AutoValidate       bool `json:"auto_validate"`

		Actor string `json:"actor"`
	}

	BatchItem struct {
		StudentID   string `json:"student_id"`
		StudentName string `json:"student_name"`
		ReportID    string `json:"report_id,omitempty"`
		Number      string `json:"number,omitempty"`
		Action      string `json:"action"` // created | updated | skipped | error
		Error       string `json:"error,omitempty"`
	}

	BatchResult struct {
		Created int         `json:"created"`
		Updated int         `json:"updated"`
		Skipped int         `json:"skipped"`
		Errors  int         `json:"errors"`
		Items   []BatchItem `json:"items"`
	}
)

const (
	batchActionCreated = "created"
	batchActionUpdated = "updated"
	batchActionSkipped = "skipped"
	batchActionError   = "error"
)

func (bo *BatchOptions) Validate(validate *validator.Validate) error {
	bo.CohortID = core.CleanString(bo.CohortID)
	bo.PeriodID = core.CleanString(bo.PeriodID)
	bo.CourseID = core.CleanString(bo.CourseID)
	return validate.Struct(bo)
}

// GenerateBatch creates (or regenerates) a report for every active
// enrollment of the cohort. One student's failure never aborts the run:
// the item is recorded and the loop moves on. The cohort ranking snapshot
// is refreshed once, after every student has settled.
func (svc *Service) GenerateBatch(ctx context.Context, opts BatchOptions) (BatchResult, error) {
	var res BatchResult

	per, err := svc.periods.GetPeriodByID(ctx, opts.PeriodID)
	if err != nil {
		return res, errors.Wrap(err, "getting period")
	}

	enrollments, err := svc.enrollments.QueryActive(ctx, opts.CohortID)
	if err != nil {
		return res, errors.Wrap(err, "querying enrollments")
	}

	var refresh bool

	for _, enr := range enrollments {
		if opts.CourseID != "" && enr.CourseID != opts.CourseID {
			continue
		}
		item := BatchItem{StudentID: enr.StudentID, StudentName: enr.StudentName}

		rep, err := svc.repo.GetActiveReport(ctx, enr.StudentID, opts.CohortID, opts.PeriodID)
		switch {
		case err == nil && !opts.RegenerateExisting:
			item.ReportID = rep.ID
			item.Number = rep.Number
			item.Action = batchActionSkipped
			res.Skipped++
			res.Items = append(res.Items, item)
			continue

		case err == nil:
			// regeneration discards the old report and starts over, except
			// over manual edits; the operator forces those per report
			if rep.ManuallyEdited {
				item.Action = batchActionError
				item.Error = ErrManualOverride.Error()
				res.Errors++
				res.Items = append(res.Items, item)
				continue
			}
			if rep.State.IsRanked() {
				refresh = true
			}
			if err = svc.repo.DeleteReport(ctx, rep.ID); err != nil {
				svc.logger.Error(fmt.Sprintf("batch: deleting report %s", rep.ID), err)
				item.Action = batchActionError
				item.Error = err.Error()
				res.Errors++
				res.Items = append(res.Items, item)
				continue
			}
			item.Action = batchActionUpdated

		case errors.Cause(err) == ErrNotFound:
			item.Action = batchActionCreated

		default:
			svc.logger.Error(fmt.Sprintf("batch: looking up report for student %s", enr.StudentID), err)
			item.Action = batchActionError
			item.Error = err.Error()
			res.Errors++
			res.Items = append(res.Items, item)
			continue
		}

		rep, err = svc.Create(ctx, NewReport{
			StudentID:   enr.StudentID,
			StudentName: enr.StudentName,
			CohortID:    opts.CohortID,
			CourseID:    enr.CourseID,
			PeriodID:    opts.PeriodID,
			CreatedBy:   opts.Actor,
		})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("batch: creating report for student %s", enr.StudentID), err)
			item.Action = batchActionError
			item.Error = err.Error()
			res.Errors++
			res.Items = append(res.Items, item)
			continue
		}

		item.ReportID = rep.ID
		item.Number = rep.Number

		if opts.AutoCalculate {
			if rep, err = svc.calculateInTx(ctx, rep, per); err != nil {
				svc.logger.Error(fmt.Sprintf("batch: calculating report %s", rep.ID), err)
				item.Action = batchActionError
				item.Error = err.Error()
				res.Errors++
				res.Items = append(res.Items, item)
				continue
			}
			refresh = true
		}
		if opts.AutoValidate && rep.State == StateCalculated {
			if rep, err = svc.Validate(ctx, rep.ID, opts.Actor); err != nil {
				svc.logger.Error(fmt.Sprintf("batch: validating report %s", rep.ID), err)
				item.Action = batchActionError
				item.Error = err.Error()
				res.Errors++
				res.Items = append(res.Items, item)
				continue
			}
			refresh = true
		}

		switch item.Action {
		case batchActionCreated:
			res.Created++
		case batchActionUpdated:
			res.Updated++
		}
		res.Items = append(res.Items, item)
	}

	if refresh {
		if err = svc.refreshCohort(ctx, opts.CohortID, opts.PeriodID); err != nil {
			return res, err
		}
	}

	if res.Errors > 0 {
		return res, ErrPartialBatchFailure
	}
	return res, nil
}
