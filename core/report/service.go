package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/edusync/edusync/core"
	"github.com/edusync/edusync/core/period"
)

var (
	// errors
	ErrNotFound           = errors.New("report not found")
	ErrReportExists       = errors.New("an active report already exists for this student, cohort and period")
	ErrInvalidTransition  = errors.New("invalid report state transition")
	ErrDeletionNotAllowed = errors.New("only draft reports may be deleted")
	ErrManualOverride     = errors.New("report has manual edits; recalculation must be forced explicitly")
)

type (
	Repository interface {
		CreateReport(ctx context.Context, rep Report, exec ...core.DBExecutor) (Report, error)
		GetReportByID(ctx context.Context, id string, exec ...core.DBExecutor) (Report, error)
		// GetActiveReport finds the non-archived report for the identity tuple.
		GetActiveReport(ctx context.Context, studentID, cohortID, periodID string, exec ...core.DBExecutor) (Report, error)
		// QueryReports applies AND on available QueryFilter fields; lines included.
		QueryReports(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Report, error)
		UpdateReport(ctx context.Context, rep Report, exec ...core.DBExecutor) (Report, error)
		// ReplaceLines discards the report's lines and inserts the given set.
		ReplaceLines(ctx context.Context, reportID string, lines []Line, exec ...core.DBExecutor) ([]Line, error)
		// SaveRankingSnapshots persists rank/mean fields of reports and their lines.
		SaveRankingSnapshots(ctx context.Context, reports []*Report, exec ...core.DBExecutor) error
		DeleteReport(ctx context.Context, id string, exec ...core.DBExecutor) error
		NextReportNumber(ctx context.Context, year int, exec ...core.DBExecutor) (int, error)
	}

	// Service is the report lifecycle manager. It owns Reports and their
	// Lines and is the only writer of either.
	Service struct {
		db          core.DB
		repo        Repository
		periods     period.Repository
		assessments AssessmentSource
		subjects    SubjectSource
		enrollments EnrollmentSource
		attendance  AttendanceSource
		conf        *core.Config
		logger      core.Logger

		// concurrent calculations of one report are serialized
		locks keyedMutex
	}
)

func NewService(
	db core.DB,
	repo Repository,
	periods period.Repository,
	assessments AssessmentSource,
	subjects SubjectSource,
	enrollments EnrollmentSource,
	attendance AttendanceSource,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		periods:     periods,
		assessments: assessments,
		subjects:    subjects,
		enrollments: enrollments,
		attendance:  attendance,
		conf:        conf,
		logger:      logger,
	}
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (km *keyedMutex) lock(key string) func() {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[string]*lockEntry)
	}
	entry, ok := km.locks[key]
	if !ok {
		entry = &lockEntry{}
		km.locks[key] = entry
	}
	entry.refs++
	km.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		km.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}

func (svc *Service) Create(ctx context.Context, nr NewReport) (Report, error) {
	per, err := svc.periods.GetPeriodByID(ctx, nr.PeriodID)
	if err != nil {
		if errors.Cause(err) == period.ErrNotFound {
			return Report{}, core.NewValidationError(err, core.FieldError{Field: "period_id", Error: err.Error()})
		}
		return Report{}, errors.Wrap(err, "getting period")
	}

	// at most one active report per (student, cohort, period)
	if _, err = svc.repo.GetActiveReport(ctx, nr.StudentID, nr.CohortID, nr.PeriodID); err == nil {
		return Report{}, core.NewValidationError(ErrReportExists, core.FieldError{Field: "student_id", Error: ErrReportExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Report{}, errors.Wrap(err, "checking report uniqueness")
	}

	seq, err := svc.repo.NextReportNumber(ctx, per.StartDate.Year())
	if err != nil {
		return Report{}, errors.Wrap(err, "getting next report number")
	}

	now := time.Now().UTC()
	rep := Report{
		Number:            fmt.Sprintf("BUL/%d/%05d", per.StartDate.Year(), seq),
		Student:           Actor{ID: nr.StudentID, Name: nr.StudentName},
		CohortID:          nr.CohortID,
		CourseID:          nr.CourseID,
		PeriodID:          nr.PeriodID,
		State:             StateDraft,
		Decision:          DecisionPending,
		OverallRemark:     nr.OverallRemark,
		UnexcusedAbsences: nr.UnexcusedAbsences,
		ExcusedAbsences:   nr.ExcusedAbsences,
		TotalLateness:     nr.Lateness,
		CreatedBy:         nr.CreatedBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	rep, err = svc.repo.CreateReport(ctx, rep)
	if err != nil {
		return Report{}, errors.Wrap(err, "creating report")
	}

	if len(nr.Lines) > 0 {
		lines := make([]Line, 0, len(nr.Lines))
		for _, nl := range nr.Lines {
			lines = append(lines, nl.line(rep.ID))
		}
		if rep.Lines, err = svc.repo.ReplaceLines(ctx, rep.ID, lines); err != nil {
			return Report{}, errors.Wrap(err, "creating report lines")
		}
	}
	return rep, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Report, error) {
	return svc.repo.GetReportByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Report, error) {
	return svc.repo.QueryReports(ctx, filter, ordering)
}

// Calculate discards the report's lines, re-runs the whole aggregation
// pipeline (normalizer, subject aggregator, report aggregator, attendance
// summarizer) and moves the report to calculated. Repeated calls fully
// replace prior results. Cohort ranking snapshots for the report's
// (cohort, period) are refreshed afterwards.
func (svc *Service) Calculate(ctx context.Context, id string, opts CalculateOptions) (Report, error) {
	unlock := svc.locks.lock(id)
	defer unlock()

	rep, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if rep.State == StateArchived {
		return Report{}, errors.Wrap(ErrInvalidTransition, "archived reports are frozen")
	}
	if rep.ManuallyEdited && !opts.Force {
		return Report{}, ErrManualOverride
	}

	per, err := svc.periods.GetPeriodByID(ctx, rep.PeriodID)
	if err != nil {
		return Report{}, errors.Wrap(err, "getting period")
	}

	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return Report{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	rep, err = svc.calculate(ctx, rep, per, tx)
	if err != nil {
		return Report{}, err
	}
	if err = svc.refreshCohort(ctx, rep.CohortID, rep.PeriodID, tx); err != nil {
		return Report{}, err
	}
	if err = tx.Commit(); err != nil {
		return Report{}, errors.Wrap(err, "committing transaction")
	}

	// re-read for the fresh rank snapshot
	return svc.repo.GetReportByID(ctx, id)
}

// calculateInTx serializes on the report lock and runs the pipeline in its
// own transaction, leaving the cohort snapshot refresh to the caller.
func (svc *Service) calculateInTx(ctx context.Context, rep Report, per period.GradingPeriod) (Report, error) {
	unlock := svc.locks.lock(rep.ID)
	defer unlock()

	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return Report{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if rep, err = svc.calculate(ctx, rep, per, tx); err != nil {
		return Report{}, err
	}
	if err = tx.Commit(); err != nil {
		return Report{}, errors.Wrap(err, "committing transaction")
	}
	return rep, nil
}

// calculate runs the aggregation pipeline for one report within exec.
func (svc *Service) calculate(ctx context.Context, rep Report, per period.GradingPeriod, exec core.DBExecutor) (Report, error) {
	subjects, err := svc.subjects.QueryForCourse(ctx, rep.CourseID, exec)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying subjects")
	}

	assessments, err := svc.assessments.QueryFinalized(ctx, rep.Student.ID, rep.CohortID, per.StartDate, per.EndDate, exec)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying assessments")
	}
	bySubject := make(map[string][]Assessment, len(subjects))
	for _, a := range assessments {
		bySubject[a.SubjectID] = append(bySubject[a.SubjectID], a)
	}

	lines := make([]Line, 0, len(subjects))
	for _, sub := range subjects {
		agg, err := AggregateSubject(bySubject[sub.ID])
		if err != nil {
			return Report{}, errors.Wrapf(err, "aggregating subject %s", sub.ID)
		}
		if agg.NoData && svc.conf.DemoDataMode {
			agg = DemoAggregate(rep.Student.ID, sub.ID)
		}

		remark := RemarkFor(agg.Average)
		if agg.NoData {
			remark = remarkNoData
		}
		lines = append(lines, Line{
			ReportID:        rep.ID,
			SubjectID:       sub.ID,
			SubjectName:     sub.Name,
			Homework:        agg.Homework,
			Composition:     agg.Composition,
			Test:            agg.Test,
			Oral:            agg.Oral,
			Practical:       agg.Practical,
			Average:         agg.Average,
			Coefficient:     sub.Coefficient,
			EvaluationCount: int(agg.Count),
			MinScore:        agg.MinScore,
			MaxScore:        agg.MaxScore,
			NoData:          agg.NoData,
			Remark:          remark,
		})
	}

	if rep.Lines, err = svc.repo.ReplaceLines(ctx, rep.ID, lines, exec); err != nil {
		return Report{}, errors.Wrap(err, "replacing report lines")
	}

	records, err := svc.attendance.QueryForStudent(ctx, rep.Student.ID, per.StartDate, per.EndDate, exec)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying attendance")
	}
	att := SummarizeAttendance(records)

	rep.OverallAverage = OverallAverage(rep.Lines)
	rep.TotalSessions = att.Sessions
	rep.TotalAbsences = att.Absences
	rep.TotalLateness = att.Lateness
	rep.PresenceRate = att.PresenceRate
	rep.State = StateCalculated
	rep.ManuallyEdited = false
	rep.UpdatedAt = time.Now().UTC()

	if rep, err = svc.repo.UpdateReport(ctx, rep, exec); err != nil {
		return Report{}, errors.Wrap(err, "updating report")
	}
	return rep, nil
}

// refreshCohort recomputes the rank/mean snapshots of every qualifying
// report in (cohort, period) and persists them. Must run only after all
// in-flight calculations for the cohort have settled.
func (svc *Service) refreshCohort(ctx context.Context, cohortID, periodID string, exec ...core.DBExecutor) error {
	var refs []*Report
	for _, state := range RankedStates {
		reports, err := svc.repo.QueryReports(ctx, &QueryFilter{CohortID: cohortID, PeriodID: periodID, State: state}, nil, exec...)
		if err != nil {
			return errors.Wrap(err, "querying cohort reports")
		}
		for i := range reports {
			refs = append(refs, &reports[i])
		}
	}

	RankReports(refs)
	RankSubjects(refs)

	if err := svc.repo.SaveRankingSnapshots(ctx, refs, exec...); err != nil {
		return errors.Wrap(err, "saving ranking snapshots")
	}
	return nil
}

// Validate moves a calculated report to validated, stamping the
// finalization date and the validating actor.
func (svc *Service) Validate(ctx context.Context, id, actor string) (Report, error) {
	rep, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if rep.State != StateCalculated {
		return Report{}, errors.Wrapf(ErrInvalidTransition, "cannot validate a %s report", rep.State)
	}

	now := time.Now().UTC()
	rep.State = StateValidated
	rep.ValidatedBy = actor
	rep.FinalizedAt = now
	rep.UpdatedAt = now
	return svc.repo.UpdateReport(ctx, rep)
}

// Publish moves a validated report to published, stamping the publishing actor.
func (svc *Service) Publish(ctx context.Context, id, actor string) (Report, error) {
	rep, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if rep.State != StateValidated {
		return Report{}, errors.Wrapf(ErrInvalidTransition, "cannot publish a %s report", rep.State)
	}

	rep.State = StatePublished
	rep.PublishedBy = actor
	rep.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateReport(ctx, rep)
}

// Archive freezes a report; allowed from any state. Archived reports are
// rejected by Calculate/Validate/Publish and leave the cohort ranking set.
func (svc *Service) Archive(ctx context.Context, id string) (Report, error) {
	rep, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return Report{}, err
	}
	wasRanked := rep.State.IsRanked()

	rep.State = StateArchived
	rep.UpdatedAt = time.Now().UTC()
	if rep, err = svc.repo.UpdateReport(ctx, rep); err != nil {
		return Report{}, err
	}

	if wasRanked {
		if err = svc.refreshCohort(ctx, rep.CohortID, rep.PeriodID); err != nil {
			return Report{}, err
		}
	}
	return rep, nil
}

// ResetToDraft sends a report back to draft from any state, discarding its
// calculated lines and aggregation outputs so no stale figures survive.
func (svc *Service) ResetToDraft(ctx context.Context, id string) (Report, error) {
	unlock := svc.locks.lock(id)
	defer unlock()

	rep, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return Report{}, err
	}
	wasRanked := rep.State.IsRanked()

	if _, err = svc.repo.ReplaceLines(ctx, rep.ID, nil); err != nil {
		return Report{}, errors.Wrap(err, "discarding report lines")
	}
	rep.Lines = nil
	rep.State = StateDraft
	rep.OverallAverage = 0
	rep.CohortAverage = 0
	rep.Rank = 0
	rep.CohortSize = 0
	rep.TotalSessions = 0
	rep.TotalAbsences = 0
	rep.PresenceRate = 0
	rep.ManuallyEdited = false
	rep.ValidatedBy = ""
	rep.PublishedBy = ""
	rep.FinalizedAt = time.Time{}
	rep.UpdatedAt = time.Now().UTC()
	if rep, err = svc.repo.UpdateReport(ctx, rep); err != nil {
		return Report{}, err
	}

	if wasRanked {
		if err = svc.refreshCohort(ctx, rep.CohortID, rep.PeriodID); err != nil {
			return Report{}, err
		}
	}
	return rep, nil
}

// SaveManual applies an operator's explicit edits: replacement lines and/or
// a hand-set overall average. The report is marked manually edited so a
// later non-forced Calculate cannot silently wipe the operator's work.
func (svc *Service) SaveManual(ctx context.Context, id string, ms ManualSave) (Report, error) {
	unlock := svc.locks.lock(id)
	defer unlock()

	rep, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if rep.State == StateArchived {
		return Report{}, errors.Wrap(ErrInvalidTransition, "archived reports are frozen")
	}

	if ms.OverallRemark != nil {
		rep.OverallRemark = core.CleanString(*ms.OverallRemark)
	}
	if ms.Decision != nil {
		rep.Decision = Decision(*ms.Decision)
	}
	if ms.UnexcusedAbsences != nil {
		rep.UnexcusedAbsences = *ms.UnexcusedAbsences
	}
	if ms.ExcusedAbsences != nil {
		rep.ExcusedAbsences = *ms.ExcusedAbsences
	}
	if ms.Lateness != nil {
		rep.TotalLateness = *ms.Lateness
	}

	if len(ms.Lines) > 0 {
		lines := make([]Line, 0, len(ms.Lines))
		for _, nl := range ms.Lines {
			lines = append(lines, nl.line(rep.ID))
		}
		if rep.Lines, err = svc.repo.ReplaceLines(ctx, rep.ID, lines); err != nil {
			return Report{}, errors.Wrap(err, "replacing report lines")
		}
		rep.OverallAverage = OverallAverage(rep.Lines)
	}
	if ms.OverallAverage != nil {
		rep.OverallAverage = *ms.OverallAverage
	}

	rep.ManuallyEdited = true
	rep.UpdatedAt = time.Now().UTC()
	if rep, err = svc.repo.UpdateReport(ctx, rep); err != nil {
		return Report{}, err
	}

	if rep.State.IsRanked() {
		if err = svc.refreshCohort(ctx, rep.CohortID, rep.PeriodID); err != nil {
			return Report{}, err
		}
	}
	return rep, nil
}

// Delete removes a report; only drafts may go.
func (svc *Service) Delete(ctx context.Context, id string) error {
	rep, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return err
	}
	if rep.State != StateDraft {
		return errors.Wrapf(ErrDeletionNotAllowed, "report is %s", rep.State)
	}
	return svc.repo.DeleteReport(ctx, id)
}
