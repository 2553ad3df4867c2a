package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edusync/edusync/core"
	"github.com/edusync/edusync/core/report"
)

type reportRow struct {
	ID                string    `db:"id"`
	Number            string    `db:"number"`
	StudentID         string    `db:"student_id"`
	StudentName       string    `db:"student_name"`
	CohortID          string    `db:"cohort_id"`
	CourseID          string    `db:"course_id"`
	PeriodID          string    `db:"period_id"`
	State             string    `db:"state"`
	OverallAverage    float64   `db:"overall_average"`
	CohortAverage     float64   `db:"cohort_average"`
	Rank              int       `db:"rank"`
	CohortSize        int       `db:"cohort_size"`
	OverallRemark     string    `db:"overall_remark"`
	Decision          string    `db:"decision"`
	TotalSessions     int       `db:"total_sessions"`
	TotalAbsences     int       `db:"total_absences"`
	TotalLateness     int       `db:"total_lateness"`
	PresenceRate      float64   `db:"presence_rate"`
	UnexcusedAbsences int       `db:"unexcused_absences"`
	ExcusedAbsences   int       `db:"excused_absences"`
	ManuallyEdited    bool      `db:"manually_edited"`
	TeacherSignature  string    `db:"teacher_signature"`
	DirectorSignature string    `db:"director_signature"`
	ParentSignature   string    `db:"parent_signature"`
	CreatedBy         string    `db:"created_by"`
	ValidatedBy       string    `db:"validated_by"`
	PublishedBy       string    `db:"published_by"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
	FinalizedAt       null.Time `db:"finalized_at"`
}

func toReportRow(rep report.Report) reportRow {
	return reportRow{
		ID:                rep.ID,
		Number:            rep.Number,
		StudentID:         rep.Student.ID,
		StudentName:       rep.Student.Name,
		CohortID:          rep.CohortID,
		CourseID:          rep.CourseID,
		PeriodID:          rep.PeriodID,
		State:             string(rep.State),
		OverallAverage:    rep.OverallAverage,
		CohortAverage:     rep.CohortAverage,
		Rank:              rep.Rank,
		CohortSize:        rep.CohortSize,
		OverallRemark:     rep.OverallRemark,
		Decision:          string(rep.Decision),
		TotalSessions:     rep.TotalSessions,
		TotalAbsences:     rep.TotalAbsences,
		TotalLateness:     rep.TotalLateness,
		PresenceRate:      rep.PresenceRate,
		UnexcusedAbsences: rep.UnexcusedAbsences,
		ExcusedAbsences:   rep.ExcusedAbsences,
		ManuallyEdited:    rep.ManuallyEdited,
		TeacherSignature:  rep.TeacherSignature,
		DirectorSignature: rep.DirectorSignature,
		ParentSignature:   rep.ParentSignature,
		CreatedBy:         rep.CreatedBy,
		ValidatedBy:       rep.ValidatedBy,
		PublishedBy:       rep.PublishedBy,
		CreatedAt:         rep.CreatedAt,
		UpdatedAt:         rep.UpdatedAt,
		FinalizedAt:       null.NewTime(rep.FinalizedAt, !rep.FinalizedAt.IsZero()),
	}
}

func (row reportRow) report() report.Report {
	return report.Report{
		ID:                row.ID,
		Number:            row.Number,
		Student:           report.Actor{ID: row.StudentID, Name: row.StudentName},
		CohortID:          row.CohortID,
		CourseID:          row.CourseID,
		PeriodID:          row.PeriodID,
		State:             report.State(row.State),
		OverallAverage:    row.OverallAverage,
		CohortAverage:     row.CohortAverage,
		Rank:              row.Rank,
		CohortSize:        row.CohortSize,
		OverallRemark:     row.OverallRemark,
		Decision:          report.Decision(row.Decision),
		TotalSessions:     row.TotalSessions,
		TotalAbsences:     row.TotalAbsences,
		TotalLateness:     row.TotalLateness,
		PresenceRate:      row.PresenceRate,
		UnexcusedAbsences: row.UnexcusedAbsences,
		ExcusedAbsences:   row.ExcusedAbsences,
		ManuallyEdited:    row.ManuallyEdited,
		TeacherSignature:  row.TeacherSignature,
		DirectorSignature: row.DirectorSignature,
		ParentSignature:   row.ParentSignature,
		CreatedBy:         row.CreatedBy,
		ValidatedBy:       row.ValidatedBy,
		PublishedBy:       row.PublishedBy,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
		FinalizedAt:       row.FinalizedAt.Time,
	}
}

type lineRow struct {
	ID                   string  `db:"id"`
	ReportID             string  `db:"report_id"`
	SubjectID            string  `db:"subject_id"`
	SubjectName          string  `db:"subject_name"`
	Homework             float64 `db:"homework"`
	Composition          float64 `db:"composition"`
	Test                 float64 `db:"test"`
	Oral                 float64 `db:"oral"`
	Practical            float64 `db:"practical"`
	Average              float64 `db:"average"`
	Coefficient          float64 `db:"coefficient"`
	SubjectCohortAverage float64 `db:"subject_cohort_average"`
	SubjectRank          int     `db:"subject_rank"`
	EvaluationCount      int     `db:"evaluation_count"`
	MinScore             float64 `db:"min_score"`
	MaxScore             float64 `db:"max_score"`
	NoData               bool    `db:"no_data"`
	Remark               string  `db:"remark"`
}

func toLineRow(line report.Line) lineRow {
	return lineRow{
		ID:                   line.ID,
		ReportID:             line.ReportID,
		SubjectID:            line.SubjectID,
		SubjectName:          line.SubjectName,
		Homework:             line.Homework,
		Composition:          line.Composition,
		Test:                 line.Test,
		Oral:                 line.Oral,
		Practical:            line.Practical,
		Average:              line.Average,
		Coefficient:          line.Coefficient,
		SubjectCohortAverage: line.SubjectCohortAverage,
		SubjectRank:          line.SubjectRank,
		EvaluationCount:      line.EvaluationCount,
		MinScore:             line.MinScore,
		MaxScore:             line.MaxScore,
		NoData:               line.NoData,
		Remark:               line.Remark,
	}
}

func (row lineRow) line() report.Line {
	return report.Line{
		ID:                   row.ID,
		ReportID:             row.ReportID,
		SubjectID:            row.SubjectID,
		SubjectName:          row.SubjectName,
		Homework:             row.Homework,
		Composition:          row.Composition,
		Test:                 row.Test,
		Oral:                 row.Oral,
		Practical:            row.Practical,
		Average:              row.Average,
		Coefficient:          row.Coefficient,
		SubjectCohortAverage: row.SubjectCohortAverage,
		SubjectRank:          row.SubjectRank,
		EvaluationCount:      row.EvaluationCount,
		MinScore:             row.MinScore,
		MaxScore:             row.MaxScore,
		NoData:               row.NoData,
		Remark:               row.Remark,
	}
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository(db *sqlx.DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return repo.db
}

const insertReportQuery = `
	INSERT INTO report (
		id, number, student_id, student_name, cohort_id, course_id, period_id, state,
		overall_average, cohort_average, rank, cohort_size, overall_remark, decision,
		total_sessions, total_absences, total_lateness, presence_rate, unexcused_absences, excused_absences,
		manually_edited, teacher_signature, director_signature, parent_signature,
		created_by, validated_by, published_by, created_at, updated_at, finalized_at
	) VALUES (
		:id, :number, :student_id, :student_name, :cohort_id, :course_id, :period_id, :state,
		:overall_average, :cohort_average, :rank, :cohort_size, :overall_remark, :decision,
		:total_sessions, :total_absences, :total_lateness, :presence_rate, :unexcused_absences, :excused_absences,
		:manually_edited, :teacher_signature, :director_signature, :parent_signature,
		:created_by, :validated_by, :published_by, :created_at, :updated_at, :finalized_at
	)`

func (repo *reportRepository) CreateReport(ctx context.Context, rep report.Report, exec ...core.DBExecutor) (report.Report, error) {
	rep.ID = uuid.NewString()
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), insertReportQuery, toReportRow(rep)); err != nil {
		return report.Report{}, errors.Wrap(err, "inserting report")
	}
	return rep, nil
}

func (repo *reportRepository) GetReportByID(ctx context.Context, id string, exec ...core.DBExecutor) (report.Report, error) {
	var row reportRow
	if err := repo.getExec(exec).GetContext(ctx, &row, `SELECT * FROM report WHERE id = $1`, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return report.Report{}, report.ErrNotFound
		}
		return report.Report{}, errors.Wrap(err, "getting report")
	}
	rep := row.report()

	lines, err := repo.queryLines(ctx, repo.getExec(exec), id)
	if err != nil {
		return report.Report{}, err
	}
	rep.Lines = lines
	return rep, nil
}

func (repo *reportRepository) GetActiveReport(ctx context.Context, studentID, cohortID, periodID string, exec ...core.DBExecutor) (report.Report, error) {
	var row reportRow
	err := repo.getExec(exec).GetContext(ctx, &row, `
		SELECT * FROM report
		WHERE student_id = $1 AND cohort_id = $2 AND period_id = $3 AND state <> $4`,
		studentID, cohortID, periodID, string(report.StateArchived))
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return report.Report{}, report.ErrNotFound
		}
		return report.Report{}, errors.Wrap(err, "getting active report")
	}
	return row.report(), nil
}

func (repo *reportRepository) QueryReports(ctx context.Context, filter *report.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]report.Report, error) {
	query := `SELECT * FROM report`
	var clauses []string
	var args []interface{}

	if filter != nil {
		if filter.StudentID != "" {
			args = append(args, filter.StudentID)
			clauses = append(clauses, "student_id = $"+itoa(len(args)))
		}
		if filter.CohortID != "" {
			args = append(args, filter.CohortID)
			clauses = append(clauses, "cohort_id = $"+itoa(len(args)))
		}
		if filter.CourseID != "" {
			args = append(args, filter.CourseID)
			clauses = append(clauses, "course_id = $"+itoa(len(args)))
		}
		if filter.PeriodID != "" {
			args = append(args, filter.PeriodID)
			clauses = append(clauses, "period_id = $"+itoa(len(args)))
		}
		if filter.State != "" {
			args = append(args, string(filter.State))
			clauses = append(clauses, "state = $"+itoa(len(args)))
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderBy(ordering, "created_at ASC")

	var rows []reportRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}
	if len(rows) == 0 {
		return []report.Report{}, nil
	}

	reports := make([]report.Report, 0, len(rows))
	ids := make([]string, 0, len(rows))
	byID := make(map[string]int, len(rows))
	for _, row := range rows {
		byID[row.ID] = len(reports)
		reports = append(reports, row.report())
		ids = append(ids, row.ID)
	}

	lineQuery, lineArgs, err := sqlx.In(`SELECT * FROM report_line WHERE report_id IN (?) ORDER BY subject_name`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building line query")
	}
	ex := repo.getExec(exec)
	var lineRows []lineRow
	if err = ex.SelectContext(ctx, &lineRows, ex.Rebind(lineQuery), lineArgs...); err != nil {
		return nil, errors.Wrap(err, "querying report lines")
	}
	for _, lr := range lineRows {
		i := byID[lr.ReportID]
		reports[i].Lines = append(reports[i].Lines, lr.line())
	}
	return reports, nil
}

const updateReportQuery = `
	UPDATE report SET
		state = :state,
		overall_average = :overall_average,
		cohort_average = :cohort_average,
		rank = :rank,
		cohort_size = :cohort_size,
		overall_remark = :overall_remark,
		decision = :decision,
		total_sessions = :total_sessions,
		total_absences = :total_absences,
		total_lateness = :total_lateness,
		presence_rate = :presence_rate,
		unexcused_absences = :unexcused_absences,
		excused_absences = :excused_absences,
		manually_edited = :manually_edited,
		teacher_signature = :teacher_signature,
		director_signature = :director_signature,
		parent_signature = :parent_signature,
		validated_by = :validated_by,
		published_by = :published_by,
		updated_at = :updated_at,
		finalized_at = :finalized_at
	WHERE id = :id`

func (repo *reportRepository) UpdateReport(ctx context.Context, rep report.Report, exec ...core.DBExecutor) (report.Report, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), updateReportQuery, toReportRow(rep))
	if err != nil {
		return report.Report{}, errors.Wrap(err, "updating report")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return report.Report{}, report.ErrNotFound
	}
	return rep, nil
}

const insertLineQuery = `
	INSERT INTO report_line (
		id, report_id, subject_id, subject_name, homework, composition, test, oral, practical,
		average, coefficient, subject_cohort_average, subject_rank, evaluation_count,
		min_score, max_score, no_data, remark
	) VALUES (
		:id, :report_id, :subject_id, :subject_name, :homework, :composition, :test, :oral, :practical,
		:average, :coefficient, :subject_cohort_average, :subject_rank, :evaluation_count,
		:min_score, :max_score, :no_data, :remark
	)`

func (repo *reportRepository) ReplaceLines(ctx context.Context, reportID string, lines []report.Line, exec ...core.DBExecutor) ([]report.Line, error) {
	ex := repo.getExec(exec)
	if _, err := ex.ExecContext(ctx, `DELETE FROM report_line WHERE report_id = $1`, reportID); err != nil {
		return nil, errors.Wrap(err, "deleting report lines")
	}

	saved := make([]report.Line, 0, len(lines))
	for _, line := range lines {
		line.ID = uuid.NewString()
		line.ReportID = reportID
		if _, err := sqlx.NamedExecContext(ctx, ex, insertLineQuery, toLineRow(line)); err != nil {
			return nil, errors.Wrap(err, "inserting report line")
		}
		saved = append(saved, line)
	}
	return saved, nil
}

func (repo *reportRepository) SaveRankingSnapshots(ctx context.Context, reports []*report.Report, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	for _, rep := range reports {
		_, err := ex.ExecContext(ctx, `
			UPDATE report SET cohort_average = $1, rank = $2, cohort_size = $3 WHERE id = $4`,
			rep.CohortAverage, rep.Rank, rep.CohortSize, rep.ID)
		if err != nil {
			return errors.Wrap(err, "saving report ranking")
		}
		for i := range rep.Lines {
			line := &rep.Lines[i]
			_, err = ex.ExecContext(ctx, `
				UPDATE report_line SET subject_cohort_average = $1, subject_rank = $2 WHERE id = $3`,
				line.SubjectCohortAverage, line.SubjectRank, line.ID)
			if err != nil {
				return errors.Wrap(err, "saving line ranking")
			}
		}
	}
	return nil
}

func (repo *reportRepository) DeleteReport(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM report WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting report")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return report.ErrNotFound
	}
	return nil
}

func (repo *reportRepository) NextReportNumber(ctx context.Context, year int, exec ...core.DBExecutor) (int, error) {
	var seq int
	err := repo.getExec(exec).GetContext(ctx, &seq, `
		INSERT INTO report_sequence (year, value) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET value = report_sequence.value + 1
		RETURNING value`, year)
	if err != nil {
		return 0, errors.Wrap(err, "getting next report number")
	}
	return seq, nil
}

func (repo *reportRepository) queryLines(ctx context.Context, ex core.DBExecutor, reportID string) ([]report.Line, error) {
	var rows []lineRow
	err := ex.SelectContext(ctx, &rows, `SELECT * FROM report_line WHERE report_id = $1 ORDER BY subject_name`, reportID)
	if err != nil {
		return nil, errors.Wrap(err, "querying report lines")
	}
	lines := make([]report.Line, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.line())
	}
	return lines, nil
}
