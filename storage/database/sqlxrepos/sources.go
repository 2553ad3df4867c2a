package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/edusync/edusync/core"
	"github.com/edusync/edusync/core/report"
)

// Read-only sources backing the computation engine. They never write; the
// owning modules (gradebook, enrollment, attendance) maintain these tables.

type assessmentRow struct {
	StudentID   string    `db:"student_id"`
	SubjectID   string    `db:"subject_id"`
	CohortID    string    `db:"cohort_id"`
	Date        time.Time `db:"date"`
	Kind        string    `db:"kind"`
	Coefficient float64   `db:"coefficient"`
	Score       float64   `db:"score"`
	MaxScore    float64   `db:"max_score"`
}

type assessmentSource struct {
	db *sqlx.DB
}

var _ report.AssessmentSource = (*assessmentSource)(nil)

func NewAssessmentSource(db *sqlx.DB) *assessmentSource {
	return &assessmentSource{db: db}
}

func (src *assessmentSource) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return src.db
}

func (src *assessmentSource) QueryFinalized(ctx context.Context, studentID, cohortID string, from, to time.Time, exec ...core.DBExecutor) ([]report.Assessment, error) {
	var rows []assessmentRow
	err := src.getExec(exec).SelectContext(ctx, &rows, `
		SELECT student_id, subject_id, cohort_id, date, kind, coefficient, score, max_score
		FROM assessment
		WHERE student_id = $1 AND cohort_id = $2 AND finalized AND date BETWEEN $3 AND $4
		ORDER BY date`, studentID, cohortID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	assessments := make([]report.Assessment, 0, len(rows))
	for _, row := range rows {
		assessments = append(assessments, report.Assessment{
			StudentID:   row.StudentID,
			SubjectID:   row.SubjectID,
			CohortID:    row.CohortID,
			Date:        row.Date,
			Kind:        row.Kind,
			Coefficient: row.Coefficient,
			Score:       row.Score,
			MaxScore:    row.MaxScore,
		})
	}
	return assessments, nil
}

type subjectSource struct {
	db *sqlx.DB
}

var _ report.SubjectSource = (*subjectSource)(nil)

func NewSubjectSource(db *sqlx.DB) *subjectSource {
	return &subjectSource{db: db}
}

func (src *subjectSource) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return src.db
}

func (src *subjectSource) QueryForCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]report.Subject, error) {
	var rows []struct {
		ID          string  `db:"id"`
		Name        string  `db:"name"`
		Coefficient float64 `db:"coefficient"`
	}
	err := src.getExec(exec).SelectContext(ctx, &rows, `
		SELECT id, name, coefficient FROM subject WHERE course_id = $1 ORDER BY name`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]report.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, report.Subject{ID: row.ID, Name: row.Name, Coefficient: row.Coefficient})
	}
	return subjects, nil
}

type enrollmentSource struct {
	db *sqlx.DB
}

var _ report.EnrollmentSource = (*enrollmentSource)(nil)

func NewEnrollmentSource(db *sqlx.DB) *enrollmentSource {
	return &enrollmentSource{db: db}
}

func (src *enrollmentSource) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return src.db
}

func (src *enrollmentSource) QueryActive(ctx context.Context, cohortID string, exec ...core.DBExecutor) ([]report.Enrollment, error) {
	var rows []struct {
		StudentID   string `db:"student_id"`
		StudentName string `db:"student_name"`
		CourseID    string `db:"course_id"`
	}
	err := src.getExec(exec).SelectContext(ctx, &rows, `
		SELECT student_id, student_name, course_id FROM enrollment
		WHERE cohort_id = $1 AND is_active ORDER BY student_name`, cohortID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]report.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, report.Enrollment{
			StudentID:   row.StudentID,
			StudentName: row.StudentName,
			CourseID:    row.CourseID,
		})
	}
	return enrollments, nil
}

type attendanceSource struct {
	db *sqlx.DB
}

var _ report.AttendanceSource = (*attendanceSource)(nil)

func NewAttendanceSource(db *sqlx.DB) *attendanceSource {
	return &attendanceSource{db: db}
}

func (src *attendanceSource) getExec(exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return src.db
}

func (src *attendanceSource) QueryForStudent(ctx context.Context, studentID string, from, to time.Time, exec ...core.DBExecutor) ([]report.AttendanceRecord, error) {
	var rows []struct {
		StudentID string    `db:"student_id"`
		Date      time.Time `db:"date"`
		Present   bool      `db:"present"`
		Late      bool      `db:"late"`
	}
	err := src.getExec(exec).SelectContext(ctx, &rows, `
		SELECT student_id, date, present, late FROM attendance_record
		WHERE student_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date`, studentID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	records := make([]report.AttendanceRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, report.AttendanceRecord{
			StudentID: row.StudentID,
			Date:      row.Date,
			Present:   row.Present,
			Late:      row.Late,
		})
	}
	return records, nil
}
