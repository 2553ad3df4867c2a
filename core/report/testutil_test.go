package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/edusync/edusync/core"
	"github.com/edusync/edusync/core/period"
	"github.com/edusync/edusync/core/report"
	inmemdb "github.com/edusync/edusync/storage/database/inmem"
)

var ctx = context.Background()

type testEnv struct {
	db         *inmemdb.DB
	svc        *report.Service
	repo       report.Repository
	periodRepo period.Repository
	period     period.GradingPeriod
}

func setup(t *testing.T, conf ...*core.Config) *testEnv {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	c := &core.Config{}
	if len(conf) > 0 {
		c = conf[0]
	}

	repo := inmemdb.NewReportRepository(db)
	periodRepo := inmemdb.NewPeriodRepository(db)
	svc := report.NewService(
		db,
		repo,
		periodRepo,
		inmemdb.NewAssessmentSource(db),
		inmemdb.NewSubjectSource(db),
		inmemdb.NewEnrollmentSource(db),
		inmemdb.NewAttendanceSource(db),
		c,
		core.NopLogger{},
	)

	per, err := periodRepo.CreatePeriod(ctx, period.GradingPeriod{
		Name:           "Trimester 1",
		Code:           "T1-2026",
		StartDate:      date(2026, 9, 1),
		EndDate:        date(2026, 11, 30),
		SchoolYear:     "2026-2027",
		EducationLevel: period.LevelMiddleSchool,
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	return &testEnv{db: db, svc: svc, repo: repo, periodRepo: periodRepo, period: per}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (env *testEnv) createReport(t *testing.T, studentID, studentName string) report.Report {
	t.Helper()

	rep, err := env.svc.Create(ctx, report.NewReport{
		StudentID:   studentID,
		StudentName: studentName,
		CohortID:    "cohort-6a",
		CourseID:    "course-6",
		PeriodID:    env.period.ID,
	})
	if err != nil {
		t.Fatalf("createReport() failed: %v", err)
	}
	return rep
}

// seedTwoSubjectScores sets up the standard two-subject cohort fixture:
// math (coefficient 3) and english (coefficient 2), with one composition
// each for the given student.
func (env *testEnv) seedTwoSubjectScores(studentID string, mathScore, engScore float64) {
	env.db.SeedAssessments(
		report.Assessment{
			StudentID: studentID, SubjectID: "math", CohortID: "cohort-6a",
			Date: date(2026, 10, 1), Kind: "Composition", Score: mathScore, MaxScore: 20,
		},
		report.Assessment{
			StudentID: studentID, SubjectID: "eng", CohortID: "cohort-6a",
			Date: date(2026, 10, 2), Kind: "Composition", Score: engScore, MaxScore: 20,
		},
	)
}

func (env *testEnv) seedSubjects() {
	env.db.SeedSubjects(
		report.Subject{ID: "math", Name: "Mathematics", Coefficient: 3},
		report.Subject{ID: "eng", Name: "English", Coefficient: 2},
	)
}
