package report_test

import (
	"fmt"
	"testing"

	"github.com/edusync/edusync/core/report"
)

func Test_Service_Statistics(t *testing.T) {
	env := setup(t)
	env.seedSubjects()

	// seven graded students with spread-out profiles, one untouched draft
	mathScores := []float64{18, 17, 16.5, 13, 11, 6, 4}
	for i, score := range mathScores {
		id := fmt.Sprintf("student-%d", i+1)
		env.seedTwoSubjectScores(id, score, score)
		rep := env.createReport(t, id, fmt.Sprintf("Student %d", i+1))
		if _, err := env.svc.Calculate(ctx, rep.ID, report.CalculateOptions{}); err != nil {
			t.Fatalf("Calculate() failed: %v", err)
		}
	}
	env.createReport(t, "student-draft", "Drafty")

	stats, err := env.svc.Statistics(ctx, report.StatsFilter{CohortID: "cohort-6a", PeriodID: env.period.ID})
	if err != nil {
		t.Fatalf("Statistics() failed: %v", err)
	}

	if stats.Total != 8 {
		t.Errorf("Total = %d, want 8", stats.Total)
	}
	if stats.ByState[report.StateCalculated] != 7 || stats.ByState[report.StateDraft] != 1 {
		t.Errorf("ByState = %+v, want 7 calculated and 1 draft", stats.ByState)
	}

	// mean over positive averages only: both subjects share the score, so
	// each overall average equals its math score
	wantMean := (18 + 17 + 16.5 + 13 + 11 + 6 + 4) / 7.0
	if !almostEqual(stats.Mean, wantMean) {
		t.Errorf("Mean = %v, want %v", stats.Mean, wantMean)
	}

	// top: averages >= 16, best first
	if len(stats.TopStudents) != 3 {
		t.Fatalf("len(TopStudents) = %d, want 3", len(stats.TopStudents))
	}
	if stats.TopStudents[0].StudentID != "student-1" || !almostEqual(stats.TopStudents[0].Average, 18) {
		t.Errorf("TopStudents[0] = %+v, want student-1 at 18", stats.TopStudents[0])
	}
	if stats.TopStudents[2].StudentID != "student-3" {
		t.Errorf("TopStudents[2] = %+v, want student-3", stats.TopStudents[2])
	}

	// bottom: averages < 10 (but > 0), worst first
	if len(stats.BottomStudents) != 2 {
		t.Fatalf("len(BottomStudents) = %d, want 2", len(stats.BottomStudents))
	}
	if stats.BottomStudents[0].StudentID != "student-7" || !almostEqual(stats.BottomStudents[0].Average, 4) {
		t.Errorf("BottomStudents[0] = %+v, want student-7 at 4", stats.BottomStudents[0])
	}

	// per-subject aggregates
	if len(stats.Subjects) != 2 {
		t.Fatalf("len(Subjects) = %d, want 2", len(stats.Subjects))
	}
	for _, ss := range stats.Subjects {
		if ss.Count != 7 {
			t.Errorf("subject %s Count = %d, want 7", ss.SubjectID, ss.Count)
		}
		if !almostEqual(ss.Min, 4) || !almostEqual(ss.Max, 18) {
			t.Errorf("subject %s Min/Max = %v/%v, want 4/18", ss.SubjectID, ss.Min, ss.Max)
		}
		if !almostEqual(ss.Mean, wantMean) {
			t.Errorf("subject %s Mean = %v, want %v", ss.SubjectID, ss.Mean, wantMean)
		}
	}

	t.Run("state filter", func(t *testing.T) {
		stats, err := env.svc.Statistics(ctx, report.StatsFilter{
			CohortID: "cohort-6a", PeriodID: env.period.ID, State: report.StateDraft,
		})
		if err != nil {
			t.Fatalf("Statistics() failed: %v", err)
		}
		if stats.Total != 1 || stats.ByState[report.StateDraft] != 1 || stats.ByState[report.StateCalculated] != 0 {
			t.Errorf("stats = %+v, want only the draft report", stats)
		}
		if len(stats.Subjects) != 0 {
			t.Errorf("Subjects = %+v, want none for a draft-only scope", stats.Subjects)
		}
	})
}

func Test_Service_Statistics_empty(t *testing.T) {
	env := setup(t)

	stats, err := env.svc.Statistics(ctx, report.StatsFilter{CohortID: "cohort-empty"})
	if err != nil {
		t.Fatalf("Statistics() failed: %v", err)
	}
	if stats.Total != 0 || stats.Mean != 0 {
		t.Errorf("stats = %+v, want zero values", stats)
	}
	if len(stats.TopStudents) != 0 || len(stats.BottomStudents) != 0 || len(stats.Subjects) != 0 {
		t.Errorf("stats lists not empty: %+v", stats)
	}
}
