package report_test

import (
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/edusync/edusync/core"
	"github.com/edusync/edusync/core/report"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func Test_Service_Create(t *testing.T) {
	env := setup(t)

	rep := env.createReport(t, "student-a", "Alice")
	if rep.State != report.StateDraft {
		t.Errorf("State = %v, want draft", rep.State)
	}
	if rep.Decision != report.DecisionPending {
		t.Errorf("Decision = %v, want pending", rep.Decision)
	}
	if !strings.HasPrefix(rep.Number, "BUL/2026/") {
		t.Errorf("Number = %q, want BUL/2026/ prefix", rep.Number)
	}

	// numbers are sequential within a year
	rep2 := env.createReport(t, "student-b", "Bob")
	if rep2.Number == rep.Number {
		t.Errorf("Number = %q, want a fresh sequence value", rep2.Number)
	}

	t.Run("unknown period", func(t *testing.T) {
		_, err := env.svc.Create(ctx, report.NewReport{
			StudentID: "student-c", CohortID: "cohort-6a", CourseID: "course-6", PeriodID: "nope",
		})
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Create() error = %v, want ValidationError", err)
		}
	})

	t.Run("duplicate active report", func(t *testing.T) {
		_, err := env.svc.Create(ctx, report.NewReport{
			StudentID: "student-a", CohortID: "cohort-6a", CourseID: "course-6", PeriodID: env.period.ID,
		})
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Create() error = %v, want ValidationError", err)
		}
	})

	t.Run("archived copy frees the slot", func(t *testing.T) {
		if _, err := env.svc.Archive(ctx, rep.ID); err != nil {
			t.Fatalf("Archive() failed: %v", err)
		}
		if _, err := env.svc.Create(ctx, report.NewReport{
			StudentID: "student-a", CohortID: "cohort-6a", CourseID: "course-6", PeriodID: env.period.ID,
		}); err != nil {
			t.Errorf("Create() after archive failed: %v", err)
		}
	})
}

func Test_Service_Calculate(t *testing.T) {
	env := setup(t)
	env.seedSubjects()
	env.seedTwoSubjectScores("student-a", 15, 10)
	env.db.SeedAttendance(
		report.AttendanceRecord{StudentID: "student-a", Date: date(2026, 10, 1), Present: true},
		report.AttendanceRecord{StudentID: "student-a", Date: date(2026, 10, 2), Present: true, Late: true},
		report.AttendanceRecord{StudentID: "student-a", Date: date(2026, 10, 3), Present: false},
		report.AttendanceRecord{StudentID: "student-a", Date: date(2026, 10, 4), Present: true},
		// outside the period window; ignored
		report.AttendanceRecord{StudentID: "student-a", Date: date(2026, 12, 25), Present: false},
	)

	rep := env.createReport(t, "student-a", "Alice")
	rep, err := env.svc.Calculate(ctx, rep.ID, report.CalculateOptions{})
	if err != nil {
		t.Fatalf("Calculate() failed: %v", err)
	}

	if rep.State != report.StateCalculated {
		t.Errorf("State = %v, want calculated", rep.State)
	}
	if len(rep.Lines) != 2 {
		t.Fatalf("len(Lines) = %d, want 2", len(rep.Lines))
	}
	if !almostEqual(rep.OverallAverage, 13) {
		t.Errorf("OverallAverage = %v, want 13", rep.OverallAverage)
	}
	if rep.Rank != 1 || rep.CohortSize != 1 {
		t.Errorf("Rank/CohortSize = %d/%d, want 1/1", rep.Rank, rep.CohortSize)
	}
	if rep.TotalSessions != 4 || rep.TotalAbsences != 1 || rep.TotalLateness != 1 {
		t.Errorf("attendance = %d/%d/%d, want 4/1/1", rep.TotalSessions, rep.TotalAbsences, rep.TotalLateness)
	}
	if !almostEqual(rep.PresenceRate, 75) {
		t.Errorf("PresenceRate = %v, want 75", rep.PresenceRate)
	}
	for _, line := range rep.Lines {
		switch line.SubjectID {
		case "math":
			if !almostEqual(line.Average, 15) || line.Remark != "good" {
				t.Errorf("math line = %v/%q, want 15/good", line.Average, line.Remark)
			}
		case "eng":
			if !almostEqual(line.Average, 10) || line.Remark != "passing" {
				t.Errorf("eng line = %v/%q, want 10/passing", line.Average, line.Remark)
			}
		}
	}

	t.Run("recalculation replaces lines", func(t *testing.T) {
		again, err := env.svc.Calculate(ctx, rep.ID, report.CalculateOptions{})
		if err != nil {
			t.Fatalf("Calculate() failed: %v", err)
		}
		if len(again.Lines) != 2 {
			t.Errorf("len(Lines) = %d, want 2", len(again.Lines))
		}
		if !almostEqual(again.OverallAverage, rep.OverallAverage) {
			t.Errorf("OverallAverage changed on idempotent recalculation: %v != %v", again.OverallAverage, rep.OverallAverage)
		}
	})
}

func Test_Service_Calculate_noData(t *testing.T) {
	env := setup(t)
	env.seedSubjects()
	// scores for math only; english has no finalized assessments
	env.db.SeedAssessments(report.Assessment{
		StudentID: "student-a", SubjectID: "math", CohortID: "cohort-6a",
		Date: date(2026, 10, 1), Kind: "Test", Score: 14, MaxScore: 20,
	})

	rep := env.createReport(t, "student-a", "Alice")
	rep, err := env.svc.Calculate(ctx, rep.ID, report.CalculateOptions{})
	if err != nil {
		t.Fatalf("Calculate() failed: %v", err)
	}

	var engLine report.Line
	for _, line := range rep.Lines {
		if line.SubjectID == "eng" {
			engLine = line
		}
	}
	if !engLine.NoData {
		t.Error("eng line NoData = false, want true")
	}
	if engLine.Average != 0 {
		t.Errorf("eng line Average = %v, want 0", engLine.Average)
	}
	// the empty subject still weighs into the overall average
	if !almostEqual(rep.OverallAverage, 14*3/5.0) {
		t.Errorf("OverallAverage = %v, want %v", rep.OverallAverage, 14*3/5.0)
	}
}

func Test_Service_Calculate_demoMode(t *testing.T) {
	env := setup(t, &core.Config{DemoDataMode: true})
	env.seedSubjects()

	rep := env.createReport(t, "student-a", "Alice")
	rep, err := env.svc.Calculate(ctx, rep.ID, report.CalculateOptions{})
	if err != nil {
		t.Fatalf("Calculate() failed: %v", err)
	}
	for _, line := range rep.Lines {
		if line.NoData {
			t.Errorf("%s line NoData = true, want demo marks", line.SubjectID)
		}
		if line.Average < 8 || line.Average >= 16 {
			t.Errorf("%s line Average = %v, want demo range [8, 16)", line.SubjectID, line.Average)
		}
	}
}

func Test_Service_lifecycle(t *testing.T) {
	env := setup(t)
	env.seedSubjects()
	env.seedTwoSubjectScores("student-a", 15, 10)

	rep := env.createReport(t, "student-a", "Alice")

	// draft cannot be validated or published
	if _, err := env.svc.Validate(ctx, rep.ID, "director"); errors.Cause(err) != report.ErrInvalidTransition {
		t.Errorf("Validate() on draft error = %v, want ErrInvalidTransition", err)
	}
	if _, err := env.svc.Publish(ctx, rep.ID, "director"); errors.Cause(err) != report.ErrInvalidTransition {
		t.Errorf("Publish() on draft error = %v, want ErrInvalidTransition", err)
	}

	rep, err := env.svc.Calculate(ctx, rep.ID, report.CalculateOptions{})
	if err != nil {
		t.Fatalf("Calculate() failed: %v", err)
	}

	rep, err = env.svc.Validate(ctx, rep.ID, "director")
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if rep.State != report.StateValidated {
		t.Errorf("State = %v, want validated", rep.State)
	}
	if rep.ValidatedBy != "director" || rep.FinalizedAt.IsZero() {
		t.Errorf("ValidatedBy/FinalizedAt not stamped: %q/%v", rep.ValidatedBy, rep.FinalizedAt)
	}

	// validated cannot be validated again
	if _, err = env.svc.Validate(ctx, rep.ID, "director"); errors.Cause(err) != report.ErrInvalidTransition {
		t.Errorf("Validate() twice error = %v, want ErrInvalidTransition", err)
	}

	rep, err = env.svc.Publish(ctx, rep.ID, "director")
	if err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	if rep.State != report.StatePublished || rep.PublishedBy != "director" {
		t.Errorf("State/PublishedBy = %v/%q, want published/director", rep.State, rep.PublishedBy)
	}

	rep, err = env.svc.Archive(ctx, rep.ID)
	if err != nil {
		t.Fatalf("Archive() failed: %v", err)
	}
	if rep.State != report.StateArchived {
		t.Errorf("State = %v, want archived", rep.State)
	}

	// archived reports are frozen
	if _, err = env.svc.Calculate(ctx, rep.ID, report.CalculateOptions{}); errors.Cause(err) != report.ErrInvalidTransition {
		t.Errorf("Calculate() on archived error = %v, want ErrInvalidTransition", err)
	}
}

func Test_Service_ResetToDraft(t *testing.T) {
	env := setup(t)
	env.seedSubjects()
	env.seedTwoSubjectScores("student-a", 15, 10)

	rep := env.createReport(t, "student-a", "Alice")
	rep, err := env.svc.Calculate(ctx, rep.ID, report.CalculateOptions{})
	if err != nil {
		t.Fatalf("Calculate() failed: %v", err)
	}
	if _, err = env.svc.Validate(ctx, rep.ID, "director"); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	rep, err = env.svc.ResetToDraft(ctx, rep.ID)
	if err != nil {
		t.Fatalf("ResetToDraft() failed: %v", err)
	}
	if rep.State != report.StateDraft {
		t.Errorf("State = %v, want draft", rep.State)
	}
	if len(rep.Lines) != 0 {
		t.Errorf("len(Lines) = %d, want 0", len(rep.Lines))
	}
	if rep.OverallAverage != 0 || rep.Rank != 0 || rep.CohortAverage != 0 {
		t.Errorf("computed figures survived reset: %v/%d/%v", rep.OverallAverage, rep.Rank, rep.CohortAverage)
	}
	if rep.ValidatedBy != "" || !rep.FinalizedAt.IsZero() {
		t.Errorf("validation stamps survived reset: %q/%v", rep.ValidatedBy, rep.FinalizedAt)
	}
}

func Test_Service_SaveManual(t *testing.T) {
	env := setup(t)
	env.seedSubjects()
	env.seedTwoSubjectScores("student-a", 15, 10)

	rep := env.createReport(t, "student-a", "Alice")
	if _, err := env.svc.Calculate(ctx, rep.ID, report.CalculateOptions{}); err != nil {
		t.Fatalf("Calculate() failed: %v", err)
	}

	avg := 17.5
	remark := "  remarkable term  "
	rep, err := env.svc.SaveManual(ctx, rep.ID, report.ManualSave{
		OverallAverage: &avg,
		OverallRemark:  &remark,
	})
	if err != nil {
		t.Fatalf("SaveManual() failed: %v", err)
	}
	if !rep.ManuallyEdited {
		t.Error("ManuallyEdited = false, want true")
	}
	if !almostEqual(rep.OverallAverage, 17.5) {
		t.Errorf("OverallAverage = %v, want 17.5", rep.OverallAverage)
	}
	if rep.OverallRemark != "remarkable term" {
		t.Errorf("OverallRemark = %q, want cleaned string", rep.OverallRemark)
	}

	// a plain recalculation must not wipe manual edits
	if _, err = env.svc.Calculate(ctx, rep.ID, report.CalculateOptions{}); errors.Cause(err) != report.ErrManualOverride {
		t.Errorf("Calculate() error = %v, want ErrManualOverride", err)
	}

	// forcing recomputes and clears the flag
	rep, err = env.svc.Calculate(ctx, rep.ID, report.CalculateOptions{Force: true})
	if err != nil {
		t.Fatalf("Calculate(force) failed: %v", err)
	}
	if rep.ManuallyEdited {
		t.Error("ManuallyEdited = true after forced recalculation, want false")
	}
	if !almostEqual(rep.OverallAverage, 13) {
		t.Errorf("OverallAverage = %v, want 13", rep.OverallAverage)
	}
}

func Test_Service_Delete(t *testing.T) {
	env := setup(t)
	env.seedSubjects()

	rep := env.createReport(t, "student-a", "Alice")
	if err := env.svc.Delete(ctx, rep.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := env.svc.GetByID(ctx, rep.ID); errors.Cause(err) != report.ErrNotFound {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	rep = env.createReport(t, "student-b", "Bob")
	if _, err := env.svc.Calculate(ctx, rep.ID, report.CalculateOptions{}); err != nil {
		t.Fatalf("Calculate() failed: %v", err)
	}
	if err := env.svc.Delete(ctx, rep.ID); errors.Cause(err) != report.ErrDeletionNotAllowed {
		t.Errorf("Delete() on calculated error = %v, want ErrDeletionNotAllowed", err)
	}
}

func Test_Service_cohortRanking(t *testing.T) {
	env := setup(t)
	env.seedSubjects()
	env.seedTwoSubjectScores("student-a", 15, 10) // overall 13
	env.seedTwoSubjectScores("student-b", 8, 18)  // overall 12

	repA := env.createReport(t, "student-a", "Alice")
	repB := env.createReport(t, "student-b", "Bob")

	if _, err := env.svc.Calculate(ctx, repA.ID, report.CalculateOptions{}); err != nil {
		t.Fatalf("Calculate(A) failed: %v", err)
	}
	if _, err := env.svc.Calculate(ctx, repB.ID, report.CalculateOptions{}); err != nil {
		t.Fatalf("Calculate(B) failed: %v", err)
	}

	repA, err := env.svc.GetByID(ctx, repA.ID)
	if err != nil {
		t.Fatalf("GetByID(A) failed: %v", err)
	}
	repB, err = env.svc.GetByID(ctx, repB.ID)
	if err != nil {
		t.Fatalf("GetByID(B) failed: %v", err)
	}

	if repA.Rank != 1 || repB.Rank != 2 {
		t.Errorf("ranks = %d/%d, want 1/2", repA.Rank, repB.Rank)
	}
	if !almostEqual(repA.CohortAverage, 12.5) || !almostEqual(repB.CohortAverage, 12.5) {
		t.Errorf("cohort averages = %v/%v, want 12.5", repA.CohortAverage, repB.CohortAverage)
	}
	if repA.CohortSize != 2 || repB.CohortSize != 2 {
		t.Errorf("cohort sizes = %d/%d, want 2", repA.CohortSize, repB.CohortSize)
	}

	t.Run("archiving shrinks the ranking set", func(t *testing.T) {
		if _, err := env.svc.Archive(ctx, repA.ID); err != nil {
			t.Fatalf("Archive(A) failed: %v", err)
		}
		repB, err := env.svc.GetByID(ctx, repB.ID)
		if err != nil {
			t.Fatalf("GetByID(B) failed: %v", err)
		}
		if repB.Rank != 1 || repB.CohortSize != 1 {
			t.Errorf("Rank/CohortSize = %d/%d after archive, want 1/1", repB.Rank, repB.CohortSize)
		}
		if !almostEqual(repB.CohortAverage, 12) {
			t.Errorf("CohortAverage = %v after archive, want 12", repB.CohortAverage)
		}
	})
}
