package inmemdb

import (
	"context"
	"time"

	"github.com/edusync/edusync/core"
	"github.com/edusync/edusync/core/report"
)

// Seed helpers for tests.

func (db *DB) SeedAssessments(assessments ...report.Assessment) {
	db.srcMutex.Lock()
	defer db.srcMutex.Unlock()
	db.assessments = append(db.assessments, assessments...)
}

func (db *DB) SeedSubjects(subjects ...report.Subject) {
	db.srcMutex.Lock()
	defer db.srcMutex.Unlock()
	db.subjects = append(db.subjects, subjects...)
}

func (db *DB) SeedEnrollments(enrollments ...report.Enrollment) {
	db.srcMutex.Lock()
	defer db.srcMutex.Unlock()
	db.enrollments = append(db.enrollments, enrollments...)
}

func (db *DB) SeedAttendance(records ...report.AttendanceRecord) {
	db.srcMutex.Lock()
	defer db.srcMutex.Unlock()
	db.attendance = append(db.attendance, records...)
}

type assessmentSource struct {
	db *DB
}

func NewAssessmentSource(db *DB) report.AssessmentSource {
	return &assessmentSource{db: db}
}

func (src *assessmentSource) QueryFinalized(ctx context.Context, studentID, cohortID string, from, to time.Time, exec ...core.DBExecutor) ([]report.Assessment, error) {
	src.db.srcMutex.RLock()
	defer src.db.srcMutex.RUnlock()

	assessments := make([]report.Assessment, 0)
	for _, a := range src.db.assessments {
		if a.StudentID != studentID || a.CohortID != cohortID {
			continue
		}
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		assessments = append(assessments, a)
	}
	return assessments, nil
}

type subjectSource struct {
	db *DB
}

func NewSubjectSource(db *DB) report.SubjectSource {
	return &subjectSource{db: db}
}

func (src *subjectSource) QueryForCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]report.Subject, error) {
	src.db.srcMutex.RLock()
	defer src.db.srcMutex.RUnlock()

	subjects := make([]report.Subject, len(src.db.subjects))
	copy(subjects, src.db.subjects)
	return subjects, nil
}

type enrollmentSource struct {
	db *DB
}

func NewEnrollmentSource(db *DB) report.EnrollmentSource {
	return &enrollmentSource{db: db}
}

func (src *enrollmentSource) QueryActive(ctx context.Context, cohortID string, exec ...core.DBExecutor) ([]report.Enrollment, error) {
	src.db.srcMutex.RLock()
	defer src.db.srcMutex.RUnlock()

	enrollments := make([]report.Enrollment, len(src.db.enrollments))
	copy(enrollments, src.db.enrollments)
	return enrollments, nil
}

type attendanceSource struct {
	db *DB
}

func NewAttendanceSource(db *DB) report.AttendanceSource {
	return &attendanceSource{db: db}
}

func (src *attendanceSource) QueryForStudent(ctx context.Context, studentID string, from, to time.Time, exec ...core.DBExecutor) ([]report.AttendanceRecord, error) {
	src.db.srcMutex.RLock()
	defer src.db.srcMutex.RUnlock()

	records := make([]report.AttendanceRecord, 0)
	for _, rec := range src.db.attendance {
		if rec.StudentID != studentID {
			continue
		}
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
