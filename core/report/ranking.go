package report

import "sort"

// Cohort ranking: rank and mean are relative figures derived from the set
// of qualifying reports of one (cohort, period); they are recomputed from
// scratch and written back as denormalized snapshots whenever any report in
// the scope changes, never patched incrementally.

// RankReports sets Rank, CohortSize and CohortAverage on every given report
// and returns the cohort mean. Rank is the 1-based position when sorting by
// overall average descending; ties keep their input order (first seen wins —
// a documented, deliberately unclever tie-break).
func RankReports(reports []*Report) (cohortMean float64) {
	if len(reports) == 0 {
		return 0
	}

	var sum float64
	for _, r := range reports {
		sum += r.OverallAverage
	}
	cohortMean = sum / float64(len(reports))

	ranked := make([]*Report, len(reports))
	copy(ranked, reports)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OverallAverage > ranked[j].OverallAverage
	})

	for i, r := range ranked {
		r.Rank = i + 1
		r.CohortSize = len(reports)
		r.CohortAverage = cohortMean
	}
	return cohortMean
}

// RankSubjects sets SubjectRank and SubjectCohortAverage on every line of
// the given reports, scoped per subject across the cohort. Same ordering
// and tie-break rules as RankReports.
func RankSubjects(reports []*Report) {
	bySubject := make(map[string][]*Line)
	for _, r := range reports {
		for i := range r.Lines {
			line := &r.Lines[i]
			bySubject[line.SubjectID] = append(bySubject[line.SubjectID], line)
		}
	}

	for _, lines := range bySubject {
		var sum float64
		for _, l := range lines {
			sum += l.Average
		}
		mean := sum / float64(len(lines))

		ranked := make([]*Line, len(lines))
		copy(ranked, lines)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Average > ranked[j].Average
		})
		for i, l := range ranked {
			l.SubjectRank = i + 1
			l.SubjectCohortAverage = mean
		}
	}
}
