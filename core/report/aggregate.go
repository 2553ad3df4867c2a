package report

import (
	"hash/fnv"
	"math"
)

// Remark thresholds on the /20 scale.
const (
	remarkExcellent    = "excellent"
	remarkGood         = "good"
	remarkSatisfactory = "satisfactory"
	remarkPassing      = "passing"
	remarkInsufficient = "insufficient"
	remarkNoData       = "no assessment data"

	remarkExcellentMin    = 16.0
	remarkGoodMin         = 14.0
	remarkSatisfactoryMin = 12.0
	remarkPassingMin      = 10.0
)

// RemarkFor derives the standard remark for an average.
func RemarkFor(average float64) string {
	switch {
	case average >= remarkExcellentMin:
		return remarkExcellent
	case average >= remarkGoodMin:
		return remarkGood
	case average >= remarkSatisfactoryMin:
		return remarkSatisfactory
	case average >= remarkPassingMin:
		return remarkPassing
	default:
		return remarkInsufficient
	}
}

// SubjectAggregate is the outcome of folding one student's finalized
// assessments for a single subject over a grading period.
type SubjectAggregate struct {
	Homework    float64
	Composition float64
	Test        float64
	Oral        float64
	Practical   float64

	// Average is the coefficient-weighted mean over all individual results
	// regardless of bucket; the authoritative subject number.
	Average float64

	Count    float64
	MinScore float64
	MaxScore float64
	NoData   bool
}

// AggregateSubject normalizes and folds raw results into per-kind bucket
// averages and the weighted subject average. Results with a missing
// coefficient weigh 1.0. Zero results yields a NoData aggregate with
// Average 0 (no marks are ever fabricated here; see DemoAggregate).
func AggregateSubject(results []Assessment) (SubjectAggregate, error) {
	if len(results) == 0 {
		return SubjectAggregate{NoData: true}, nil
	}

	var (
		sums   = make(map[EvaluationKind]float64, len(EvaluationKinds))
		counts = make(map[EvaluationKind]int, len(EvaluationKinds))

		weightedSum, coeffSum float64
		minScore              = math.MaxFloat64
		maxScore              float64
	)
	for _, res := range results {
		normalized, err := NormalizeScore(res.Score, res.MaxScore)
		if err != nil {
			return SubjectAggregate{}, err
		}

		kind := ClassifyKind(res.Kind)
		sums[kind] += normalized
		counts[kind]++

		coeff := res.Coefficient
		if coeff == 0 {
			coeff = 1.0
		}
		weightedSum += normalized * coeff
		coeffSum += coeff

		if normalized < minScore {
			minScore = normalized
		}
		if normalized > maxScore {
			maxScore = normalized
		}
	}

	bucket := func(kind EvaluationKind) float64 {
		if counts[kind] == 0 {
			return 0
		}
		return sums[kind] / float64(counts[kind])
	}

	agg := SubjectAggregate{
		Homework:    bucket(KindHomework),
		Composition: bucket(KindComposition),
		Test:        bucket(KindTest),
		Oral:        bucket(KindOral),
		Practical:   bucket(KindPractical),
		Count:       float64(len(results)),
		MinScore:    minScore,
		MaxScore:    maxScore,
	}
	if coeffSum > 0 {
		agg.Average = weightedSum / coeffSum
	}
	return agg, nil
}

// DemoAggregate builds a deterministic placeholder aggregate for a subject
// with no finalized assessments. Only ever used behind Config.DemoDataMode;
// the same (student, subject) pair always yields the same marks so demo
// environments stay reproducible.
func DemoAggregate(studentID, subjectID string) SubjectAggregate {
	mark := func(salt string) float64 {
		h := fnv.New32a()
		_, _ = h.Write([]byte(studentID))
		_, _ = h.Write([]byte{'/'})
		_, _ = h.Write([]byte(subjectID))
		_, _ = h.Write([]byte{'/'})
		_, _ = h.Write([]byte(salt))
		// spread over [8.0, 16.0) in 0.25 steps
		return 8 + float64(h.Sum32()%32)*0.25
	}

	agg := SubjectAggregate{
		Homework:    mark("homework"),
		Composition: mark("composition"),
		Test:        mark("test"),
	}
	agg.Average = (agg.Homework + agg.Composition + agg.Test) / 3
	agg.MinScore = math.Min(agg.Homework, math.Min(agg.Composition, agg.Test))
	agg.MaxScore = math.Max(agg.Homework, math.Max(agg.Composition, agg.Test))
	return agg
}

// OverallAverage combines a report's lines into the coefficient-weighted
// overall average. Lines with coefficient <= 0 are excluded; 0 when no line
// qualifies.
func OverallAverage(lines []Line) float64 {
	var weightedSum, coeffSum float64
	for i := range lines {
		if lines[i].Coefficient <= 0 {
			continue
		}
		weightedSum += lines[i].Average * lines[i].Coefficient
		coeffSum += lines[i].Coefficient
	}
	if coeffSum <= 0 {
		return 0
	}
	return weightedSum / coeffSum
}
