package report

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidScale is returned for a raw result whose maximum score is not positive.
var ErrInvalidScale = errors.New("invalid score scale: maximum score must be positive")

// EvaluationKind buckets a graded activity for the per-kind averages shown
// on a report line.
type EvaluationKind string

const (
	KindHomework    EvaluationKind = "homework"
	KindComposition EvaluationKind = "composition"
	KindTest        EvaluationKind = "test"
	KindOral        EvaluationKind = "oral"
	KindPractical   EvaluationKind = "practical"
)

var EvaluationKinds = []EvaluationKind{KindHomework, KindComposition, KindTest, KindOral, KindPractical}

// kindMarkers maps case-insensitive substrings of evaluation-kind labels to
// their bucket. Checked in order; first match wins.
var kindMarkers = []struct {
	marker string
	kind   EvaluationKind
}{
	{"homework", KindHomework},
	{"composition", KindComposition},
	{"test", KindTest},
	{"quiz", KindTest},
	{"oral", KindOral},
	{"practical", KindPractical},
}

// ClassifyKind buckets a free-text evaluation-kind label. Unrecognized
// labels fall back to the homework bucket; that fallback is policy (labels
// come from an external system and cannot be constrained here).
func ClassifyKind(label string) EvaluationKind {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, m := range kindMarkers {
		if strings.Contains(label, m.marker) {
			return m.kind
		}
	}
	return KindHomework
}

// NormalizeScore converts a raw score out of maxScore onto the common /20
// scale. Fails with ErrInvalidScale when maxScore <= 0.
func NormalizeScore(score, maxScore float64) (float64, error) {
	if maxScore <= 0 {
		return 0, ErrInvalidScale
	}
	return score / maxScore * 20, nil
}
