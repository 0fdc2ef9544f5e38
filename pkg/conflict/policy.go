package conflict

import "github.com/coolbeans/lextime/pkg/types"

// Severity policy. The constants are named and exported so tests can pin the
// exact thresholds and callers can reason about emitted scores.
const (
	// DefaultSeverityThreshold is the minimum severity a pairwise finding
	// needs before it is reported as a conflict.
	DefaultSeverityThreshold = 0.3

	// DeonticBaseSeverity applies to permission-vs-prohibition pairs.
	DeonticBaseSeverity = 0.8
	// DeonticMaxSeverity applies to obligation-vs-prohibition pairs, the
	// maximally severe contradiction.
	DeonticMaxSeverity = 1.0
	// LongOverlapBonus is added when the contradictory overlap lasts more
	// than LongOverlapDays.
	LongOverlapBonus = 0.1
	// LongOverlapDays is the duration past which a contradiction stops
	// looking like a transition artifact.
	LongOverlapDays = 365

	// ConditionBaseSeverity applies to same-modality norms with differing
	// conditions.
	ConditionBaseSeverity = 0.5
	// ConditionSubstantialSeverity applies when both condition strings are
	// long enough to suggest substantive divergence rather than rewording.
	ConditionSubstantialSeverity = 0.7
	// ConditionSubstantialLength is the per-side length proxy for
	// substantive conditions.
	ConditionSubstantialLength = 50

	// ExceptionGapSeverity applies to asymmetric exception coverage.
	ExceptionGapSeverity = 0.6

	// HighSeverity marks the band treated as critical by summaries and the
	// query engine.
	HighSeverity = 0.8
)

// deonticSeverity scores a contradictory-modality pair. The overlap duration
// raises the score when the contradiction persists beyond a transition
// window.
func deonticSeverity(n1, n2 *types.Norm, overlap *types.TemporalInterval) float64 {
	severity := DeonticBaseSeverity
	if (n1.Modality == types.ModalityObligation && n2.Modality == types.ModalityProhibition) ||
		(n1.Modality == types.ModalityProhibition && n2.Modality == types.ModalityObligation) {
		severity = DeonticMaxSeverity
	}
	if overlap != nil {
		if d := overlap.DurationDays(); d != nil && *d > LongOverlapDays {
			severity = clamp1(severity + LongOverlapBonus)
		}
	}
	return severity
}

// conditionSeverity scores a condition inconsistency.
func conditionSeverity(n1, n2 *types.Norm) float64 {
	if len(n1.Conditions) > ConditionSubstantialLength && len(n2.Conditions) > ConditionSubstantialLength {
		return ConditionSubstantialSeverity
	}
	return ConditionBaseSeverity
}

func clamp1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}
