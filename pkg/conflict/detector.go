// Package conflict detects temporal-deontic conflicts between norms drawn
// from different versions of a legal text.
package conflict

import (
	"fmt"
	"sort"
	"time"

	"github.com/coolbeans/lextime/pkg/types"
)

// Backend is the detection contract. The heuristic Detector is the default
// implementation; an exhaustive (e.g. solver-based) backend can satisfy the
// same contract.
type Backend interface {
	Detect(norms []*types.Norm) []*types.Conflict
}

// Detector finds pairwise conflicts between cross-version norms that
// regulate the same subject and action over overlapping time.
type Detector struct {
	// SeverityThreshold is the minimum severity a finding needs to be
	// reported. The sole contractual tunable.
	SeverityThreshold float64

	// now stamps DetectedAt; overridable in tests.
	now func() time.Time
}

var _ Backend = (*Detector)(nil)

// NewDetector returns a detector with the default severity threshold.
func NewDetector() *Detector {
	return NewDetectorWithThreshold(DefaultSeverityThreshold)
}

// NewDetectorWithThreshold returns a detector reporting only findings at or
// above threshold.
func NewDetectorWithThreshold(threshold float64) *Detector {
	return &Detector{SeverityThreshold: threshold, now: time.Now}
}

type groupKey struct {
	subject string
	action  string
}

// Detect returns every conflict among the given norms, in detection order
// with counter-assigned ids. Groups are processed in sorted key order so the
// output is deterministic regardless of input permutation within a group's
// complement. Empty input yields an empty, non-nil slice.
func (d *Detector) Detect(norms []*types.Norm) []*types.Conflict {
	conflicts := make([]*types.Conflict, 0)
	counter := 0

	groups := groupNorms(norms)
	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].subject != keys[j].subject {
			return keys[i].subject < keys[j].subject
		}
		return keys[i].action < keys[j].action
	})

	for _, key := range keys {
		group := groups[key]
		for i, n1 := range group {
			for _, n2 := range group[i+1:] {
				// Only cross-version pairs are of interest.
				if n1.VersionID == n2.VersionID {
					continue
				}
				found := d.detectPair(n1, n2)
				if found == nil || found.severity < d.SeverityThreshold {
					continue
				}
				c := &types.Conflict{
					ConflictID:      fmt.Sprintf("conflict_%04d", counter),
					ConflictType:    found.kind,
					Norm1:           n1,
					Norm2:           n2,
					OverlapInterval: overlapOf(n1, n2),
					Severity:        found.severity,
					Description:     found.description,
					DetectedAt:      d.now(),
				}
				counter++
				conflicts = append(conflicts, c)
			}
		}
	}

	return conflicts
}

// groupNorms buckets norms by normalized (subject, action).
func groupNorms(norms []*types.Norm) map[groupKey][]*types.Norm {
	groups := make(map[groupKey][]*types.Norm)
	for _, n := range norms {
		subject, action := n.GroupKey()
		k := groupKey{subject: subject, action: action}
		groups[k] = append(groups[k], n)
	}
	return groups
}

type finding struct {
	kind        types.ConflictType
	severity    float64
	description string
}

// detectPair classifies the conflict between two same-group, cross-version
// norms. First match wins: deontic contradiction, then condition
// inconsistency, then exception gap. No temporal contact means no conflict
// regardless of modality.
func (d *Detector) detectPair(n1, n2 *types.Norm) *finding {
	iv1 := n1.EffectiveInterval()
	iv2 := n2.EffectiveInterval()
	if !iv1.Overlaps(iv2) {
		return nil
	}

	if n1.ContradictsModality(n2) {
		overlap := overlapOf(n1, n2)
		return &finding{
			kind:        types.ConflictDeonticContradiction,
			severity:    deonticSeverity(n1, n2, overlap),
			description: describeDeontic(n1, n2, overlap),
		}
	}

	if n1.Modality == n2.Modality && n1.Conditions != n2.Conditions {
		return &finding{
			kind:        types.ConflictConditionInconsistency,
			severity:    conditionSeverity(n1, n2),
			description: describeCondition(n1, n2),
		}
	}

	if hasExceptionGap(n1, n2) {
		return &finding{
			kind:        types.ConflictExceptionGap,
			severity:    ExceptionGapSeverity,
			description: describeExceptionGap(n1, n2),
		}
	}

	return nil
}

func overlapOf(n1, n2 *types.Norm) *types.TemporalInterval {
	iv1 := n1.EffectiveInterval()
	iv2 := n2.EffectiveInterval()
	return iv1.Intersection(iv2)
}

// hasExceptionGap reports whether exception coverage is asymmetric: exactly
// one side carries exceptions, or both do but the sets differ.
func hasExceptionGap(n1, n2 *types.Norm) bool {
	set1 := toSet(n1.Exceptions)
	set2 := toSet(n2.Exceptions)

	if len(set1) > 0 && len(set2) == 0 {
		return true
	}
	if len(set2) > 0 && len(set1) == 0 {
		return true
	}
	if len(set1) > 0 && len(set2) > 0 {
		for e := range set1 {
			if _, ok := set2[e]; !ok {
				return true
			}
		}
		for e := range set2 {
			if _, ok := set1[e]; !ok {
				return true
			}
		}
	}
	return false
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func describeDeontic(n1, n2 *types.Norm, overlap *types.TemporalInterval) string {
	overlapStr := "overlapping period"
	if overlap != nil {
		overlapStr = overlap.String()
	}
	return fmt.Sprintf(
		"Deontic contradiction: '%s' is %s under %s but %s under %s during %s",
		n1.Action, n1.Modality.Phrase(), n1.VersionID,
		n2.Modality.Phrase(), n2.VersionID, overlapStr)
}

func describeCondition(n1, n2 *types.Norm) string {
	return fmt.Sprintf(
		"Condition inconsistency: '%s' has different conditions in %s vs %s",
		n1.Action, n1.VersionID, n2.VersionID)
}

func describeExceptionGap(n1, n2 *types.Norm) string {
	return fmt.Sprintf(
		"Exception gap: '%s' has different exceptions (%d in %s, %d in %s)",
		n1.Action, len(n1.Exceptions), n1.VersionID, len(n2.Exceptions), n2.VersionID)
}

// Filter narrows conflicts by minimum severity and/or conflict types. Nil
// arguments leave that dimension unfiltered.
func Filter(conflicts []*types.Conflict, minSeverity *float64, kinds []types.ConflictType) []*types.Conflict {
	filtered := make([]*types.Conflict, 0, len(conflicts))

	var kindSet map[types.ConflictType]struct{}
	if kinds != nil {
		kindSet = make(map[types.ConflictType]struct{}, len(kinds))
		for _, k := range kinds {
			kindSet[k] = struct{}{}
		}
	}

	for _, c := range conflicts {
		if minSeverity != nil && c.Severity < *minSeverity {
			continue
		}
		if kindSet != nil {
			if _, ok := kindSet[c.ConflictType]; !ok {
				continue
			}
		}
		filtered = append(filtered, c)
	}
	return filtered
}

// Rank orders conflicts by descending severity, breaking ties by ascending
// conflict id. Returns a new slice; the input is not reordered.
func Rank(conflicts []*types.Conflict) []*types.Conflict {
	ranked := make([]*types.Conflict, len(conflicts))
	copy(ranked, conflicts)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Severity != ranked[j].Severity {
			return ranked[i].Severity > ranked[j].Severity
		}
		return ranked[i].ConflictID < ranked[j].ConflictID
	})
	return ranked
}

// Summary aggregates detection statistics.
type Summary struct {
	Total             int                        `json:"total"`
	ByType            map[types.ConflictType]int `json:"by_type"`
	AvgSeverity       float64                    `json:"avg_severity"`
	HighSeverityCount int                        `json:"high_severity_count"`
	SeverityBands     SeverityBands              `json:"severity_distribution"`
}

// SeverityBands counts conflicts per severity band.
type SeverityBands struct {
	Critical int `json:"critical"` // [0.8, 1.0]
	High     int `json:"high"`     // [0.6, 0.8)
	Medium   int `json:"medium"`   // [0.4, 0.6)
	Low      int `json:"low"`      // [0, 0.4)
}

// Summarize computes summary statistics. Empty input returns a zero-valued
// summary with an initialized ByType map.
func Summarize(conflicts []*types.Conflict) Summary {
	s := Summary{ByType: make(map[types.ConflictType]int)}
	s.Total = len(conflicts)
	if s.Total == 0 {
		return s
	}

	var total float64
	for _, c := range conflicts {
		s.ByType[c.ConflictType]++
		total += c.Severity
		switch {
		case c.Severity >= HighSeverity:
			s.SeverityBands.Critical++
		case c.Severity >= 0.6:
			s.SeverityBands.High++
		case c.Severity >= 0.4:
			s.SeverityBands.Medium++
		default:
			s.SeverityBands.Low++
		}
	}
	s.AvgSeverity = total / float64(s.Total)
	s.HighSeverityCount = s.SeverityBands.Critical
	return s
}
