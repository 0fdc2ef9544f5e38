package canon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coolbeans/lextime/pkg/types"
)

// Confidence band boundaries for resolution summaries.
const (
	highConfidenceFloor   = 0.8
	mediumConfidenceFloor = 0.6
)

// ScoredConflict pairs a resolved conflict with its combined ranking score.
type ScoredConflict struct {
	Conflict *types.Conflict `json:"conflict"`
	Score    float64         `json:"score"`
}

// RankResolutions orders resolved conflicts by severity times confidence,
// descending. Unresolved conflicts are skipped.
func RankResolutions(conflicts []*types.Conflict) []ScoredConflict {
	scored := make([]ScoredConflict, 0, len(conflicts))
	for _, c := range conflicts {
		if c.Resolution == nil {
			continue
		}
		scored = append(scored, ScoredConflict{
			Conflict: c,
			Score:    c.Severity * c.Resolution.Confidence,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// ResolutionSummary aggregates resolution statistics.
type ResolutionSummary struct {
	Total            int                 `json:"total"`
	Resolved         int                 `json:"resolved"`
	ByCanon          map[types.Canon]int `json:"by_canon"`
	AvgConfidence    float64             `json:"avg_confidence"`
	HighConfidence   int                 `json:"high_confidence"`   // >= 0.8
	MediumConfidence int                 `json:"medium_confidence"` // [0.6, 0.8)
	LowConfidence    int                 `json:"low_confidence"`    // < 0.6
}

// SummarizeResolutions computes resolution statistics. Empty input returns a
// zero summary with an initialized ByCanon map.
func SummarizeResolutions(conflicts []*types.Conflict) ResolutionSummary {
	s := ResolutionSummary{ByCanon: make(map[types.Canon]int)}
	s.Total = len(conflicts)
	if s.Total == 0 {
		return s
	}

	var total float64
	for _, c := range conflicts {
		if c.Resolution == nil {
			continue
		}
		s.Resolved++
		s.ByCanon[c.Resolution.CanonApplied]++
		total += c.Resolution.Confidence
		switch {
		case c.Resolution.Confidence >= highConfidenceFloor:
			s.HighConfidence++
		case c.Resolution.Confidence >= mediumConfidenceFloor:
			s.MediumConfidence++
		default:
			s.LowConfidence++
		}
	}
	if s.Resolved > 0 {
		s.AvgConfidence = total / float64(s.Resolved)
	}
	return s
}

// Explain renders a deterministic multi-line explanation of a resolved
// conflict: the description, both norms' modality, subject, action, and
// effective window, then the canon, prevailing norm, rationale, and
// confidence.
func Explain(c *types.Conflict) string {
	if c.Resolution == nil {
		return "Conflict not yet resolved."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Conflict: %s\n\n", c.Description))
	writeNorm(&sb, 1, c.Norm1)
	sb.WriteString("\n")
	writeNorm(&sb, 2, c.Norm2)
	sb.WriteString("\nResolution:\n")
	sb.WriteString(fmt.Sprintf("  Canon Applied: %s\n", c.Resolution.CanonApplied))
	sb.WriteString(fmt.Sprintf("  Prevailing Norm: %s\n", c.Resolution.PrevailingNorm))
	sb.WriteString(fmt.Sprintf("  Rationale: %s\n", c.Resolution.Rationale))
	sb.WriteString(fmt.Sprintf("  Confidence: %.2f", c.Resolution.Confidence))
	return sb.String()
}

func writeNorm(sb *strings.Builder, index int, n *types.Norm) {
	sb.WriteString(fmt.Sprintf("Norm %d (%s):\n", index, n.VersionID))
	sb.WriteString(fmt.Sprintf("  Modality: %s\n", n.Modality))
	sb.WriteString(fmt.Sprintf("  Subject: %s\n", n.Subject))
	sb.WriteString(fmt.Sprintf("  Action: %s\n", n.Action))
	sb.WriteString(fmt.Sprintf("  Effective: %s\n", n.EffectiveInterval()))
}
