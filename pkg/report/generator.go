package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coolbeans/lextime/pkg/ingest"
	"github.com/coolbeans/lextime/pkg/types"
)

const (
	highSeverityFloor  = 0.8
	lowConfidenceCeil  = 0.6
	diffLineLimit      = 5
	snippetCitationCap = 200
)

// Generator builds safety cards and writes them as JSON artifacts under an
// output directory.
type Generator struct {
	outputDir string
	now       func() time.Time
}

// NewGenerator returns a generator writing under outputDir/json.
func NewGenerator(outputDir string) *Generator {
	return &Generator{outputDir: outputDir, now: time.Now}
}

// GenerateCard builds a safety card for a section from its norms, the
// conflicts involving them, and (optionally) the section versions for a
// textual diff.
func (g *Generator) GenerateCard(sectionID, corpusName string, norms []*types.Norm, conflicts []*types.Conflict, sections []ingest.LegalSection) *SafetyCard {
	versions := make(map[string]struct{})
	for _, n := range norms {
		versions[n.VersionID] = struct{}{}
	}

	highSeverity := 0
	for _, c := range conflicts {
		if c.Severity >= highSeverityFloor {
			highSeverity++
		}
	}

	return &SafetyCard{
		CardID:        uuid.NewString(),
		SectionID:     sectionID,
		CorpusName:    corpusName,
		VersionDiff:   versionDiff(sections),
		Timeline:      buildTimeline(norms, conflicts),
		Conflicts:     conflicts,
		ResidualRisks: residualRisks(norms, conflicts),
		Sources:       collectSources(norms),
		Metadata: CardMetadata{
			NormCount:             len(norms),
			ConflictCount:         len(conflicts),
			HighSeverityConflicts: highSeverity,
			VersionsAnalyzed:      len(versions),
		},
		GeneratedAt: g.now(),
	}
}

// versionDiff diffs the oldest version against the newest by effective date.
// Line-level set difference, capped: the card flags what changed, it is not a
// review tool.
func versionDiff(sections []ingest.LegalSection) *VersionDiff {
	if len(sections) < 2 {
		return nil
	}

	ordered := make([]ingest.LegalSection, len(sections))
	copy(ordered, sections)
	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := ordered[i].EffectiveDate, ordered[j].EffectiveDate
		switch {
		case di == nil:
			return true
		case dj == nil:
			return false
		default:
			return di.Before(*dj)
		}
	})

	oldest, newest := ordered[0], ordered[len(ordered)-1]
	return &VersionDiff{
		OldVersionID:    oldest.VersionID,
		NewVersionID:    newest.VersionID,
		AddedText:       lineDifference(newest.Text, oldest.Text),
		RemovedText:     lineDifference(oldest.Text, newest.Text),
		ChangedSections: []string{oldest.SectionID, newest.SectionID},
	}
}

// lineDifference returns the first few lines present in a but not in b.
func lineDifference(a, b string) string {
	present := make(map[string]struct{})
	for _, line := range strings.Split(b, "\n") {
		present[line] = struct{}{}
	}

	var diff []string
	for _, line := range strings.Split(a, "\n") {
		if _, ok := present[line]; ok {
			continue
		}
		diff = append(diff, line)
		if len(diff) == diffLineLimit {
			break
		}
	}
	return strings.Join(diff, "\n")
}

// buildTimeline groups norms by effective span and attaches the conflicts
// whose overlap matches a span. Phases are sorted by span for deterministic
// cards.
func buildTimeline(norms []*types.Norm, conflicts []*types.Conflict) []TimelinePhase {
	type phaseData struct {
		start *time.Time
		end   *time.Time
		norms []string
		confs []string
	}

	spanKey := func(start, end *time.Time) string {
		s, e := "unknown", "ongoing"
		if start != nil {
			s = start.Format("2006-01-02")
		}
		if end != nil {
			e = end.Format("2006-01-02")
		}
		return s + " to " + e
	}

	phases := make(map[string]*phaseData)
	for _, n := range norms {
		if n.EffectiveStart == nil {
			continue
		}
		key := spanKey(n.EffectiveStart, n.EffectiveEnd)
		p, ok := phases[key]
		if !ok {
			p = &phaseData{start: n.EffectiveStart, end: n.EffectiveEnd}
			phases[key] = p
		}
		p.norms = append(p.norms, n.SourceID)
	}

	for _, c := range conflicts {
		if c.OverlapInterval == nil {
			continue
		}
		key := spanKey(c.OverlapInterval.Start, c.OverlapInterval.End)
		if p, ok := phases[key]; ok {
			p.confs = append(p.confs, c.ConflictID)
		}
	}

	keys := make([]string, 0, len(phases))
	for k := range phases {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	timeline := make([]TimelinePhase, 0, len(keys))
	for _, k := range keys {
		p := phases[k]
		timeline = append(timeline, TimelinePhase{
			PhaseName: k,
			Interval: types.TemporalInterval{
				Start:     p.start,
				End:       p.end,
				Type:      types.IntervalClosed,
				OpenEnded: p.end == nil,
			},
			ApplicableNorms: p.norms,
			Conflicts:       p.confs,
		})
	}
	return timeline
}

// residualRisks lists what the automated pass could not settle.
func residualRisks(norms []*types.Norm, conflicts []*types.Conflict) []string {
	risks := make([]string, 0)

	uncertain := 0
	withExceptions := 0
	for _, n := range norms {
		if n.TemporalInterval != nil && n.TemporalInterval.Uncertain {
			uncertain++
		}
		if len(n.Exceptions) > 0 {
			withExceptions++
		}
	}
	if uncertain > 0 {
		risks = append(risks, fmt.Sprintf("Temporal uncertainty in %d norm(s)", uncertain))
	}

	unresolved := 0
	lowConfidence := 0
	conditionConflicts := 0
	for _, c := range conflicts {
		if c.Resolution == nil {
			unresolved++
		} else if c.Resolution.Confidence < lowConfidenceCeil {
			lowConfidence++
		}
		if c.ConflictType == types.ConflictConditionInconsistency {
			conditionConflicts++
		}
	}
	if unresolved > 0 {
		risks = append(risks, fmt.Sprintf("%d conflict(s) without resolution", unresolved))
	}
	if lowConfidence > 0 {
		risks = append(risks, fmt.Sprintf("%d low-confidence resolution(s)", lowConfidence))
	}
	if withExceptions >= 2 {
		risks = append(risks, "Multiple norms with different exceptions - potential gaps")
	}
	if conditionConflicts > 0 {
		risks = append(risks, fmt.Sprintf("%d condition inconsistency(ies) detected", conditionConflicts))
	}
	return risks
}

// collectSources lists the distinct (source, version) pairs the norms came
// from, with a truncated snippet.
func collectSources(norms []*types.Norm) []SourceCitation {
	seen := make(map[string]struct{})
	sources := make([]SourceCitation, 0)
	for _, n := range norms {
		key := n.SourceID + "\x00" + n.VersionID
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		snippet := n.TextSnippet
		if len(snippet) > snippetCitationCap {
			snippet = snippet[:snippetCitationCap]
		}
		sources = append(sources, SourceCitation{
			SourceID:    n.SourceID,
			VersionID:   n.VersionID,
			TextSnippet: snippet,
		})
	}
	return sources
}

// SaveCardJSON writes the card under <outputDir>/json/<section_id>.json.
func (g *Generator) SaveCardJSON(card *SafetyCard) (string, error) {
	dir := filepath.Join(g.outputDir, "json")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(dir, card.SectionID+".json")
	data, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding card: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Render writes a compact plain-text view of the card for terminal output.
func Render(card *SafetyCard) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Safety Card %s\n", card.CardID)
	fmt.Fprintf(&sb, "Section: %s (corpus %s)\n", card.SectionID, card.CorpusName)
	fmt.Fprintf(&sb, "Norms: %d | Conflicts: %d (%d high severity) | Versions: %d\n",
		card.Metadata.NormCount, card.Metadata.ConflictCount,
		card.Metadata.HighSeverityConflicts, card.Metadata.VersionsAnalyzed)

	if card.VersionDiff != nil {
		fmt.Fprintf(&sb, "Versions: %s -> %s\n",
			card.VersionDiff.OldVersionID, card.VersionDiff.NewVersionID)
	}
	if len(card.Timeline) > 0 {
		sb.WriteString("Timeline:\n")
		for _, phase := range card.Timeline {
			fmt.Fprintf(&sb, "  %s: %d norm(s), %d conflict(s)\n",
				phase.PhaseName, len(phase.ApplicableNorms), len(phase.Conflicts))
		}
	}
	if len(card.ResidualRisks) > 0 {
		sb.WriteString("Residual risks:\n")
		for _, risk := range card.ResidualRisks {
			fmt.Fprintf(&sb, "  - %s\n", risk)
		}
	}
	return sb.String()
}
