// Package report generates safety cards: audit artifacts summarizing what
// changed between versions of a legal section, which norms apply when, which
// conflicts were detected, and what risks remain.
package report

import (
	"time"

	"github.com/coolbeans/lextime/pkg/types"
)

// VersionDiff summarizes the textual change between the oldest and newest
// analyzed version of a section.
type VersionDiff struct {
	OldVersionID    string   `json:"old_version_id"`
	NewVersionID    string   `json:"new_version_id"`
	AddedText       string   `json:"added_text,omitempty"`
	RemovedText     string   `json:"removed_text,omitempty"`
	ChangedSections []string `json:"changed_sections,omitempty"`
}

// TimelinePhase is one span of the section's effective timeline: the norms in
// force during the span and the conflicts overlapping it.
type TimelinePhase struct {
	PhaseName       string                 `json:"phase_name"`
	Interval        types.TemporalInterval `json:"interval"`
	ApplicableNorms []string               `json:"applicable_norms"`
	Conflicts       []string               `json:"conflicts"`
}

// SourceCitation points back to the text a norm was extracted from.
type SourceCitation struct {
	SourceID    string `json:"source_id"`
	VersionID   string `json:"version_id"`
	TextSnippet string `json:"text_snippet,omitempty"`
}

// CardMetadata carries headline counts for the card.
type CardMetadata struct {
	NormCount             int `json:"norm_count"`
	ConflictCount         int `json:"conflict_count"`
	HighSeverityConflicts int `json:"high_severity_conflicts"`
	VersionsAnalyzed      int `json:"versions_analyzed"`
}

// SafetyCard is the audit artifact for one section of one corpus.
type SafetyCard struct {
	CardID     string `json:"card_id"`
	SectionID  string `json:"section_id"`
	CorpusName string `json:"corpus_name"`

	VersionDiff   *VersionDiff      `json:"version_diff,omitempty"`
	Timeline      []TimelinePhase   `json:"timeline"`
	Conflicts     []*types.Conflict `json:"conflicts"`
	ResidualRisks []string          `json:"residual_risks"`
	Sources       []SourceCitation  `json:"sources"`
	Metadata      CardMetadata      `json:"metadata"`

	GeneratedAt time.Time `json:"generated_at"`
}
