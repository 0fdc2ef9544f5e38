package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultSpecificity is the specificity score assumed when extraction did
// not supply one.
const DefaultSpecificity = 0.5

// Norm represents one deontic statement extracted from one section of one
// version of a legal text. Norms are produced by extraction and
// normalization and are read-only within the engine.
type Norm struct {
	Modality Modality `json:"modality"`
	Subject  string   `json:"subject"`
	Action   string   `json:"action"`

	Object       string   `json:"object,omitempty"`
	Conditions   string   `json:"conditions,omitempty"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
	Exceptions   []string `json:"exceptions,omitempty"`

	EffectiveStart   *time.Time        `json:"effective_start,omitempty"`
	EffectiveEnd     *time.Time        `json:"effective_end,omitempty"`
	TemporalInterval *TemporalInterval `json:"temporal_interval,omitempty"`

	SourceID       string         `json:"source_id"`
	VersionID      string         `json:"version_id"`
	AuthorityLevel AuthorityLevel `json:"authority_level"`
	EnactmentDate  *time.Time     `json:"enactment_date,omitempty"`

	TextSnippet      string  `json:"text_snippet,omitempty"`
	SpecificityScore float64 `json:"specificity_score"`
}

// UnmarshalJSON applies wire defaults (authority level statute, specificity
// 0.5) and validates enum fields. Invalid modality or authority values are
// surfaced to the caller, never coerced.
func (n *Norm) UnmarshalJSON(data []byte) error {
	type alias Norm
	aux := alias{
		AuthorityLevel:   AuthorityStatute,
		SpecificityScore: DefaultSpecificity,
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*n = Norm(aux)
	return n.Validate()
}

// Validate checks the closed enum fields and required identifiers.
func (n *Norm) Validate() error {
	if _, err := ParseModality(string(n.Modality)); err != nil {
		return fmt.Errorf("norm %s: %w", n.SourceID, err)
	}
	if _, err := ParseAuthorityLevel(string(n.AuthorityLevel)); err != nil {
		return fmt.Errorf("norm %s: %w", n.SourceID, err)
	}
	if n.SourceID == "" || n.VersionID == "" {
		return fmt.Errorf("norm missing source_id or version_id")
	}
	return nil
}

// GroupKey returns the normalized (subject, action) key used to group norms
// for pairwise comparison.
func (n *Norm) GroupKey() (subject, action string) {
	return strings.ToLower(strings.TrimSpace(n.Subject)),
		strings.ToLower(strings.TrimSpace(n.Action))
}

// SameSubjectAction reports whether two norms regulate the same subject and
// action, compared case-insensitively with surrounding whitespace trimmed.
func (n *Norm) SameSubjectAction(other *Norm) bool {
	s1, a1 := n.GroupKey()
	s2, a2 := other.GroupKey()
	return s1 == s2 && a1 == a2
}

// ContradictsModality reports whether the two norms carry contradictory
// deontic force: obligation against prohibition, or permission against
// prohibition, in either order.
func (n *Norm) ContradictsModality(other *Norm) bool {
	switch {
	case n.Modality == ModalityObligation && other.Modality == ModalityProhibition:
		return true
	case n.Modality == ModalityProhibition && other.Modality == ModalityObligation:
		return true
	case n.Modality == ModalityPermission && other.Modality == ModalityProhibition:
		return true
	case n.Modality == ModalityProhibition && other.Modality == ModalityPermission:
		return true
	}
	return false
}

// EffectiveInterval returns the norm's temporal applicability: the populated
// TemporalInterval when present, otherwise an interval synthesized from the
// effective dates, open-ended when only a start is known.
func (n *Norm) EffectiveInterval() TemporalInterval {
	if n.TemporalInterval != nil {
		return *n.TemporalInterval
	}
	return TemporalInterval{
		Start:     n.EffectiveStart,
		End:       n.EffectiveEnd,
		Type:      IntervalClosed,
		OpenEnded: n.EffectiveEnd == nil && n.EffectiveStart != nil,
	}
}

// EnactmentOrEffective returns the enactment date, falling back to the
// effective start. Used by lex posterior, which prefers the formal enactment
// date when the extraction captured one.
func (n *Norm) EnactmentOrEffective() *time.Time {
	if n.EnactmentDate != nil {
		return n.EnactmentDate
	}
	return n.EffectiveStart
}
