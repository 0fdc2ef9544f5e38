// Package types provides the core domain types for temporal-deontic
// conflict analysis: norms, temporal intervals, conflicts, and resolutions.
package types

import "fmt"

// Modality represents the deontic force of a norm.
type Modality string

const (
	// ModalityObligation means the action must be done.
	ModalityObligation Modality = "O"
	// ModalityPermission means the action may be done.
	ModalityPermission Modality = "P"
	// ModalityProhibition means the action must not be done.
	ModalityProhibition Modality = "F"
)

// ParseModality validates and returns a Modality from its wire value.
func ParseModality(s string) (Modality, error) {
	switch Modality(s) {
	case ModalityObligation, ModalityPermission, ModalityProhibition:
		return Modality(s), nil
	}
	return "", fmt.Errorf("invalid modality %q (want O, P, or F)", s)
}

// Phrase returns the modality as a deontic verb phrase.
func (m Modality) Phrase() string {
	switch m {
	case ModalityObligation:
		return "required"
	case ModalityPermission:
		return "permitted"
	case ModalityProhibition:
		return "prohibited"
	}
	return "unknown"
}

// AuthorityLevel represents the legal authority hierarchy of a source.
type AuthorityLevel string

const (
	AuthorityConstitution   AuthorityLevel = "constitution"
	AuthorityStatute        AuthorityLevel = "statute"
	AuthorityRegulation     AuthorityLevel = "regulation"
	AuthorityGuidance       AuthorityLevel = "guidance"
	AuthorityInternalPolicy AuthorityLevel = "internal_policy"
)

// ParseAuthorityLevel validates and returns an AuthorityLevel from its wire value.
func ParseAuthorityLevel(s string) (AuthorityLevel, error) {
	switch AuthorityLevel(s) {
	case AuthorityConstitution, AuthorityStatute, AuthorityRegulation,
		AuthorityGuidance, AuthorityInternalPolicy:
		return AuthorityLevel(s), nil
	}
	return "", fmt.Errorf("invalid authority level %q", s)
}

// Rank returns the numeric position in the authority hierarchy.
// Higher rank means higher authority. Unknown levels rank 0.
func (a AuthorityLevel) Rank() int {
	switch a {
	case AuthorityInternalPolicy:
		return 1
	case AuthorityGuidance:
		return 2
	case AuthorityRegulation:
		return 3
	case AuthorityStatute:
		return 4
	case AuthorityConstitution:
		return 5
	}
	return 0
}

// ConflictType classifies a detected conflict between two norms.
type ConflictType string

const (
	// ConflictDeonticContradiction marks O vs F or P vs F pairs.
	ConflictDeonticContradiction ConflictType = "deontic_contradiction"
	// ConflictTemporalOverlap marks same-action norms with conflicting modalities
	// over overlapping intervals. Retained for forward compatibility.
	ConflictTemporalOverlap ConflictType = "temporal_overlap"
	// ConflictConditionInconsistency marks duplicate norms with incompatible conditions.
	ConflictConditionInconsistency ConflictType = "condition_inconsistency"
	// ConflictExceptionGap marks asymmetric exception coverage.
	ConflictExceptionGap ConflictType = "exception_gap"
)

// ParseConflictType validates and returns a ConflictType from its wire value.
func ParseConflictType(s string) (ConflictType, error) {
	switch ConflictType(s) {
	case ConflictDeonticContradiction, ConflictTemporalOverlap,
		ConflictConditionInconsistency, ConflictExceptionGap:
		return ConflictType(s), nil
	}
	return "", fmt.Errorf("invalid conflict type %q", s)
}

// Canon identifies a legal interpretive priority rule.
type Canon string

const (
	// CanonLexSuperior: the higher-authority rule prevails.
	CanonLexSuperior Canon = "lex_superior"
	// CanonLexPosterior: the later-enacted rule prevails.
	CanonLexPosterior Canon = "lex_posterior"
	// CanonLexSpecialis: the more specific rule prevails.
	CanonLexSpecialis Canon = "lex_specialis"
)

// ParseCanon validates and returns a Canon from its wire value.
func ParseCanon(s string) (Canon, error) {
	switch Canon(s) {
	case CanonLexSuperior, CanonLexPosterior, CanonLexSpecialis:
		return Canon(s), nil
	}
	return "", fmt.Errorf("invalid canon %q", s)
}

// IntervalType describes interval boundary semantics. It is carried on the
// wire for forward compatibility; the overlap logic treats all intervals as
// closed.
type IntervalType string

const (
	IntervalClosed        IntervalType = "closed"
	IntervalOpen          IntervalType = "open"
	IntervalHalfOpenLeft  IntervalType = "half_open_left"
	IntervalHalfOpenRight IntervalType = "half_open_right"
)
