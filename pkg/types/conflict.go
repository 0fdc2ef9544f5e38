package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultResolutionConfidence is the confidence assumed when a resolution
// arrives on the wire without one.
const DefaultResolutionConfidence = 0.8

// Resolution records the outcome of applying an interpretive canon to a
// conflict. A resolver always produces a complete resolution; low-confidence
// defaults stand in when no canon decisively applies.
type Resolution struct {
	CanonApplied   Canon   `json:"canon_applied"`
	PrevailingNorm string  `json:"prevailing_norm"`
	Rationale      string  `json:"rationale"`
	Confidence     float64 `json:"confidence"`
}

// UnmarshalJSON applies the wire default confidence and validates the canon.
func (r *Resolution) UnmarshalJSON(data []byte) error {
	type alias Resolution
	aux := alias{Confidence: DefaultResolutionConfidence}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if _, err := ParseCanon(string(aux.CanonApplied)); err != nil {
		return err
	}
	*r = Resolution(aux)
	return nil
}

// Conflict represents a detected inconsistency between two norms from
// different versions that regulate the same subject and action over
// overlapping time.
type Conflict struct {
	ConflictID   string       `json:"conflict_id"`
	ConflictType ConflictType `json:"conflict_type"`

	Norm1 *Norm `json:"norm1"`
	Norm2 *Norm `json:"norm2"`

	OverlapInterval *TemporalInterval `json:"overlap_interval,omitempty"`

	Severity    float64 `json:"severity"`
	Description string  `json:"description"`

	Resolution *Resolution `json:"resolution,omitempty"`

	DetectedAt time.Time `json:"detected_at"`
}

// Resolved reports whether a resolution has been attached.
func (c *Conflict) Resolved() bool {
	return c.Resolution != nil
}

// AttachResolution attaches r only when the conflict is not yet resolved,
// and reports whether the attach happened. The single-assignment guard keeps
// a base heuristic pass and a later ensemble pass composable: the second
// pass must use SetResolution to override deliberately.
func (c *Conflict) AttachResolution(r Resolution) bool {
	if c.Resolution != nil {
		return false
	}
	c.Resolution = &r
	return true
}

// SetResolution overwrites any existing resolution. Reserved for ensemble
// overrides; ordinary resolution goes through AttachResolution.
func (c *Conflict) SetResolution(r Resolution) {
	c.Resolution = &r
}

// InvolvesSource reports whether either side of the conflict originates from
// the given source identifier.
func (c *Conflict) InvolvesSource(sourceID string) bool {
	return c.Norm1.SourceID == sourceID || c.Norm2.SourceID == sourceID
}

// Validate checks the structural invariants the detector guarantees:
// cross-version norms over the same normalized subject and action, severity
// within [0, 1].
func (c *Conflict) Validate() error {
	if c.Norm1 == nil || c.Norm2 == nil {
		return fmt.Errorf("conflict %s: missing norm", c.ConflictID)
	}
	if _, err := ParseConflictType(string(c.ConflictType)); err != nil {
		return fmt.Errorf("conflict %s: %w", c.ConflictID, err)
	}
	if c.Norm1.VersionID == c.Norm2.VersionID {
		return fmt.Errorf("conflict %s: norms share version %s", c.ConflictID, c.Norm1.VersionID)
	}
	if !c.Norm1.SameSubjectAction(c.Norm2) {
		return fmt.Errorf("conflict %s: norms regulate different subject/action", c.ConflictID)
	}
	if c.Severity < 0 || c.Severity > 1 {
		return fmt.Errorf("conflict %s: severity %.2f out of range", c.ConflictID, c.Severity)
	}
	return nil
}
