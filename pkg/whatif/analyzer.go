// Package whatif answers point-in-time and window queries over a snapshot
// of norms and detected conflicts: what applies on a date, whether an action
// is required, permitted, or prohibited, and which conflicts fall inside a
// window.
package whatif

import (
	"fmt"
	"strings"
	"time"

	"github.com/coolbeans/lextime/pkg/types"
)

// QueryKind labels the query that produced a Result.
type QueryKind string

const (
	QueryApplicableNorms   QueryKind = "applicable_norms"
	QueryActionStatus      QueryKind = "action_status"
	QueryConflictsInWindow QueryKind = "conflicts_in_window"
)

// Query records the parameters of a what-if query.
type Query struct {
	Kind         QueryKind               `json:"query_type"`
	DecisionDate *time.Time              `json:"decision_date,omitempty"`
	ConductDate  *time.Time              `json:"conduct_date,omitempty"`
	Action       string                  `json:"action,omitempty"`
	Subject      string                  `json:"subject,omitempty"`
	Interval     *types.TemporalInterval `json:"interval,omitempty"`
}

// Result is the answer to a what-if query.
type Result struct {
	Query           Query             `json:"query"`
	ApplicableNorms []*types.Norm     `json:"applicable_norms"`
	ActiveConflicts []*types.Conflict `json:"active_conflicts"`
	Warnings        []string          `json:"warnings"`
	Recommendation  string            `json:"recommendation"`
}

// Analyzer holds an immutable snapshot of norms and conflicts. Queries never
// mutate the snapshot; a new snapshot means a new Analyzer.
type Analyzer struct {
	norms     []*types.Norm
	conflicts []*types.Conflict
}

// NewAnalyzer returns an analyzer over the given snapshot.
func NewAnalyzer(norms []*types.Norm, conflicts []*types.Conflict) *Analyzer {
	return &Analyzer{norms: norms, conflicts: conflicts}
}

// ApplicableNorms reports which norms apply on a date, optionally filtered
// by action and subject substring (case-insensitive).
func (a *Analyzer) ApplicableNorms(date time.Time, action, subject string) *Result {
	applicable := a.normsAt(date, action, subject)
	active := a.activeConflicts(date, applicable)

	return &Result{
		Query: Query{
			Kind:         QueryApplicableNorms,
			DecisionDate: &date,
			Action:       action,
			Subject:      subject,
		},
		ApplicableNorms: applicable,
		ActiveConflicts: active,
		Warnings:        applicabilityWarnings(applicable, active),
		Recommendation:  applicabilityRecommendation(applicable, active),
	}
}

// ActionStatus reports whether an action is required, permitted, or
// prohibited at the conduct date, with extra warnings when the decision is
// taken on a different date than the conduct occurs.
func (a *Analyzer) ActionStatus(decisionDate, conductDate time.Time, action, subject string) *Result {
	applicable := a.normsAt(conductDate, action, subject)
	active := a.activeConflicts(conductDate, applicable)

	hasObligation := hasModality(applicable, types.ModalityObligation)
	hasPermission := hasModality(applicable, types.ModalityPermission)
	hasProhibition := hasModality(applicable, types.ModalityProhibition)

	conduct := conductDate.Format("2006-01-02")
	warnings := make([]string, 0)

	if hasObligation && hasProhibition {
		warnings = append(warnings, fmt.Sprintf(
			"CRITICAL: Action '%s' is both required and prohibited on %s", action, conduct))
	}
	if hasPermission && hasProhibition {
		warnings = append(warnings, fmt.Sprintf(
			"WARNING: Action '%s' is both permitted and prohibited on %s", action, conduct))
	}
	if len(applicable) == 0 {
		warnings = append(warnings, fmt.Sprintf(
			"No applicable norms found for action '%s' on %s", action, conduct))
	}
	if !decisionDate.Equal(conductDate) {
		decisionNorms := a.normsAt(decisionDate, action, subject)
		if len(decisionNorms) != len(applicable) {
			warnings = append(warnings, fmt.Sprintf(
				"Norms may change between decision date (%s) and conduct date (%s)",
				decisionDate.Format("2006-01-02"), conduct))
		}
	}

	// Prohibition dominates obligation in the stated recommendation even
	// though the critical warning already fired.
	var recommendation string
	switch {
	case hasObligation && !hasProhibition:
		recommendation = fmt.Sprintf("Action '%s' is REQUIRED on %s", action, conduct)
	case hasProhibition:
		recommendation = fmt.Sprintf("Action '%s' is PROHIBITED on %s", action, conduct)
	case hasPermission:
		recommendation = fmt.Sprintf("Action '%s' is PERMITTED on %s", action, conduct)
	default:
		recommendation = fmt.Sprintf("Status of action '%s' is UNCLEAR on %s", action, conduct)
	}

	return &Result{
		Query: Query{
			Kind:         QueryActionStatus,
			DecisionDate: &decisionDate,
			ConductDate:  &conductDate,
			Action:       action,
			Subject:      subject,
		},
		ApplicableNorms: applicable,
		ActiveConflicts: active,
		Warnings:        warnings,
		Recommendation:  recommendation,
	}
}

// ConflictsInWindow returns every conflict whose overlap interval touches
// [start, end], together with the de-duplicated norms those conflicts
// reference.
func (a *Analyzer) ConflictsInWindow(start, end time.Time) *Result {
	window := types.BoundedInterval(start, end)

	inWindow := make([]*types.Conflict, 0)
	for _, c := range a.conflicts {
		if c.OverlapInterval == nil {
			continue
		}
		if c.OverlapInterval.Overlaps(window) {
			inWindow = append(inWindow, c)
		}
	}

	// Union of referenced norms, de-duplicated by source id.
	seen := make(map[string]struct{})
	involved := make([]*types.Norm, 0)
	for _, c := range inWindow {
		for _, n := range []*types.Norm{c.Norm1, c.Norm2} {
			if _, ok := seen[n.SourceID]; ok {
				continue
			}
			seen[n.SourceID] = struct{}{}
			involved = append(involved, n)
		}
	}

	highSeverity := 0
	for _, c := range inWindow {
		if c.Severity >= highSeverityFloor {
			highSeverity++
		}
	}

	warnings := []string{
		fmt.Sprintf("Found %d conflict(s) in the specified window", len(inWindow)),
		fmt.Sprintf("%d high-severity conflicts", highSeverity),
	}

	return &Result{
		Query: Query{
			Kind:     QueryConflictsInWindow,
			Interval: &window,
		},
		ApplicableNorms: involved,
		ActiveConflicts: inWindow,
		Warnings:        warnings,
		Recommendation:  windowRecommendation(inWindow, highSeverity),
	}
}

// highSeverityFloor mirrors the detector's critical band.
const highSeverityFloor = 0.8

// normsAt returns the norms whose interval contains date and which match
// the optional action/subject substring filters.
func (a *Analyzer) normsAt(date time.Time, action, subject string) []*types.Norm {
	matched := make([]*types.Norm, 0)
	for _, n := range a.norms {
		if !n.EffectiveInterval().ContainsDate(date) {
			continue
		}
		if action != "" && !containsFold(n.Action, action) {
			continue
		}
		if subject != "" && !containsFold(n.Subject, subject) {
			continue
		}
		matched = append(matched, n)
	}
	return matched
}

// activeConflicts returns conflicts whose overlap interval contains date and
// which involve at least one of the applicable norms.
func (a *Analyzer) activeConflicts(date time.Time, applicable []*types.Norm) []*types.Conflict {
	sourceIDs := make(map[string]struct{}, len(applicable))
	for _, n := range applicable {
		sourceIDs[n.SourceID] = struct{}{}
	}

	active := make([]*types.Conflict, 0)
	for _, c := range a.conflicts {
		_, involves1 := sourceIDs[c.Norm1.SourceID]
		_, involves2 := sourceIDs[c.Norm2.SourceID]
		if !involves1 && !involves2 {
			continue
		}
		if c.OverlapInterval == nil || !c.OverlapInterval.ContainsDate(date) {
			continue
		}
		active = append(active, c)
	}
	return active
}

func applicabilityWarnings(applicable []*types.Norm, active []*types.Conflict) []string {
	warnings := make([]string, 0)

	if len(active) > 0 {
		warnings = append(warnings, fmt.Sprintf("%d active conflict(s) detected", len(active)))

		high := 0
		for _, c := range active {
			if c.Severity >= highSeverityFloor {
				high++
			}
		}
		if high > 0 {
			warnings = append(warnings, fmt.Sprintf(
				"%d high-severity conflict(s) require immediate attention", high))
		}
	}

	modalities := make(map[types.Modality]struct{})
	for _, n := range applicable {
		modalities[n.Modality] = struct{}{}
	}
	if len(modalities) > 1 {
		warnings = append(warnings,
			"Multiple conflicting modalities detected (obligation/permission/prohibition)")
	}

	return warnings
}

func applicabilityRecommendation(applicable []*types.Norm, active []*types.Conflict) string {
	if len(active) > 0 {
		for _, c := range active {
			if c.Resolution != nil {
				return fmt.Sprintf("Conflicts detected. Recommend following %s canon: %s",
					c.Resolution.CanonApplied, c.Resolution.Rationale)
			}
		}
		return "Conflicts detected but not yet resolved. Human review required."
	}

	switch len(applicable) {
	case 0:
		return "No applicable norms found. Action may not be regulated."
	case 1:
		n := applicable[0]
		return fmt.Sprintf("Action is %s under %s", n.Modality.Phrase(), n.VersionID)
	default:
		return fmt.Sprintf("%d applicable norms found. Review recommended.", len(applicable))
	}
}

func windowRecommendation(inWindow []*types.Conflict, highSeverity int) string {
	if len(inWindow) == 0 {
		return "No conflicts detected in the specified window."
	}
	if highSeverity > 0 {
		return fmt.Sprintf(
			"High-risk window: %d high-severity conflicts detected. Recommend delaying action or seeking legal counsel.",
			highSeverity)
	}
	return fmt.Sprintf("%d conflicts detected. Review resolutions before proceeding.", len(inWindow))
}

func hasModality(norms []*types.Norm, m types.Modality) bool {
	for _, n := range norms {
		if n.Modality == m {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
