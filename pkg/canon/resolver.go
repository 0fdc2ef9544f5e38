// Package canon resolves detected conflicts by applying legal interpretive
// canons in priority order: lex superior, lex posterior, lex specialis, then
// a low-confidence default.
package canon

import (
	"fmt"

	"github.com/coolbeans/lextime/pkg/types"
)

// Canon confidence levels. Each canon carries the confidence its legal
// footing warrants; the default is deliberately low so downstream consumers
// route it to human review.
const (
	LexSuperiorConfidence  = 0.9
	LexPosteriorConfidence = 0.85
	LexSpecialisConfidence = 0.75
	DefaultConfidence      = 0.5

	// SpecialisMinGap is the minimum specificity difference before lex
	// specialis is considered decisive.
	SpecialisMinGap = 0.2

	// Specificity adjustments. Stored score plus condition, exception,
	// object, and narrow-scope contributions, clamped to [0, 1].
	conditionWeightDivisor = 500.0
	conditionMaxBonus      = 0.2
	exceptionUnitBonus     = 0.05
	exceptionMaxBonus      = 0.1
	objectBonus            = 0.1
	narrowScopeBonus       = 0.1
	narrowScopeDays        = 365
)

// Resolver applies the canon cascade to conflicts. The fallback confidence
// for wire records is threaded through the constructor rather than read from
// a package global.
type Resolver struct {
	defaultConfidence float64
}

// NewResolver returns a resolver with the standard wire default confidence.
func NewResolver() *Resolver {
	return NewResolverWithConfidence(types.DefaultResolutionConfidence)
}

// NewResolverWithConfidence returns a resolver using the given fallback
// confidence for resolutions constructed without one.
func NewResolverWithConfidence(confidence float64) *Resolver {
	return &Resolver{defaultConfidence: confidence}
}

// Resolve picks the prevailing norm for a conflict. It is total: when no
// canon decisively applies it falls back to a low-confidence default, so a
// well-formed conflict always gets some resolution.
func (r *Resolver) Resolve(c *types.Conflict) types.Resolution {
	n1, n2 := c.Norm1, c.Norm2

	if res := tryLexSuperior(n1, n2); res != nil {
		return *res
	}
	if res := tryLexPosterior(n1, n2); res != nil {
		return *res
	}
	if res := tryLexSpecialis(n1, n2); res != nil {
		return *res
	}
	return defaultResolution(n1, n2)
}

// ResolveAll attaches a resolution to every conflict lacking one. Existing
// resolutions are never overwritten; a later ensemble pass must override
// explicitly through SetResolution.
func (r *Resolver) ResolveAll(conflicts []*types.Conflict) []*types.Conflict {
	for _, c := range conflicts {
		if !c.Resolved() {
			c.AttachResolution(r.Resolve(c))
		}
	}
	return conflicts
}

// tryLexSuperior applies when the two norms sit at different authority
// levels: the higher authority prevails.
func tryLexSuperior(n1, n2 *types.Norm) *types.Resolution {
	rank1 := n1.AuthorityLevel.Rank()
	rank2 := n2.AuthorityLevel.Rank()
	if rank1 == rank2 {
		return nil
	}

	winner, loser := n1, n2
	if rank2 > rank1 {
		winner, loser = n2, n1
	}
	return &types.Resolution{
		CanonApplied:   types.CanonLexSuperior,
		PrevailingNorm: winner.SourceID,
		Rationale: fmt.Sprintf(
			"Applying lex superior: %s (in %s) has higher authority than %s (in %s)",
			winner.AuthorityLevel, winner.VersionID, loser.AuthorityLevel, loser.VersionID),
		Confidence: LexSuperiorConfidence,
	}
}

// tryLexPosterior applies when both norms have a resolvable, unequal
// enactment date (falling back to effective start): the later prevails.
func tryLexPosterior(n1, n2 *types.Norm) *types.Resolution {
	date1 := n1.EnactmentOrEffective()
	date2 := n2.EnactmentOrEffective()
	if date1 == nil || date2 == nil || date1.Equal(*date2) {
		return nil
	}

	winner, loser := n1, n2
	winDate, loseDate := date1, date2
	if date2.After(*date1) {
		winner, loser = n2, n1
		winDate, loseDate = date2, date1
	}
	return &types.Resolution{
		CanonApplied:   types.CanonLexPosterior,
		PrevailingNorm: winner.SourceID,
		Rationale: fmt.Sprintf(
			"Applying lex posterior: %s (enacted %s) is later than %s (enacted %s). Later-enacted rule governs.",
			winner.VersionID, winDate.Format("2006-01-02"),
			loser.VersionID, loseDate.Format("2006-01-02")),
		Confidence: LexPosteriorConfidence,
	}
}

// tryLexSpecialis applies when the specificity scores differ by at least
// SpecialisMinGap: the more specific norm prevails.
func tryLexSpecialis(n1, n2 *types.Norm) *types.Resolution {
	score1 := Specificity(n1)
	score2 := Specificity(n2)

	gap := score1 - score2
	if gap < 0 {
		gap = -gap
	}
	if gap < SpecialisMinGap {
		return nil
	}

	winner, loser := n1, n2
	winScore, loseScore := score1, score2
	if score2 > score1 {
		winner, loser = n2, n1
		winScore, loseScore = score2, score1
	}
	return &types.Resolution{
		CanonApplied:   types.CanonLexSpecialis,
		PrevailingNorm: winner.SourceID,
		Rationale: fmt.Sprintf(
			"Applying lex specialis: %s is more specific (specificity: %.2f) than %s (specificity: %.2f). More specific rule prevails.",
			winner.VersionID, winScore, loser.VersionID, loseScore),
		Confidence: LexSpecialisConfidence,
	}
}

// Specificity computes the heuristic specificity score for a norm: the
// stored score plus contributions from conditions, exceptions, an object,
// and a narrow temporal scope, clamped to [0, 1].
func Specificity(n *types.Norm) float64 {
	score := n.SpecificityScore

	if n.Conditions != "" {
		bonus := float64(len(n.Conditions)) / conditionWeightDivisor
		if bonus > conditionMaxBonus {
			bonus = conditionMaxBonus
		}
		score += bonus
	}

	if len(n.Exceptions) > 0 {
		bonus := float64(len(n.Exceptions)) * exceptionUnitBonus
		if bonus > exceptionMaxBonus {
			bonus = exceptionMaxBonus
		}
		score += bonus
	}

	if n.Object != "" {
		score += objectBonus
	}

	if n.EffectiveStart != nil && n.EffectiveEnd != nil {
		days := n.EffectiveEnd.Sub(*n.EffectiveStart).Hours() / 24
		if days < narrowScopeDays {
			score += narrowScopeBonus
		}
	}

	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}

// defaultResolution applies when no canon decisively does: prefer the more
// recent effective start, else norm2 as a deterministic tie-break, at low
// confidence with a recommendation for human review.
func defaultResolution(n1, n2 *types.Norm) types.Resolution {
	prevailing := n2
	if n1.EffectiveStart != nil && n2.EffectiveStart != nil && n1.EffectiveStart.After(*n2.EffectiveStart) {
		prevailing = n1
	}
	return types.Resolution{
		CanonApplied:   types.CanonLexPosterior,
		PrevailingNorm: prevailing.SourceID,
		Rationale: fmt.Sprintf(
			"No clear canon applies. As a default, preferring %s. Human review recommended.",
			prevailing.VersionID),
		Confidence: DefaultConfidence,
	}
}
