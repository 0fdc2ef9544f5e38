// Package temporal normalizes temporal expressions in legal text into
// formal intervals. It populates the temporal_interval field on extracted
// norms so the detector and query engine operate on uniform values.
package temporal

import (
	"regexp"
	"strings"
	"time"

	"github.com/coolbeans/lextime/pkg/types"
)

// phraseKind labels what a matched temporal phrase contributes to the
// interval being assembled.
type phraseKind int

const (
	kindStart phraseKind = iota
	kindEnd
	kindSuspension
	kindDuration
	kindRetroactive
)

type phrasePattern struct {
	re   *regexp.Regexp
	kind phraseKind
}

// Patterns for the temporal phrasing that recurs in statutes and
// regulations. Group 1 captures the date expression.
var phrasePatterns = []phrasePattern{
	{regexp.MustCompile(`(?i)enters?\s+into\s+force\s+on\s+([^,.\n]+)`), kindStart},
	{regexp.MustCompile(`(?i)shall\s+enter\s+into\s+force\s+on\s+([^,.\n]+)`), kindStart},
	{regexp.MustCompile(`(?i)applies?\s+from\s+([^,.\n]+)`), kindStart},
	{regexp.MustCompile(`(?i)shall\s+apply\s+from\s+([^,.\n]+)`), kindStart},
	{regexp.MustCompile(`(?i)effective\s+(?:from\s+)?([^,.\n]+)`), kindStart},
	{regexp.MustCompile(`(?i)takes?\s+effect\s+(?:on\s+)?([^,.\n]+)`), kindStart},

	{regexp.MustCompile(`(?i)suspended\s+until\s+([^,.\n]+)`), kindSuspension},
	{regexp.MustCompile(`(?i)postponed\s+until\s+([^,.\n]+)`), kindSuspension},

	{regexp.MustCompile(`(?i)expires?\s+(?:on\s+)?([^,.\n]+)`), kindEnd},
	{regexp.MustCompile(`(?i)ceases?\s+to\s+apply\s+(?:on\s+)?([^,.\n]+)`), kindEnd},
	{regexp.MustCompile(`(?i)valid\s+until\s+([^,.\n]+)`), kindEnd},

	{regexp.MustCompile(`(?i)for\s+a\s+period\s+of\s+(\d+)\s+(year|month|day)s?`), kindDuration},
	{regexp.MustCompile(`(?i)within\s+(\d+)\s+(year|month|day)s?`), kindDuration},

	{regexp.MustCompile(`(?i)retroactively\s+(?:to\s+)?([^,.\n]+)`), kindRetroactive},
	{regexp.MustCompile(`(?i)with\s+effect\s+from\s+([^,.\n]+)`), kindRetroactive},
}

// dateLayouts in decreasing order of strictness. Legal text mixes ISO dates
// with long-form English dates.
var dateLayouts = []string{
	"2006-01-02",
	"2 January 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

var isoDateRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// Normalizer converts natural-language temporal expressions into intervals.
type Normalizer struct{}

// NewNormalizer returns a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// ParseExpression scans text for temporal phrases and assembles an interval
// from the dates found. Returns nil when no usable dates are present.
func (n *Normalizer) ParseExpression(text string) *types.TemporalInterval {
	var start, end *time.Time

	for _, p := range phrasePatterns {
		if p.kind == kindDuration {
			continue // durations anchor nothing without a start date
		}
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			d := ParseDate(m[1])
			if d == nil {
				continue
			}
			switch p.kind {
			case kindStart, kindRetroactive:
				if start == nil || d.Before(*start) {
					start = d
				}
			case kindEnd:
				if end == nil || d.After(*end) {
					end = d
				}
			case kindSuspension:
				// A suspension pushes applicability out to the named date.
				if start == nil || d.After(*start) {
					start = d
				}
			}
		}
	}

	if start == nil && end == nil {
		return nil
	}

	return &types.TemporalInterval{
		Start:     start,
		End:       end,
		Type:      types.IntervalClosed,
		OpenEnded: start != nil && end == nil,
	}
}

// ExtractFromNorm derives the temporal interval for a norm: explicit
// effective dates win, then the text snippet is parsed, and a norm with no
// temporal information at all degrades to an open-ended uncertain interval
// rather than failing the batch.
func (n *Normalizer) ExtractFromNorm(norm *types.Norm) types.TemporalInterval {
	if norm.EffectiveStart != nil || norm.EffectiveEnd != nil {
		return types.TemporalInterval{
			Start:     norm.EffectiveStart,
			End:       norm.EffectiveEnd,
			Type:      types.IntervalClosed,
			OpenEnded: norm.EffectiveEnd == nil && norm.EffectiveStart != nil,
		}
	}

	if norm.TextSnippet != "" {
		if iv := n.ParseExpression(norm.TextSnippet); iv != nil {
			return *iv
		}
	}

	return types.TemporalInterval{
		Type:      types.IntervalClosed,
		OpenEnded: true,
		Uncertain: true,
	}
}

// NormalizeNorms populates TemporalInterval on every norm that lacks one.
// Norms that already carry an interval are left untouched, so repeated
// normalization yields identical values.
func (n *Normalizer) NormalizeNorms(norms []*types.Norm) []*types.Norm {
	for _, norm := range norms {
		if norm.TemporalInterval == nil {
			iv := n.ExtractFromNorm(norm)
			norm.TemporalInterval = &iv
		}
	}
	return norms
}

// ParseDate parses a date expression in any of the layouts that occur in
// legal text. Returns nil when nothing parses; the caller degrades to an
// undefined or uncertain interval.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	// An embedded ISO date wins over the surrounding prose.
	if iso := isoDateRe.FindString(s); iso != "" {
		if t, err := time.Parse("2006-01-02", iso); err == nil {
			t = t.UTC()
			return &t
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}

	// Long-form dates often trail qualifiers ("1 January 2024 at the
	// latest"); retry on a shrinking word prefix.
	words := strings.Fields(s)
	for n := len(words) - 1; n >= 3; n-- {
		prefix := strings.Join(words[:n], " ")
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, prefix); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}

	return nil
}
