package temporal

import (
	"testing"
	"time"

	"github.com/coolbeans/lextime/pkg/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-08-01", date(2024, 8, 1)},
		{" 2024-08-01 ", date(2024, 8, 1)},
		{"1 January 2024", date(2024, 1, 1)},
		{"January 1, 2024", date(2024, 1, 1)},
		{"August 2, 2026", date(2026, 8, 2)},
		{"the date 2023-07-05 at the latest", date(2023, 7, 5)},
	}
	for _, tt := range tests {
		got := ParseDate(tt.in)
		if got == nil {
			t.Errorf("ParseDate(%q) = nil, want %s", tt.in, tt.want.Format("2006-01-02"))
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
		}
	}

	if ParseDate("sometime soon") != nil {
		t.Error("unparseable expression should return nil")
	}
	if ParseDate("") != nil {
		t.Error("empty string should return nil")
	}
}

func TestParseExpression(t *testing.T) {
	n := NewNormalizer()

	iv := n.ParseExpression("This regulation enters into force on August 1, 2024 and applies from August 2, 2026.")
	if iv == nil {
		t.Fatal("expected interval from entry-into-force text")
	}
	// Earliest start wins.
	if !iv.Start.Equal(date(2024, 8, 1)) {
		t.Errorf("start = %s, want 2024-08-01", iv.Start.Format("2006-01-02"))
	}
	if !iv.OpenEnded {
		t.Error("start-only expression should be open-ended")
	}

	iv = n.ParseExpression("These provisions shall apply from July 5, 2023 and expire on December 31, 2025.")
	if iv == nil {
		t.Fatal("expected interval from apply/expire text")
	}
	if iv.OpenEnded {
		t.Error("expression with expiration should be bounded")
	}
	if !iv.End.Equal(date(2025, 12, 31)) {
		t.Errorf("end = %s, want 2025-12-31", iv.End.Format("2006-01-02"))
	}

	if got := n.ParseExpression("no dates in this text"); got != nil {
		t.Errorf("expected nil interval, got %s", got)
	}
}

func TestExtractFromNormPrecedence(t *testing.T) {
	n := NewNormalizer()
	start := date(2024, 1, 1)

	// Explicit dates win over the snippet.
	norm := &types.Norm{
		EffectiveStart: &start,
		TextSnippet:    "applies from 2030-01-01",
	}
	iv := n.ExtractFromNorm(norm)
	if !iv.Start.Equal(start) {
		t.Error("explicit effective dates should win over the snippet")
	}
	if !iv.OpenEnded {
		t.Error("start-only norm should yield an open-ended interval")
	}

	// Snippet parsed when no explicit dates.
	norm = &types.Norm{TextSnippet: "shall apply from 2023-07-05"}
	iv = n.ExtractFromNorm(norm)
	if iv.Start == nil || !iv.Start.Equal(date(2023, 7, 5)) {
		t.Error("snippet date should populate the interval")
	}

	// Nothing usable degrades to open-ended uncertain.
	norm = &types.Norm{TextSnippet: "providers shall keep records"}
	iv = n.ExtractFromNorm(norm)
	if !iv.OpenEnded || !iv.Uncertain {
		t.Errorf("dateless norm should degrade to open-ended uncertain, got %+v", iv)
	}
}

func TestNormalizeNormsIdempotent(t *testing.T) {
	n := NewNormalizer()
	start := date(2024, 8, 1)

	norms := []*types.Norm{
		{Modality: types.ModalityObligation, Subject: "s", Action: "a",
			SourceID: "s1", VersionID: "v1", EffectiveStart: &start},
		{Modality: types.ModalityPermission, Subject: "s", Action: "a",
			SourceID: "s2", VersionID: "v2", TextSnippet: "expires on 2025-12-31"},
	}

	n.NormalizeNorms(norms)
	first := make([]types.TemporalInterval, len(norms))
	for i, norm := range norms {
		if norm.TemporalInterval == nil {
			t.Fatalf("norm %d not normalized", i)
		}
		first[i] = *norm.TemporalInterval
	}

	// Second pass must not drift.
	n.NormalizeNorms(norms)
	for i, norm := range norms {
		if *norm.TemporalInterval != first[i] {
			t.Errorf("norm %d interval drifted on second normalization", i)
		}
	}
}
