package conflict

import (
	"testing"
	"time"

	"github.com/coolbeans/lextime/pkg/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dp(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func makeNorm(modality types.Modality, sourceID, versionID string, start, end *time.Time) *types.Norm {
	return &types.Norm{
		Modality:         modality,
		Subject:          "AI system providers",
		Action:           "disclose information",
		SourceID:         sourceID,
		VersionID:        versionID,
		AuthorityLevel:   types.AuthorityStatute,
		EffectiveStart:   start,
		EffectiveEnd:     end,
		SpecificityScore: types.DefaultSpecificity,
	}
}

func TestDetectDeonticContradiction(t *testing.T) {
	// Obligation bounded in 2024 against an open-ended prohibition from
	// mid-2024: exactly one deontic contradiction above 0.8.
	obligation := makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2024, 12, 31))
	prohibition := makeNorm(types.ModalityProhibition, "s2", "v2", dp(2024, 6, 1), nil)

	conflicts := NewDetector().Detect([]*types.Norm{obligation, prohibition})

	if len(conflicts) != 1 {
		t.Fatalf("expected exactly 1 conflict, got %d", len(conflicts))
	}
	c := conflicts[0]
	if c.ConflictType != types.ConflictDeonticContradiction {
		t.Errorf("conflict type = %s, want deontic_contradiction", c.ConflictType)
	}
	if c.Severity <= 0.8 {
		t.Errorf("severity = %.2f, want > 0.8 for O vs F", c.Severity)
	}
	if c.ConflictID != "conflict_0000" {
		t.Errorf("conflict id = %s, want conflict_0000", c.ConflictID)
	}
	if c.OverlapInterval == nil {
		t.Fatal("expected overlap interval attached")
	}
	if !c.OverlapInterval.Start.Equal(date(2024, 6, 1)) {
		t.Errorf("overlap start = %s, want 2024-06-01", c.OverlapInterval.Start.Format("2006-01-02"))
	}
}

func TestNoOverlapNoConflict(t *testing.T) {
	// Contradictory modalities but disjoint intervals: no temporal contact,
	// no conflict.
	obligation := makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2024, 6, 1))
	prohibition := makeNorm(types.ModalityProhibition, "s2", "v2", dp(2024, 7, 1), nil)

	conflicts := NewDetector().Detect([]*types.Norm{obligation, prohibition})
	if len(conflicts) != 0 {
		t.Errorf("expected 0 conflicts for disjoint intervals, got %d", len(conflicts))
	}
}

func TestNoCrossVersionNoConflict(t *testing.T) {
	// Same version id on both sides: never compared, regardless of modality
	// and overlap.
	obligation := makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2024, 12, 31))
	prohibition := makeNorm(types.ModalityProhibition, "s2", "v1", dp(2024, 1, 1), dp(2024, 12, 31))

	conflicts := NewDetector().Detect([]*types.Norm{obligation, prohibition})
	if len(conflicts) != 0 {
		t.Errorf("expected 0 conflicts within one version, got %d", len(conflicts))
	}
}

func TestDifferentSubjectActionNotCompared(t *testing.T) {
	n1 := makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2024, 12, 31))
	n2 := makeNorm(types.ModalityProhibition, "s2", "v2", dp(2024, 1, 1), dp(2024, 12, 31))
	n2.Action = "register system"

	conflicts := NewDetector().Detect([]*types.Norm{n1, n2})
	if len(conflicts) != 0 {
		t.Errorf("expected 0 conflicts across different actions, got %d", len(conflicts))
	}
}

func TestDeonticSeverityLongOverlapBonus(t *testing.T) {
	// Permission vs prohibition overlapping for two years: base 0.8 plus the
	// long-overlap bonus.
	permission := makeNorm(types.ModalityPermission, "s1", "v1", dp(2024, 1, 1), dp(2026, 1, 1))
	prohibition := makeNorm(types.ModalityProhibition, "s2", "v2", dp(2024, 1, 1), dp(2026, 1, 1))

	conflicts := NewDetector().Detect([]*types.Norm{permission, prohibition})
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	want := DeonticBaseSeverity + LongOverlapBonus
	if conflicts[0].Severity != want {
		t.Errorf("severity = %.2f, want %.2f", conflicts[0].Severity, want)
	}
}

func TestObligationProhibitionCapsAtOne(t *testing.T) {
	obligation := makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2026, 1, 1))
	prohibition := makeNorm(types.ModalityProhibition, "s2", "v2", dp(2024, 1, 1), dp(2026, 1, 1))

	conflicts := NewDetector().Detect([]*types.Norm{obligation, prohibition})
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	// 1.0 base plus bonus stays capped at 1.0.
	if conflicts[0].Severity != DeonticMaxSeverity {
		t.Errorf("severity = %.2f, want %.2f", conflicts[0].Severity, DeonticMaxSeverity)
	}
}

func TestConditionInconsistency(t *testing.T) {
	n1 := makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2024, 12, 31))
	n1.Conditions = "upon request"
	n2 := makeNorm(types.ModalityObligation, "s2", "v2", dp(2024, 6, 1), dp(2025, 6, 1))
	n2.Conditions = "within ten business days"

	conflicts := NewDetector().Detect([]*types.Norm{n1, n2})
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].ConflictType != types.ConflictConditionInconsistency {
		t.Errorf("conflict type = %s, want condition_inconsistency", conflicts[0].ConflictType)
	}
	if conflicts[0].Severity != ConditionBaseSeverity {
		t.Errorf("severity = %.2f, want %.2f", conflicts[0].Severity, ConditionBaseSeverity)
	}
}

func TestConditionInconsistencySubstantial(t *testing.T) {
	long1 := "must include the data categories processed and the assessment criteria applied"
	long2 := "must include the retention schedule, audit rights, and the assessment methodology"

	n1 := makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2024, 12, 31))
	n1.Conditions = long1
	n2 := makeNorm(types.ModalityObligation, "s2", "v2", dp(2024, 6, 1), dp(2025, 6, 1))
	n2.Conditions = long2

	conflicts := NewDetector().Detect([]*types.Norm{n1, n2})
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].Severity != ConditionSubstantialSeverity {
		t.Errorf("severity = %.2f, want %.2f", conflicts[0].Severity, ConditionSubstantialSeverity)
	}
}

func TestExceptionGap(t *testing.T) {
	n1 := makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2024, 12, 31))
	n1.Exceptions = []string{"law enforcement use"}
	n2 := makeNorm(types.ModalityObligation, "s2", "v2", dp(2024, 6, 1), dp(2025, 6, 1))

	conflicts := NewDetector().Detect([]*types.Norm{n1, n2})
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].ConflictType != types.ConflictExceptionGap {
		t.Errorf("conflict type = %s, want exception_gap", conflicts[0].ConflictType)
	}
	if conflicts[0].Severity != ExceptionGapSeverity {
		t.Errorf("severity = %.2f, want %.2f", conflicts[0].Severity, ExceptionGapSeverity)
	}
}

func TestExceptionGapSymmetricDifference(t *testing.T) {
	n1 := makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2024, 12, 31))
	n1.Exceptions = []string{"research use", "law enforcement use"}
	n2 := makeNorm(types.ModalityObligation, "s2", "v2", dp(2024, 6, 1), dp(2025, 6, 1))
	n2.Exceptions = []string{"research use", "national security use"}

	conflicts := NewDetector().Detect([]*types.Norm{n1, n2})
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict for differing exception sets, got %d", len(conflicts))
	}

	// Identical sets (in any order) are not a gap.
	n2.Exceptions = []string{"law enforcement use", "research use"}
	conflicts = NewDetector().Detect([]*types.Norm{n1, n2})
	if len(conflicts) != 0 {
		t.Errorf("expected 0 conflicts for identical exception sets, got %d", len(conflicts))
	}
}

func TestSeverityThresholdSuppresses(t *testing.T) {
	n1 := makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2024, 12, 31))
	n1.Conditions = "upon request"
	n2 := makeNorm(types.ModalityObligation, "s2", "v2", dp(2024, 6, 1), dp(2025, 6, 1))
	n2.Conditions = "within ten days"

	// Threshold above the condition-inconsistency base suppresses the finding.
	d := NewDetectorWithThreshold(0.6)
	if got := d.Detect([]*types.Norm{n1, n2}); len(got) != 0 {
		t.Errorf("expected threshold to suppress conflict, got %d", len(got))
	}
}

func TestSeverityBounds(t *testing.T) {
	norms := []*types.Norm{
		makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2026, 12, 31)),
		makeNorm(types.ModalityProhibition, "s2", "v2", dp(2024, 1, 1), nil),
		makeNorm(types.ModalityPermission, "s3", "v3", dp(2024, 1, 1), dp(2027, 1, 1)),
	}
	for _, c := range NewDetector().Detect(norms) {
		if c.Severity < 0 || c.Severity > 1 {
			t.Errorf("conflict %s severity %.2f out of [0,1]", c.ConflictID, c.Severity)
		}
		if err := c.Validate(); err != nil {
			t.Errorf("emitted conflict fails validation: %v", err)
		}
	}
}

func TestDetectEmptyInput(t *testing.T) {
	conflicts := NewDetector().Detect(nil)
	if conflicts == nil {
		t.Fatal("expected empty slice, not nil")
	}
	if len(conflicts) != 0 {
		t.Errorf("expected 0 conflicts, got %d", len(conflicts))
	}
}

func TestDetectDeterministicIDs(t *testing.T) {
	n1 := makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2024, 12, 31))
	n2 := makeNorm(types.ModalityProhibition, "s2", "v2", dp(2024, 1, 1), dp(2024, 12, 31))
	n3 := makeNorm(types.ModalityObligation, "s3", "v1", dp(2024, 1, 1), dp(2024, 12, 31))
	n3.Subject = "deployers"
	n4 := makeNorm(types.ModalityProhibition, "s4", "v2", dp(2024, 1, 1), dp(2024, 12, 31))
	n4.Subject = "deployers"

	first := NewDetector().Detect([]*types.Norm{n1, n2, n3, n4})
	second := NewDetector().Detect([]*types.Norm{n3, n4, n1, n2})

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 conflicts in each pass, got %d and %d", len(first), len(second))
	}
	// Groups are visited in sorted key order, so ids line up across runs.
	for i := range first {
		if first[i].Norm1.Subject != second[i].Norm1.Subject {
			t.Errorf("conflict %d subject differs across input orders", i)
		}
		if first[i].ConflictID != second[i].ConflictID {
			t.Errorf("conflict ids not deterministic: %s vs %s", first[i].ConflictID, second[i].ConflictID)
		}
	}
}

func TestFilter(t *testing.T) {
	n1 := makeNorm(types.ModalityObligation, "s1", "v1", dp(2024, 1, 1), dp(2024, 12, 31))
	n2 := makeNorm(types.ModalityProhibition, "s2", "v2", dp(2024, 1, 1), dp(2024, 12, 31))
	n3 := makeNorm(types.ModalityObligation, "s3", "v3", dp(2024, 1, 1), dp(2024, 12, 31))
	n3.Exceptions = []string{"pilot programs"}

	conflicts := NewDetector().Detect([]*types.Norm{n1, n2, n3})
	if len(conflicts) < 2 {
		t.Fatalf("expected at least 2 conflicts, got %d", len(conflicts))
	}

	min := 0.9
	high := Filter(conflicts, &min, nil)
	for _, c := range high {
		if c.Severity < min {
			t.Errorf("filter leaked severity %.2f < %.2f", c.Severity, min)
		}
	}

	gaps := Filter(conflicts, nil, []types.ConflictType{types.ConflictExceptionGap})
	for _, c := range gaps {
		if c.ConflictType != types.ConflictExceptionGap {
			t.Errorf("filter leaked type %s", c.ConflictType)
		}
	}
}

func TestRank(t *testing.T) {
	conflicts := []*types.Conflict{
		{ConflictID: "conflict_0002", Severity: 0.6},
		{ConflictID: "conflict_0000", Severity: 1.0},
		{ConflictID: "conflict_0003", Severity: 0.6},
		{ConflictID: "conflict_0001", Severity: 0.8},
	}

	ranked := Rank(conflicts)
	wantOrder := []string{"conflict_0000", "conflict_0001", "conflict_0002", "conflict_0003"}
	for i, want := range wantOrder {
		if ranked[i].ConflictID != want {
			t.Errorf("rank[%d] = %s, want %s", i, ranked[i].ConflictID, want)
		}
	}

	// Input order untouched.
	if conflicts[0].ConflictID != "conflict_0002" {
		t.Error("Rank should not reorder its input")
	}
}

func TestSummarize(t *testing.T) {
	conflicts := []*types.Conflict{
		{ConflictType: types.ConflictDeonticContradiction, Severity: 1.0},
		{ConflictType: types.ConflictDeonticContradiction, Severity: 0.8},
		{ConflictType: types.ConflictExceptionGap, Severity: 0.6},
		{ConflictType: types.ConflictConditionInconsistency, Severity: 0.5},
		{ConflictType: types.ConflictConditionInconsistency, Severity: 0.3},
	}

	s := Summarize(conflicts)
	if s.Total != 5 {
		t.Errorf("total = %d, want 5", s.Total)
	}
	if s.ByType[types.ConflictDeonticContradiction] != 2 {
		t.Errorf("deontic count = %d, want 2", s.ByType[types.ConflictDeonticContradiction])
	}
	if s.HighSeverityCount != 2 {
		t.Errorf("high severity count = %d, want 2", s.HighSeverityCount)
	}
	if s.SeverityBands.Critical != 2 || s.SeverityBands.High != 1 ||
		s.SeverityBands.Medium != 1 || s.SeverityBands.Low != 1 {
		t.Errorf("bands = %+v", s.SeverityBands)
	}
	wantAvg := (1.0 + 0.8 + 0.6 + 0.5 + 0.3) / 5
	if diff := s.AvgSeverity - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("avg severity = %.4f, want %.4f", s.AvgSeverity, wantAvg)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || s.AvgSeverity != 0 {
		t.Errorf("empty summary = %+v", s)
	}
	if s.ByType == nil {
		t.Error("ByType map should be initialized")
	}
}
