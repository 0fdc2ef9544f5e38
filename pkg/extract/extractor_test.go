package extract

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/coolbeans/lextime/pkg/ingest"
	"github.com/coolbeans/lextime/pkg/types"
)

func sampleSection() ingest.LegalSection {
	effective := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	enactment := time.Date(2024, 7, 12, 0, 0, 0, 0, time.UTC)
	return ingest.LegalSection{
		SectionID:      "eu_act_article_50_v1",
		VersionID:      "v1",
		CorpusName:     "eu_act",
		Title:          "Transparency obligations",
		Text:           "Providers shall inform natural persons.",
		EffectiveDate:  &effective,
		EnactmentDate:  &enactment,
		AuthorityLevel: types.AuthorityRegulation,
	}
}

const validResponse = `[
  {
    "modality": "O",
    "subject": "providers",
    "action": "inform natural persons",
    "object": "interaction with an AI system",
    "effective_start": "2026-08-02",
    "effective_end": null,
    "text_snippet": "Providers shall inform natural persons.",
    "specificity_score": 0.7
  }
]`

func TestParseResponse(t *testing.T) {
	norms, err := ParseResponse(validResponse, sampleSection())
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if len(norms) != 1 {
		t.Fatalf("expected 1 norm, got %d", len(norms))
	}

	n := norms[0]
	if n.Modality != types.ModalityObligation {
		t.Errorf("expected obligation, got %s", n.Modality)
	}
	if n.EffectiveStart == nil || n.EffectiveStart.Format("2006-01-02") != "2026-08-02" {
		t.Errorf("wrong effective start: %v", n.EffectiveStart)
	}
	if n.SpecificityScore != 0.7 {
		t.Errorf("expected specificity 0.7, got %v", n.SpecificityScore)
	}

	// Provenance comes from the section, not the model.
	if n.SourceID != "eu_act_article_50_v1" || n.VersionID != "v1" {
		t.Errorf("norm lost section provenance: %s / %s", n.SourceID, n.VersionID)
	}
	if n.AuthorityLevel != types.AuthorityRegulation {
		t.Errorf("expected regulation authority, got %s", n.AuthorityLevel)
	}
	if n.EnactmentDate == nil || n.EnactmentDate.Format("2006-01-02") != "2024-07-12" {
		t.Errorf("norm lost section enactment date")
	}
}

func TestParseResponseStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validResponse + "\n```"
	norms, err := ParseResponse(fenced, sampleSection())
	if err != nil || len(norms) != 1 {
		t.Fatalf("fenced response should parse, got %d norms, err %v", len(norms), err)
	}

	fenced = "```\n" + validResponse + "\n```"
	norms, err = ParseResponse(fenced, sampleSection())
	if err != nil || len(norms) != 1 {
		t.Fatalf("bare-fenced response should parse, got %d norms, err %v", len(norms), err)
	}
}

func TestParseResponseSkipsInvalidItems(t *testing.T) {
	mixed := `[
  {"modality": "X", "subject": "providers", "action": "do a thing"},
  {"modality": "F", "subject": "", "action": "do a thing"},
  {"modality": "F", "subject": "providers", "action": "deploy unassessed systems"}
]`
	norms, err := ParseResponse(mixed, sampleSection())
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if len(norms) != 1 {
		t.Fatalf("expected only the valid norm to survive, got %d", len(norms))
	}
	if norms[0].Modality != types.ModalityProhibition {
		t.Errorf("wrong surviving norm: %+v", norms[0])
	}
}

func TestParseResponseNotAnArray(t *testing.T) {
	if _, err := ParseResponse(`{"modality": "O"}`, sampleSection()); err == nil {
		t.Error("expected error for non-array response")
	}
	if _, err := ParseResponse("The text contains no norms.", sampleSection()); err == nil {
		t.Error("expected error for prose response")
	}
}

func TestParseResponseDefaultsAndFallbacks(t *testing.T) {
	minimal := `[{"modality": "p", "subject": "employers", "action": "use the tool"}]`
	norms, err := ParseResponse(minimal, sampleSection())
	if err != nil || len(norms) != 1 {
		t.Fatalf("minimal norm should parse, got %d, err %v", len(norms), err)
	}

	n := norms[0]
	if n.Modality != types.ModalityPermission {
		t.Errorf("lowercase modality should be accepted, got %s", n.Modality)
	}
	if n.SpecificityScore != types.DefaultSpecificity {
		t.Errorf("expected default specificity, got %v", n.SpecificityScore)
	}
	// Missing effective_start falls back to the section's effective date.
	if n.EffectiveStart == nil || n.EffectiveStart.Format("2006-01-02") != "2024-08-01" {
		t.Errorf("expected section effective date fallback, got %v", n.EffectiveStart)
	}
}

func TestDecodeExceptions(t *testing.T) {
	list := `[{"modality": "F", "subject": "s", "action": "a", "exceptions": ["law enforcement", "research"]}]`
	norms, _ := ParseResponse(list, sampleSection())
	if len(norms) != 1 || len(norms[0].Exceptions) != 2 {
		t.Fatalf("list exceptions not decoded: %+v", norms)
	}

	single := `[{"modality": "F", "subject": "s", "action": "a", "exceptions": "law enforcement"}]`
	norms, _ = ParseResponse(single, sampleSection())
	if len(norms) != 1 || len(norms[0].Exceptions) != 1 {
		t.Fatalf("string exception not decoded: %+v", norms)
	}
}

// stubProvider returns a canned response and counts calls.
type stubProvider struct {
	response string
	calls    int
}

func (s *stubProvider) Name() string                       { return "stub" }
func (s *stubProvider) Available(ctx context.Context) bool { return true }

func (s *stubProvider) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.response, nil
}

func TestExtractNormsCachesBySection(t *testing.T) {
	stub := &stubProvider{response: validResponse}
	e := NewExtractorWithLimit(stub, rate.Inf)
	ctx := context.Background()

	section := sampleSection()
	if _, err := e.ExtractNorms(ctx, section); err != nil {
		t.Fatalf("first extraction: %v", err)
	}
	if _, err := e.ExtractNorms(ctx, section); err != nil {
		t.Fatalf("second extraction: %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("expected 1 provider call for identical sections, got %d", stub.calls)
	}

	other := section
	other.SectionID = "eu_act_article_51_v1"
	if _, err := e.ExtractNorms(ctx, other); err != nil {
		t.Fatalf("third extraction: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("different section must miss the cache, got %d calls", stub.calls)
	}
}

func TestExtractBatchToleratesBadSections(t *testing.T) {
	stub := &stubProvider{response: "not json"}
	e := NewExtractorWithLimit(stub, rate.Inf)

	norms, errs := e.ExtractBatch(context.Background(), []ingest.LegalSection{sampleSection()})
	if len(norms) != 0 {
		t.Errorf("expected no norms from a garbled response")
	}
	if len(errs) != 1 {
		t.Errorf("expected the section's error to be reported, got %v", errs)
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Error("expected error for missing API key")
	}
}
