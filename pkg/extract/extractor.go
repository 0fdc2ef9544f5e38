package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/coolbeans/lextime/pkg/ingest"
	"github.com/coolbeans/lextime/pkg/temporal"
	"github.com/coolbeans/lextime/pkg/types"
)

// promptTemplate asks the model for a JSON array of norms. The placeholders
// are filled per section.
const promptTemplate = `Analyze the following legal text and extract every formal norm it states.

A norm has:
- "modality": "O" (obligation), "P" (permission), or "F" (prohibition)
- "subject": who the norm binds
- "action": the regulated conduct
- "object": what the action concerns (optional)
- "conditions": conditions under which the norm applies (optional)
- "jurisdiction": territorial scope (optional)
- "exceptions": list of exceptions (optional)
- "effective_start": ISO date the norm takes effect, or null
- "effective_end": ISO date the norm ceases, or null
- "text_snippet": the exact sentence stating the norm
- "specificity_score": 0.0 (very general) to 1.0 (very specific)

Return ONLY a JSON array of norm objects, no prose.

Section: %s (version %s, corpus %s)

Text:
%s`

// Cache and rate-limit defaults. One request per second is conservative
// enough for the strictest API tiers.
const (
	defaultCacheTTL       = 24 * time.Hour
	defaultCleanupEvery   = time.Hour
	defaultRequestsPerSec = 1
)

// Extractor extracts norms from legal sections through a Provider. Responses
// are cached by section content hash so re-running a corpus does not re-spend
// tokens, and calls are rate limited.
type Extractor struct {
	provider Provider
	limiter  *rate.Limiter
	cache    *gocache.Cache
}

// NewExtractor returns an extractor with the default rate limit and cache.
func NewExtractor(provider Provider) *Extractor {
	return NewExtractorWithLimit(provider, rate.Limit(defaultRequestsPerSec))
}

// NewExtractorWithLimit returns an extractor with a custom request rate.
func NewExtractorWithLimit(provider Provider, limit rate.Limit) *Extractor {
	return &Extractor{
		provider: provider,
		limiter:  rate.NewLimiter(limit, 1),
		cache:    gocache.New(defaultCacheTTL, defaultCleanupEvery),
	}
}

// ExtractNorms extracts the norms stated in one section. A response the model
// garbles entirely is an error; individual malformed norms inside an
// otherwise valid response are skipped.
func (e *Extractor) ExtractNorms(ctx context.Context, section ingest.LegalSection) ([]*types.Norm, error) {
	prompt := fmt.Sprintf(promptTemplate,
		section.SectionID, section.VersionID, section.CorpusName, section.Text)

	key := cacheKey(section)
	raw, cached := e.cache.Get(key)
	if !cached {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		response, err := e.provider.Complete(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", section.SectionID, err)
		}
		e.cache.Set(key, response, gocache.DefaultExpiration)
		raw = response
	}

	norms, err := ParseResponse(raw.(string), section)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", section.SectionID, err)
	}
	return norms, nil
}

// ExtractBatch extracts norms from every section. A section that fails
// entirely contributes no norms but does not abort the batch; its error is
// returned alongside the results.
func (e *Extractor) ExtractBatch(ctx context.Context, sections []ingest.LegalSection) ([]*types.Norm, []error) {
	var norms []*types.Norm
	var errs []error
	for _, section := range sections {
		ns, err := e.ExtractNorms(ctx, section)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		norms = append(norms, ns...)
	}
	return norms, errs
}

// wireNorm is the shape the model returns, before stamping with section
// provenance. Dates arrive as strings; exceptions may arrive as a single
// string or a list.
type wireNorm struct {
	Modality         string          `json:"modality"`
	Subject          string          `json:"subject"`
	Action           string          `json:"action"`
	Object           string          `json:"object"`
	Conditions       string          `json:"conditions"`
	Jurisdiction     string          `json:"jurisdiction"`
	Exceptions       json.RawMessage `json:"exceptions"`
	EffectiveStart   string          `json:"effective_start"`
	EffectiveEnd     string          `json:"effective_end"`
	TextSnippet      string          `json:"text_snippet"`
	SpecificityScore *float64        `json:"specificity_score"`
}

// ParseResponse decodes a model response into norms stamped with the
// section's provenance. Fenced code blocks around the JSON are tolerated.
// Individual items that fail validation are skipped.
func ParseResponse(response string, section ingest.LegalSection) ([]*types.Norm, error) {
	payload := stripCodeFences(response)

	var items []wireNorm
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("response is not a JSON array: %w", err)
	}

	norms := make([]*types.Norm, 0, len(items))
	for _, item := range items {
		n, err := buildNorm(item, section)
		if err != nil {
			// One bad norm never aborts the batch.
			continue
		}
		norms = append(norms, n)
	}
	return norms, nil
}

func buildNorm(item wireNorm, section ingest.LegalSection) (*types.Norm, error) {
	modality, err := types.ParseModality(strings.ToUpper(strings.TrimSpace(item.Modality)))
	if err != nil {
		return nil, err
	}
	if item.Subject == "" || item.Action == "" {
		return nil, fmt.Errorf("norm missing subject or action")
	}

	effectiveStart := parseWireDate(item.EffectiveStart)
	if effectiveStart == nil {
		effectiveStart = section.EffectiveDate
	}

	score := types.DefaultSpecificity
	if item.SpecificityScore != nil {
		score = *item.SpecificityScore
	}

	n := &types.Norm{
		Modality:         modality,
		Subject:          item.Subject,
		Action:           item.Action,
		Object:           item.Object,
		Conditions:       item.Conditions,
		Jurisdiction:     item.Jurisdiction,
		Exceptions:       decodeExceptions(item.Exceptions),
		EffectiveStart:   effectiveStart,
		EffectiveEnd:     parseWireDate(item.EffectiveEnd),
		SourceID:         section.SectionID,
		VersionID:        section.VersionID,
		AuthorityLevel:   section.AuthorityLevel,
		EnactmentDate:    section.EnactmentDate,
		TextSnippet:      item.TextSnippet,
		SpecificityScore: score,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// decodeExceptions accepts either a JSON list of strings or a bare string.
func decodeExceptions(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}

func parseWireDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil
	}
	return temporal.ParseDate(s)
}

// stripCodeFences removes a surrounding markdown code block, with or without
// a language tag.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func cacheKey(section ingest.LegalSection) string {
	sum := sha256.Sum256([]byte(section.SectionID + "\x00" + section.Text))
	return hex.EncodeToString(sum[:])
}

// SaveNorms writes norms to a JSON artifact, creating parent directories as
// needed.
func SaveNorms(norms []*types.Norm, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := json.MarshalIndent(norms, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding norms: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	return nil
}

// LoadNorms reads norms back from a JSON artifact. Validation happens during
// unmarshaling; a file with an invalid norm is rejected whole.
func LoadNorms(inputPath string) ([]*types.Norm, error) {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputPath, err)
	}
	var norms []*types.Norm
	if err := json.Unmarshal(raw, &norms); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", inputPath, err)
	}
	return norms, nil
}
