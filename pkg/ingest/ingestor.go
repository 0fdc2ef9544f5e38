package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/lextime/pkg/types"
)

// Heading patterns tried in order. The first pattern with at least one match
// decides how a version is split; texts with no recognizable headings fall
// back to paragraph splitting.
var headingPatterns = []struct {
	label string
	re    *regexp.Regexp
}{
	{"article", regexp.MustCompile(`(?im)^Article\s+(\d+[a-z]?)\s*[:.]?\s*(.*)$`)},
	{"section", regexp.MustCompile(`(?im)^(?:§|Section)\s+(\d+(?:-\d+)?)\s*[:.]?\s*(.*)$`)},
	{"rule", regexp.MustCompile(`(?im)^Rule\s+(\d+[a-z]?)\s*[:.]?\s*(.*)$`)},
}

// Ingestor loads corpora from a base data directory. The expected layout is
// <dataDir>/<corpus>/<version>.txt with a sibling metadata.yaml keyed by
// version stem.
type Ingestor struct {
	dataDir string
}

// NewIngestor returns an ingestor rooted at dataDir.
func NewIngestor(dataDir string) *Ingestor {
	return &Ingestor{dataDir: dataDir}
}

// LoadCorpus loads every version file of a corpus and splits each into
// sections. File-system errors belong to this layer; the engine downstream
// never touches disk.
func (g *Ingestor) LoadCorpus(corpusName string) ([]LegalSection, error) {
	corpusDir := filepath.Join(g.dataDir, corpusName)
	if _, err := os.Stat(corpusDir); err != nil {
		return nil, fmt.Errorf("corpus directory %s: %w", corpusDir, err)
	}

	metadata, err := loadMetadata(filepath.Join(corpusDir, "metadata.yaml"))
	if err != nil {
		return nil, err
	}

	versionFiles, err := filepath.Glob(filepath.Join(corpusDir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("listing corpus %s: %w", corpusName, err)
	}
	sort.Strings(versionFiles)

	var sections []LegalSection
	for _, path := range versionFiles {
		versionID := strings.TrimSuffix(filepath.Base(path), ".txt")
		vs, err := g.loadVersion(corpusName, versionID, path, metadata[versionID])
		if err != nil {
			return nil, err
		}
		sections = append(sections, vs...)
	}
	return sections, nil
}

// loadVersion reads one version file, splits it, and stamps each section with
// the version's metadata.
func (g *Ingestor) loadVersion(corpusName, versionID, path string, meta VersionMetadata) ([]LegalSection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading version %s: %w", path, err)
	}

	authority := types.AuthorityStatute
	if meta.AuthorityLevel != "" {
		authority, err = types.ParseAuthorityLevel(meta.AuthorityLevel)
		if err != nil {
			return nil, fmt.Errorf("corpus %s version %s: %w", corpusName, versionID, err)
		}
	}

	sections := SplitSections(string(raw), versionID, corpusName)
	effective := parseMetaDate(meta.EffectiveDate)
	enactment := parseMetaDate(meta.EnactmentDate)
	for i := range sections {
		sections[i].EffectiveDate = effective
		sections[i].EnactmentDate = enactment
		sections[i].AuthorityLevel = authority
		sections[i].SourceURL = meta.SourceURL
	}
	return sections, nil
}

// SplitSections divides a legal text into sections on Article/Section/§/Rule
// headings, falling back to paragraph splitting when no headings match.
func SplitSections(text, versionID, corpusName string) []LegalSection {
	for _, p := range headingPatterns {
		matches := p.re.FindAllStringSubmatchIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		return splitByHeadings(text, versionID, corpusName, p.label, matches)
	}
	return splitByParagraphs(text, versionID, corpusName)
}

func splitByHeadings(text, versionID, corpusName, label string, matches [][]int) []LegalSection {
	sections := make([]LegalSection, 0, len(matches))
	for i, m := range matches {
		number := text[m[2]:m[3]]
		title := ""
		if m[4] >= 0 {
			title = strings.TrimSpace(text[m[4]:m[5]])
		}
		if title == "" {
			title = fmt.Sprintf("%s %s", capitalize(label), number)
		}

		bodyStart := m[1]
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}

		sections = append(sections, LegalSection{
			SectionID:  fmt.Sprintf("%s_%s_%s_%s", corpusName, label, number, versionID),
			VersionID:  versionID,
			CorpusName: corpusName,
			Title:      title,
			Text:       strings.TrimSpace(text[bodyStart:bodyEnd]),
		})
	}
	return sections
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func splitByParagraphs(text, versionID, corpusName string) []LegalSection {
	var sections []LegalSection
	index := 0
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		index++
		sections = append(sections, LegalSection{
			SectionID:  fmt.Sprintf("%s_para_%d_%s", corpusName, index, versionID),
			VersionID:  versionID,
			CorpusName: corpusName,
			Title:      fmt.Sprintf("Paragraph %d", index),
			Text:       para,
		})
	}
	return sections
}

// loadMetadata parses the corpus metadata.yaml. A missing file is not an
// error: versions simply carry no dates and default authority.
func loadMetadata(path string) (map[string]VersionMetadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]VersionMetadata{}, nil
		}
		return nil, fmt.Errorf("reading metadata %s: %w", path, err)
	}
	metadata := make(map[string]VersionMetadata)
	if err := yaml.Unmarshal(raw, &metadata); err != nil {
		return nil, fmt.Errorf("parsing metadata %s: %w", path, err)
	}
	return metadata, nil
}

var metaDateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"2 January 2006",
	"01/02/2006",
}

func parseMetaDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range metaDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// SaveSections writes sections to a JSON artifact, creating parent
// directories as needed.
func SaveSections(sections []LegalSection, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := json.MarshalIndent(sections, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sections: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	return nil
}

// LoadSections reads sections back from a JSON artifact.
func LoadSections(inputPath string) ([]LegalSection, error) {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", inputPath, err)
	}
	var sections []LegalSection
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", inputPath, err)
	}
	return sections, nil
}
