// Package ingest loads legal text corpora from disk and splits them into
// sections ready for norm extraction. A corpus is a directory of version
// files plus a metadata.yaml carrying per-version dates and authority level.
package ingest

import (
	"time"

	"github.com/coolbeans/lextime/pkg/types"
)

// LegalSection is one numbered section of one version of a legal text.
type LegalSection struct {
	SectionID  string `json:"section_id"`
	VersionID  string `json:"version_id"`
	CorpusName string `json:"corpus_name"`
	Title      string `json:"title,omitempty"`
	Text       string `json:"text"`

	EffectiveDate  *time.Time           `json:"effective_date,omitempty"`
	EnactmentDate  *time.Time           `json:"enactment_date,omitempty"`
	AuthorityLevel types.AuthorityLevel `json:"authority_level"`
	SourceURL      string               `json:"source_url,omitempty"`
}

// VersionMetadata describes one version file in a corpus, as declared in the
// corpus metadata.yaml keyed by the version file's stem.
type VersionMetadata struct {
	EffectiveDate  string `yaml:"effective_date"`
	EnactmentDate  string `yaml:"enactment_date"`
	AuthorityLevel string `yaml:"authority_level"`
	SourceURL      string `yaml:"source_url"`
}
