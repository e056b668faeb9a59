// Package types provides the record types shared by the transcript segmentation pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"time"
)

// IdentityKey identifies one transcript in the catalog.
type IdentityKey struct {
	BankName      string `json:"bank_name" validate:"required"`
	FiscalYear    int    `json:"fiscal_year" validate:"required,min=1990,max=2100"`
	FiscalQuarter string `json:"fiscal_quarter" validate:"required,oneof=Q1 Q2 Q3 Q4"`
	DocumentName  string `json:"document_name" validate:"required"`
}

// String renders the key as bank/year/quarter/document.
func (k IdentityKey) String() string {
	return fmt.Sprintf("%s/%d/%s/%s", k.BankName, k.FiscalYear, k.FiscalQuarter, k.DocumentName)
}

// Validate checks the key fields.
func (k IdentityKey) Validate() error {
	return validate.Struct(k)
}

// TranscriptSource is a transcript file as found on disk.
type TranscriptSource struct {
	Key     IdentityKey `json:"key"`
	Path    string      `json:"path" validate:"required"`
	Size    int64       `json:"size" validate:"min=0"`
	ModTime time.Time   `json:"mod_time" validate:"required"`
}

// Validate checks the source fields, including its key.
func (s TranscriptSource) Validate() error {
	return validate.Struct(s)
}

// CatalogEntry is the file metadata recorded when a transcript was last synced.
type CatalogEntry struct {
	Key          IdentityKey `json:"key"`
	FileSize     int64       `json:"file_size"`
	FileModified time.Time   `json:"file_modified"`
}

// Sentence is one sentence of a transcript.
type Sentence struct {
	ID       int    `json:"sentence_id"`
	Text     string `json:"text"`
	Speaker  string `json:"speaker,omitempty"`
	Position int    `json:"position"` // block (paragraph) ordinal in the source
}

// Transcript is the extractor's output for one source.
type Transcript struct {
	Source     TranscriptSource `json:"source"`
	Sentences  []Sentence       `json:"sentences"`
	Speakers   []string         `json:"speakers,omitempty"`
	BlockCount int              `json:"block_count"`
	CharCount  int              `json:"char_count"`
}

// ProcessedTranscript is a fully segmented transcript ready for catalog sync.
type ProcessedTranscript struct {
	Source    TranscriptSource `json:"source"`
	Sentences []Sentence       `json:"sentences"`
	Sections  []Section        `json:"sections"`
	Chunks    []SectionedChunk `json:"chunks"`
}
