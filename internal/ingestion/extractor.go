// Package ingestion lists transcript files on disk and extracts their
// sentences.
package ingestion

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// DefaultMaxBytes is the largest transcript the extractor will read.
const DefaultMaxBytes = 20 << 20

// SupportedExtensions are the transcript formats the extractor reads.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
}

// Extractor turns transcript files into ordered sentences.
type Extractor struct {
	MaxBytes int64
	Logger   *slog.Logger
}

// NewExtractor returns an extractor with default limits.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{MaxBytes: DefaultMaxBytes, Logger: logger}
}

// Extract reads src and returns its sentences with speaker attribution.
// Sentence ids start at 1.
func (e *Extractor) Extract(src types.TranscriptSource) (*types.Transcript, error) {
	ext := strings.ToLower(filepath.Ext(src.Path))
	if !SupportedExtensions[ext] {
		return nil, &ExtractionError{Path: src.Path, Message: fmt.Sprintf("unsupported extension %q", ext)}
	}

	info, err := os.Stat(src.Path)
	if err != nil {
		return nil, &ExtractionError{Path: src.Path, Message: "failed to stat file", Cause: err}
	}
	if e.MaxBytes > 0 && info.Size() > e.MaxBytes {
		return nil, &ExtractionError{Path: src.Path, Message: fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), e.MaxBytes)}
	}

	content, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, &ExtractionError{Path: src.Path, Message: "failed to read file", Cause: err}
	}

	var blocks []string
	switch ext {
	case ".html", ".htm":
		htmlBlocks, err := HTMLBlocks(string(content))
		if err != nil {
			return nil, &ExtractionError{Path: src.Path, Message: "failed to parse HTML", Cause: err}
		}
		for _, b := range htmlBlocks {
			blocks = append(blocks, SplitBlocks(CleanText(b))...)
		}
	default:
		blocks = SplitBlocks(CleanText(string(content)))
	}

	transcript := BuildTranscript(src, blocks)
	if len(transcript.Sentences) == 0 {
		return nil, &ExtractionError{Path: src.Path, Message: "no sentences found"}
	}

	e.Logger.Debug("extracted transcript",
		"transcript", src.Key.String(),
		"blocks", transcript.BlockCount,
		"sentences", len(transcript.Sentences),
		"speakers", len(transcript.Speakers))
	return transcript, nil
}

// BuildTranscript splits blocks into sentences. A block that opens with a
// speaker cue switches the current speaker; the cue is not part of the text.
func BuildTranscript(src types.TranscriptSource, blocks []string) *types.Transcript {
	t := &types.Transcript{Source: src}
	seen := make(map[string]bool)
	speaker := ""

	for _, block := range blocks {
		text := block
		if name, rest, ok := parseSpeakerCue(block); ok {
			speaker = name
			text = rest
			if !seen[name] {
				seen[name] = true
				t.Speakers = append(t.Speakers, name)
			}
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		position := t.BlockCount
		t.BlockCount++
		for _, s := range SplitSentences(text) {
			t.Sentences = append(t.Sentences, types.Sentence{
				ID:       len(t.Sentences) + 1,
				Text:     s,
				Speaker:  speaker,
				Position: position,
			})
			t.CharCount += len(s)
		}
	}
	return t
}
