package ingestion

import (
	"regexp"
	"strings"
)

var (
	runOfSpaces     = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	excessiveBlanks = regexp.MustCompile(`\n\n\n+`)
	markdownPrefix  = regexp.MustCompile(`^(#{1,6}(?:\s+|$)|[-*•·](?:\s+|$)|>\s*)`)
)

// CleanText normalizes line endings and whitespace. Paragraph breaks (blank
// lines) survive, collapsed to one.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(runOfSpaces.ReplaceAllString(line, " "))
	}

	result := excessiveBlanks.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

// SplitBlocks splits cleaned text into speaker blocks. Blank lines end a
// block; so does a line that opens with a speaker cue. Lines inside a block
// are joined with a space and markdown line markers are dropped.
func SplitBlocks(cleaned string) []string {
	var blocks []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, " "))
			current = nil
		}
	}

	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(markdownPrefix.ReplaceAllString(line, ""))
		if line == "" {
			flush()
			continue
		}
		if _, _, ok := parseSpeakerCue(line); ok {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return blocks
}
