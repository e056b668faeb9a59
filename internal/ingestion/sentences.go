package ingestion

import (
	"regexp"
	"strings"
	"unicode"
)

const maxSpeakerLen = 80

var speakerCue = regexp.MustCompile(
	`^([\p{Lu}][\p{L}'.\-]*(?:\s+(?:[\p{Lu}][\p{L}'.\-]*|de|da|van|von|der|del|la|le)){0,5})` +
		`(?:\s+[-–—]\s+[^:]{1,80})?:(?:\s+(.*))?$`)

// abbreviations never end a sentence.
var abbreviations = map[string]bool{
	"mr.": true, "mrs.": true, "ms.": true, "dr.": true, "prof.": true, "sr.": true, "jr.": true,
	"inc.": true, "corp.": true, "co.": true, "ltd.": true, "llc.": true, "plc.": true,
	"vs.": true, "e.g.": true, "i.e.": true, "u.s.": true, "u.k.": true, "no.": true,
	"approx.": true, "etc.": true, "st.": true, "jan.": true, "feb.": true, "aug.": true,
	"sept.": true, "oct.": true, "nov.": true, "dec.": true,
}

// parseSpeakerCue reports whether line opens with "Name:" or "Name - Title:"
// and returns the name and the remaining text.
func parseSpeakerCue(line string) (name, rest string, ok bool) {
	m := speakerCue.FindStringSubmatch(line)
	if m == nil || len(m[1]) > maxSpeakerLen {
		return "", line, false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// SplitSentences splits a block of text into sentences on terminal
// punctuation followed by whitespace.
func SplitSentences(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		if r == '.' && !endsSentence(runes[start:i+1], runes[end:]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '»':
		return true
	}
	return false
}

// endsSentence decides whether a period closing sentence really ends it.
func endsSentence(sentence, after []rune) bool {
	word := lastWord(sentence)
	if abbreviations[strings.ToLower(word)] {
		return false
	}
	// single initial such as "J."
	if n := []rune(word); len(n) == 2 && unicode.IsUpper(n[0]) {
		return false
	}
	next := strings.TrimLeftFunc(string(after), unicode.IsSpace)
	if next == "" {
		return true
	}
	first := []rune(next)[0]
	return !unicode.IsLower(first)
}

func lastWord(rs []rune) string {
	i := len(rs) - 1
	for i >= 0 && !unicode.IsSpace(rs[i]) {
		i--
	}
	return strings.TrimLeft(string(rs[i+1:]), "(\"'“‘")
}
