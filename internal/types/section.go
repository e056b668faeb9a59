package types

import "strings"

// SectionType is the taxonomy of earnings-call sections.
type SectionType string

// Section types
const (
	SectionTypeIntroduction      SectionType = "introduction"
	SectionTypeSafeHarbor        SectionType = "safe_harbor"
	SectionTypeManagementRemarks SectionType = "management_remarks"
	SectionTypeFinancialResults  SectionType = "financial_results"
	SectionTypeOutlook           SectionType = "outlook"
	SectionTypeQuestionAnswer    SectionType = "question_answer"
	SectionTypeClosing           SectionType = "closing"
	SectionTypeOther             SectionType = "other"
)

// SectionTypes lists every section type in taxonomy order.
var SectionTypes = []SectionType{
	SectionTypeIntroduction,
	SectionTypeSafeHarbor,
	SectionTypeManagementRemarks,
	SectionTypeFinancialResults,
	SectionTypeOutlook,
	SectionTypeQuestionAnswer,
	SectionTypeClosing,
	SectionTypeOther,
}

// IsValid reports whether t is part of the taxonomy.
func (t SectionType) IsValid() bool {
	for _, known := range SectionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Title returns a human-readable label, e.g. "Question Answer".
func (t SectionType) Title() string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ParseSectionType normalizes s into a SectionType. Unknown values map to
// SectionTypeOther with ok=false.
func ParseSectionType(s string) (SectionType, bool) {
	t := SectionType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_"))
	if t.IsValid() {
		return t, true
	}
	return SectionTypeOther, false
}

// Section is a contiguous run of chunks sharing a thematic label.
type Section struct {
	ID       int         `json:"section_id"`
	Type     SectionType `json:"section_type"`
	Name     string      `json:"section_name"`
	Summary  string      `json:"section_summary"`
	Content  string      `json:"section_content"`
	ChunkIDs []int       `json:"chunk_ids"`
	Order    int         `json:"section_order"`
}
