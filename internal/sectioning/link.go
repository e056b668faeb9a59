package sectioning

import (
	"strings"

	"github.com/alexwday/aegis-project-sub000/internal/types"
)

// link builds the final section records and back-fills each chunk with the
// identity of the section its provisional id points at.
func link(work []types.Chunk, sections []*section) *Result {
	res := &Result{
		Sections: make([]types.Section, 0, len(sections)),
		Chunks:   make([]types.SectionedChunk, 0, len(work)),
	}

	byID := make(map[int]*types.Section, len(sections))
	for _, s := range sections {
		contents := make([]string, len(s.chunks))
		ids := make([]int, len(s.chunks))
		for i, idx := range s.chunks {
			contents[i] = work[idx].Content
			ids[i] = work[idx].ID
		}
		res.Sections = append(res.Sections, types.Section{
			ID:       s.id,
			Type:     s.typ,
			Name:     s.name,
			Summary:  s.summary,
			Content:  strings.Join(contents, "\n\n"),
			ChunkIDs: ids,
			Order:    s.id,
		})
	}
	for i := range res.Sections {
		byID[res.Sections[i].ID] = &res.Sections[i]
	}

	positions := make(map[int]int, len(sections))
	for _, c := range work {
		sec := byID[c.ProvisionalSectionID]
		positions[sec.ID]++
		res.Chunks = append(res.Chunks, types.SectionedChunk{
			Chunk:          c,
			SectionID:      sec.ID,
			SectionName:    sec.Name,
			SectionType:    sec.Type,
			SectionSummary: sec.Summary,
			SectionOrder:   positions[sec.ID],
		})
	}
	return res
}
