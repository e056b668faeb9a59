package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alexwday/aegis-project-sub000/internal/llm"
	"github.com/alexwday/aegis-project-sub000/internal/prompts"
	"github.com/alexwday/aegis-project-sub000/internal/schemas"
	"github.com/alexwday/aegis-project-sub000/internal/types"
)

const promptFile = "oracle.json"

// LLMOptions configures an LLMOracle.
type LLMOptions struct {
	// EmbeddingDimensions, when positive, is the required vector length.
	EmbeddingDimensions int
	AssignTier          llm.ModelTier
	TagTier             llm.ModelTier
	BoundaryTier        llm.ModelTier
	SummaryTier         llm.ModelTier
}

// DefaultLLMOptions returns the tiers used for each judgment.
func DefaultLLMOptions() LLMOptions {
	return LLMOptions{
		AssignTier:   llm.TierLite,
		TagTier:      llm.TierStandard,
		BoundaryTier: llm.TierLite,
		SummaryTier:  llm.TierAdvanced,
	}
}

// LLMOracle answers oracle calls by prompting an llm.Client and validating
// each response against its JSON schema.
type LLMOracle struct {
	client llm.Client
	opts   LLMOptions
}

// NewLLMOracle creates an oracle backed by client.
func NewLLMOracle(client llm.Client, opts LLMOptions) *LLMOracle {
	return &LLMOracle{client: client, opts: opts}
}

// Assign implements Oracle.
func (o *LLMOracle) Assign(ctx context.Context, req *AssignRequest) (*AssignResult, error) {
	var res AssignResult
	if err := o.generate(ctx, "assign", schemas.Assign, o.opts.AssignTier, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Tag implements Oracle.
func (o *LLMOracle) Tag(ctx context.Context, req *TagRequest) (*TagResult, error) {
	data := struct {
		Bank  string
		Chunk ChunkView
	}{Bank: req.Key.BankName, Chunk: req.Chunk}

	var res TagResult
	if err := o.generate(ctx, "tag", schemas.Tag, o.opts.TagTier, data, &res); err != nil {
		return nil, err
	}
	res.Tags = normalizeLabels(res.Tags, true)
	res.Topics = normalizeLabels(res.Topics, false)
	return &res, nil
}

// Embed implements Oracle.
func (o *LLMOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := o.client.Embed(ctx, text)
	if err != nil {
		return nil, classify("embed", err)
	}
	if len(vec) == 0 {
		return nil, &Error{Op: "embed", Kind: KindMalformed, Message: "empty embedding"}
	}
	if o.opts.EmbeddingDimensions > 0 && len(vec) != o.opts.EmbeddingDimensions {
		return nil, &Error{
			Op:      "embed",
			Kind:    KindMalformed,
			Message: fmt.Sprintf("embedding has %d dimensions, want %d", len(vec), o.opts.EmbeddingDimensions),
		}
	}
	return vec, nil
}

// SectionBoundary implements Oracle.
func (o *LLMOracle) SectionBoundary(ctx context.Context, req *BoundaryRequest) (*BoundaryResult, error) {
	names := make([]string, len(types.SectionTypes))
	for i, t := range types.SectionTypes {
		names[i] = string(t)
	}
	data := struct {
		SectionTypes []string
		Current      *SectionView
		Recent       []ChunkView
		Chunk        ChunkView
		Position     int
		Total        int
	}{names, req.Current, req.Recent, req.Chunk, req.Position, req.Total}

	var res BoundaryResult
	if err := o.generate(ctx, "section_boundary", schemas.SectionBoundary, o.opts.BoundaryTier, data, &res); err != nil {
		return nil, err
	}
	res.SectionName = strings.TrimSpace(res.SectionName)
	return &res, nil
}

// Summarize implements Oracle.
func (o *LLMOracle) Summarize(ctx context.Context, req *SummarizeRequest) (string, error) {
	data := struct {
		Name   string
		Type   types.SectionType
		Chunks []ChunkView
	}{req.Section.Name, req.Section.Type, req.Chunks}

	var res struct {
		Summary string `json:"section_summary"`
	}
	if err := o.generate(ctx, "summarize", schemas.Summarize, o.opts.SummaryTier, data, &res); err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Summary), nil
}

func (o *LLMOracle) generate(ctx context.Context, op, schema string, tier llm.ModelTier, data, out any) error {
	prompt, err := prompts.Render(promptFile, op, data)
	if err != nil {
		return &Error{Op: op, Kind: KindProvider, Message: "failed to render prompt", Cause: err}
	}

	raw, err := o.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return classify(op, err)
	}

	doc := []byte(llm.CleanJSONBlock(raw))
	if err := schemas.Validate(schema, doc); err != nil {
		return &Error{Op: op, Kind: KindMalformed, Message: "response failed schema validation", Cause: err}
	}
	if err := json.Unmarshal(doc, out); err != nil {
		return &Error{Op: op, Kind: KindMalformed, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// normalizeLabels trims, drops empties and duplicates, and optionally
// lowercases.
func normalizeLabels(labels []string, lower bool) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if lower {
			l = strings.ToLower(l)
		}
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
