package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alexwday/aegis-project-sub000/internal/llm"
	"github.com/alexwday/aegis-project-sub000/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateJSONFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	EmbedFunc        func(ctx context.Context, text string) ([]float32, error)
	GetModelFunc     func(tier llm.ModelTier) string
	CloseFunc        func() error
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return `{"extend": false}`, nil
}

func (m *MockLLMClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

func (m *MockLLMClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

var testKey = types.IdentityKey{BankName: "RBC", FiscalYear: 2024, FiscalQuarter: "Q3", DocumentName: "call"}

func TestLLMOracle_Assign(t *testing.T) {
	var gotPrompt string
	var gotTier llm.ModelTier
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			gotPrompt, gotTier = prompt, tier
			return "```json\n{\"extend\": true, \"related_chunk_ids\": [2], \"additional_context\": [{\"source_sentence_id\": 7, \"text\": \"CET1 is the capital ratio\"}]}\n```", nil
		},
	}
	o := NewLLMOracle(client, DefaultLLMOptions())

	res, err := o.Assign(context.Background(), &AssignRequest{
		Key:       testKey,
		Prior:     []ChunkView{{ID: 2, Speaker: "CFO", Content: "Capital remained strong."}},
		Open:      ChunkView{Speaker: "CFO", Content: "Our CET1 ratio was 13.2%."},
		Candidate: types.Sentence{ID: 7, Text: "That was up 20 basis points.", Speaker: "CFO"},
	})
	require.NoError(t, err)

	assert.True(t, res.Extend)
	assert.Equal(t, []int{2}, res.RelatedChunkIDs)
	require.Len(t, res.AdditionalContext, 1)
	assert.Equal(t, 7, res.AdditionalContext[0].SourceSentenceID)
	assert.Equal(t, llm.TierLite, gotTier)
	assert.Contains(t, gotPrompt, "[chunk 2] (CFO) Capital remained strong.")
	assert.Contains(t, gotPrompt, "[sentence 7] (CFO):")
	assert.Contains(t, gotPrompt, "(end of transcript)")
}

func TestLLMOracle_Assign_SchemaViolation(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return `{"related_chunk_ids": [1]}`, nil
		},
	}
	o := NewLLMOracle(client, DefaultLLMOptions())

	_, err := o.Assign(context.Background(), &AssignRequest{Key: testKey, Candidate: types.Sentence{ID: 1, Text: "Hi."}})
	require.Error(t, err)

	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, KindMalformed, oerr.Kind)
	assert.Equal(t, "assign", oerr.Op)
}

func TestLLMOracle_Assign_ProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"rate limited", &googleapi.Error{Code: 429}, KindRateLimit},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"other", errors.New("connection reset"), KindProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockLLMClient{
				GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
					return "", tt.err
				},
			}
			o := NewLLMOracle(client, DefaultLLMOptions())

			_, err := o.Assign(context.Background(), &AssignRequest{Key: testKey, Candidate: types.Sentence{ID: 1, Text: "Hi."}})
			var oerr *Error
			require.ErrorAs(t, err, &oerr)
			assert.Equal(t, tt.want, oerr.Kind)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestLLMOracle_Tag_NormalizesLabels(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			assert.Equal(t, llm.TierStandard, tier)
			assert.Contains(t, prompt, "for RBC")
			return `{"tags": [" NIM ", "nim", "", "Capital"], "topics": ["Net interest margin"]}`, nil
		},
	}
	o := NewLLMOracle(client, DefaultLLMOptions())

	res, err := o.Tag(context.Background(), &TagRequest{Key: testKey, Chunk: ChunkView{ID: 1, Content: "NIM expanded."}})
	require.NoError(t, err)
	assert.Equal(t, []string{"nim", "capital"}, res.Tags)
	assert.Equal(t, []string{"Net interest margin"}, res.Topics)
}

func TestLLMOracle_Embed_DimensionCheck(t *testing.T) {
	client := &MockLLMClient{}

	o := NewLLMOracle(client, LLMOptions{EmbeddingDimensions: 3})
	vec, err := o.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, vec, 3)

	o = NewLLMOracle(client, LLMOptions{EmbeddingDimensions: 768})
	_, err = o.Embed(context.Background(), "text")
	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, KindMalformed, oerr.Kind)
	assert.Contains(t, oerr.Error(), "want 768")
}

func TestLLMOracle_SectionBoundary(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			assert.Contains(t, prompt, "question_answer")
			assert.Contains(t, prompt, "this is the first chunk")
			assert.Contains(t, prompt, "NEXT CHUNK (1 of 4)")
			return `{"new_section": true, "section_type": "introduction", "section_name": "  Opening remarks "}`, nil
		},
	}
	o := NewLLMOracle(client, DefaultLLMOptions())

	res, err := o.SectionBoundary(context.Background(), &BoundaryRequest{
		Key:      testKey,
		Chunk:    ChunkView{ID: 1, Content: "Good morning."},
		Position: 1,
		Total:    4,
	})
	require.NoError(t, err)
	assert.True(t, res.NewSection)
	assert.Equal(t, "introduction", res.SectionType)
	assert.Equal(t, "Opening remarks", res.SectionName)
}

func TestLLMOracle_Summarize(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			assert.Equal(t, llm.TierAdvanced, tier)
			assert.True(t, strings.Contains(prompt, `SECTION: "Q&A" (question_answer)`))
			return `{"section_summary": " Analysts asked about credit. "}`, nil
		},
	}
	o := NewLLMOracle(client, DefaultLLMOptions())

	summary, err := o.Summarize(context.Background(), &SummarizeRequest{
		Key:     testKey,
		Section: SectionView{ID: 3, Type: types.SectionTypeQuestionAnswer, Name: "Q&A"},
		Chunks:  []ChunkView{{ID: 9, Content: "How is credit?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Analysts asked about credit.", summary)
}
