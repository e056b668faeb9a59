package ingestion

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexwday/aegis-project-sub000/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, name, content string) types.TranscriptSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return types.TranscriptSource{
		Key:     types.IdentityKey{BankName: "RBC", FiscalYear: 2024, FiscalQuarter: "Q3", DocumentName: "call"},
		Path:    path,
		Size:    int64(len(content)),
		ModTime: time.Now(),
	}
}

func TestExtract_TextWithSpeakers(t *testing.T) {
	src := writeSource(t, "call.txt", "Operator: Good morning. Welcome to the call.\n\nJane Doe - CFO: Thank you. Revenue grew 5%.\n\nOperator: First question.")

	tr, err := NewExtractor(nil).Extract(src)
	require.NoError(t, err)

	require.Len(t, tr.Sentences, 5)
	for i, s := range tr.Sentences {
		assert.Equal(t, i+1, s.ID)
	}
	assert.Equal(t, "Good morning.", tr.Sentences[0].Text)
	assert.Equal(t, "Operator", tr.Sentences[0].Speaker)
	assert.Equal(t, "Thank you.", tr.Sentences[2].Text)
	assert.Equal(t, "Jane Doe", tr.Sentences[2].Speaker)
	assert.Equal(t, 1, tr.Sentences[3].Position)
	assert.Equal(t, "Operator", tr.Sentences[4].Speaker)
	assert.Equal(t, 2, tr.Sentences[4].Position)
	assert.Equal(t, []string{"Operator", "Jane Doe"}, tr.Speakers)
	assert.Equal(t, 3, tr.BlockCount)
	assert.Equal(t, src, tr.Source)
}

func TestExtract_HTML(t *testing.T) {
	src := writeSource(t, "call.html", `<body><p>Operator: Hello. Welcome.</p><p>John Roe: Hi.</p></body>`)

	tr, err := NewExtractor(nil).Extract(src)
	require.NoError(t, err)
	require.Len(t, tr.Sentences, 3)
	assert.Equal(t, "John Roe", tr.Sentences[2].Speaker)
}

func TestExtract_Errors(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		src := writeSource(t, "call.pdf", "binary")
		_, err := NewExtractor(nil).Extract(src)

		var exErr *ExtractionError
		require.ErrorAs(t, err, &exErr)
		assert.Contains(t, exErr.Message, "unsupported extension")
	})

	t.Run("missing file", func(t *testing.T) {
		src := writeSource(t, "call.txt", "x")
		require.NoError(t, os.Remove(src.Path))
		_, err := NewExtractor(nil).Extract(src)

		var exErr *ExtractionError
		require.ErrorAs(t, err, &exErr)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("no sentences", func(t *testing.T) {
		src := writeSource(t, "call.md", "# \n\nOperator:\n")
		_, err := NewExtractor(nil).Extract(src)

		var exErr *ExtractionError
		require.ErrorAs(t, err, &exErr)
		assert.Equal(t, "no sentences found", exErr.Message)
	})

	t.Run("too large", func(t *testing.T) {
		src := writeSource(t, "call.txt", "Hello there. General Kenobi.")
		ex := NewExtractor(nil)
		ex.MaxBytes = 4
		_, err := ex.Extract(src)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "limit is 4")
	})
}
