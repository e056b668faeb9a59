package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText_TranscriptArtifacts(t *testing.T) {
	input := "\ufeffOperator:\u00a0Good morning,\u00a0\u00a0ladies and gentlemen.\r\n\r\n\r\n\r\n" +
		"Jane Doe - CFO:\tThank you, operator.  \r\n"

	assert.Equal(t,
		"Operator: Good morning, ladies and gentlemen.\n\nJane Doe - CFO: Thank you, operator.",
		CleanText(input))
}

func TestCleanText_BlankInputs(t *testing.T) {
	for _, in := range []string{"", "\ufeff", " \u00a0\n\r\n\t"} {
		assert.Empty(t, CleanText(in), "input %q", in)
	}
}

func TestCleanText_KeepsAccentedSpeakers(t *testing.T) {
	line := "Benoît Côté – Chief Risk Officer: Provisions were $1.2 billion."
	assert.Equal(t, line, CleanText(line))
}

func TestSplitBlocks_SpeakerTurns(t *testing.T) {
	input := "## Q3 2024 Earnings Call\n\n" +
		"Operator: Good morning.\nWelcome to the Royal Bank call.\n" +
		"Dave McKay - President and CEO: Thanks, operator.\nRevenue was strong: up 8% year over year.\n\n" +
		"> Forward-looking statements apply.\n- Net income rose 12%.\n"

	assert.Equal(t, []string{
		"Q3 2024 Earnings Call",
		"Operator: Good morning. Welcome to the Royal Bank call.",
		"Dave McKay - President and CEO: Thanks, operator. Revenue was strong: up 8% year over year.",
		"Forward-looking statements apply. Net income rose 12%.",
	}, SplitBlocks(CleanText(input)))
}

func TestSplitBlocks_Empty(t *testing.T) {
	assert.Empty(t, SplitBlocks(""))
	assert.Empty(t, SplitBlocks("-\n\n#"))
}
