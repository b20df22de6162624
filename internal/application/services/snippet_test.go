package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSnippet_WindowAroundTerm(t *testing.T) {
	snippet := GenerateSnippet("the quick brown fox", []string{"brown"}, 10)

	assert.Contains(t, snippet, "brown")
	assert.Equal(t, "...uick brown fox", snippet)
}

func TestGenerateSnippet_EarliestTermWins(t *testing.T) {
	content := strings.Repeat("a", 50) + " Beta " + strings.Repeat("b", 50) + " alpha " + strings.Repeat("c", 50)
	snippet := GenerateSnippet(content, []string{"alpha", "beta"}, 20)

	assert.Equal(t, "...aaaaaaaaa Beta bbbbbbbbb...", snippet)
}

func TestGenerateSnippet_CaseInsensitive(t *testing.T) {
	snippet := GenerateSnippet("Quarterly REVIEW notes", []string{"review"}, 200)
	assert.Equal(t, "Quarterly REVIEW notes", snippet)
}

func TestGenerateSnippet_NoTermsReturnsLeadingText(t *testing.T) {
	content := strings.Repeat("x", 250)

	snippet := GenerateSnippet(content, nil, 200)
	assert.Equal(t, strings.Repeat("x", 200)+"...", snippet)

	short := GenerateSnippet("short note", nil, 200)
	assert.Equal(t, "short note", short)
}

func TestGenerateSnippet_TermNotFoundReturnsLeadingText(t *testing.T) {
	snippet := GenerateSnippet("groceries: eggs, milk", []string{"meeting"}, 5)
	assert.Equal(t, "groce...", snippet)
}

func TestGenerateSnippet_EmptyContent(t *testing.T) {
	assert.Equal(t, "", GenerateSnippet("", []string{"x"}, 200))
}

func TestGenerateSnippet_CountsRunes(t *testing.T) {
	snippet := GenerateSnippet("café crème brûlée", []string{"crème"}, 4)
	assert.Equal(t, "...é crème b...", snippet)
}

func TestContainsFold(t *testing.T) {
	assert.True(t, containsFold("Meeting notes", "meeting"))
	assert.False(t, containsFold("Meeting notes", "grocery"))
	assert.False(t, containsFold("Meeting notes", ""))
}
