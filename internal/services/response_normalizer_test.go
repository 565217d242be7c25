package services

import (
	"context"
	"strings"
	"testing"

	"interviewprep/internal/models"
	"interviewprep/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) (*ResponseNormalizer, *recordingMetrics) {
	t.Helper()
	metrics := &recordingMetrics{}
	n, err := NewResponseNormalizer(observability.NewNopLogger(), metrics)
	require.NoError(t, err)
	return n, metrics
}

const threePairs = `[
	{"question": "What is a goroutine?", "answer": "A lightweight thread managed by the Go runtime."},
	{"question": "What is a channel?", "answer": "A typed conduit for communication between goroutines."},
	{"question": "What does select do?", "answer": "It waits on multiple channel operations."}
]`

func TestNormalize_ExactPairs(t *testing.T) {
	n, metrics := newTestNormalizer(t)

	result, err := n.Normalize(context.Background(), threePairs, ShapeQuestionSet, 3)
	require.NoError(t, err)

	assert.Equal(t, models.GenerationKindQuestions, result.Kind)
	require.Len(t, result.Questions, 3)
	assert.Equal(t, "What is a goroutine?", result.Questions[0].Question)
	assert.Equal(t, "It waits on multiple channel operations.", result.Questions[2].Answer)
	assert.False(t, result.CountMismatch())
	assert.Zero(t, metrics.mismatches)
}

func TestNormalize_FencedJSON(t *testing.T) {
	n, _ := newTestNormalizer(t)

	for _, fenced := range []string{
		"```json\n" + threePairs + "\n```",
		"```\n" + threePairs + "\n```",
		"  \n```JSON\n" + threePairs + "```  ",
	} {
		result, err := n.Normalize(context.Background(), fenced, ShapeQuestionSet, 3)
		require.NoError(t, err)
		assert.Len(t, result.Questions, 3)
	}
}

func TestNormalize_ProseOnly(t *testing.T) {
	n, _ := newTestNormalizer(t)
	raw := "Sure! Here are some great interview questions about Go."

	result, err := n.Normalize(context.Background(), raw, ShapeQuestionSet, 3)
	assert.Nil(t, result)

	pf, ok := AsProviderFailure(err)
	require.True(t, ok)
	assert.Equal(t, FailureMalformedResponse, pf.Kind)
	assert.Equal(t, raw, pf.Raw)
}

func TestNormalize_RepairsProseAndTrailingCommas(t *testing.T) {
	n, _ := newTestNormalizer(t)
	raw := `Here you go:
[
  {"question": "Q1", "answer": "A1",},
  {"question": "Q2", "answer": "A2"},
]
Good luck!`

	result, err := n.Normalize(context.Background(), raw, ShapeQuestionSet, 2)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionSet{{Question: "Q1", Answer: "A1"}, {Question: "Q2", Answer: "A2"}}, result.Questions)
}

func TestNormalize_WrappedQuestions(t *testing.T) {
	n, _ := newTestNormalizer(t)

	result, err := n.Normalize(context.Background(), `{"questions": `+threePairs+`}`, ShapeQuestionSet, 3)
	require.NoError(t, err)
	assert.Len(t, result.Questions, 3)
}

func TestNormalize_DropsInvalidItems(t *testing.T) {
	n, metrics := newTestNormalizer(t)
	raw := `[
		{"question": "Valid?", "answer": "Yes."},
		{"question": "No answer"},
		{"question": "   ", "answer": "blank question"},
		{"question": 42, "answer": "wrong type"},
		"just a string"
	]`

	result, err := n.Normalize(context.Background(), raw, ShapeQuestionSet, 5)
	require.NoError(t, err)

	assert.Equal(t, models.QuestionSet{{Question: "Valid?", Answer: "Yes."}}, result.Questions)
	assert.Equal(t, 4, result.Dropped)
	assert.True(t, result.CountMismatch())
	assert.Equal(t, 1, metrics.mismatches)
}

func TestNormalize_CountMismatchIsNotAnError(t *testing.T) {
	n, metrics := newTestNormalizer(t)

	result, err := n.Normalize(context.Background(), threePairs, ShapeQuestionSet, 5)
	require.NoError(t, err)
	assert.Len(t, result.Questions, 3)
	assert.Zero(t, result.Dropped)
	assert.Equal(t, 1, metrics.mismatches)
}

func TestNormalize_NoValidItems(t *testing.T) {
	n, _ := newTestNormalizer(t)

	for _, raw := range []string{`[]`, `[{"question": ""}]`, `{"items": []}`} {
		_, err := n.Normalize(context.Background(), raw, ShapeQuestionSet, 2)
		pf, ok := AsProviderFailure(err)
		require.True(t, ok, raw)
		assert.Equal(t, FailureMalformedResponse, pf.Kind)
	}
}

func TestNormalize_Explanation(t *testing.T) {
	n, _ := newTestNormalizer(t)

	result, err := n.Normalize(context.Background(),
		"```json\n{\"title\": \" Closures \", \"explanation\": \"A closure captures variables.\"}\n```",
		ShapeExplanation, 0)
	require.NoError(t, err)

	require.NotNil(t, result.Explanation)
	assert.Equal(t, models.GenerationKindExplanation, result.Kind)
	assert.Equal(t, "Closures", result.Explanation.Title)
	assert.Equal(t, "A closure captures variables.", result.Explanation.Explanation)
	assert.Empty(t, result.Questions)
}

func TestNormalize_ExplanationWithoutTitle(t *testing.T) {
	n, _ := newTestNormalizer(t)

	result, err := n.Normalize(context.Background(), `Sure: {"explanation": "Body",}`, ShapeExplanation, 0)
	require.NoError(t, err)
	assert.Empty(t, result.Explanation.Title)
	assert.Equal(t, "Body", result.Explanation.Explanation)
}

func TestNormalize_ExplanationInvalid(t *testing.T) {
	n, _ := newTestNormalizer(t)

	for _, raw := range []string{
		`{"title": "T", "explanation": "   "}`,
		`{"title": "T"}`,
		`["not", "an", "object"]`,
		`I cannot help with that.`,
	} {
		_, err := n.Normalize(context.Background(), raw, ShapeExplanation, 0)
		pf, ok := AsProviderFailure(err)
		require.True(t, ok, raw)
		assert.Equal(t, FailureMalformedResponse, pf.Kind, raw)
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json{\"a\":1}```"))
	assert.Equal(t, `[1]`, stripCodeFences("  [1]  "))
}

func TestBalancedBlock(t *testing.T) {
	text := `noise {"a": [1, 2,], } tail`
	block, ok := balancedBlock(text, strings.IndexByte(text, '{'))
	require.True(t, ok)
	assert.Equal(t, `{"a": [1, 2]}`, block)

	_, ok = balancedBlock(`[1, 2`, 0)
	assert.False(t, ok)

	_, ok = balancedBlock(`[1, 2}`, 0)
	assert.False(t, ok)

	block, ok = balancedBlock(`{"s": "a, ] b,}", "e": "\\"}`, 0)
	require.True(t, ok)
	assert.Equal(t, `{"s": "a, ] b,}", "e": "\\"}`, block)
}

func TestNormalize_FenceAfterProse(t *testing.T) {
	n, _ := newTestNormalizer(t)
	raw := "Sure!\n```json\n" + threePairs + "\n```\nHope this helps [1]."

	result, err := n.Normalize(context.Background(), raw, ShapeQuestionSet, 3)
	require.NoError(t, err)
	assert.Len(t, result.Questions, 3)
}

func TestNormalize_BracketsInCommentary(t *testing.T) {
	n, _ := newTestNormalizer(t)

	result, err := n.Normalize(context.Background(), "Here are [2] questions:\n"+threePairs+"\nSee {docs}.", ShapeQuestionSet, 3)
	require.NoError(t, err)
	assert.Len(t, result.Questions, 3)

	result, err = n.Normalize(context.Background(),
		"Use struct{}{} as a value.\n{\"title\": \"T\", \"explanation\": \"body\"}\nNote: use map[string]struct{}{} for sets.",
		ShapeExplanation, 0)
	require.NoError(t, err)
	assert.Equal(t, "T", result.Explanation.Title)
	assert.Equal(t, "body", result.Explanation.Explanation)
}

func TestNormalize_CodeFenceInsideExplanation(t *testing.T) {
	n, _ := newTestNormalizer(t)
	raw := `{"title": "Loops", "explanation": "Example:\n` + "```go" + `\nfor {}\n` + "```" + `"}`

	result, err := n.Normalize(context.Background(), raw, ShapeExplanation, 0)
	require.NoError(t, err)
	assert.Equal(t, "Example:\n```go\nfor {}\n```", result.Explanation.Explanation)
}

func TestNormalize_RepairKeepsStringContents(t *testing.T) {
	n, _ := newTestNormalizer(t)
	raw := `Here:
[
  {"question": "What does f(a, ]) print?", "answer": "A syntax error, {obviously,}",},
]`

	result, err := n.Normalize(context.Background(), raw, ShapeQuestionSet, 1)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionSet{{
		Question: "What does f(a, ]) print?",
		Answer:   "A syntax error, {obviously,}",
	}}, result.Questions)
}
