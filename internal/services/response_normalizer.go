package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"interviewprep/internal/models"
	"interviewprep/internal/observability"
	contextutils "interviewprep/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// ResponseNormalizer turns raw provider text into a validated GenerationResult
type ResponseNormalizer struct {
	itemSchema        *gojsonschema.Schema
	explanationSchema *gojsonschema.Schema
	logger            *observability.Logger
	metrics           GenerationMetrics
}

// NewResponseNormalizer compiles the output schemas
func NewResponseNormalizer(logger *observability.Logger, metrics GenerationMetrics) (*ResponseNormalizer, error) {
	itemSchema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(QuestionItemSchema))
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to compile question schema: %w", err)
	}
	explanationSchema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(ExplanationSchema))
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to compile explanation schema: %w", err)
	}
	return &ResponseNormalizer{
		itemSchema:        itemSchema,
		explanationSchema: explanationSchema,
		logger:            logger,
		metrics:           metricsOrNoop(metrics),
	}, nil
}

// Normalize parses raw as shape. A question set with fewer or more valid items than
// requested is returned as is; the mismatch is only logged and counted.
func (n *ResponseNormalizer) Normalize(ctx context.Context, raw string, shape Shape, requested int) (result *models.GenerationResult, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "normalize_response",
		attribute.String("ai.shape", string(shape)),
		attribute.Int("response.length", len(raw)),
	)
	defer observability.FinishSpan(span, &err)

	switch shape {
	case ShapeQuestionSet:
		return n.normalizeQuestions(ctx, raw, requested)
	case ShapeExplanation:
		return n.normalizeExplanation(raw)
	default:
		return nil, contextutils.ErrorWithContextf("unknown response shape %q", shape)
	}
}

func (n *ResponseNormalizer) normalizeQuestions(ctx context.Context, raw string, requested int) (*models.GenerationResult, error) {
	items, err := parseWithRepair(raw, ShapeQuestionSet, decodeQuestionItems)
	if err != nil {
		return nil, err
	}

	result := &models.GenerationResult{
		Kind:      models.GenerationKindQuestions,
		Questions: make(models.QuestionSet, 0, len(items)),
		Requested: requested,
	}
	for _, item := range items {
		qa, ok := n.validQuestion(item)
		if !ok {
			result.Dropped++
			continue
		}
		result.Questions = append(result.Questions, qa)
	}

	if len(result.Questions) == 0 {
		return nil, &ProviderFailure{
			Kind: FailureMalformedResponse,
			Raw:  raw,
			Err:  fmt.Errorf("no valid questions among %d items", len(items)),
		}
	}

	if result.Dropped > 0 {
		n.logger.Warn(ctx, "Dropped invalid generated questions", map[string]interface{}{
			"dropped": result.Dropped,
			"kept":    len(result.Questions),
		})
	}
	if result.CountMismatch() {
		n.logger.Warn(ctx, "Provider returned a different number of questions than requested", map[string]interface{}{
			"requested": requested,
			"returned":  len(result.Questions),
		})
		n.metrics.CountMismatch(string(result.Kind), requested, len(result.Questions))
	}
	return result, nil
}

func (n *ResponseNormalizer) validQuestion(item json.RawMessage) (models.QuestionAnswer, bool) {
	validation, err := n.itemSchema.Validate(gojsonschema.NewBytesLoader(item))
	if err != nil || !validation.Valid() {
		return models.QuestionAnswer{}, false
	}

	var qa models.QuestionAnswer
	if err := json.Unmarshal(item, &qa); err != nil {
		return models.QuestionAnswer{}, false
	}
	qa.Question = strings.TrimSpace(qa.Question)
	qa.Answer = strings.TrimSpace(qa.Answer)
	if qa.Question == "" || qa.Answer == "" {
		return models.QuestionAnswer{}, false
	}
	return qa, true
}

func (n *ResponseNormalizer) normalizeExplanation(raw string) (*models.GenerationResult, error) {
	obj, err := parseWithRepair(raw, ShapeExplanation, decodeExplanationObject)
	if err != nil {
		return nil, err
	}

	validation, err := n.explanationSchema.Validate(gojsonschema.NewBytesLoader(obj))
	if err != nil || !validation.Valid() {
		return nil, &ProviderFailure{Kind: FailureMalformedResponse, Raw: raw, Err: errors.New("explanation does not match schema")}
	}

	var explanation models.Explanation
	if err := json.Unmarshal(obj, &explanation); err != nil {
		return nil, &ProviderFailure{Kind: FailureMalformedResponse, Raw: raw, Err: err}
	}
	explanation.Title = strings.TrimSpace(explanation.Title)
	explanation.Explanation = strings.TrimSpace(explanation.Explanation)
	if explanation.Explanation == "" {
		return nil, &ProviderFailure{Kind: FailureMalformedResponse, Raw: raw, Err: errors.New("explanation body is empty")}
	}

	return &models.GenerationResult{
		Kind:        models.GenerationKindExplanation,
		Explanation: &explanation,
	}, nil
}

// parseWithRepair decodes the response as is, then without its code fence, then tries
// each balanced JSON block in the text in order until one decodes as shape
func parseWithRepair[T any](raw string, shape Shape, decode func([]byte) (T, error)) (T, error) {
	trimmed := strings.TrimSpace(raw)
	value, err := decode([]byte(trimmed))
	if err == nil {
		return value, nil
	}

	cleaned := stripCodeFences(raw)
	if cleaned != trimmed {
		if value, cerr := decode([]byte(cleaned)); cerr == nil {
			return value, nil
		}
	}

	texts := []string{cleaned}
	if cleaned != trimmed {
		texts = append(texts, trimmed)
	}
	for _, text := range texts {
		tried := 0
		for i := 0; i < len(text) && tried < maxRepairCandidates; i++ {
			if text[i] != '[' && text[i] != '{' {
				continue
			}
			block, ok := balancedBlock(text, i)
			if !ok {
				continue
			}
			tried++
			if value, rerr := decode([]byte(block)); rerr == nil {
				return value, nil
			}
		}
	}

	var zero T
	return zero, &ProviderFailure{
		Kind: FailureMalformedResponse,
		Raw:  raw,
		Err:  fmt.Errorf("response is not valid %s JSON: %w", shape, err),
	}
}

// Upper bound on blocks tried per text, so prose full of brackets stays cheap
const maxRepairCandidates = 32

// decodeQuestionItems accepts a top-level array or an object wrapping one under "questions".
// At least one item must be an object, so bracketed prose like "[1]" is not taken for the set.
func decodeQuestionItems(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response")
	}

	var items []json.RawMessage
	if trimmed[0] == '{' {
		var wrapper struct {
			Questions []json.RawMessage `json:"questions"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, err
		}
		if wrapper.Questions == nil {
			return nil, errors.New("object has no questions array")
		}
		items = wrapper.Questions
	} else if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}

	for _, item := range items {
		if t := bytes.TrimSpace(item); len(t) > 0 && t[0] == '{' {
			return items, nil
		}
	}
	return nil, errors.New("array holds no question objects")
}

// decodeExplanationObject accepts an object carrying an "explanation" field
func decodeExplanationObject(data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("expected a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}
	if _, ok := fields["explanation"]; !ok {
		return nil, errors.New("object has no explanation field")
	}
	return json.RawMessage(trimmed), nil
}

// stripCodeFences returns the contents of the first markdown code block in s, wherever it
// sits, or s itself when there is none
func stripCodeFences(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return strings.TrimSpace(s)
	}

	body := s[start+3:]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}

	// Drop the language tag
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && isFenceTag(body[:nl]) {
		body = body[nl+1:]
	} else {
		body = strings.TrimLeftFunc(body, unicode.IsLetter)
	}
	return strings.TrimSpace(body)
}

func isFenceTag(line string) bool {
	for _, r := range strings.TrimSpace(line) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' && r != '+' {
			return false
		}
	}
	return true
}

// balancedBlock returns the JSON array or object opening at s[start], with trailing commas
// before a closing bracket removed. Brackets and commas inside strings are left alone.
func balancedBlock(s string, start int) (string, bool) {
	var out strings.Builder
	stack := make([]byte, 0, 8)
	inString, escaped := false, false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			out.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '[', '{':
			stack = append(stack, c)
		case ']', '}':
			if len(stack) == 0 || !closes(stack[len(stack)-1], c) {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				out.WriteByte(c)
				return out.String(), true
			}
		case ',':
			j := i + 1
			for j < len(s) && isJSONSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				i = j - 1
				continue
			}
		}
		out.WriteByte(c)
	}
	return "", false
}

func closes(open, c byte) bool {
	return (open == '[' && c == ']') || (open == '{' && c == '}')
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
