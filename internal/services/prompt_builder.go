package services

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"interviewprep/internal/config"
	"interviewprep/internal/models"
	contextutils "interviewprep/internal/utils"
)

//go:embed templates/*.tmpl
var promptTemplatesFS embed.FS

// Template names
const (
	QuestionsPromptTemplate   = "questions.tmpl"
	ExplanationPromptTemplate = "explanation.tmpl"
)

// JSON schemas for provider output. They are sent as the grammar field to providers that
// support it, embedded in the prompt for those that don't, and used by the normalizer.
const (
	QuestionItemSchema = `{
		"type": "object",
		"properties": {
			"question": {"type": "string", "minLength": 1},
			"answer": {"type": "string", "minLength": 1}
		},
		"required": ["question", "answer"]
	}`

	ExplanationSchema = `{
		"type": "object",
		"properties": {
			"title": {"type": "string"},
			"explanation": {"type": "string", "minLength": 1}
		},
		"required": ["explanation"]
	}`
)

// QuestionSetSchema is a batch wrapper around QuestionItemSchema.
var QuestionSetSchema = fmt.Sprintf(`{"type":"array","items":%s}`, QuestionItemSchema)

// Shape is the JSON structure a prompt asks the provider for
type Shape string

const (
	// ShapeQuestionSet is a JSON array of {"question","answer"} objects
	ShapeQuestionSet Shape = "question_set"
	// ShapeExplanation is a JSON object {"title","explanation"}
	ShapeExplanation Shape = "explanation"
)

// ProviderPrompt is the fully rendered instruction sent to the provider
type ProviderPrompt struct {
	Text   string
	Shape  Shape
	Schema string

	// Requested is the number of items asked for; zero for explanations
	Requested int
	// Subject is the sanitized concept name, used when the provider omits a title
	Subject string
}

// InvalidRequestError reports a generation request that failed validation
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type promptTemplateData struct {
	Role            string
	ExperienceLevel string
	Topics          string
	Count           int
	ConceptName     string
	Schema          string
}

// PromptBuilder validates generation requests and renders provider prompts
type PromptBuilder struct {
	templates      *template.Template
	maxCount       int
	maxFieldLength int
	schemaInPrompt bool
}

// NewPromptBuilder parses the embedded templates. Providers without grammar support get the
// output schema embedded in the prompt text instead.
func NewPromptBuilder(cfg config.AIConfig) (*PromptBuilder, error) {
	templates, err := template.New("").ParseFS(promptTemplatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to parse prompt templates: %w", err)
	}

	maxCount := cfg.MaxQuestionCount
	if maxCount <= 0 {
		maxCount = config.DefaultMaxQuestionCount
	}
	maxFieldLength := cfg.MaxFieldLength
	if maxFieldLength <= 0 {
		maxFieldLength = config.DefaultMaxFieldLength
	}

	return &PromptBuilder{
		templates:      templates,
		maxCount:       maxCount,
		maxFieldLength: maxFieldLength,
		schemaInPrompt: !cfg.GrammarEnabled(),
	}, nil
}

// MaxCount returns the largest question count Build accepts
func (b *PromptBuilder) MaxCount() int {
	return b.maxCount
}

// Build validates req and renders the prompt for its kind
func (b *PromptBuilder) Build(req *models.GenerationRequest) (*ProviderPrompt, error) {
	if req == nil {
		return nil, &InvalidRequestError{Field: "body", Reason: "is required"}
	}

	switch req.Kind {
	case models.GenerationKindQuestions:
		return b.buildQuestions(req)
	case models.GenerationKindExplanation:
		return b.buildExplanation(req)
	default:
		return nil, &InvalidRequestError{Field: "kind", Reason: fmt.Sprintf("%q is not supported", req.Kind)}
	}
}

func (b *PromptBuilder) buildQuestions(req *models.GenerationRequest) (*ProviderPrompt, error) {
	role := b.clean(req.Role)
	if role == "" {
		return nil, &InvalidRequestError{Field: "role", Reason: "is required"}
	}
	level := b.clean(req.ExperienceLevel)
	if level == "" {
		return nil, &InvalidRequestError{Field: "experienceLevel", Reason: "is required"}
	}
	topics := b.clean(req.Topics)
	if topics == "" {
		return nil, &InvalidRequestError{Field: "topics", Reason: "is required"}
	}
	if req.Count < 1 || req.Count > b.maxCount {
		return nil, &InvalidRequestError{Field: "count", Reason: fmt.Sprintf("must be between 1 and %d", b.maxCount)}
	}

	data := promptTemplateData{
		Role:            jsonLiteral(role),
		ExperienceLevel: jsonLiteral(level),
		Topics:          jsonLiteral(topics),
		Count:           req.Count,
	}
	if b.schemaInPrompt {
		data.Schema = QuestionSetSchema
	}

	text, err := b.render(QuestionsPromptTemplate, data)
	if err != nil {
		return nil, err
	}
	return &ProviderPrompt{
		Text:      text,
		Shape:     ShapeQuestionSet,
		Schema:    QuestionSetSchema,
		Requested: req.Count,
	}, nil
}

func (b *PromptBuilder) buildExplanation(req *models.GenerationRequest) (*ProviderPrompt, error) {
	concept := b.clean(req.ConceptName)
	if concept == "" {
		return nil, &InvalidRequestError{Field: "conceptName", Reason: "is required"}
	}

	data := promptTemplateData{ConceptName: jsonLiteral(concept)}
	if b.schemaInPrompt {
		data.Schema = ExplanationSchema
	}

	text, err := b.render(ExplanationPromptTemplate, data)
	if err != nil {
		return nil, err
	}
	return &ProviderPrompt{
		Text:    text,
		Shape:   ShapeExplanation,
		Schema:  ExplanationSchema,
		Subject: concept,
	}, nil
}

func (b *PromptBuilder) render(name string, data promptTemplateData) (string, error) {
	var buf strings.Builder
	if err := b.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (b *PromptBuilder) clean(s string) string {
	return contextutils.SanitizeUserText(s, b.maxFieldLength)
}

// jsonLiteral quotes s as a JSON string. encoding/json escapes <, > and & so a value can
// never contain the block delimiters.
func jsonLiteral(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(out)
}
