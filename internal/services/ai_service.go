// Package services provides business logic services for the interview-prep gateway.
package services

import (
	"context"
	"errors"

	"interviewprep/internal/config"
	"interviewprep/internal/models"
	"interviewprep/internal/observability"
	contextutils "interviewprep/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// AIServiceInterface generates interview material through the configured provider
type AIServiceInterface interface {
	GenerateQuestions(ctx context.Context, req *models.GenerationRequest) (models.QuestionSet, error)
	GenerateExplanation(ctx context.Context, req *models.GenerationRequest) (*models.Explanation, error)
}

// AIService composes the prompt builder, generation client and response normalizer.
// Every call makes exactly one Generate call.
type AIService struct {
	builder    *PromptBuilder
	client     Generator
	normalizer *ResponseNormalizer
	provider   string
	logger     *observability.Logger
	metrics    GenerationMetrics
}

// NewAIService wires the generation pipeline from configuration
func NewAIService(cfg *config.Config, logger *observability.Logger, metrics GenerationMetrics) (*AIService, error) {
	client, err := NewGenerationClient(cfg.AI, logger, WithClientMetrics(metrics))
	if err != nil {
		return nil, err
	}
	return NewAIServiceWithGenerator(cfg, client, logger, metrics)
}

// NewAIServiceWithGenerator builds the service around an existing Generator
func NewAIServiceWithGenerator(cfg *config.Config, generator Generator, logger *observability.Logger, metrics GenerationMetrics) (*AIService, error) {
	builder, err := NewPromptBuilder(cfg.AI)
	if err != nil {
		return nil, err
	}
	normalizer, err := NewResponseNormalizer(logger, metrics)
	if err != nil {
		return nil, err
	}
	return &AIService{
		builder:    builder,
		client:     generator,
		normalizer: normalizer,
		provider:   cfg.AI.Provider,
		logger:     logger,
		metrics:    metricsOrNoop(metrics),
	}, nil
}

// Close releases the generation client's idle connections
func (s *AIService) Close() {
	if closer, ok := s.client.(interface{ Close() }); ok {
		closer.Close()
	}
}

// GenerateQuestions returns the valid question/answer pairs for req
func (s *AIService) GenerateQuestions(ctx context.Context, req *models.GenerationRequest) (result models.QuestionSet, err error) {
	if req == nil {
		return nil, &InvalidRequestError{Field: "body", Reason: "is required"}
	}
	if req.Kind == "" {
		req.Kind = models.GenerationKindQuestions
	}
	if req.Kind != models.GenerationKindQuestions {
		return nil, contextutils.ErrorWithContextf("GenerateQuestions called with kind %q", req.Kind)
	}

	generated, err := s.generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return generated.Questions, nil
}

// GenerateExplanation returns a titled explanation of req.ConceptName
func (s *AIService) GenerateExplanation(ctx context.Context, req *models.GenerationRequest) (result *models.Explanation, err error) {
	if req == nil {
		return nil, &InvalidRequestError{Field: "body", Reason: "is required"}
	}
	if req.Kind == "" {
		req.Kind = models.GenerationKindExplanation
	}
	if req.Kind != models.GenerationKindExplanation {
		return nil, contextutils.ErrorWithContextf("GenerateExplanation called with kind %q", req.Kind)
	}

	generated, err := s.generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return generated.Explanation, nil
}

func (s *AIService) generate(ctx context.Context, req *models.GenerationRequest) (result *models.GenerationResult, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "generate_"+string(req.Kind),
		observability.AttributeGenerationKind(string(req.Kind)),
		observability.AttributeProvider(s.provider),
		observability.AttributeCount(req.Count),
	)
	defer observability.FinishSpan(span, &err)
	defer func() {
		s.metrics.GenerationCompleted(string(req.Kind), generationOutcome(err))
	}()

	prompt, err := s.builder.Build(req)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.Generate(ctx, prompt)
	if err != nil {
		s.logFailure(ctx, "AI generation failed", req, err)
		return nil, err
	}

	result, err = s.normalizer.Normalize(ctx, raw, prompt.Shape, prompt.Requested)
	if err != nil {
		s.logFailure(ctx, "AI response could not be normalized", req, err)
		return nil, err
	}

	if result.Explanation != nil && result.Explanation.Title == "" {
		result.Explanation.Title = prompt.Subject
	}
	span.SetAttributes(
		attribute.Int("ai.items_returned", len(result.Questions)),
		attribute.Int("ai.items_dropped", result.Dropped),
	)
	return result, nil
}

// logFailure keeps raw provider output in server logs; it never reaches the caller
func (s *AIService) logFailure(ctx context.Context, msg string, req *models.GenerationRequest, err error) {
	fields := map[string]interface{}{
		"generation_kind": string(req.Kind),
		"provider":        s.provider,
	}
	if pf, ok := AsProviderFailure(err); ok {
		fields["failure_kind"] = pf.Kind.String()
		if pf.StatusCode != 0 {
			fields["status_code"] = pf.StatusCode
		}
		if pf.Raw != "" {
			fields["raw_response"] = truncate(pf.Raw, 2000)
		}
	}
	s.logger.Error(ctx, msg, err, fields)
}

func generationOutcome(err error) string {
	if err == nil {
		return "success"
	}
	var invalid *InvalidRequestError
	if errors.As(err, &invalid) {
		return "invalid_request"
	}
	if pf, ok := AsProviderFailure(err); ok {
		return pf.Kind.String()
	}
	return "error"
}
