package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"interviewprep/internal/config"
	"interviewprep/internal/observability"
	contextutils "interviewprep/internal/utils"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const (
	maxProviderAttempts = 2
	// Bodies larger than this are cut off and will fail to parse
	maxProviderResponseBytes = 4 << 20
)

// Generator produces raw provider text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt *ProviderPrompt) (string, error)
}

// GenerationClient calls the configured AI provider with a bounded, singly-retried request.
// It is safe for concurrent use.
type GenerationClient struct {
	adapter    providerAdapter
	httpClient *http.Client
	sem        *semaphore.Weighted
	timeout    time.Duration
	backoff    time.Duration
	model      string
	logger     *observability.Logger
	metrics    GenerationMetrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// ClientOption customizes a GenerationClient
type ClientOption func(*GenerationClient)

// WithClientMetrics records each provider attempt
func WithClientMetrics(m GenerationMetrics) ClientOption {
	return func(c *GenerationClient) {
		c.metrics = metricsOrNoop(m)
	}
}

// WithSleep replaces the backoff wait, for tests
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *GenerationClient) {
		c.sleep = sleep
	}
}

// NewGenerationClient creates a client for cfg.Provider. The transport allows at most
// MaxConcurrent connections to the provider host, matching the admission semaphore.
func NewGenerationClient(cfg config.AIConfig, logger *observability.Logger, opts ...ClientOption) (*GenerationClient, error) {
	adapter, err := newProviderAdapter(cfg)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrAIConfigInvalid, "failed to create generation client: %w", err)
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = config.DefaultAIMaxConcurrent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultAITimeout
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = config.DefaultAIRetryBackoff
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxConnsPerHost = maxConcurrent
	transport.MaxIdleConnsPerHost = maxConcurrent

	c := &GenerationClient{
		adapter: adapter,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
			),
		},
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		timeout: timeout,
		backoff: backoff,
		model:   cfg.Model,
		logger:  logger,
		metrics: noopMetrics{},
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Provider returns the adapter name
func (c *GenerationClient) Provider() string {
	return c.adapter.name()
}

// Close releases idle provider connections
func (c *GenerationClient) Close() {
	c.httpClient.CloseIdleConnections()
}

// Generate sends prompt to the provider and returns its text. The call is detached from the
// caller's cancellation but bounded by the configured timeout across all attempts.
// Errors are always *ProviderFailure.
func (c *GenerationClient) Generate(ctx context.Context, prompt *ProviderPrompt) (result string, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "generate",
		observability.AttributeProvider(c.adapter.name()),
		observability.AttributeModel(c.model),
		attribute.String("ai.shape", string(prompt.Shape)),
		attribute.Int("prompt.length", len(prompt.Text)),
	)
	defer observability.FinishSpan(span, &err)

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if err := c.sem.Acquire(callCtx, 1); err != nil {
		span.SetAttributes(attribute.String("call.result", "admission_timeout"))
		return "", &ProviderFailure{Kind: FailureTimeout, Err: fmt.Errorf("waiting for a provider slot: %w", err)}
	}
	defer c.sem.Release(1)

	for attempt := 1; ; attempt++ {
		span.SetAttributes(attribute.Int("ai.attempts", attempt))
		result, err = c.attempt(callCtx, prompt)
		if err == nil {
			span.SetAttributes(attribute.String("call.result", "success"))
			return result, nil
		}
		if attempt >= maxProviderAttempts || !isTransient(err) {
			return "", err
		}

		c.logger.Warn(ctx, "Transient provider failure, retrying", map[string]interface{}{
			"provider": c.adapter.name(),
			"attempt":  attempt,
			"backoff":  c.backoff.String(),
			"error":    err.Error(),
		})
		if serr := c.sleep(callCtx, c.backoff); serr != nil {
			return "", &ProviderFailure{Kind: FailureTimeout, Err: fmt.Errorf("waiting to retry: %w", serr)}
		}
	}
}

func (c *GenerationClient) attempt(ctx context.Context, prompt *ProviderPrompt) (string, error) {
	req, err := c.adapter.newRequest(ctx, prompt)
	if err != nil {
		return "", &ProviderFailure{Kind: FailureTransport, Err: err}
	}

	start := c.now()
	text, err := c.roundTrip(ctx, req)
	elapsed := c.now().Sub(start)

	outcome := "success"
	if pf, ok := AsProviderFailure(err); ok {
		outcome = pf.Kind.String()
	}
	c.metrics.ProviderAttempt(c.adapter.name(), outcome, elapsed)

	logFields := map[string]interface{}{
		"provider": c.adapter.name(),
		"duration": elapsed.String(),
		"outcome":  outcome,
	}
	if err != nil {
		c.logger.Warn(ctx, "AI provider request failed", logFields, map[string]interface{}{"error": err.Error()})
	} else {
		c.logger.Info(ctx, "AI provider request completed", logFields)
	}
	return text, err
}

func (c *GenerationClient) roundTrip(ctx context.Context, req *http.Request) (string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.networkFailure(ctx, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn(ctx, "Failed to close response body", map[string]interface{}{"error": cerr.Error()})
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseBytes))
	if err != nil {
		return "", c.networkFailure(ctx, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &ProviderFailure{
			Kind:       FailureRateLimited,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
			Err:        errors.New("provider rate limited the request"),
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", &ProviderFailure{
			Kind:       FailureTransport,
			StatusCode: resp.StatusCode,
			Err:        errors.New("provider server error"),
			transient:  true,
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", &ProviderFailure{
			Kind:       FailureTransport,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("provider rejected the request: %s", truncate(string(body), 200)),
		}
	}

	text, err := c.adapter.extractText(body)
	if err != nil {
		return "", &ProviderFailure{
			Kind:       FailureMalformedResponse,
			StatusCode: resp.StatusCode,
			Raw:        string(body),
			Err:        err,
		}
	}
	return text, nil
}

// networkFailure turns a client error into Timeout when the call bound elapsed and into a
// retryable Transport failure otherwise
func (c *GenerationClient) networkFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return &ProviderFailure{Kind: FailureTimeout, Err: err}
	}
	return &ProviderFailure{Kind: FailureTransport, Err: err, transient: true}
}

// parseRetryAfter accepts delta-seconds or an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
