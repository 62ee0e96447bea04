// Package classifier suggests a category and priority for a ticket description
// using one configured LLM provider. Classification never fails: every error path
// resolves to domain.FallbackClassification.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/observability"
)

var (
	ErrMissingCredential   = errors.New("classifier api key not configured")
	ErrUnknownProvider     = errors.New("unknown classifier provider")
	ErrProviderTimeout     = errors.New("classifier provider timed out")
	ErrUnparseableResponse = errors.New("classifier response is not a JSON object")
	ErrEmptyResponse       = errors.New("provider returned no text")
)

// Outcome labels recorded per classification attempt.
const (
	OutcomeOK                = "ok"
	OutcomeMissingCredential = "missing_credential"
	OutcomeTimeout           = "timeout"
	OutcomeProviderError     = "provider_error"
	OutcomeParseError        = "parse_error"
	OutcomePanic             = "panic"
)

// Client classifies ticket descriptions. It holds no mutable state and is safe for
// concurrent use.
type Client struct {
	cfg          config.ClassifierConfig
	provider     Provider
	providerName string
	logger       *zap.Logger
	metrics      *observability.Metrics
}

// New builds a client for the configured provider. A missing API key is not an
// error: the client then answers every request with the fallback. An unknown
// provider name is.
func New(cfg config.ClassifierConfig, logger *zap.Logger, metrics *observability.Metrics) (*Client, error) {
	if err := ValidateProvider(cfg.Provider); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		logger.Warn("classifier api key not configured; classification will return defaults",
			zap.String("provider", cfg.Provider))
		return NewWithProvider(cfg, nil, logger, metrics), nil
	}
	provider, err := NewProvider(cfg, &http.Client{Timeout: cfg.Timeout()})
	if err != nil {
		return nil, err
	}
	return NewWithProvider(cfg, provider, logger, metrics), nil
}

// NewWithProvider builds a client around an existing adapter. A nil provider
// behaves like a missing credential.
func NewWithProvider(cfg config.ClassifierConfig, provider Provider, logger *zap.Logger, metrics *observability.Metrics) *Client {
	name := cfg.Provider
	if provider != nil {
		name = provider.Name()
	}
	return &Client{
		cfg:          cfg,
		provider:     provider,
		providerName: name,
		logger:       logger,
		metrics:      metrics,
	}
}

// Classify returns a validated suggestion for description, or the fallback.
func (c *Client) Classify(ctx context.Context, description string) (result domain.Classification) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("classification panicked; returning fallback",
				zap.String("provider", c.providerName), zap.Any("panic", r))
			c.metrics.RecordClassification(c.providerName, OutcomePanic)
			result = domain.FallbackClassification()
		}
	}()

	result, err := c.classify(ctx, description)
	outcome := outcomeOf(err)
	c.metrics.RecordClassification(c.providerName, outcome)
	if err == nil {
		return result
	}

	if errors.Is(err, ErrMissingCredential) {
		c.logger.Warn("classifier api key not configured; returning fallback classification",
			zap.String("provider", c.providerName))
	} else {
		c.logger.Warn("classification failed; returning fallback classification",
			zap.String("provider", c.providerName),
			zap.String("outcome", outcome),
			zap.Error(err))
	}
	return domain.FallbackClassification()
}

func (c *Client) classify(ctx context.Context, description string) (domain.Classification, error) {
	if c.provider == nil || c.cfg.APIKey == "" {
		return domain.Classification{}, ErrMissingCredential
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	raw, err := c.provider.Send(ctx, Request{
		System:      systemPrompt(),
		User:        userPrompt(description),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Classification{}, fmt.Errorf("%w: %v", ErrProviderTimeout, err)
		}
		return domain.Classification{}, err
	}

	result, rejected, err := parseAnswer(raw)
	if err != nil {
		c.logger.Debug("unparseable classifier response", zap.String("response", raw))
		return domain.Classification{}, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}
	for _, field := range rejected {
		c.metrics.RecordFieldFallback(c.providerName, field)
		c.logger.Warn("classifier returned a value outside the vocabulary; using default",
			zap.String("provider", c.providerName),
			zap.String("field", field),
			zap.String("response", raw))
	}
	return result, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrMissingCredential):
		return OutcomeMissingCredential
	case errors.Is(err, ErrProviderTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrUnparseableResponse):
		return OutcomeParseError
	default:
		return OutcomeProviderError
	}
}
