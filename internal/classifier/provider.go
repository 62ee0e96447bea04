package classifier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spec-kit/ticket-triage/internal/config"
)

// Supported provider names for CLASSIFIER_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderGroq:      "llama-3.1-8b-instant",
	ProviderGemini:    "gemini-1.5-flash",
	ProviderAnthropic: "claude-3-5-haiku-latest",
}

// Request is a provider-neutral completion request. Providers without a system
// role fold System into the user turn.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Provider sends one prompt to an LLM vendor and returns the generated text.
type Provider interface {
	Name() string
	Send(ctx context.Context, req Request) (string, error)
}

// ValidateProvider reports whether name selects a known provider.
func ValidateProvider(name string) error {
	if _, ok := defaultModels[name]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownProvider, name)
	}
	return nil
}

// NewProvider builds the adapter selected by cfg.Provider. httpClient may be nil.
func NewProvider(cfg config.ClassifierConfig, httpClient *http.Client) (Provider, error) {
	if err := ValidateProvider(cfg.Provider); err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = defaultModels[cfg.Provider]
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(ProviderOpenAI, cfg.APIKey, cfg.BaseURL, model, httpClient), nil
	case ProviderGroq:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = groqBaseURL
		}
		return NewOpenAIProvider(ProviderGroq, cfg.APIKey, baseURL, model, httpClient), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.APIKey, cfg.BaseURL, model, httpClient), nil
	default:
		return NewGeminiProvider(cfg.APIKey, cfg.BaseURL, model, httpClient), nil
	}
}
