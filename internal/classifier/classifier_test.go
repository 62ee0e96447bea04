package classifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/observability"
)

type fakeProvider struct {
	mu       sync.Mutex
	response string
	err      error
	block    bool
	panicMsg string
	requests []Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Send(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.response, f.err
}

func testConfig() config.ClassifierConfig {
	return config.ClassifierConfig{
		Provider:       ProviderGemini,
		APIKey:         "test-key",
		TimeoutSeconds: 10,
		MaxTokens:      100,
		Temperature:    0.1,
	}
}

func newTestClient(t *testing.T, provider Provider, cfg config.ClassifierConfig) (*Client, *observer.ObservedLogs, *observability.Metrics) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	metrics := observability.NewMetrics()
	return NewWithProvider(cfg, provider, zap.New(core), metrics), logs, metrics
}

func classification(c domain.TicketCategory, p domain.TicketPriority) domain.Classification {
	return domain.Classification{Category: c, Priority: p}
}

func TestClassifyModelAnswers(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     domain.Classification
	}{
		{
			name:     "valid answer",
			response: `{"category": "billing", "priority": "critical"}`,
			want:     classification(domain.TicketCategoryBilling, domain.TicketPriorityCritical),
		},
		{
			name:     "invalid category keeps valid priority",
			response: `{"category": "nonsense", "priority": "critical"}`,
			want:     classification(domain.TicketCategoryGeneral, domain.TicketPriorityCritical),
		},
		{
			name:     "invalid priority keeps valid category",
			response: `{"category": "technical", "priority": "urgent"}`,
			want:     classification(domain.TicketCategoryTechnical, domain.TicketPriorityLow),
		},
		{
			name:     "case and whitespace normalized",
			response: `{"category": "  Account ", "priority": "HIGH"}`,
			want:     classification(domain.TicketCategoryAccount, domain.TicketPriorityHigh),
		},
		{
			name:     "fenced json recovered",
			response: "```json\n{\"category\": \"technical\", \"priority\": \"high\"}\n```",
			want:     classification(domain.TicketCategoryTechnical, domain.TicketPriorityHigh),
		},
		{
			name:     "bare fence recovered",
			response: "```\n{\"category\": \"account\", \"priority\": \"medium\"}\n```\n",
			want:     classification(domain.TicketCategoryAccount, domain.TicketPriorityMedium),
		},
		{
			name:     "missing fields use defaults",
			response: `{}`,
			want:     domain.FallbackClassification(),
		},
		{
			name:     "prose falls back",
			response: "This looks like a billing problem with high priority.",
			want:     domain.FallbackClassification(),
		},
		{
			name:     "json array falls back",
			response: `["billing", "high"]`,
			want:     domain.FallbackClassification(),
		},
		{
			name:     "non string field falls back",
			response: `{"category": 3, "priority": "high"}`,
			want:     domain.FallbackClassification(),
		},
		{
			name:     "fence without newline falls back",
			response: "```{\"category\": \"billing\", \"priority\": \"high\"}```",
			want:     domain.FallbackClassification(),
		},
		{
			name:     "empty response falls back",
			response: "",
			want:     domain.FallbackClassification(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := newTestClient(t, &fakeProvider{response: tt.response}, testConfig())
			got := client.Classify(context.Background(), "My invoice was charged twice this month")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyWithoutCredentialSkipsProvider(t *testing.T) {
	provider := &fakeProvider{response: `{"category": "billing", "priority": "high"}`}
	cfg := testConfig()
	cfg.APIKey = ""
	client, logs, metrics := newTestClient(t, provider, cfg)

	got := client.Classify(context.Background(), "I can't access my billing page")

	assert.Equal(t, domain.FallbackClassification(), got)
	assert.Empty(t, provider.requests)
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).FilterMessageSnippet("api key not configured")
	assert.Equal(t, 1, warnings.Len())
	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assertOutcome(t, metrics, "fake", OutcomeMissingCredential)
}

func TestNewWithoutCredential(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = ""

	client, err := New(cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackClassification(), client.Classify(context.Background(), "Server has been down for an hour"))
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Provider = "mistral"

	_, err := New(cfg, zap.NewNop(), nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestClassifyProviderErrorFallsBack(t *testing.T) {
	client, logs, metrics := newTestClient(t, &fakeProvider{err: errors.New("502 bad gateway")}, testConfig())

	got := client.Classify(context.Background(), "The dashboard shows an error")

	assert.Equal(t, domain.FallbackClassification(), got)
	assert.Equal(t, 1, logs.FilterField(zap.String("outcome", OutcomeProviderError)).Len())
	assertOutcome(t, metrics, "fake", OutcomeProviderError)
}

func TestClassifyTimeoutFallsBack(t *testing.T) {
	provider := &fakeProvider{block: true}
	client, _, metrics := newTestClient(t, provider, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	got := client.Classify(ctx, "Everything is slow since this morning")

	assert.Equal(t, domain.FallbackClassification(), got)
	assert.Less(t, time.Since(start), 5*time.Second)
	assertOutcome(t, metrics, "fake", OutcomeTimeout)
}

func TestClassifyPanicFallsBack(t *testing.T) {
	client, _, metrics := newTestClient(t, &fakeProvider{panicMsg: "sdk bug"}, testConfig())

	var got domain.Classification
	require.NotPanics(t, func() {
		got = client.Classify(context.Background(), "Cannot update my profile")
	})
	assert.Equal(t, domain.FallbackClassification(), got)
	assertOutcome(t, metrics, "fake", OutcomePanic)
}

func TestClassifyRecordsFieldFallbacks(t *testing.T) {
	client, logs, metrics := newTestClient(t, &fakeProvider{response: `{"category": "sales", "priority": "p0"}`}, testConfig())

	got := client.Classify(context.Background(), "Please call me back about pricing")

	assert.Equal(t, domain.FallbackClassification(), got)
	assertOutcome(t, metrics, "fake", OutcomeOK)
	assert.Equal(t, 2, logs.FilterMessageSnippet("outside the vocabulary").Len())
}

func TestClassifyRequestShape(t *testing.T) {
	provider := &fakeProvider{response: `{"category": "general", "priority": "low"}`}
	client, _, _ := newTestClient(t, provider, testConfig())

	client.Classify(context.Background(), "How do I export my data?")

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, 100, req.MaxTokens)
	assert.InDelta(t, 0.1, req.Temperature, 1e-9)
	assert.True(t, strings.HasSuffix(req.User, "How do I export my data?"))
	for _, c := range domain.Categories() {
		assert.Contains(t, req.System, string(c))
	}
	for _, p := range domain.Priorities() {
		assert.Contains(t, req.System, string(p))
	}
	assert.Contains(t, req.System, "critical: system down, data loss, security breach")
	assert.Contains(t, req.System, "billing: payment issues, invoices, charges, subscriptions, refunds")
	assert.Contains(t, req.System, `{"category": "...", "priority": "..."}`)
}

func TestClassifyConcurrentCalls(t *testing.T) {
	provider := &fakeProvider{response: `{"category": "technical", "priority": "medium"}`}
	client, _, _ := newTestClient(t, provider, testConfig())

	var wg sync.WaitGroup
	results := make([]domain.Classification, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = client.Classify(context.Background(), "API returns 500 on upload")
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, classification(domain.TicketCategoryTechnical, domain.TicketPriorityMedium), got)
	}
	assert.Len(t, provider.requests, 16)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{"```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFence(tt.in))
	}
}

func assertOutcome(t *testing.T, m *observability.Metrics, provider, outcome string) {
	t.Helper()
	expected := `
# HELP ticket_classifications_total Classification attempts by provider and outcome.
# TYPE ticket_classifications_total counter
ticket_classifications_total{outcome="` + outcome + `",provider="` + provider + `"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "ticket_classifications_total"))
}
