// Package llm provides the chat-completion client used to generate recommendations.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/raphaelgruber/nextwatch/internal/config"
	"github.com/raphaelgruber/nextwatch/internal/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const breakerName = "llm"

// Model wraps a langchaingo LLM with a per-call timeout and a circuit breaker.
type Model struct {
	llm       llms.Model
	modelName string
	timeout   time.Duration
	breaker   *gobreaker.CircuitBreaker[*llms.ContentResponse]
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// NewModel creates an LLM model based on configuration.
func NewModel(ctx context.Context, cfg config.Config, mc *metrics.Collector, logger *slog.Logger) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
			ollama.WithFormat("json"),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		model, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return NewModelWithLLM(model, cfg.LLMModel, cfg.LLMTimeout, mc, logger), nil
}

// NewModelWithLLM wraps an already constructed langchaingo model.
func NewModelWithLLM(model llms.Model, modelName string, timeout time.Duration, mc *metrics.Collector, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Model{
		llm:       model,
		modelName: modelName,
		timeout:   timeout,
		metrics:   mc,
		logger:    logger,
	}
	m.breaker = newBreaker(logger, mc)
	return m
}

// newBreaker opens after at least 5 requests with a 60% failure rate inside a
// one minute window, and probes again after 30 seconds.
func newBreaker(logger *slog.Logger, mc *metrics.Collector) *gobreaker.CircuitBreaker[*llms.ContentResponse] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	return gobreaker.NewCircuitBreaker[*llms.ContentResponse](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			mc.Inc(metrics.EventBreakerStateChanged)
		},
		// A caller going away says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string, options ...llms.CallOption) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	callCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	start := time.Now()
	response, err := m.breaker.Execute(func() (*llms.ContentResponse, error) {
		resp, err := m.llm.GenerateContent(callCtx, messages, options...)
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, ErrEmptyResponse
		}
		return resp, nil
	})
	duration := time.Since(start)

	if err != nil {
		m.metrics.RecordLLMUsage(metrics.OpLLMGenerate, duration, 0, 0, err)
		m.logger.Warn("llm generation failed", "model", m.modelName, "duration_ms", duration.Milliseconds(), "error", err)
		return "", m.classify(ctx, callCtx, err)
	}

	choice := response.Choices[0]
	in, out := tokenUsage(choice.GenerationInfo)
	m.metrics.RecordLLMUsage(metrics.OpLLMGenerate, duration, in, out, nil)
	m.logger.Debug("llm generation complete",
		"model", m.modelName,
		"duration_ms", duration.Milliseconds(),
		"input_tokens", in,
		"output_tokens", out,
	)

	return choice.Content, nil
}

// RecommendMovies asks the model for recommendations matching userQuery.
// The returned text is expected, but not guaranteed, to be JSON.
func (m *Model) RecommendMovies(ctx context.Context, userQuery string) (string, error) {
	return m.GenerateWithSystem(ctx, SystemPrompt, userQuery,
		llms.WithTemperature(Temperature),
		llms.WithJSONMode(),
	)
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

func (m *Model) classify(parent, callCtx context.Context, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	case parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", ErrTimeout, m.timeout)
	default:
		return wrapFatalError(fmt.Errorf("generate: %w", err))
	}
}

// tokenUsage reads token counts from provider generation info.
// OpenAI and Ollama report Prompt/CompletionTokens, Anthropic Input/OutputTokens.
func tokenUsage(info map[string]any) (int64, int64) {
	in := firstInt(info, "PromptTokens", "InputTokens")
	out := firstInt(info, "CompletionTokens", "OutputTokens")
	return in, out
}

func firstInt(info map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
