package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"numerusx/internal/config"
)

const systemPrompt = `You are the decision engine of an automated Solana token trading system.
You receive one JSON document describing a token: market data, technical
indicators, current risk usage and a security verdict. Respond with a
single JSON object and nothing else:
{"action":"BUY"|"SELL"|"HOLD","confidence":<0..1>,"size_usd":<number>,"reasoning":"<one short sentence>"}
Rules: never propose BUY when the security verdict is "danger"; size_usd
must respect the remaining exposure shown in the risk section; prefer
HOLD when signals conflict or data is thin.`

// Decider produces a trade decision from aggregated inputs.
type Decider interface {
	Decide(ctx context.Context, inputs AggregatedInputs) (*Decision, error)
	ModelName() string
}

// LLMDecider asks an OpenAI-compatible chat model for a decision.
type LLMDecider struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zap.Logger
}

func NewLLMDecider(cfg config.AgentConfig, logger *zap.Logger) (*LLMDecider, error) {
	keyEnv := strings.TrimSpace(cfg.APIKeyEnv)
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	apiKey := strings.TrimSpace(os.Getenv(keyEnv))
	if apiKey == "" {
		return nil, fmt.Errorf("agent: %s is not set", keyEnv)
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = base
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMDecider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: float32(cfg.Temperature),
		timeout:     timeout,
		logger:      logger,
	}, nil
}

func (d *LLMDecider) ModelName() string { return d.model }

func (d *LLMDecider) Decide(ctx context.Context, inputs AggregatedInputs) (*Decision, error) {
	if d == nil || d.client == nil {
		return nil, errors.New("agent: llm decider not configured")
	}
	payload, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("agent: marshal inputs: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       d.model,
		Temperature: d.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("agent: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("agent: model returned no choices")
	}

	decision, err := ParseDecision(resp.Choices[0].Message.Content)
	if err != nil {
		// A garbled reply must not hand the turn to a decider that may
		// trade: degrade to a recorded HOLD carrying the parse error.
		if d.logger != nil {
			d.logger.Warn("agent: unparseable model reply, holding", zap.Error(err))
		}
		decision = &Decision{
			Action:    "HOLD",
			Reasoning: fmt.Sprintf("unparseable model reply: %v", err),
		}
	}
	decision.Model = d.model
	decision.LatencyMs = latency
	return decision, nil
}

// ParseDecision extracts the decision JSON from a model reply, tolerating
// markdown code fences and surrounding prose.
func ParseDecision(content string) (*Decision, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("agent: empty model reply")
	}
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}
	var decision Decision
	if err := json.Unmarshal([]byte(content), &decision); err != nil {
		return nil, fmt.Errorf("agent: parse decision: %w", err)
	}

	decision.Action = strings.ToUpper(strings.TrimSpace(decision.Action))
	switch decision.Action {
	case "BUY", "SELL", "HOLD":
	default:
		return nil, fmt.Errorf("agent: invalid action %q", decision.Action)
	}
	if decision.Confidence < 0 || decision.Confidence > 1 {
		return nil, fmt.Errorf("agent: confidence %v out of range", decision.Confidence)
	}
	if decision.SizeUSD.IsNegative() {
		return nil, errors.New("agent: negative size_usd")
	}
	return &decision, nil
}
