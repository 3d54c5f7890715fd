// pkg/insight/insight.go

// Package insight generates short narrative analyses of sustainability
// data through a chat-completion model.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/greenview/ingress/pkg/config"
)

// Type selects which narrative to generate.
type Type string

const (
	// TypeImpactBreakdown explains which parameter changes moved a
	// what-if score and why.
	TypeImpactBreakdown Type = "impact_breakdown"

	// TypeRecommendations produces two or three concrete actions.
	TypeRecommendations Type = "recommendations"

	// TypeDashboardInsights summarizes current metrics at an executive
	// level.
	TypeDashboardInsights Type = "dashboard_insights"
)

// Params is one set of scenario slider values.
type Params struct {
	RenewableEnergy   float64 `json:"renewable_energy"`
	EmissionReduction float64 `json:"emission_reduction"`
	SupplyChainScore  float64 `json:"supply_chain_score"`
}

// Request carries the inputs for one insight. Current, Original, and
// ScoreChange apply to the scenario types; Metrics applies to dashboard
// insights and may be any JSON-encodable value.
type Request struct {
	Type        Type        `json:"type"`
	Current     *Params     `json:"current_params,omitempty"`
	Original    *Params     `json:"original_params,omitempty"`
	ScoreChange int         `json:"score_change,omitempty"`
	Metrics     interface{} `json:"metrics,omitempty"`
}

// Generator produces narrative insights.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

const systemPrompt = "You are a sustainability expert providing concise, actionable insights. Be specific, practical, and professional."

// OpenAIGenerator implements Generator against the OpenAI chat API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIGenerator creates a generator from configuration. The API key
// is required; the model falls back to the configured default.
func NewOpenAIGenerator(cfg *config.OpenAIConfig, logger *zap.Logger) (*OpenAIGenerator, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key not configured")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &OpenAIGenerator{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Generate builds the prompt for the requested insight type and returns
// the model's reply.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return "", err
	}

	g.logger.Debug("Requesting insight",
		zap.String("type", string(req.Type)),
		zap.String("model", g.model))

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// buildPrompt renders the prompt for each insight type.
func buildPrompt(req Request) (string, error) {
	switch req.Type {
	case TypeImpactBreakdown:
		if req.Current == nil || req.Original == nil {
			return "", errors.New("impact breakdown requires current and original parameters")
		}
		return fmt.Sprintf(`Analyze the sustainability parameter changes and provide a detailed impact breakdown:

Original Parameters:
- Renewable Energy: %g%%
- Emissions: %g tons CO2
- Supply Chain Score: %g

Current Parameters:
- Renewable Energy: %g%%
- Emissions: %g tons CO2
- Supply Chain Score: %g

Score Change: %d points

Provide a concise analysis of:
1. Which changes have the most impact
2. Environmental implications
3. Business considerations
Keep it under 100 words and actionable.`,
			req.Original.RenewableEnergy, req.Original.EmissionReduction, req.Original.SupplyChainScore,
			req.Current.RenewableEnergy, req.Current.EmissionReduction, req.Current.SupplyChainScore,
			req.ScoreChange), nil

	case TypeRecommendations:
		if req.Current == nil || req.Original == nil {
			return "", errors.New("recommendations require current and original parameters")
		}
		return fmt.Sprintf(`Based on these sustainability parameter changes, provide 2-3 specific, actionable recommendations in 2-3 sentences only:

Current vs Original:
- Renewable Energy: %g%% (was %g%%)
- Emissions: %g tons CO2 (was %g tons)
- Supply Chain Score: %g (was %g)

Score Impact: %d points

Provide specific actions they can take. Be practical, concise, and limit to 2-3 sentences total.`,
			req.Current.RenewableEnergy, req.Original.RenewableEnergy,
			req.Current.EmissionReduction, req.Original.EmissionReduction,
			req.Current.SupplyChainScore, req.Original.SupplyChainScore,
			req.ScoreChange), nil

	case TypeDashboardInsights:
		encoded, err := json.MarshalIndent(req.Metrics, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode metrics: %w", err)
		}
		return fmt.Sprintf(`Analyze this sustainability data and provide strategic insights:

Metrics: %s

Provide:
1. Key performance highlights
2. Areas for improvement
3. Strategic recommendations
4. Market trends alignment

Keep it executive-level, under 150 words, and actionable.`, encoded), nil

	default:
		return "", fmt.Errorf("invalid insight type: %q", req.Type)
	}
}
