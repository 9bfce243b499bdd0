package tactics

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/ShayCichocki/provekit/internal/logging"
	"github.com/ShayCichocki/provekit/pkg/models"
)

const maxResponseTokens = 2048

// Config configures the Anthropic suggester.
type Config struct {
	// Model defaults to Claude Sonnet 4.5.
	Model string
	// APIKey is required unless UseBedrock is set.
	APIKey string
	// UseBedrock routes requests through AWS Bedrock using the default
	// AWS credential chain.
	UseBedrock bool
	AWSRegion  string
	AWSProfile string
	// MaxSuggestions is the default cap. Zero means DefaultMaxSuggestions.
	MaxSuggestions int
	Logger         *zap.Logger
}

// completeFunc sends one system+user exchange and returns the reply text.
type completeFunc func(ctx context.Context, system, prompt string) (string, error)

// Anthropic suggests tactics with Claude.
type Anthropic struct {
	model    anthropic.Model
	limit    int
	complete completeFunc
	logger   *zap.Logger
}

// NewAnthropic builds a suggester from cfg.
func NewAnthropic(cfg Config) (*Anthropic, error) {
	var opts []option.RequestOption

	if cfg.UseBedrock {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: no Anthropic API key configured", models.ErrInitFailed)
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_5_20250929
	}
	if cfg.UseBedrock {
		model = bedrockModel(model)
	}

	inner := anthropic.NewClient(opts...)
	a := newAnthropic(cfg, nil)
	a.model = model
	a.complete = func(ctx context.Context, system, prompt string) (string, error) {
		resp, err := inner.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     model,
			MaxTokens: maxResponseTokens,
			System:    []anthropic.TextBlockParam{{Text: system}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return "", err
		}
		a.logger.Debug("completion finished",
			zap.Int64("input_tokens", resp.Usage.InputTokens),
			zap.Int64("output_tokens", resp.Usage.OutputTokens))

		var text strings.Builder
		for _, block := range resp.Content {
			if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
				text.WriteString(variant.Text)
			}
		}
		return text.String(), nil
	}
	return a, nil
}

func newAnthropic(cfg Config, complete completeFunc) *Anthropic {
	limit := cfg.MaxSuggestions
	if limit <= 0 {
		limit = DefaultMaxSuggestions
	}
	return &Anthropic{
		model:    anthropic.Model(cfg.Model),
		limit:    limit,
		complete: complete,
		logger:   logging.OrNop(cfg.Logger).Named("tactics"),
	}
}

// Model returns the model requests are sent to.
func (a *Anthropic) Model() string { return string(a.model) }

// Suggest asks the model for tactics that advance req.Goal.
func (a *Anthropic) Suggest(ctx context.Context, req Request) ([]models.TacticSuggestion, error) {
	if !req.Prover.Valid() {
		return nil, fmt.Errorf("%w: %s", models.ErrProverNotFound, req.Prover)
	}
	if strings.TrimSpace(req.Goal) == "" {
		return nil, fmt.Errorf("%w: empty goal", models.ErrRequestFailed)
	}

	limit := a.limit
	if req.Max > 0 && req.Max < limit {
		limit = req.Max
	}

	text, err := a.complete(ctx, systemPrompt, buildPrompt(req, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrRequestFailed, err)
	}

	suggestions, err := parseSuggestions(text, limit)
	if err != nil {
		a.logger.Warn("unusable completion", zap.Error(err), zap.Int("bytes", len(text)))
		return nil, err
	}
	return suggestions, nil
}

// bedrockModel maps Anthropic model ids to Bedrock cross-region inference
// profiles. Unknown ids pass through unchanged.
func bedrockModel(model anthropic.Model) anthropic.Model {
	profiles := map[string]string{
		"claude-sonnet-4-20250514":   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		"claude-sonnet-4-5-20250929": "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		"claude-haiku-4-5-20251001":  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		"claude-opus-4-1-20250805":   "us.anthropic.claude-opus-4-1-20250805-v1:0",
	}
	if p, ok := profiles[string(model)]; ok {
		return anthropic.Model(p)
	}
	return model
}

var _ Suggester = (*Anthropic)(nil)
