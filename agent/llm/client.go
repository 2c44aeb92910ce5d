package llm

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/raahib/raahib/agent/contract"
)

const provider = "openai"

// CloudLLM wraps the OpenAI chat-completions API for the generation stage.
// Failures wrap contract.ErrModelInvoke so callers can degrade uniformly.
type CloudLLM struct {
	client openaisdk.Client
	cfg    Config
}

var _ contractx.TextGenerator = (*CloudLLM)(nil)

func NewCloudLLM(cfg Config) *CloudLLM {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	return &CloudLLM{
		client: openaisdk.NewClient(opts...),
		cfg:    cfg,
	}
}

func (c *CloudLLM) Enabled() bool {
	return c != nil && c.cfg.Enabled()
}

func (c *CloudLLM) Generate(ctx context.Context, req contractx.GenerateRequest) (contractx.GenerateResult, error) {
	if !c.Enabled() {
		return contractx.GenerateResult{}, fmt.Errorf("%w: api key is not configured", contractx.ErrModelInvoke)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.cfg.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemPrompt(req)),
			openaisdk.UserMessage(req.Text),
		},
		MaxCompletionTokens: openaisdk.Int(int64(c.cfg.MaxCompletionToken)),
		Temperature:         openaisdk.Float(c.cfg.Temperature),
	})
	if err != nil {
		return contractx.GenerateResult{}, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}

	if len(resp.Choices) == 0 {
		return contractx.GenerateResult{}, contractx.ErrEmptyOutput
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return contractx.GenerateResult{}, contractx.ErrEmptyOutput
	}

	return contractx.GenerateResult{
		Text:     text,
		Provider: provider,
		Model:    c.cfg.Model,
	}, nil
}

func systemPrompt(req contractx.GenerateRequest) string {
	var b strings.Builder
	b.WriteString("You are a concise personal assistant.")
	if req.ModeHint != "" {
		b.WriteString("\nMode hint: ")
		b.WriteString(req.ModeHint)
	}
	if len(req.History) > 0 {
		b.WriteString("\nRecent conversation:\n")
		b.WriteString(strings.Join(req.History, "\n"))
	}
	return b.String()
}
