package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

const (
	DefaultBaseURL = "https://api.deepseek.com/v1"
	DefaultModel   = "deepseek-chat"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client       oai.Client
	model        string
	systemPrompt string
	maxTokens    int
}

type ClientConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxTokens    int           `yaml:"max_tokens"`
}

func NewOpenAIClient(cfg ClientConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("chat api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := oai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	)
	return &OpenAIClient{
		client:       client,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, history []Message) (string, error) {
	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if c.systemPrompt != "" {
		messages = append(messages, oai.SystemMessage(c.systemPrompt))
	}
	for _, m := range history {
		switch m.Role {
		case RoleUser:
			messages = append(messages, oai.UserMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, oai.AssistantMessage(m.Content))
		default:
			return "", fmt.Errorf("unsupported role %q", m.Role)
		}
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
	}
	if c.maxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat api returned empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
