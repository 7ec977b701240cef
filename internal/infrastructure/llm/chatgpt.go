package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ProposalLens/internal/config"
	"ProposalLens/internal/domain"
	"ProposalLens/internal/ports"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-3.5-turbo"
	defaultInstruction = "Summarize the following proposal in 3 sentences: "
	defaultFallback    = "No summary available."
)

// ChatGPTClient implements ports.Summarizer backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	client      *openai.Client
	model       string
	instruction string
	fallback    string
}

var _ ports.Summarizer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL(cfg.Endpoint)
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &ChatGPTClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       orDefault(cfg.Model, defaultModel),
		instruction: orDefault(cfg.Instruction, defaultInstruction),
		fallback:    orDefault(cfg.Fallback, defaultFallback),
	}
}

// Summarize sends the instruction and body as a single user message. A
// response without content yields the fallback text; transport and API
// failures yield a *domain.SummaryError.
func (c *ChatGPTClient) Summarize(ctx context.Context, body string) (string, error) {
	if c == nil || c.client == nil {
		return "", &domain.SummaryError{Reason: "chatgpt client is nil"}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: c.instruction + body},
		},
	})
	if err != nil {
		return "", &domain.SummaryError{Reason: "chat completion", Err: err}
	}

	if len(resp.Choices) == 0 {
		return c.fallback, nil
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return c.fallback, nil
	}
	return content, nil
}

// baseURL accepts either an API root or a full chat-completions URL.
func baseURL(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return defaultBaseURL
	}
	endpoint = strings.TrimSuffix(endpoint, "/")
	return strings.TrimSuffix(endpoint, "/chat/completions")
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
