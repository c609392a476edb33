package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/euskoog/openai-assistants-link/internal/domain"
	"github.com/euskoog/openai-assistants-link/internal/metrics"
)

// Client calls the OpenAI chat completions API.
type Client struct {
	api *openai.Client
}

// NewClient creates a new completion client. An empty baseURL keeps the
// library default endpoint.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{api: openai.NewClientWithConfig(cfg)}
}

// Complete sends a chat completion request and returns the first choice.
func (c *Client) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	creq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, creq)
	metrics.ObserveUpstream("chat_completion", start)
	if err != nil {
		return nil, upstreamError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &domain.UpstreamError{Op: "chat completion", Err: errors.New("no choices returned")}
	}

	return &Completion{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func upstreamError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.UpstreamError{Op: op, Status: apiErr.HTTPStatusCode, Err: apiErr}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.UpstreamError{Op: op, Status: reqErr.HTTPStatusCode, Err: reqErr.Err}
	}
	return &domain.UpstreamError{Op: op, Err: err}
}
