// Package openai wraps the go-openai chat completion API behind a narrow
// interface mirroring pkg/anthropic.
package openai

import (
	"context"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	sdk "github.com/sashabaranov/go-openai"
)

// Client defines the OpenAI API operations used for icebreaker generation.
type Client interface {
	CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is a single-turn chat completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// CompletionResponse is the first choice of a chat completion.
type CompletionResponse struct {
	ID               string
	Model            string
	Text             string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

type sdkClient struct {
	client *sdk.Client
}

// NewClient creates a client for apiKey. A non-empty baseURL overrides the
// default endpoint.
func NewClient(apiKey, baseURL string) Client {
	cfg := sdk.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &sdkClient{client: sdk.NewClientWithConfig(cfg)}
}

func (c *sdkClient) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	msgs := make([]sdk.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, sdk.ChatCompletionMessage{Role: sdk.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, sdk.ChatCompletionMessage{Role: sdk.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := c.client.CreateChatCompletion(ctx, sdk.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, eris.Wrap(err, "openai: create chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: create chat completion: empty choices")
	}

	return &CompletionResponse{
		ID:               resp.ID,
		Model:            resp.Model,
		Text:             resp.Choices[0].Message.Content,
		FinishReason:     string(resp.Choices[0].FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// StatusCode returns the HTTP status of a failed API call, or 0 when err
// did not come from an HTTP response.
func StatusCode(err error) int {
	var apiErr *sdk.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *sdk.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// IsRateLimited reports whether err is an HTTP 429 from the API.
func IsRateLimited(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}
