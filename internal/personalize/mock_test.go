package personalize

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gruppenwerk/outreach-cli/pkg/anthropic"
	"github.com/gruppenwerk/outreach-cli/pkg/openai"
)

// MockGenerator is a testify mock for Generator.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockAnthropicClient is a testify mock for anthropic.Client.
type MockAnthropicClient struct {
	mock.Mock
}

func (m *MockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// MockOpenAIClient is a testify mock for openai.Client.
type MockOpenAIClient struct {
	mock.Mock
}

func (m *MockOpenAIClient) CreateCompletion(ctx context.Context, req openai.CompletionRequest) (*openai.CompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openai.CompletionResponse), args.Error(1)
}
