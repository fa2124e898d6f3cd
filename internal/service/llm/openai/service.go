package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/KNICEX/stock-alert/internal/service/llm"
	"github.com/sashabaranov/go-openai"
)

type Service struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

type Option func(s *Service)

func WithModel(model string) Option {
	return func(s *Service) {
		s.model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(s *Service) {
		s.maxTokens = n
	}
}

func WithTemperature(temp float32) Option {
	return func(s *Service) {
		s.temperature = temp
	}
}

func NewService(client *openai.Client, opts ...Option) llm.Service {
	svc := &Service{
		client:      client,
		model:       openai.GPT4,
		maxTokens:   500,
		temperature: 0.5,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) AskOnce(ctx context.Context, q llm.Question) (llm.Answer, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if q.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: q.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: q.Content})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		N:           1,
	})
	if err != nil {
		return llm.Answer{}, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.Answer{}, fmt.Errorf("no response from openai")
	}
	return llm.Answer{
		Content:     strings.TrimSpace(resp.Choices[0].Message.Content),
		InputToken:  resp.Usage.PromptTokens,
		OutputToken: resp.Usage.CompletionTokens,
	}, nil
}
