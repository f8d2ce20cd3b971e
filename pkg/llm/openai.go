package llm

import (
	"context"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

const defaultSystemPrompt = "You are a friendly companion for an elderly user. " +
	"Answer briefly, warmly and in plain language. If the user sounds distressed " +
	"or unwell, gently suggest contacting their caregiver."

// 每个用户保留的最近对话轮数
const historyLimit = 10

type openAICompanion struct {
	client *openai.Client
	model  string

	mu      sync.Mutex
	history map[string][]openai.ChatCompletionMessage
}

// NewOpenAICompanion creates a Companion backed by an OpenAI-compatible API.
// baseURL may point at any compatible endpoint.
func NewOpenAICompanion(apiKey, baseURL, model string) Companion {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAICompanion{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		history: make(map[string][]openai.ChatCompletionMessage),
	}
}

func (o *openAICompanion) Reply(ctx context.Context, userID, text string) (string, error) {
	o.mu.Lock()
	h := append(o.history[userID], openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(h)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: defaultSystemPrompt,
	})
	msgs = append(msgs, h...)
	o.mu.Unlock()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	answer := resp.Choices[0].Message.Content

	o.mu.Lock()
	o.history[userID] = append(h, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: answer,
	})
	o.mu.Unlock()

	return answer, nil
}

func (o *openAICompanion) Reset(userID string) {
	o.mu.Lock()
	delete(o.history, userID)
	o.mu.Unlock()
}
