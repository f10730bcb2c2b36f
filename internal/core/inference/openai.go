package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	apperrors "github.com/lueurxax/assembly-questions-etl/internal/core/errors"
)

const labelPromptTemplate = `Classify the following French parliamentary question into exactly one theme.
Allowed themes: %s.
Reply with a JSON object {"label": "<theme>"} and nothing else.

Question:
%s`

// OpenAILabeler asks a chat model to pick one label from a closed set.
type OpenAILabeler struct {
	client *openai.Client
	model  string
	labels []string
}

func NewOpenAILabeler(apiKey, model string, labels []string) *OpenAILabeler {
	return NewOpenAILabelerWithConfig(openai.DefaultConfig(apiKey), model, labels)
}

func NewOpenAILabelerWithConfig(cfg openai.ClientConfig, model string, labels []string) *OpenAILabeler {
	return &OpenAILabeler{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		labels: labels,
	}
}

type labelReply struct {
	Label string `json:"label"`
}

func (l *OpenAILabeler) Label(ctx context.Context, text string) (string, error) {
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(labelPromptTemplate, strings.Join(l.labels, ", "), text),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("label chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices: %w", apperrors.ErrModelUnavailable)
	}

	var reply labelReply
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &reply); err != nil {
		return "", fmt.Errorf("decode label reply: %w", err)
	}

	label := strings.TrimSpace(reply.Label)
	for _, known := range l.labels {
		if strings.EqualFold(known, label) {
			return known, nil
		}
	}

	return "", fmt.Errorf("label %q: %w", label, apperrors.ErrUnknownLabel)
}
