// Package generator wraps the external question-generation model. The
// model is an opaque collaborator: it either returns a structured question
// payload or fails, and the caller treats either outcome at face value.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/kh1012/half/internal/domain"
	apperrors "github.com/kh1012/half/pkg/errors"
	"github.com/kh1012/half/pkg/logger"
)

// Generator produces a new balance-game question.
type Generator interface {
	Generate(ctx context.Context) (*domain.GeneratedQuestion, error)
}

const prompt = `You design trivial everyday dilemmas that split opinion as close to 50:50 as possible.
Generate one balance-game question. The topic must be mundane and relatable, and both options must have a reasonable case.
Examples: "Shower right after waking up vs. shower before bed", "Cook ramen as soup vs. stir-fried".

Respond with a JSON object with exactly these fields:
title: the question, short and clear
option_a: the first choice
option_b: the second choice
category: the question's category (e.g. daily life, food, habits, taste)`

// OpenAIGenerator calls a chat-completion model in JSON mode.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	log    *logger.Logger
}

// NewOpenAI creates a generator backed by the OpenAI API.
func NewOpenAI(apiKey string, log *logger.Logger) *OpenAIGenerator {
	return NewOpenAIWithClient(openai.NewClient(apiKey), openai.GPT4oMini, log)
}

// NewOpenAIWithClient creates a generator around a preconfigured client.
// Used in tests against a stub endpoint.
func NewOpenAIWithClient(client *openai.Client, model string, log *logger.Logger) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: client,
		model:  model,
		log:    log,
	}
}

// Generate asks the model for one question and validates the payload.
func (g *OpenAIGenerator) Generate(ctx context.Context) (*domain.GeneratedQuestion, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, apperrors.NewRemoteError("question generation failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewRemoteError("question generator returned no choices", nil)
	}

	var generated domain.GeneratedQuestion
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &generated); err != nil {
		g.log.WithField("content", content).WithError(err).Warn("Generator returned unparseable payload")
		return nil, apperrors.NewRemoteError("question generator returned an unparseable payload", err)
	}

	generated.Title = strings.TrimSpace(generated.Title)
	generated.OptionA = strings.TrimSpace(generated.OptionA)
	generated.OptionB = strings.TrimSpace(generated.OptionB)
	generated.Category = strings.TrimSpace(generated.Category)

	if generated.Title == "" || generated.OptionA == "" || generated.OptionB == "" {
		return nil, apperrors.NewRemoteError(
			fmt.Sprintf("question generator returned incomplete payload: %q", content), nil)
	}

	return &generated, nil
}
