// Package relevance picks the live prompt best matching a free-text input
// by asking a chat model to choose among the live candidates.
package relevance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/models"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/prompt"
)

const systemInstruction = "You select the most relevant prompt for a user request. " +
	"Answer with the candidate number only, nothing else."

// ChatClient is the subset of the OpenAI client the selector needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Selector struct {
	prompts prompt.Service
	chat    ChatClient
	model   string
}

func NewSelector(prompts prompt.Service, chat ChatClient, model string) *Selector {
	return &Selector{prompts: prompts, chat: chat, model: model}
}

// Resolve returns the live version most relevant to the input text.
// With a single live candidate no model call is made. If the model answer
// cannot be mapped to a candidate, the first candidate is used.
func (s *Selector) Resolve(ctx context.Context, input string) (*models.PromptVersion, error) {
	candidates, err := s.prompts.ListLive(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, &prompt.NotFoundError{Resource: "live prompt", Key: "any"}
	}
	if len(candidates) == 1 {
		return &candidates[0], nil
	}

	idx, err := s.pick(ctx, input, candidates)
	if err != nil {
		return nil, err
	}
	return &candidates[idx], nil
}

func (s *Selector) pick(ctx context.Context, input string, candidates []models.PromptVersion) (int, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "User request: %s\n\nCandidates:\n", input)
	for i, c := range candidates {
		desc := c.Description
		if desc == "" {
			desc = truncate(c.Content, 200)
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, c.Name, desc)
	}

	resp, err := s.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
		Temperature: 0.3,
		MaxTokens:   10,
	})
	if err != nil {
		return 0, fmt.Errorf("relevance completion: %w", err)
	}

	answer := ""
	if len(resp.Choices) > 0 {
		answer = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	n, err := strconv.Atoi(strings.Trim(answer, "."))
	if err != nil || n < 1 || n > len(candidates) {
		slog.Warn("unusable relevance answer, falling back to first candidate", "answer", answer)
		return 0, nil
	}
	return n - 1, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
