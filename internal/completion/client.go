// Copyright 2025 Email Triage Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package completion wraps the remote text-completion service behind the two
// operations the pipeline needs: constrained classification and free-text
// reply generation. The endpoint is OpenAI-compatible, so the same client
// talks to DeepSeek or OpenAI depending on the configured base URL.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/your-org/email-triage/internal/classifier"
	"github.com/your-org/email-triage/internal/textproc"
)

var (
	// ErrUnavailable signals a transport-level failure: timeout, network
	// error, or non-success status from the completion service.
	ErrUnavailable = errors.New("remote completion service unavailable")
	// ErrAmbiguous signals a successful call whose answer is not exactly one
	// of the recognized category labels.
	ErrAmbiguous = errors.New("remote completion returned unrecognized label")
)

// Config holds the settings for one completion client instance
type Config struct {
	APIKey              string
	BaseURL             string
	Model               string
	ClassifyPromptLimit int
	GeneratePromptLimit int
	ClassifyTemperature float32
	GenerateTemperature float32
	ClassifyMaxTokens   int
	GenerateMaxTokens   int
}

// Client issues single calls against the completion service. It holds no
// state beyond the configured endpoint and credential; retry policy, if any,
// belongs to the caller.
type Client struct {
	client *openai.Client
	config Config
	logger *zap.Logger
}

// NewClient creates a completion client for the configured endpoint
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	logger.Info("Completion client initialized",
		zap.String("base_url", clientConfig.BaseURL),
		zap.String("model", config.Model),
	)

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

// ClassifyEmail asks the remote model for one of the two category labels.
// The input is truncated to the configured prompt limit before sending; this
// is a cost bound, not a correctness requirement. Exactly one call is made.
func (c *Client) ClassifyEmail(ctx context.Context, text string) (classifier.Category, error) {
	excerpt := textproc.Truncate(text, c.config.ClassifyPromptLimit)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.ClassifyTemperature,
		MaxTokens:   c.config.ClassifyMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classificationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildClassificationPrompt(excerpt)},
		},
	})
	if err != nil {
		c.logger.Warn("Classification call failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	label := strings.TrimSpace(resp.Choices[0].Message.Content)
	category, ok := classifier.ParseCategory(label)
	if !ok {
		c.logger.Warn("Unrecognized label from completion service",
			zap.String("label", label))
		return "", fmt.Errorf("%w: %q", ErrAmbiguous, label)
	}

	c.logger.Debug("Remote classification completed",
		zap.String("category", string(category)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return category, nil
}

// GenerateReply asks the remote model for a suggested reply to the email.
// Exactly one call is made; any failure is reported so the caller can fall
// back to a template.
func (c *Client) GenerateReply(ctx context.Context, category classifier.Category, text string) (string, error) {
	excerpt := textproc.Truncate(text, c.config.GeneratePromptLimit)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.GenerateTemperature,
		MaxTokens:   c.config.GenerateMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: replySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildReplyPrompt(category, excerpt)},
		},
	})
	if err != nil {
		c.logger.Warn("Reply generation call failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("%w: blank reply", ErrAmbiguous)
	}

	c.logger.Debug("Remote reply generated",
		zap.String("category", string(category)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return reply, nil
}

// Ping issues a minimal classification call to verify connectivity. Used by
// health checks only.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ClassifyEmail(ctx, "ping")
	if err != nil && !errors.Is(err, ErrAmbiguous) {
		return err
	}
	return nil
}
