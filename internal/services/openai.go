// OpenAI-compatible chat completions implementation of [CompletionService]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/shared"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultModel = "gpt-4o-mini"

// OpenAICompletion implements [CompletionService] against any OpenAI-compatible /chat/completions endpoint.
type OpenAICompletion struct {
	client     openai.Client
	model      string
	metaPrompt string
	maxTokens  int64
}

// CompletionConfig configures [NewOpenAICompletion].
type CompletionConfig struct {
	Endpoint   string // base URL, e.g. http://127.0.0.1:8000/v1; empty uses api.openai.com
	APIKey     string
	Model      string
	MetaPrompt string // default system message, sent unless overridden per call
	MaxTokens  int
}

// NewOpenAICompletion creates a completion client. Local servers accept an empty API key.
func NewOpenAICompletion(cfg CompletionConfig, opts ...option.RequestOption) *OpenAICompletion {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(endpoint))
	}
	reqOpts = append(reqOpts, opts...)

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &OpenAICompletion{
		client:     openai.NewClient(reqOpts...),
		model:      model,
		metaPrompt: cfg.MetaPrompt,
		maxTokens:  int64(cfg.MaxTokens),
	}
}

// Messages builds the message list sent for a call: the system prompt (the override when non-nil,
// otherwise the meta prompt) prepended when non-empty, followed by messages.
func (c *OpenAICompletion) Messages(messages []models.Message, systemPrompt *string) []models.Message {
	prompt := c.metaPrompt
	if systemPrompt != nil {
		prompt = *systemPrompt
	}

	out := make([]models.Message, 0, len(messages)+1)
	if prompt != "" {
		out = append(out, models.Message{Role: models.RoleSystem, Content: prompt})
	}
	return append(out, messages...)
}

// Complete returns the content of the first choice. Whitespace-only content is [shared.ErrEmptyCompletion].
func (c *OpenAICompletion) Complete(ctx context.Context, messages []models.Message, systemPrompt *string) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages", shared.ErrInvalidInput)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toChatMessages(c.Messages(messages, systemPrompt)),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(c.maxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", shared.ErrEmptyCompletion)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", shared.ErrEmptyCompletion
	}
	return content, nil
}

func toChatMessages(messages []models.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func wrapOpenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: completion: %v", shared.ErrTimeout, err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: completion: %v", shared.ErrInvalidCredentials, err)
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return fmt.Errorf("%w: completion: %v", shared.ErrServiceUnavailable, err)
		}
		return fmt.Errorf("%w: completion: status %d: %v", shared.ErrAPIRequest, apiErr.StatusCode, err)
	}
	return fmt.Errorf("%w: completion: %v", shared.ErrAPIRequest, err)
}
