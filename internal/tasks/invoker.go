package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/moody/internal/services"
	"github.com/desertthunder/moody/internal/shared"
)

// Invoker sends a [CompletionRequest] to the completion service. It does not retry.
type Invoker struct {
	completion services.CompletionService
}

func NewInvoker(c services.CompletionService) *Invoker {
	return &Invoker{completion: c}
}

// Invoke returns the completion text. Blank text is an error.
func (i *Invoker) Invoke(ctx context.Context, req CompletionRequest) (string, error) {
	out, err := i.completion.Complete(ctx, req.Messages, req.SystemPrompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: completion was blank", shared.ErrEmptyCompletion)
	}
	return out, nil
}
