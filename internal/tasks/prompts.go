package tasks

import (
	"fmt"

	"github.com/desertthunder/moody/internal/models"
)

// DefaultQueryCount is how many search queries the model is asked for.
const DefaultQueryCount = 10

// CompletionRequest is one call to the completion service.
//
// A nil SystemPrompt leaves the service's configured meta prompt in place.
type CompletionRequest struct {
	Messages     []models.Message `json:"messages"`
	SystemPrompt *string          `json:"system_prompt,omitempty"`
}

// WithSystemPrompt returns a copy of r that overrides the system prompt for this call only.
func (r CompletionRequest) WithSystemPrompt(prompt string) CompletionRequest {
	r.SystemPrompt = &prompt
	return r
}

// Prompts holds the two requests of a run.
type Prompts struct {
	Title   CompletionRequest `json:"title"`
	Queries CompletionRequest `json:"queries"`
}

// ComposePrompts builds the title and query requests from the same context block.
func ComposePrompts(pc PipelineContext, queryCount int) Prompts {
	if queryCount <= 0 {
		queryCount = DefaultQueryCount
	}
	block := pc.Block()

	return Prompts{
		Title: userRequest(
			"Given the following context, generate a short, fun, moody playlist name.\n\n" + block,
		),
		Queries: userRequest(fmt.Sprintf(
			"Given the following context, generate a list of %d Spotify-friendly song search queries (one per line, no numbering, no extra text).\n\n%s",
			queryCount, block,
		)),
	}
}

func userRequest(content string) CompletionRequest {
	return CompletionRequest{
		Messages: []models.Message{{Role: models.RoleUser, Content: content}},
	}
}
