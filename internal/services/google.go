// Google Custom Search implementation of [SearchService]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/shared"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// maxSearchResults is the Custom Search JSON API cap on num.
const maxSearchResults = 10

// GoogleSearch implements [SearchService] using the Custom Search JSON API.
type GoogleSearch struct {
	service *customsearch.Service
	cx      string
}

// NewGoogleSearch creates a search client for the given API key and search engine id (cx).
//
// Extra options are passed to the generated client, e.g. [option.WithEndpoint] in tests.
func NewGoogleSearch(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleSearch, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("%w: google api_key and cse_id are required", shared.ErrMissingCredentials)
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search client: %w", err)
	}
	return &GoogleSearch{service: svc, cx: cx}, nil
}

// Search returns up to count results for query in ranking order.
func (g *GoogleSearch) Search(ctx context.Context, query string, count int) ([]models.Snippet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}
	count = min(max(count, 1), maxSearchResults)

	resp, err := g.service.Cse.List().Cx(g.cx).Q(query).Num(int64(count)).Context(ctx).Do()
	if err != nil {
		return nil, wrapGoogleError(err)
	}

	snippets := make([]models.Snippet, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		snippets = append(snippets, models.Snippet{Title: item.Title, Snippet: item.Snippet})
	}
	return snippets, nil
}

func wrapGoogleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: google search: %v", shared.ErrTimeout, err)
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%w: google search: %v", shared.ErrAPIRequest, err)
	}

	switch gerr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: google search: %s", shared.ErrInvalidCredentials, gerr.Message)
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: google search: %s", shared.ErrServiceUnavailable, gerr.Message)
	default:
		return fmt.Errorf("%w: google search: status %d: %s", shared.ErrAPIRequest, gerr.Code, gerr.Message)
	}
}
