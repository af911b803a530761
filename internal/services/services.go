// package services defines the collaborators of a playlist run and their HTTP implementations
//
// Spotify (music), Google Custom Search (web search), OpenAI-compatible chat completions (LLM)
package services

import (
	"context"

	"github.com/desertthunder/moody/internal/models"
	"golang.org/x/oauth2"
)

// MusicService defines the music provider operations a playlist run needs.
type MusicService interface {
	// Authenticate installs credentials: an "access_token" (optionally with "refresh_token" and "expiry") or an "auth_code".
	Authenticate(ctx context.Context, credentials map[string]string) error

	// CurrentUser returns the authenticated account.
	CurrentUser(ctx context.Context) (*models.User, error)

	// SearchTracks returns up to limit tracks matching query, best match first.
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error)

	// CreatePlaylist creates an empty playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error)

	// AddTracks appends tracks to a playlist in the given order.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends [MusicService] for providers using the authorization code flow.
type OAuthService interface {
	MusicService
	GetAuthURL(state string) string
	OAuthConfig() *oauth2.Config
	SetTokenRefreshCallback(fn func(*oauth2.Token))
}

// SearchService returns web search snippets for a query.
type SearchService interface {
	Search(ctx context.Context, query string, count int) ([]models.Snippet, error)
}

// CompletionService produces a single chat completion.
//
// A nil systemPrompt means the service default applies; a non-nil empty string sends no system message.
type CompletionService interface {
	Complete(ctx context.Context, messages []models.Message, systemPrompt *string) (string, error)
}
