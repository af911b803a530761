// Spotify API implementation of [MusicService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// DefaultRedirectURI matches the callback served by `moody spotify auth`.
	DefaultRedirectURI = "http://127.0.0.1:3000/callback"

	// maxAddBatch is the Spotify limit of URIs per add-items request.
	maxAddBatch = 100
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a simplified playlist object.
type SpotifyPlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       owner          `json:"owner"`
	Public      bool           `json:"public"`
	Tracks      playlistTracks `json:"tracks"`
	URI         string         `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifyPlaylist `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Next   *string           `json:"next"`
}

// SpotifySearchResponse is the body of GET /search?type=track.
type SpotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService implements [MusicService] for Spotify API interactions.
// Uses [oauth2] for authentication with automatic token refresh, a client-side [rate.Limiter],
// and retries for 429/5xx responses.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	baseClient     *http.Client
	httpClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	retry          retryPolicy
	mu             sync.Mutex
	onTokenRefresh func(*oauth2.Token)
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithSpotifyBaseURL points the service at a different API root (tests, proxies).
func WithSpotifyBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = u }
}

// WithSpotifyHTTPClient sets the transport used for API and token requests.
func WithSpotifyHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) {
		s.baseClient = c
		s.httpClient = c
	}
}

// WithSpotifyRateLimit caps requests per second; zero or less disables limiting.
func WithSpotifyRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithSpotifyRetry sets the retry budget and base backoff.
func WithSpotifyRetry(maxRetries int, backoff time.Duration) SpotifyOption {
	return func(s *SpotifyService) { s.retry = retryPolicy{maxRetries: maxRetries, baseBackoff: backoff} }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	s := &SpotifyService{
		config:     config,
		baseClient: http.DefaultClient,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// OAuthConfig exposes the OAuth2 configuration for the callback handler.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// SetTokenRefreshCallback registers fn to be called whenever the token source yields a new access token.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokenRefresh = fn
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
//
// An access token may carry "refresh_token" and an RFC 3339 "expiry"; the client then refreshes transparently.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	ctx = context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, s.baseClient)

	var token *oauth2.Token
	switch {
	case credentials["access_token"] != "" || credentials["refresh_token"] != "":
		token = &oauth2.Token{
			AccessToken:  credentials["access_token"],
			RefreshToken: credentials["refresh_token"],
			TokenType:    "Bearer",
		}
		if exp := credentials["expiry"]; exp != "" {
			t, err := time.Parse(time.RFC3339, exp)
			if err != nil {
				return fmt.Errorf("%w: invalid expiry %q", shared.ErrInvalidCredentials, exp)
			}
			token.Expiry = t
		}
		if token.AccessToken == "" {
			// force a refresh on first use
			token.Expiry = time.Unix(1, 0)
		}
	case credentials["auth_code"] != "":
		t, err := s.config.Exchange(ctx, credentials["auth_code"])
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		token = t
	default:
		return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
	}

	s.mu.Lock()
	s.token = token
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.tokenRefreshed,
	}
	s.mu.Unlock()

	s.httpClient = oauth2.NewClient(ctx, source)
	return nil
}

func (s *SpotifyService) tokenRefreshed(token *oauth2.Token) {
	s.mu.Lock()
	s.token = token
	fn := s.onTokenRefresh
	s.mu.Unlock()
	if fn != nil {
		fn(token)
	}
}

func (s *SpotifyService) authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != nil
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports each distinct access token to callback.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// doRequest performs an authenticated request against the Spotify API and decodes the JSON response into result.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if !s.authenticated() {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %v", shared.ErrTimeout, err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.retry.do(s.httpClient, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s: %v", shared.ErrTimeout, method, endpoint, err)
		}
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
		}
		return fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrDecode, method, endpoint, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var body spotifyErrorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := string(raw)
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, msg)
	}
	return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: user profile missing id", shared.ErrDecode)
	}
	return &user, nil
}

// CurrentUser returns the authenticated account.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*models.User, error) {
	user, err := s.UserProfile(ctx)
	if err != nil {
		return nil, err
	}
	return &models.User{ID: user.ID, DisplayName: user.DisplayName}, nil
}

// SearchTracks searches the catalog for tracks matching query.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}
	limit = min(max(limit, 1), 50)

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", fmt.Sprint(limit))

	var response SpotifySearchResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		if item.ID == "" {
			return nil, fmt.Errorf("%w: search result missing track id", shared.ErrDecode)
		}
		tracks = append(tracks, item.toModel())
	}
	return tracks, nil
}

func (t SpotifyTrack) toModel() models.Track {
	track := models.Track{
		ID:       t.ID,
		Title:    t.Name,
		Album:    t.Album.Name,
		Duration: t.DurationMS / 1000,
		URI:      t.URI,
	}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	return track
}

// CreatePlaylist creates a playlist for userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error) {
	if userID == "" || name == "" {
		return nil, fmt.Errorf("%w: user id and playlist name are required", shared.ErrInvalidInput)
	}

	payload := map[string]any{
		"name":        name,
		"description": description,
		"public":      true,
	}

	var created SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, payload, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: created playlist missing id", shared.ErrDecode)
	}

	pl := created.toModel()
	return &pl, nil
}

// AddTracks appends trackIDs to a playlist, in order, in batches of at most 100.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	}
	if len(trackIDs) == 0 {
		return fmt.Errorf("%w: no track ids provided", shared.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	for start := 0; start < len(trackIDs); start += maxAddBatch {
		end := min(start+maxAddBatch, len(trackIDs))
		uris := make([]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			uris = append(uris, "spotify:track:"+id)
		}

		var snapshot struct {
			SnapshotID string `json:"snapshot_id"`
		}
		if err := s.doRequest(ctx, http.MethodPost, endpoint, map[string]any{"uris": uris}, &snapshot); err != nil {
			return fmt.Errorf("failed to add tracks %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// GetPlaylists retrieves all playlists for the authenticated user.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var all []models.Playlist
	limit, offset := 50, 0

	for {
		response, err := s.UserPlaylists(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			all = append(all, sp.toModel())
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += limit
	}

	return all, nil
}

func (p SpotifyPlaylist) toModel() models.Playlist {
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		TrackCount:  p.Tracks.Total,
		Public:      p.Public,
	}
}
