package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/moody/internal/shared"
	"golang.org/x/oauth2"
)

var testCredentials = map[string]string{
	"client_id":     "test_client_id",
	"client_secret": "test_client_secret",
}

// newTestSpotify returns an authenticated service pointed at handler.
func newTestSpotify(t *testing.T, handler http.HandlerFunc) *SpotifyService {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewSpotifyService(testCredentials,
		WithSpotifyBaseURL(srv.URL),
		WithSpotifyHTTPClient(srv.Client()),
		WithSpotifyRateLimit(0),
		WithSpotifyRetry(3, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if err := svc.Authenticate(context.Background(), map[string]string{"access_token": "test_token"}); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	return svc
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "test_client_secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != DefaultRedirectURI {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Requests Playlist Modify Scopes", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials)
			scopes := strings.Join(srv.config.Scopes, " ")
			if !strings.Contains(scopes, "playlist-modify-public") || !strings.Contains(scopes, "playlist-modify-private") {
				t.Errorf("expected playlist modify scopes, got %s", scopes)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("WithAccessToken", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{
				"access_token":  "test_access_token",
				"refresh_token": "test_refresh_token",
				"expiry":        "2030-01-01T00:00:00Z",
			})
			if err != nil {
				t.Fatalf("expected no error with access token, got %v", err)
			}

			if srv.token.AccessToken != "test_access_token" {
				t.Errorf("expected access token to be 'test_access_token', got %s", srv.token.AccessToken)
			}
			if srv.token.Expiry.Year() != 2030 {
				t.Errorf("expected expiry to be parsed, got %v", srv.token.Expiry)
			}
		})

		t.Run("Invalid Expiry", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{
				"access_token": "a",
				"expiry":       "tomorrow",
			})
			if !errors.Is(err, shared.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("Not Authenticated", func(t *testing.T) {
		srv, _ := NewSpotifyService(testCredentials)
		_, err := srv.CurrentUser(context.Background())
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("CurrentUser", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test_token" {
				t.Errorf("expected bearer token, got %q", got)
			}
			writeJSON(t, w, http.StatusOK, map[string]any{"id": "user-1", "display_name": "Rain"})
		})

		user, err := svc.CurrentUser(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != "user-1" || user.DisplayName != "Rain" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("CurrentUser Missing ID", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{"display_name": "nobody"})
		})

		_, err := svc.CurrentUser(context.Background())
		if !errors.Is(err, shared.ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
	})

	t.Run("SearchTracks", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("q") != "sad lofi" || q.Get("type") != "track" || q.Get("limit") != "1" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			writeJSON(t, w, http.StatusOK, map[string]any{
				"tracks": map[string]any{
					"items": []map[string]any{{
						"id":          "t1",
						"name":        "Rain",
						"duration_ms": 180000,
						"artists":     []map[string]any{{"id": "a1", "name": "Nujabes"}},
						"album":       map[string]any{"id": "al1", "name": "Modal Soul"},
					}},
				},
			})
		})

		tracks, err := svc.SearchTracks(context.Background(), "sad lofi", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(tracks))
		}
		if tracks[0].ID != "t1" || tracks[0].Artist != "Nujabes" || tracks[0].Duration != 180 {
			t.Errorf("unexpected track %+v", tracks[0])
		}
	})

	t.Run("SearchTracks No Results", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": []any{}}})
		})

		tracks, err := svc.SearchTracks(context.Background(), "nothing", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 0 {
			t.Errorf("expected no tracks, got %d", len(tracks))
		}
	})

	t.Run("SearchTracks Missing Track ID", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"tracks": map[string]any{"items": []map[string]any{{"name": "ghost"}}},
			})
		})

		_, err := svc.SearchTracks(context.Background(), "ghost", 1)
		if !errors.Is(err, shared.ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
	})

	t.Run("SearchTracks Malformed JSON", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, "{not json")
		})

		_, err := svc.SearchTracks(context.Background(), "x", 1)
		if !errors.Is(err, shared.ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/users/user-1/playlists" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body["name"] != "Grey Latte Hours" || body["description"] != "Moody playlist: rain" {
				t.Errorf("unexpected body %v", body)
			}
			writeJSON(t, w, http.StatusCreated, map[string]any{"id": "pl-1", "name": "Grey Latte Hours"})
		})

		pl, err := svc.CreatePlaylist(context.Background(), "user-1", "Grey Latte Hours", "Moody playlist: rain")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pl.ID != "pl-1" || pl.Name != "Grey Latte Hours" {
			t.Errorf("unexpected playlist %+v", pl)
		}
	})

	t.Run("CreatePlaylist Forbidden", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusForbidden, map[string]any{
				"error": map[string]any{"status": 403, "message": "Insufficient client scope"},
			})
		})

		_, err := svc.CreatePlaylist(context.Background(), "user-1", "x", "")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "Insufficient client scope") {
			t.Errorf("expected spotify message in error, got %v", err)
		}
	})

	t.Run("Unauthorized Maps To Token Expired", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"status": 401, "message": "The access token expired"},
			})
		})

		_, err := svc.GetPlaylists(context.Background())
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("AddTracks Batches In Order", func(t *testing.T) {
		var (
			mu      sync.Mutex
			batches [][]string
		)
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlists/pl-1/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var body struct {
				URIs []string `json:"uris"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			mu.Lock()
			batches = append(batches, body.URIs)
			mu.Unlock()
			writeJSON(t, w, http.StatusCreated, map[string]any{"snapshot_id": "snap"})
		})

		ids := make([]string, 150)
		for i := range ids {
			ids[i] = "t" + strings.Repeat("x", i%3)
		}
		ids[0], ids[149] = "first", "last"

		if err := svc.AddTracks(context.Background(), "pl-1", ids); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(batches) != 2 || len(batches[0]) != 100 || len(batches[1]) != 50 {
			t.Fatalf("expected batches of 100 and 50, got %d batches", len(batches))
		}
		if batches[0][0] != "spotify:track:first" || batches[1][49] != "spotify:track:last" {
			t.Errorf("order not preserved: %s ... %s", batches[0][0], batches[1][49])
		}
	})

	t.Run("AddTracks Empty", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		if err := svc.AddTracks(context.Background(), "pl-1", nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("GetPlaylists Paginates", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("offset") == "0" {
				next := "more"
				writeJSON(t, w, http.StatusOK, map[string]any{
					"items": []map[string]any{{"id": "p1", "name": "One", "tracks": map[string]any{"total": 3}}},
					"next":  next,
				})
				return
			}
			writeJSON(t, w, http.StatusOK, map[string]any{
				"items": []map[string]any{{"id": "p2", "name": "Two"}},
				"next":  nil,
			})
		})

		playlists, err := svc.GetPlaylists(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(playlists) != 2 || playlists[0].TrackCount != 3 || playlists[1].ID != "p2" {
			t.Errorf("unexpected playlists %+v", playlists)
		}
	})

	t.Run("Retries Rate Limited Requests", func(t *testing.T) {
		var calls atomic.Int32
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			writeJSON(t, w, http.StatusOK, map[string]any{"id": "user-1"})
		})

		if _, err := svc.CurrentUser(context.Background()); err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})

	t.Run("Does Not Resend Create Playlist After Server Error", func(t *testing.T) {
		var posts atomic.Int32
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				return
			}
			if posts.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			writeJSON(t, w, http.StatusCreated, map[string]any{"id": "pl-2", "name": "Dup"})
		})

		_, err := svc.CreatePlaylist(context.Background(), "u1", "Grey Latte Hours", "Moody playlist: rain")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if posts.Load() != 1 {
			t.Errorf("expected create playlist POST sent once, got %d", posts.Load())
		}
	})

	t.Run("Does Not Resend Add Tracks After Server Error", func(t *testing.T) {
		var posts atomic.Int32
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			posts.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		if err := svc.AddTracks(context.Background(), "pl-1", []string{"t1"}); err == nil {
			t.Fatal("expected error")
		}
		if posts.Load() != 1 {
			t.Errorf("expected add tracks POST sent once, got %d", posts.Load())
		}
	})

	t.Run("Resends Rate Limited POST With Body", func(t *testing.T) {
		var calls atomic.Int32
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), "spotify:track:t1") {
				t.Errorf("attempt %d lost request body: %q", calls.Load()+1, body)
			}
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			writeJSON(t, w, http.StatusCreated, map[string]any{"snapshot_id": "snap"})
		})

		if err := svc.AddTracks(context.Background(), "pl-1", []string{"t1"}); err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})

	t.Run("Gives Up After Max Retries", func(t *testing.T) {
		var calls atomic.Int32
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := svc.CurrentUser(context.Background())
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", calls.Load())
		}
	})

	t.Run("Context Deadline Maps To Timeout", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := svc.CurrentUser(ctx)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		srv.SetTokenRefreshCallback(func(token *oauth2.Token) {})
		if srv.onTokenRefresh == nil {
			t.Error("expected callback to be set")
		}

		srv.SetTokenRefreshCallback(nil)
		if srv.onTokenRefresh != nil {
			t.Error("expected callback to be nil")
		}
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback only when token changes", func(t *testing.T) {
			var captured []string
			mockSource := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}
			source := &refreshableTokenSource{
				source:   mockSource,
				callback: func(token *oauth2.Token) { captured = append(captured, token.AccessToken) },
			}

			source.Token()
			source.Token()
			mockSource.token = &oauth2.Token{AccessToken: "token2"}
			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if token.AccessToken != "token2" {
				t.Errorf("expected new token, got %s", token.AccessToken)
			}
			if strings.Join(captured, ",") != "token1,token2" {
				t.Errorf("unexpected callback sequence %v", captured)
			}
		})

		t.Run("handles nil callback gracefully", func(t *testing.T) {
			source := &refreshableTokenSource{source: &mockTokenSource{token: &oauth2.Token{AccessToken: "x"}}}
			if _, err := source.Token(); err != nil {
				t.Fatalf("expected no error with nil callback, got %v", err)
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			source := &refreshableTokenSource{
				source: &mockTokenSource{err: errors.New("token source error")},
				callback: func(token *oauth2.Token) {
					t.Error("callback should not be called on error")
				},
			}

			token, err := source.Token()
			if err == nil || !strings.Contains(err.Error(), "token source error") {
				t.Errorf("expected source error, got %v", err)
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})
	})

	t.Run("Service Interface", func(t *testing.T) {
		var _ OAuthService = &SpotifyService{}
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
