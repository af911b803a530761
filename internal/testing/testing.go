// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/moody/internal/models"
	"golang.org/x/oauth2"
)

// MockMusic is a test double for [services.MusicService] and [services.OAuthService].
//
// Tracks maps a query to its search hits; unknown queries miss. Setting Block makes
// every call wait for its context to end.
type MockMusic struct {
	User       *models.User
	UserErr    error
	Tracks     map[string][]models.Track
	SearchErr  error
	PlaylistID string
	CreateErr  error
	AddErr     error
	Playlists  []models.Playlist
	Block      bool

	mu          sync.Mutex
	searches    []string
	created     []CreatedPlaylist
	added       map[string][]string
	authCreds   map[string]string
	refreshHook func(*oauth2.Token)
}

// CreatedPlaylist records one CreatePlaylist call.
type CreatedPlaylist struct {
	UserID      string
	Name        string
	Description string
}

func (m *MockMusic) wait(ctx context.Context) error {
	if !m.Block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *MockMusic) Authenticate(ctx context.Context, credentials map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authCreds = credentials
	return nil
}

func (m *MockMusic) CurrentUser(ctx context.Context) (*models.User, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.UserErr != nil {
		return nil, m.UserErr
	}
	if m.User != nil {
		return m.User, nil
	}
	return &models.User{ID: "user-1", DisplayName: "Test User"}, nil
}

func (m *MockMusic) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	m.mu.Lock()
	m.searches = append(m.searches, query)
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	hits := m.Tracks[query]
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *MockMusic) CreatePlaylist(ctx context.Context, userID, name, description string) (*models.Playlist, error) {
	m.mu.Lock()
	m.created = append(m.created, CreatedPlaylist{UserID: userID, Name: name, Description: description})
	m.mu.Unlock()

	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	id := m.PlaylistID
	if id == "" {
		id = "pl-1"
	}
	return &models.Playlist{ID: id, Name: name, Description: description, Public: true}, nil
}

func (m *MockMusic) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	m.mu.Lock()
	if m.added == nil {
		m.added = make(map[string][]string)
	}
	m.added[playlistID] = append(m.added[playlistID], trackIDs...)
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return err
	}
	return m.AddErr
}

func (m *MockMusic) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return m.Playlists, nil
}

func (m *MockMusic) Name() string { return "mock" }

func (m *MockMusic) GetAuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (m *MockMusic) OAuthConfig() *oauth2.Config { return &oauth2.Config{ClientID: "mock"} }

func (m *MockMusic) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshHook = fn
}

// Searches returns the queries searched so far, in call order.
func (m *MockMusic) Searches() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.searches...)
}

// Created returns the CreatePlaylist calls made so far.
func (m *MockMusic) Created() []CreatedPlaylist {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CreatedPlaylist(nil), m.created...)
}

// Added returns the track IDs added to playlistID.
func (m *MockMusic) Added(playlistID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.added[playlistID]...)
}

// AuthCredentials returns the credentials passed to Authenticate.
func (m *MockMusic) AuthCredentials() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authCreds
}

// MockSearch is a test double for [services.SearchService].
type MockSearch struct {
	Snippets []models.Snippet
	Err      error

	mu    sync.Mutex
	calls []SearchCall
}

// SearchCall records one Search call.
type SearchCall struct {
	Query string
	Count int
}

func (m *MockSearch) Search(ctx context.Context, query string, count int) ([]models.Snippet, error) {
	m.mu.Lock()
	m.calls = append(m.calls, SearchCall{Query: query, Count: count})
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Snippets, nil
}

func (m *MockSearch) Calls() []SearchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SearchCall(nil), m.calls...)
}

// MockCompletion is a test double for [services.CompletionService]. It returns
// Responses in call order; Errs, when set at the same index, wins over the response.
type MockCompletion struct {
	Responses []string
	Errs      []error

	mu    sync.Mutex
	calls []CompletionCall
}

// CompletionCall records one Complete call.
type CompletionCall struct {
	Messages     []models.Message
	SystemPrompt *string
}

func (m *MockCompletion) Complete(ctx context.Context, messages []models.Message, systemPrompt *string) (string, error) {
	m.mu.Lock()
	i := len(m.calls)
	m.calls = append(m.calls, CompletionCall{Messages: messages, SystemPrompt: systemPrompt})
	m.mu.Unlock()

	if i < len(m.Errs) && m.Errs[i] != nil {
		return "", m.Errs[i]
	}
	if i >= len(m.Responses) {
		return "", fmt.Errorf("mock completion: no response for call %d", i+1)
	}
	return m.Responses[i], nil
}

func (m *MockCompletion) Calls() []CompletionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionCall(nil), m.calls...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// WriteFile writes content to name under t.TempDir and returns the path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := t.TempDir() + string(os.PathSeparator) + name
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
