package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// CallbackPath is where Spotify redirects after the user grants access.
const CallbackPath = "/callback"

var (
	ErrStateMismatch    = errors.New("state parameter does not match")
	ErrAccessDenied     = errors.New("authorization was not granted")
	ErrCallbackConsumed = errors.New("callback already processed")
)

// Exchanger turns an authorization code into a token. *oauth2.Config satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// AuthResult is the outcome of one authorization redirect.
type AuthResult struct {
	Token *oauth2.Token
	Err   error
}

// OAuthHandler accepts a single authorization code redirect and publishes the exchanged token.
type OAuthHandler struct {
	exchanger       Exchanger
	state           string
	exchangeTimeout time.Duration
	results         chan AuthResult

	mu   sync.Mutex
	done bool
	once sync.Once
}

// NewOAuthHandler creates a handler that only accepts redirects carrying state.
func NewOAuthHandler(exchanger Exchanger, state string) *OAuthHandler {
	return &OAuthHandler{
		exchanger:       exchanger,
		state:           state,
		exchangeTimeout: 30 * time.Second,
		results:         make(chan AuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{CallbackPath}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		http.Error(w, ErrCallbackConsumed.Error(), http.StatusBadRequest)
		return
	}
	h.done = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.publish(AuthResult{Err: ErrStateMismatch})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.publish(AuthResult{Err: fmt.Errorf("%w: %s %s", ErrAccessDenied, q.Get("error"), q.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.exchangeTimeout)
	defer cancel()

	token, err := h.exchanger.Exchange(ctx, code)
	if err != nil {
		h.publish(AuthResult{Err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.publish(AuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

func (h *OAuthHandler) publish(result AuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result yields exactly one [AuthResult] and is then closed.
func (h *OAuthHandler) Result() <-chan AuthResult {
	return h.results
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>moody is connected</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #191414; }
        .card { text-align: center; background: #242424; padding: 2rem; border-radius: 8px; }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #b3b3b3; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>Spotify connected</h1>
        <p>Head back to the terminal to brew a playlist.</p>
    </div>
</body>
</html>
`
