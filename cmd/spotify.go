package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/server"
	"github.com/desertthunder/moody/internal/services"
	"github.com/desertthunder/moody/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth performs the OAuth2 authorization code flow for Spotify.
//
// Starts a loopback server, opens the browser for consent and saves the exchanged tokens to the config file.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	if cmd.IsSet("config") {
		r.configPath = cmd.String("config")
	}

	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s or .env", shared.ErrMissingCredentials, r.configPath)
	}

	svc := r.spotify
	if svc == nil {
		s, err := services.NewSpotifyService(creds.Map())
		if err != nil {
			return fmt.Errorf("failed to create Spotify service: %w", err)
		}
		s.SetTokenRefreshCallback(func(token *oauth2.Token) {
			if err := r.saveTokens(token); err != nil {
				r.logger.Warn("failed to persist refreshed token", "error", err)
			}
		})
		svc = s
	}

	token, err := r.doOAuth(ctx, svc, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}
	if err := svc.Authenticate(ctx, r.config.Credentials.Spotify.Map()); err != nil {
		return fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}
	r.spotify = svc

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now run: moody create \"rainy sunday coffee\"\n")
	return nil
}

// SpotifyWhoami prints the authenticated account.
func (r *Runner) SpotifyWhoami(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}

	user, err := withReauth(ctx, r, cmd, func() (*models.User, error) {
		return r.spotify.CurrentUser(ctx)
	})
	if err != nil {
		return err
	}

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	r.writePlain("Signed in as %s (%s)\n", name, user.ID)
	return nil
}

// SpotifyPlaylists lists Spotify playlists with optional limit.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	if err := r.requireSpotify(); err != nil {
		return err
	}

	r.logger.Infof("listing spotify playlists with limit %v", limit)

	playlists, err := withReauth(ctx, r, cmd, func() ([]models.Playlist, error) {
		return r.spotify.GetPlaylists(ctx)
	})
	if err != nil {
		return err
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}
	return nil
}

// SpotifyCreate creates an empty playlist owned by the authenticated account.
func (r *Runner) SpotifyCreate(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}

	playlist, err := withReauth(ctx, r, cmd, func() (*models.Playlist, error) {
		user, err := r.spotify.CurrentUser(ctx)
		if err != nil {
			return nil, err
		}
		return r.spotify.CreatePlaylist(ctx, user.ID, name, cmd.String("description"))
	})
	if err != nil {
		return err
	}

	r.logger.Info("playlist created", "id", playlist.ID, "name", playlist.Name)
	if cmd.Bool("json") {
		return r.writeJSON(playlist, true)
	}
	r.writePlain("✓ Created %q\n", playlist.Name)
	r.writePlain("  ID: %s\n", playlist.ID)
	return nil
}

// SpotifyAdd adds a comma-separated list of track IDs to a playlist.
func (r *Runner) SpotifyAdd(ctx context.Context, cmd *cli.Command) error {
	playlistID := strings.TrimSpace(cmd.String("playlist-id"))
	if playlistID == "" {
		return fmt.Errorf("%w: --playlist-id is required", shared.ErrMissingArgument)
	}

	var ids []string
	for id := range strings.SplitSeq(cmd.String("tracks"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one track ID is required", shared.ErrMissingArgument)
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}

	if _, err := withReauth(ctx, r, cmd, func() (struct{}, error) {
		return struct{}{}, r.spotify.AddTracks(ctx, playlistID, ids)
	}); err != nil {
		return err
	}

	return r.writePlain("✓ Added %d tracks to %s\n", len(ids), playlistID)
}

// SpotifySearch runs a track search the same way the pipeline resolves a query.
func (r *Runner) SpotifySearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query is required", shared.ErrMissingArgument)
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}

	tracks, err := withReauth(ctx, r, cmd, func() ([]models.Track, error) {
		return r.spotify.SearchTracks(ctx, query, cmd.Int("limit"))
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	if len(tracks) == 0 {
		r.writePlain("No tracks found for %q\n", query)
		return nil
	}
	for i, t := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, t.Artist, t.Title)
		if t.Album != "" {
			r.writePlain("   Album: %s\n", t.Album)
		}
		r.writePlain("   ID: %s\n", t.ID)
	}
	return nil
}

func (r *Runner) requireSpotify() error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a loopback callback server.
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := server.NewOAuthHandler(oauthSrv.OAuthConfig(), state)
	callback, err := server.NewCallbackServer(r.config.Server.Addr(), handler, r.logger)
	if err != nil {
		return nil, err
	}
	callback.Start()
	r.logger.Infof("started OAuth callback server for %s at %v", prefix, callback.Addr())

	authURL := oauthSrv.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)
	return callback.Wait(ctx, authTimeout)
}

// withReauth runs fn and, if Spotify rejected the token, walks the user through reauthorization and runs it once more.
func withReauth[T any](ctx context.Context, r *Runner, cmd *cli.Command, fn func() (T, error)) (T, error) {
	out, err := fn()
	if err == nil || !errors.Is(err, shared.ErrTokenExpired) {
		if err != nil {
			err = fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		return out, err
	}

	r.writePlainln("⚠ Authentication token expired. Starting reauthorization...\n")
	if cmd.IsSet("config") {
		r.configPath = cmd.String("config")
	}

	token, authErr := r.doOAuth(ctx, r.spotify, "reauthorization")
	if authErr != nil {
		return out, fmt.Errorf("reauthorization failed: %w", authErr)
	}
	if saveErr := r.saveTokens(token); saveErr != nil {
		return out, saveErr
	}
	if authErr := r.spotify.Authenticate(ctx, r.config.Credentials.Spotify.Map()); authErr != nil {
		return out, fmt.Errorf("failed to authenticate with new tokens: %w", authErr)
	}

	r.writePlainln("✓ Successfully reauthenticated. Retrying operation...\n")
	if _, statErr := os.Stat(r.configPath); statErr != nil {
		r.logger.Warn("config file missing, tokens kept in memory only", "path", r.configPath)
	}
	return fn()
}
