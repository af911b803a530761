// Package services defines the collaborators of a playlist run and implements them over HTTP.
//
// # Collaborators
//
//   - [MusicService] : track search, playlist creation and track attachment ([SpotifyService])
//   - [SearchService] : web research snippets ([GoogleSearch])
//   - [CompletionService] : single-shot chat completions ([OpenAICompletion])
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// Each distinct access token is reported through the callback registered with
// [SpotifyService.SetTokenRefreshCallback] so the CLI can persist it.
//
// Requests pass through a client-side rate limiter and are retried on 429 and 5xx,
// honoring Retry-After. Adding tracks is split into batches of 100 URIs.
//
// # OAuth Service Extension
//
// The [OAuthService] interface extends MusicService for providers using the authorization code flow.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token expired, reauthorization needed
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrDecode] : response missing a required field or not JSON
//   - [shared.ErrTimeout] : the call's deadline passed
//   - [shared.ErrEmptyCompletion] : the model returned only whitespace
package services
