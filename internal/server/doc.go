// Package server runs the loopback listener used by `moody spotify auth`.
//
// [OAuthHandler] validates the state token, exchanges the authorization code
// through an [Exchanger] (normally the Spotify *oauth2.Config) and publishes a
// single [AuthResult]. Later redirects are rejected.
//
// [CallbackServer] mounts the handler on a [BasicRouter] with [RequestLogger]
// and shuts itself down once [CallbackServer.Wait] returns.
package server
