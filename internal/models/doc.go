// Package models defines domain entities for the moody playlist generator.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs exchanged with external services
//   - [User] : The authenticated Spotify account
//   - [Playlist] : Playlist metadata
//   - [Track] : A track search hit
//   - [Snippet] : A web search result (title + snippet)
//   - [Message] : A chat completion message
//   - [ResolvedTrack] : A query paired with the track it resolved to
//
// 2. Persistent Entities: Database-backed models
//   - [Run] : One pipeline invocation with its outcome and diagnostics
//
// Persistent entities implement the [Model] interface; [Repository] defines the CRUD surface.
package models
