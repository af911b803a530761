// Package ui implements the interactive `moody tui` flow on bubbletea's Elm architecture.
//
// Views, in order:
//  1. [MoodView]: type a mood prompt
//  2. [NotesView]: optionally pick a reflection notes file
//  3. [BrewView]: follow pipeline progress while the run executes
//  4. [ResultView]: the created playlist, or the failure and any partial playlist
//
// Progress updates flow through a buffered channel from the [Brewer] and are
// re-read one message at a time, so rendering never blocks the run.
package ui
