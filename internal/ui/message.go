package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moody/internal/tasks"
)

// MsgKind enumerates the message types of the TUI.
type MsgKind int

// Msg is the TUI's message union.
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

const (
	MsgProgressUpdate MsgKind = iota
	MsgBrewComplete
)

type brewOutcome struct {
	result *tasks.PlaylistResult
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// brewCompleteMsg is the constructor for [MsgBrewComplete]
func brewCompleteMsg(result *tasks.PlaylistResult, err error) Msg {
	return Msg{kind: MsgBrewComplete, data: brewOutcome{result: result, err: err}}
}
