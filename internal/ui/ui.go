package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moody/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	MoodView ViewState = iota
	NotesView
	BrewView
	ResultView
)

const recentLines = 8

// Brewer runs the pipeline for one request. [*tasks.MoodEngine] satisfies it.
type Brewer interface {
	RunWithRetry(ctx context.Context, req tasks.MoodRequest, progress chan<- tasks.ProgressUpdate) (*tasks.PlaylistResult, error)
}

// Options configures a [Model].
type Options struct {
	Notes []tasks.NoteFile

	// OnFinish is called from the brewing goroutine once a run ends, e.g. to record history.
	OnFinish func(req tasks.MoodRequest, result *tasks.PlaylistResult, err error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	brewer       Brewer
	opts         Options
	width        int
	height       int
	input        textinput.Model
	notesList    list.Model
	spinner      spinner.Model
	request      tasks.MoodRequest
	progressChan chan tasks.ProgressUpdate
	outcome      *brewOutcome
	progress     tasks.ProgressUpdate
	recent       []string
	result       *tasks.PlaylistResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI over brewer.
func NewModel(ctx context.Context, brewer Brewer, opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "rainy sunday coffee"
	input.CharLimit = 200
	input.Width = 50
	input.Prompt = "mood › "
	input.Focus()

	notes := list.New(noteItems(opts.Notes), list.NewDefaultDelegate(), 60, 20)
	notes.Title = "Add reflection notes?"

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok))

	return &Model{
		ctx:       ctx,
		view:      MoodView,
		brewer:    brewer,
		opts:      opts,
		input:     input,
		notesList: notes,
		spinner:   sp,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init starts the cursor blinking.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.notesList.SetSize(max(msg.Width-4, 20), max(msg.Height-8, 5))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case MoodView:
			return m.handleMoodKeys(msg)
		case NotesView:
			return m.handleNotesKeys(msg)
		case BrewView:
			if key.Matches(msg, m.keys.interrupt) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != BrewView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.progress = update
			m.recent = append(m.recent, update.Message)
			if len(m.recent) > recentLines {
				m.recent = m.recent[len(m.recent)-recentLines:]
			}
			return m, m.waitForProgress()
		case MsgBrewComplete:
			outcome := msg.data.(brewOutcome)
			m.result = outcome.result
			m.err = outcome.err
			m.progressChan = nil
			m.view = ResultView
			return m, nil
		}
	}

	return m.updateInputs(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case MoodView:
		return m.renderMood()
	case NotesView:
		return m.renderNotes()
	case BrewView:
		return m.renderBrew()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleMoodKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.interrupt), key.Matches(msg, m.keys.back):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		mood := strings.TrimSpace(m.input.Value())
		if mood == "" {
			return m, nil
		}
		m.request = tasks.MoodRequest{MoodPrompt: mood}
		if len(m.opts.Notes) == 0 {
			return m, m.startBrew()
		}
		m.input.Blur()
		m.view = NotesView
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleNotesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.notesList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.notesList, cmd = m.notesList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = MoodView
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.notesList.SelectedItem().(noteItem); ok {
			m.request.NotesPath = item.note.Path
		}
		return m, m.startBrew()
	}

	var cmd tea.Cmd
	m.notesList, cmd = m.notesList.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.reset()
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *Model) reset() {
	m.view = MoodView
	m.input.Reset()
	m.request = tasks.MoodRequest{}
	m.progress = tasks.ProgressUpdate{}
	m.recent = nil
	m.result = nil
	m.err = nil
}

func (m *Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case MoodView:
		m.input, cmd = m.input.Update(msg)
	case NotesView:
		m.notesList, cmd = m.notesList.Update(msg)
	}
	return m, cmd
}

func (m *Model) startBrew() tea.Cmd {
	m.view = BrewView
	m.input.Blur()
	m.progressChan = make(chan tasks.ProgressUpdate, 64)
	m.outcome = &brewOutcome{}

	req, progress, outcome := m.request, m.progressChan, m.outcome
	go func() {
		result, err := m.brewer.RunWithRetry(m.ctx, req, progress)
		outcome.result, outcome.err = result, err
		if m.opts.OnFinish != nil {
			m.opts.OnFinish(req, result, err)
		}
		close(progress)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, outcome := m.progressChan, m.outcome
	return func() tea.Msg {
		if progress == nil {
			return brewCompleteMsg(nil, nil)
		}
		update, ok := <-progress
		if !ok {
			return brewCompleteMsg(outcome.result, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderMood() string {
	title := styles.title.Render("What does the moment feel like?")
	helpView := m.help.ShortHelpView([]key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "brew")),
		m.keys.back,
	})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), helpView)
}

func (m *Model) renderNotes() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.notesList.View(), helpView)
}

func (m *Model) renderBrew() string {
	title := styles.title.Render(fmt.Sprintf("Brewing %q", m.request.MoodPrompt))

	phase := m.progress.Phase.String()
	if phase == "" {
		phase = "starting"
	}
	status := fmt.Sprintf("%s %s", m.spinner.View(), phase)
	if m.progress.Total > 0 {
		status = fmt.Sprintf("%s (%d/%d)", status, m.progress.Step, m.progress.Total)
	}

	var lines strings.Builder
	for _, line := range m.recent {
		lines.WriteString(styles.help.Render(line))
		lines.WriteString("\n")
	}

	return fmt.Sprintf("%s\n%s\n\n%s", title, status, lines.String())
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", m.renderFailure(), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render(fmt.Sprintf("✓ %s", m.result.PlaylistName))
	info := fmt.Sprintf(
		"Mood: %s\nTracks: %d\nhttps://open.spotify.com/playlist/%s",
		m.result.MoodPrompt,
		m.result.TrackCount,
		m.result.PlaylistID,
	)

	var tracks strings.Builder
	for i, t := range m.result.Diagnostics.Tracks {
		if i == recentLines {
			fmt.Fprintf(&tracks, "  … and %d more\n", len(m.result.Diagnostics.Tracks)-recentLines)
			break
		}
		label := t.ID
		if t.Title != "" {
			label = fmt.Sprintf("%s - %s", t.Artist, t.Title)
		}
		fmt.Fprintf(&tracks, "  • %s\n", label)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s\n%s", title, styles.box.Render(info), tracks.String(), helpView)
}

func (m *Model) renderFailure() string {
	f, ok := tasks.AsFailure(m.err)
	if !ok {
		return styles.err.Render(fmt.Sprintf("Run failed: %v", m.err))
	}

	out := styles.err.Render(fmt.Sprintf("Run failed (%s) after %s", f.Kind, f.Phase))
	out += "\n" + f.Error()
	if f.Partial() {
		out += "\n\n" + styles.warn.Render(fmt.Sprintf("A playlist was left behind: https://open.spotify.com/playlist/%s", f.PlaylistID))
	}
	return out
}
