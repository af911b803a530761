package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moody/internal/repositories"
	"github.com/desertthunder/moody/internal/services"
	"github.com/desertthunder/moody/internal/shared"
	"github.com/desertthunder/moody/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    services.OAuthService
	search     services.SearchService
	completion services.CompletionService
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
	spinners   bool

	mu   sync.Mutex
	runs *repositories.RunRepository
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    services.OAuthService
	Search     services.SearchService
	Completion services.CompletionService
	DB         *sql.DB // opened lazily from Config.Database when nil
	Logger     *log.Logger
	Output     io.Writer
	Spinners   bool // show progress spinners; only sensible on a terminal
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		search:     opts.Search,
		completion: opts.Completion,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
		spinners:   opts.Spinners,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		createCommand, spotifyCommand, historyCommand, notesCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the logger, e.g. for a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database handle if one was opened.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.runs = nil, nil
	return err
}

// engine builds a [tasks.MoodEngine] over the configured collaborators.
func (r *Runner) engine(pipeline shared.PipelineConfig) (*tasks.MoodEngine, error) {
	if r.spotify == nil {
		return nil, fmt.Errorf("%w: Spotify credentials not configured (credentials.spotify)", shared.ErrServiceUnavailable)
	}
	if r.search == nil {
		return nil, fmt.Errorf("%w: Google search not configured (credentials.google)", shared.ErrServiceUnavailable)
	}
	if r.completion == nil {
		return nil, fmt.Errorf("%w: completion endpoint not configured ([llm])", shared.ErrServiceUnavailable)
	}
	return tasks.NewMoodEngine(r.search, r.completion, r.spotify, tasks.EngineOptionsFromConfig(pipeline)), nil
}

// runRepository opens the history database on first use.
func (r *Runner) runRepository() (*repositories.RunRepository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.runs != nil {
		return r.runs, nil
	}
	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		r.db = db
	} else if err := shared.RunMigrations(r.db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	r.runs = repositories.NewRunRepository(r.db)
	return r.runs, nil
}

// recordRun stores a run outcome in history. History is best effort: failures are logged, not returned.
func (r *Runner) recordRun(req tasks.MoodRequest, result *tasks.PlaylistResult, runErr error) int {
	record, err := tasks.NewRunRecord(req, result, runErr)
	if err != nil {
		r.logger.Debug("run not recorded", "reason", err)
		return 0
	}

	repo, err := r.runRepository()
	if err != nil {
		r.logger.Warn("history unavailable", "error", err)
		return 0
	}
	if err := repo.Create(record); err != nil {
		r.logger.Warn("failed to record run", "error", err)
		return 0
	}

	r.logger.Debug("run recorded", "sequence", record.Sequence(), "status", record.Status)
	return record.Sequence()
}

// saveTokens stores a new Spotify token in memory and, when a config path is set, on disk.
//
// The file is re-read before saving so values that came from the environment are not persisted.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if r.configPath == "" {
		return nil
	}

	onDisk := shared.DefaultConfig()
	if _, err := os.Stat(r.configPath); err == nil {
		if onDisk, err = shared.LoadConfig(r.configPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	if err := onDisk.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.configPath, onDisk); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
