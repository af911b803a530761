package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moody/internal/services"
	"github.com/desertthunder/moody/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := os.Getenv("MOODY_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	config.ApplyEnv()

	logger, closeLog := configureLogger(logger, config.Logging)
	defer closeLog()

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
		Spinners:   isTerminal(os.Stdout),
	})
	defer runner.Close()

	ctx := context.Background()
	runner.spotify = newSpotify(ctx, config, runner)
	runner.search = newSearch(ctx, config, logger)
	runner.completion = newCompletion(config)

	app := &cli.Command{
		Name:     "moody",
		Usage:    "Brew a Spotify playlist from a mood, a web search and your own notes",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}

// configureLogger switches to logging.file when set. The returned func closes that file.
func configureLogger(logger *log.Logger, cfg shared.LoggingConfig) (*log.Logger, func()) {
	closeLog := func() {}
	if cfg.File != "" {
		if fileLogger, f, err := shared.NewFileLogger(cfg.File); err == nil {
			logger = fileLogger
			closeLog = func() { f.Close() }
		} else {
			logger.Warn("failed to open log file, logging to stderr", "file", cfg.File, "error", err)
		}
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(cfg.Level))
	return logger, closeLog
}

// newSpotify builds the Spotify client and installs any saved token. Refreshed tokens are written back to the config file.
func newSpotify(ctx context.Context, config *shared.Config, r *Runner) services.OAuthService {
	creds := config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil
	}

	opts := []services.SpotifyOption{}
	if rps := config.Pipeline.RequestsPerSecond; rps > 0 {
		opts = append(opts, services.WithSpotifyRateLimit(rps))
	}

	svc, err := services.NewSpotifyService(creds.Map(), opts...)
	if err != nil {
		r.logger.Warn("spotify unavailable", "error", err)
		return nil
	}

	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.saveTokens(token); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		} else {
			r.logger.Debug("spotify token refreshed", "expiry", token.Expiry)
		}
	})

	if creds.HasToken() {
		if err := svc.Authenticate(ctx, creds.Map()); err != nil {
			r.logger.Warn("saved spotify token rejected, run `moody spotify auth`", "error", err)
		}
	}
	return svc
}

func newSearch(ctx context.Context, config *shared.Config, logger *log.Logger) services.SearchService {
	google := config.Credentials.Google
	if google.APIKey == "" || google.CSEID == "" {
		return nil
	}
	svc, err := services.NewGoogleSearch(ctx, google.APIKey, google.CSEID)
	if err != nil {
		logger.Warn("google search unavailable", "error", err)
		return nil
	}
	return svc
}

func newCompletion(config *shared.Config) services.CompletionService {
	llm := config.LLM
	if llm.Endpoint == "" && llm.APIKey == "" {
		return nil
	}
	return services.NewOpenAICompletion(services.CompletionConfig{
		Endpoint:   llm.Endpoint,
		APIKey:     llm.APIKey,
		Model:      llm.Model,
		MetaPrompt: llm.MetaPrompt,
		MaxTokens:  llm.MaxTokens,
	})
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
