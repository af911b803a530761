package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	LLM         LLMConfig         `toml:"llm"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Notes       NotesConfig       `toml:"notes"`
	Logging     LoggingConfig     `toml:"logging"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Google  GoogleConfig  `toml:"google"`
}

// SpotifyConfig contains Spotify API credentials and the cached OAuth token.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenExpiry  time.Time `toml:"token_expiry"`
}

// Map returns the credentials in the form accepted by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	m := map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
	if s.AccessToken != "" {
		m["access_token"] = s.AccessToken
	}
	if s.RefreshToken != "" {
		m["refresh_token"] = s.RefreshToken
	}
	if !s.TokenExpiry.IsZero() {
		m["expiry"] = s.TokenExpiry.Format(time.RFC3339)
	}
	return m
}

// Update stores a freshly issued token.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidCredentials)
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenExpiry = token.Expiry
	return nil
}

// HasToken reports whether an access or refresh token has been saved.
func (s SpotifyConfig) HasToken() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// GoogleConfig contains Custom Search credentials.
type GoogleConfig struct {
	APIKey string `toml:"api_key"`
	CSEID  string `toml:"cse_id"`
}

// LLMConfig configures the OpenAI-compatible completion endpoint.
type LLMConfig struct {
	Endpoint   string `toml:"endpoint"`
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	MetaPrompt string `toml:"meta_prompt"`
	MaxTokens  int    `toml:"max_tokens"`
}

// PipelineConfig tunes a playlist run.
type PipelineConfig struct {
	SearchResults      int     `toml:"search_results"`
	ContextChars       int     `toml:"context_chars"`
	QueryCount         int     `toml:"query_count"`
	CallTimeoutSeconds int     `toml:"call_timeout_seconds"`
	ResolveWorkers     int     `toml:"resolve_workers"`
	MaxAttempts        int     `toml:"max_attempts"`
	DedupeTracks       bool    `toml:"dedupe_tracks"`
	RequestsPerSecond  float64 `toml:"requests_per_second"`
}

// CallTimeout returns the per-call deadline; zero disables it.
func (p PipelineConfig) CallTimeout() time.Duration {
	if p.CallTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(p.CallTimeoutSeconds) * time.Second
}

// NotesConfig points at the directory of reflection notes offered by the TUI and `moody notes`.
type NotesConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig sets log level and an optional log file.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings for the OAuth callback.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for the callback listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path. The file holds tokens so it is written owner-only.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides credentials with environment variables, typically loaded from a .env file.
func (c *Config) ApplyEnv() {
	for env, dst := range map[string]*string{
		"SPOTIFY_CLIENT_ID":     &c.Credentials.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET": &c.Credentials.Spotify.ClientSecret,
		"SPOTIFY_REDIRECT_URI":  &c.Credentials.Spotify.RedirectURI,
		"GOOGLE_API_KEY":        &c.Credentials.Google.APIKey,
		"GOOGLE_CSE_ID":         &c.Credentials.Google.CSEID,
		"LLM_ENDPOINT":          &c.LLM.Endpoint,
		"LLM_API_KEY":           &c.LLM.APIKey,
		"LLM_MODEL":             &c.LLM.Model,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}

// Validate checks that every collaborator of a playlist run has credentials.
func (c *Config) Validate() error {
	var missing []string
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		missing = append(missing, "credentials.spotify")
	}
	if c.Credentials.Google.APIKey == "" || c.Credentials.Google.CSEID == "" {
		missing = append(missing, "credentials.google")
	}
	if c.LLM.Endpoint == "" && c.LLM.APIKey == "" {
		missing = append(missing, "llm")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingCredentials, missing)
	}
	return nil
}
