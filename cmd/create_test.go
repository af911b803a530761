package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/moody/internal/models"
	"github.com/desertthunder/moody/internal/shared"
	"github.com/desertthunder/moody/internal/tasks"
	tu "github.com/desertthunder/moody/internal/testing"
	"github.com/urfave/cli/v3"
)

type testApp struct {
	runner *Runner
	music  *tu.MockMusic
	output *bytes.Buffer
}

func newTestApp(t *testing.T, music *tu.MockMusic) *testApp {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Spotify: music,
		Search: &tu.MockSearch{Snippets: []models.Snippet{
			{Title: "Rainy day playlist", Snippet: "Mellow songs for grey weather"},
		}},
		Completion: &tu.MockCompletion{Responses: []string{`"Grey Latte Hours"`, "lofi rain\nsoft jazz piano"}},
		DB:         db,
		Output:     output,
	})
	t.Cleanup(func() { runner.Close() })

	return &testApp{runner: runner, music: music, output: output}
}

func (a *testApp) run(args ...string) error {
	app := &cli.Command{Name: "moody", Commands: a.runner.register()}
	return app.Run(context.Background(), append([]string{"moody"}, args...))
}

func hits() map[string][]models.Track {
	return map[string][]models.Track{
		"lofi rain":       {{ID: "t1", Title: "Drizzle", Artist: "Nujabes"}},
		"soft jazz piano": {{ID: "t2", Title: "Peace Piece", Artist: "Bill Evans"}},
	}
}

func TestCreate(t *testing.T) {
	t.Run("requires a mood", func(t *testing.T) {
		app := newTestApp(t, &tu.MockMusic{Tracks: hits()})

		err := app.run("create")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("prints the playlist and records the run", func(t *testing.T) {
		app := newTestApp(t, &tu.MockMusic{Tracks: hits()})

		if err := app.run("create", "rainy", "sunday", "coffee"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := app.output.String()
		for _, want := range []string{"Grey Latte Hours", "open.spotify.com/playlist/pl-1", "Bill Evans - Peace Piece", "Run:      #1"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}

		if added := app.music.Added("pl-1"); len(added) != 2 || added[0] != "t1" || added[1] != "t2" {
			t.Errorf("expected tracks in query order, got %v", added)
		}
	})

	t.Run("json output", func(t *testing.T) {
		app := newTestApp(t, &tu.MockMusic{Tracks: hits()})

		if err := app.run("create", "--json", "rainy sunday coffee"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var got createOutput
		if err := json.Unmarshal(app.output.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, app.output.String())
		}
		if got.Status != "succeeded" || got.Sequence != 1 {
			t.Errorf("unexpected status %q sequence %d", got.Status, got.Sequence)
		}
		if got.Result == nil || got.Result.PlaylistName != "Grey Latte Hours" || got.Result.TrackCount != 2 {
			t.Errorf("unexpected result %+v", got.Result)
		}
	})

	t.Run("partial failure keeps the playlist link", func(t *testing.T) {
		app := newTestApp(t, &tu.MockMusic{Tracks: hits(), AddErr: errors.New("502 bad gateway")})

		err := app.run("create", "rainy sunday coffee")
		f, ok := tasks.AsFailure(err)
		if !ok {
			t.Fatalf("expected a run failure, got %v", err)
		}
		if f.Kind != tasks.KindTrackAttach || f.PlaylistID != "pl-1" {
			t.Errorf("unexpected failure %+v", f)
		}
		if !strings.Contains(app.output.String(), "incomplete: https://open.spotify.com/playlist/pl-1") {
			t.Errorf("expected partial playlist link, got:\n%s", app.output.String())
		}

		app.output.Reset()
		if err := app.run("history", "list", "--status", "partial", "--format", "json"); err != nil {
			t.Fatalf("history list failed: %v", err)
		}
		if !strings.Contains(app.output.String(), `"failure_kind": "track_attach"`) {
			t.Errorf("expected partial run in history, got:\n%s", app.output.String())
		}
	})

	t.Run("no tracks found lists the queries", func(t *testing.T) {
		app := newTestApp(t, &tu.MockMusic{})

		err := app.run("create", "--attempts", "1", "rainy sunday coffee")
		if !errors.Is(err, tasks.ErrNoTracksFound) {
			t.Fatalf("expected ErrNoTracksFound, got %v", err)
		}
		out := app.output.String()
		if !strings.Contains(out, "Queries tried") || !strings.Contains(out, "- soft jazz piano") {
			t.Errorf("expected queries in output, got:\n%s", out)
		}
	})

	t.Run("no-history skips recording", func(t *testing.T) {
		app := newTestApp(t, &tu.MockMusic{Tracks: hits()})

		if err := app.run("create", "--no-history", "rainy sunday coffee"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		app.output.Reset()
		if err := app.run("history", "list"); err != nil {
			t.Fatalf("history list failed: %v", err)
		}
		if !strings.Contains(app.output.String(), "No runs recorded yet") {
			t.Errorf("expected empty history, got:\n%s", app.output.String())
		}
	})

	t.Run("missing collaborators", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		app := &cli.Command{Name: "moody", Commands: runner.register()}

		err := app.Run(context.Background(), []string{"moody", "create", "rainy"})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestHistory(t *testing.T) {
	app := newTestApp(t, &tu.MockMusic{Tracks: hits()})
	if err := app.run("create", "rainy sunday coffee"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	t.Run("list", func(t *testing.T) {
		app.output.Reset()
		if err := app.run("history", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := app.output.String()
		if !strings.Contains(out, "#1") || !strings.Contains(out, "Grey Latte Hours") {
			t.Errorf("unexpected list output:\n%s", out)
		}
	})

	t.Run("list rejects unknown status", func(t *testing.T) {
		err := app.run("history", "list", "--status", "brewing")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("list rejects unknown format", func(t *testing.T) {
		err := app.run("history", "list", "--format", "yaml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("show by sequence", func(t *testing.T) {
		app.output.Reset()
		if err := app.run("history", "show", "--format", "json", "#1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := app.output.String()
		if !strings.Contains(out, `"mood_prompt": "rainy sunday coffee"`) || !strings.Contains(out, `"t2"`) {
			t.Errorf("unexpected show output:\n%s", out)
		}
	})

	t.Run("show requires a run", func(t *testing.T) {
		err := app.run("history", "show")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("export", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.md")
		if err := app.run("history", "export", "--output", path, "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "Grey Latte Hours") {
			t.Errorf("expected exported run to name the playlist, got:\n%s", content)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := app.run("history", "delete", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := app.run("history", "show", "1"); err == nil {
			t.Error("expected deleted run to be gone")
		}
	})
}

func TestNotesAndSetup(t *testing.T) {
	t.Run("notes lists text files", func(t *testing.T) {
		dir := filepath.Dir(tu.WriteFile(t, "rain.txt", "slow mornings"))
		app := newTestApp(t, &tu.MockMusic{})

		if err := app.run("notes", "--dir", dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(app.output.String(), "rain.txt") {
			t.Errorf("expected rain.txt in output, got:\n%s", app.output.String())
		}
	})

	t.Run("notes json for missing dir", func(t *testing.T) {
		app := newTestApp(t, &tu.MockMusic{})

		if err := app.run("notes", "--json", "--dir", filepath.Join(t.TempDir(), "nope")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.TrimSpace(app.output.String()) != "[]" {
			t.Errorf("expected empty JSON array, got %q", app.output.String())
		}
	})

	t.Run("setup check reports missing credentials", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})
		app := &cli.Command{Name: "moody", Commands: runner.register()}

		err := app.Run(context.Background(), []string{"moody", "setup", "check"})
		if err == nil {
			t.Error("expected validation error for empty config")
		}
		if !strings.Contains(output.String(), "✗ Spotify app credentials") {
			t.Errorf("expected unchecked spotify line, got:\n%s", output.String())
		}
	})

	t.Run("setup database", func(t *testing.T) {
		dir := t.TempDir()
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(dir, "moody.db")
		configPath := filepath.Join(dir, "config.toml")
		if err := shared.SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output})
		app := &cli.Command{Name: "moody", Commands: runner.register()}

		if err := app.Run(context.Background(), []string{"moody", "setup", "database", "--config", configPath}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, configPath)
		if !strings.Contains(output.String(), "✓ Database ready") {
			t.Errorf("unexpected output:\n%s", output.String())
		}
	})
}

func TestSpotifyCommands(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		app := newTestApp(t, &tu.MockMusic{Tracks: hits()})

		if err := app.run("spotify", "search", "soft jazz piano"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(app.output.String(), "1. Bill Evans - Peace Piece") {
			t.Errorf("unexpected output:\n%s", app.output.String())
		}
	})

	t.Run("search miss", func(t *testing.T) {
		app := newTestApp(t, &tu.MockMusic{})

		if err := app.run("spotify", "search", "nothing here"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(app.output.String(), `No tracks found for "nothing here"`) {
			t.Errorf("unexpected output:\n%s", app.output.String())
		}
	})

	t.Run("create", func(t *testing.T) {
		music := &tu.MockMusic{PlaylistID: "pl-9"}
		app := newTestApp(t, music)

		if err := app.run("spotify", "create", "--description", "for later", "Night Drive"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		created := music.Created()
		if len(created) != 1 || created[0].Name != "Night Drive" || created[0].Description != "for later" || created[0].UserID != "user-1" {
			t.Errorf("unexpected create calls %+v", created)
		}
		if !strings.Contains(app.output.String(), "ID: pl-9") {
			t.Errorf("unexpected output:\n%s", app.output.String())
		}
	})

	t.Run("add", func(t *testing.T) {
		music := &tu.MockMusic{}
		app := newTestApp(t, music)

		if err := app.run("spotify", "add", "--playlist-id", "pl-1", "--tracks", "t1, t2,,t3"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if added := music.Added("pl-1"); strings.Join(added, ",") != "t1,t2,t3" {
			t.Errorf("unexpected added tracks %v", added)
		}
	})

	t.Run("add requires tracks", func(t *testing.T) {
		app := newTestApp(t, &tu.MockMusic{})

		err := app.run("spotify", "add", "--playlist-id", "pl-1", "--tracks", " , ")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("collaborator errors are API errors", func(t *testing.T) {
		app := newTestApp(t, &tu.MockMusic{AddErr: errors.New("boom")})

		err := app.run("spotify", "add", "--playlist-id", "pl-1", "--tracks", "t1")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("without a service", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		app := &cli.Command{Name: "moody", Commands: runner.register()}

		err := app.Run(context.Background(), []string{"moody", "spotify", "whoami"})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
