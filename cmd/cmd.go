// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

// createCommand runs the mood playlist pipeline once.
func createCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "create",
		Aliases:   []string{"brew"},
		Usage:     "Create a Spotify playlist from a mood prompt",
		ArgsUsage: "<mood prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "notes",
				Aliases: []string{"n"},
				Usage:   "Path to a reflection notes file mixed into the context",
			},
			&cli.IntFlag{
				Name:  "queries",
				Usage: "Number of search queries to ask for (default from config)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Parallel track searches (default from config)",
			},
			&cli.BoolFlag{
				Name:  "dedupe",
				Usage: "Drop tracks already resolved by an earlier query",
			},
			&cli.IntFlag{
				Name:  "attempts",
				Usage: "Maximum runs while failures stay retryable (default from config)",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record the run in history",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the result and diagnostics as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.Create,
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account and playlist operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SpotifyAuth,
			},
			{
				Name:   "whoami",
				Usage:  "Show the authenticated Spotify account",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SpotifyWhoami,
			},
			{
				Name:  "playlists",
				Usage: "List Spotify playlists",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SpotifyPlaylists,
			},
			{
				Name:      "create",
				Usage:     "Create an empty playlist",
				ArgsUsage: "<name>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SpotifyCreate,
			},
			{
				Name:  "add",
				Usage: "Add tracks to a playlist",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "playlist-id",
						Aliases:  []string{"p"},
						Usage:    "Target playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "tracks",
						Aliases: []string{"t"},
						Usage:   "Comma-separated track IDs",
					},
				},
				Action: r.SpotifyAdd,
			},
			{
				Name:      "search",
				Usage:     "Search Spotify for tracks",
				ArgsUsage: "<query>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SpotifySearch,
			},
		},
	}
}

// historyCommand browses recorded runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"runs"},
		Usage:   "Browse recorded playlist runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only runs with this status (succeeded, partial, failed)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, json or csv",
						Value:   "text",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:      "show",
				Usage:     "Show one run with its diagnostics",
				ArgsUsage: "<sequence|id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, markdown, json or csv",
						Value:   "text",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:      "export",
				Usage:     "Write one run to a file",
				ArgsUsage: "<sequence|id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, markdown, json or csv",
						Value:   "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default run-<sequence>.<ext>)",
					},
				},
				Action: r.HistoryExport,
			},
			{
				Name:      "delete",
				Usage:     "Remove a run from history",
				ArgsUsage: "<sequence|id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}

// notesCommand lists reflection notes.
func notesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "List reflection notes available to --notes and the TUI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Notes directory (default from config)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Notes,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing, initialize the database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "check",
				Usage:  "Report which collaborators are configured",
				Action: r.SetupCheck,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive mood playlist TUI",
		Action:  r.TUI,
	}
}
