// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/leadhunt"
	"github.com/poiesic/leadhunt/config"
	"github.com/poiesic/leadhunt/core"
	"github.com/poiesic/leadhunt/discovery"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "leadhunt",
		Usage: "Find people asking for your product on public forums",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"LEADHUNT_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides the configuration)",
					},
				},
			},
			{
				Name:   "discover",
				Usage:  "Run discovery for a project and print the outcome",
				Action: discoverCommand,
				Flags:  []cli.Flag{userFlag(), projectFlag()},
			},
			{
				Name:  "project",
				Usage: "Manage projects",
				Subcommands: []*cli.Command{
					{
						Name:   "create",
						Usage:  "Create a project",
						Action: projectCreateCommand,
						Flags: []cli.Flag{
							userFlag(),
							&cli.StringFlag{Name: "name", Usage: "Product name", Required: true},
							&cli.StringFlag{Name: "description", Usage: "Product description", Required: true},
							&cli.StringSliceFlag{Name: "profile", Usage: "Target profile (repeatable)"},
						},
					},
					{
						Name:   "show",
						Usage:  "Print a project",
						Action: projectShowCommand,
						Flags:  []cli.Flag{userFlag(), projectFlag()},
					},
					{
						Name:   "list",
						Usage:  "List projects, newest first",
						Action: projectListCommand,
						Flags:  []cli.Flag{userFlag()},
					},
				},
			},
			{
				Name:  "plan",
				Usage: "Manage subscription plans",
				Subcommands: []*cli.Command{
					{
						Name:   "set",
						Usage:  "Set an owner's plan (free, starter, pro)",
						Action: planSetCommand,
						Flags: []cli.Flag{
							userFlag(),
							&cli.StringFlag{Name: "plan", Usage: "Plan name", Required: true},
						},
					},
				},
			},
			{
				Name:   "usage",
				Usage:  "Print an owner's entitlement for the current month",
				Action: usageCommand,
				Flags:  []cli.Flag{userFlag()},
			},
			{
				Name:   "profiles",
				Usage:  "Suggest target profiles for a product",
				Action: profilesCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Product name", Required: true},
					&cli.StringFlag{Name: "description", Usage: "Product description", Required: true},
				},
			},
		},
	}
}

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Owner ID to act as",
		EnvVars:  []string{"LEADHUNT_USER"},
		Required: true,
	}
}

func projectFlag() cli.Flag {
	return &cli.Uint64Flag{
		Name:     "project",
		Aliases:  []string{"p"},
		Usage:    "Project ID",
		Required: true,
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openApp(c *cli.Context) (*leadhunt.App, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	app, err := leadhunt.New(c.Context, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return app, nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := leadhunt.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer app.Close()

	srv, err := app.NewServer()
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run(ctx)
}

func discoverCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(c.Context, app.Config().Server.RunBudget)
	defer cancel()

	outcome, err := app.Pipeline().Run(ctx, discovery.RunRequest{
		ProjectID: core.ID(c.Uint64("project")),
		OwnerID:   c.String("user"),
	})
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Run %s: %d queries, %d candidates, %d opportunities, %d competitors in %s\n",
		outcome.RunID, len(outcome.Queries), outcome.Candidates,
		len(outcome.Opportunities), len(outcome.Competitors), outcome.Duration.Round(time.Millisecond))
	return printJSON(c.App.Writer, outcome.Project)
}

func projectCreateCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	project, err := app.Store().Projects().CreateProject(c.Context, &core.Project{
		OwnerID:        c.String("user"),
		Name:           c.String("name"),
		Description:    c.String("description"),
		TargetProfiles: core.CleanStrings(c.StringSlice("profile")),
	})
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return printJSON(c.App.Writer, project)
}

func projectShowCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	project, err := app.Store().Projects().GetProject(c.Context, core.ID(c.Uint64("project")), c.String("user"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, project)
}

func projectListCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	projects, err := app.Store().Projects().ListProjects(c.Context, c.String("user"))
	if err != nil {
		return err
	}
	for _, p := range projects {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\t%d opportunities\n", p.ID, p.RunStatus, p.Name, len(p.DiscoveryResults))
	}
	return nil
}

func planSetCommand(c *cli.Context) error {
	plan, err := core.ParsePlan(c.String("plan"))
	if err != nil {
		return err
	}
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Store().Plans().SetPlan(c.Context, c.String("user"), plan); err != nil {
		return fmt.Errorf("failed to set plan: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "%s is now on the %s plan\n", c.String("user"), plan)
	return nil
}

func usageCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	ent, err := app.Gate().Entitlement(c.Context, c.String("user"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, ent)
}

func profilesCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	profiles, err := app.Generator().GenerateProfiles(c.Context, c.String("title"), c.String("description"))
	if err != nil {
		return fmt.Errorf("failed to generate profiles: %w", err)
	}
	for _, p := range profiles {
		fmt.Fprintln(c.App.Writer, p)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
