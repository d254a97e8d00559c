// Command trainerscope-seed fills a running trainerscope service with
// synthetic assessments and prints what it made of them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/okian/trainerscope/internal/seed"
	"github.com/okian/trainerscope/pkg/logger"
	"github.com/urfave/cli/v2"
)

// settleDelay gives the worker pool time to apply queued activities before reporting.
const settleDelay = 2 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		color.Red("Error: %v", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "trainerscope-seed",
		Usage: "Generate assessment traffic and report on the results",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base-url",
				Aliases: []string{"u"},
				Value:   seed.DefaultBaseURL,
				Usage:   "Base URL of the service",
				EnvVars: []string{"TRAINERSCOPE_BASE_URL"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: seed.DefaultTimeout,
				Usage: "HTTP request timeout",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "Log level: debug, info, warn, error",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable coloured output",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("no-color") {
				color.NoColor = true
			}
			return logger.Init(logger.WithLevel(c.String("log-level")), logger.WithWriter(c.App.ErrWriter))
		},
		Commands: []*cli.Command{
			seedCmd(),
			reportCmd(),
		},
	}
}

func seedCmd() *cli.Command {
	defaults := seed.DefaultConfig()
	return &cli.Command{
		Name:  "seed",
		Usage: "Submit synthetic assessments",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "trainers", Value: defaults.Trainers, Usage: "Distinct trainers"},
			&cli.IntFlag{Name: "managers", Value: defaults.Managers, Usage: "Distinct managers"},
			&cli.IntFlag{Name: "days", Value: defaults.Days, Usage: "Spread assessment dates over this many days"},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: defaults.Count, Usage: "Assessments to submit"},
			&cli.Uint64Flag{Name: "seed", Value: defaults.Seed, Usage: "Generator seed; equal seeds give equal traffic"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: defaults.Workers, Usage: "Concurrent submissions"},
			&cli.IntFlag{Name: "top", Value: seed.DefaultTop, Usage: "Leaderboard entries to print afterwards, 0 to skip"},
		},
		Action: func(c *cli.Context) error {
			cfg := defaults
			cfg.BaseURL = c.String("base-url")
			cfg.Timeout = c.Duration("timeout")
			cfg.Trainers = c.Int("trainers")
			cfg.Managers = c.Int("managers")
			cfg.Days = c.Int("days")
			cfg.Count = c.Int("count")
			cfg.Seed = c.Uint64("seed")
			cfg.Workers = c.Int("workers")
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := c.Context
			client := seed.NewClient(cfg.BaseURL, cfg.Timeout)
			if err := client.Health(ctx); err != nil {
				return fmt.Errorf("service health check failed: %w", err)
			}

			stats, err := seed.Submit(ctx, client, seed.Generate(&cfg), cfg.Workers)
			if err != nil {
				return fmt.Errorf("submission interrupted: %w", err)
			}
			printer := seed.NewPrinter(c.App.Writer, !color.NoColor)
			printer.Stats(stats)

			top := c.Int("top")
			if top < 1 {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(settleDelay):
			}
			entries, err := client.Leaderboard(ctx, top)
			if err != nil {
				return err
			}
			printer.Leaderboard(entries)
			return nil
		},
	}
}

func reportCmd() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Print the leaderboard and alerts",
		ArgsUsage: "[trainer-id...]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top", Value: seed.DefaultTop, Usage: "Leaderboard entries to print"},
			&cli.BoolFlag{Name: "platform", Value: true, Usage: "Include platform alerts"},
		},
		Action: func(c *cli.Context) error {
			ctx := c.Context
			client := seed.NewClient(c.String("base-url"), c.Duration("timeout"))
			printer := seed.NewPrinter(c.App.Writer, !color.NoColor)

			entries, err := client.Leaderboard(ctx, c.Int("top"))
			if err != nil {
				return err
			}
			printer.Leaderboard(entries)

			for _, id := range c.Args().Slice() {
				alerts, err := client.TrainerAlerts(ctx, id)
				if err != nil {
					return err
				}
				printer.Alerts("Alerts for "+id, alerts)
			}

			if c.Bool("platform") {
				alerts, err := client.PlatformAlerts(ctx)
				if err != nil {
					return err
				}
				printer.Alerts("Platform alerts", alerts)
			}
			return nil
		},
	}
}
