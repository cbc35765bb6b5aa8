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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().RunContext(ctx, os.Args)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "homily",
		Usage: "Sermon video enrichment pipeline",
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
				Usage:   "Path to a YAML config file (default: ./homily.yaml or ~/.homily/homily.yaml)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides db_path)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "enroll",
				Usage:     "Add a sermon video to the pipeline",
				ArgsUsage: "VIDEO_ID",
				Action:    enrollCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tenant", Aliases: []string{"t"}, Usage: "Church tenant ID", Required: true},
					&cli.StringFlag{Name: "title", Usage: "Sermon title", Required: true},
					&cli.StringFlag{Name: "speaker", Usage: "Speaker name"},
					&cli.StringFlag{Name: "date", Usage: "Sermon date (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "url", Usage: "Source video URL"},
				},
			},
			{
				Name:      "run",
				Usage:     "Run the pipeline for one item",
				ArgsUsage: "ITEM_ID",
				Action:    runCommand,
				Flags:     append(planFlags(), jsonFlag()),
			},
			{
				Name:      "batch",
				Usage:     "Run the pipeline for many items",
				ArgsUsage: "[ITEM_ID...]",
				Action:    batchCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "tenant", Aliases: []string{"t"}, Usage: "Run every pending item of this tenant when no IDs are given"},
					&cli.IntFlag{Name: "concurrency", Aliases: []string{"j"}, Usage: "Items run at once (default: batch.concurrency)"},
					jsonFlag(),
				}, planFlags()...),
			},
			{
				Name:      "queue",
				Usage:     "Enqueue items and drain the queue",
				ArgsUsage: "ITEM_ID...",
				Action:    queueCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "Priority class (high, default, low)", Value: "default"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent jobs (default: queue.workers)"},
				},
			},
			{
				Name:      "reprocess",
				Usage:     "Reset items to pending and run them again through the queue",
				ArgsUsage: "ITEM_ID...",
				Action:    reprocessCommand,
			},
			{
				Name:      "state",
				Usage:     "Show the item record and pipeline state",
				ArgsUsage: "ITEM_ID",
				Action:    stateCommand,
			},
			{
				Name:   "stages",
				Usage:  "List the pipeline stages",
				Action: stagesCommand,
			},
			{
				Name:      "search",
				Usage:     "Search indexed sermon transcripts",
				ArgsUsage: "QUERY...",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tenant", Aliases: []string{"t"}, Usage: "Church tenant ID", Required: true},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum results (default: search.max_hits)"},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed every chunk with the configured embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tenant", Aliases: []string{"t"}, Usage: "Limit to one tenant"},
				},
			},
		},
	}
}

// planFlags select and shape the stages of a run.
func planFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "only",
			Usage: "Run only these stages (comma separated)",
		},
		&cli.StringSliceFlag{
			Name:  "skip",
			Usage: "Run every stage except these (comma separated)",
		},
		&cli.BoolFlag{
			Name:  "resume",
			Usage: "Continue from the stage that failed last time",
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Run planned stages even when their output exists",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Report what would run without changing anything",
		},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print results as JSON",
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}
