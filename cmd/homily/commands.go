package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/homily"
	"github.com/poiesic/homily/config"
	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/pipeline"
	"github.com/poiesic/homily/queue"
	"github.com/poiesic/homily/storage"
)

var errPlanFlags = errors.New("--only, --skip and --resume are mutually exclusive")

// openApp loads the configuration and opens the database.
func openApp(c *cli.Context) (*homily.App, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.DBPath = db
	}
	app, err := homily.Open(cfg, homily.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return app, nil
}

func runOptions(c *cli.Context) (pipeline.RunOptions, error) {
	opts := pipeline.RunOptions{
		Force:  c.Bool("force"),
		DryRun: c.Bool("dry-run"),
	}
	only, skip, resume := c.StringSlice("only"), c.StringSlice("skip"), c.Bool("resume")

	set := 0
	for _, on := range []bool{len(only) > 0, len(skip) > 0, resume} {
		if on {
			set++
		}
	}
	if set > 1 {
		return opts, errPlanFlags
	}

	switch {
	case len(only) > 0:
		opts.Plan = pipeline.PlanRequest{Mode: pipeline.PlanInclude, Stages: only}
	case len(skip) > 0:
		opts.Plan = pipeline.PlanRequest{Mode: pipeline.PlanExclude, Stages: skip}
	case resume:
		opts.Plan = pipeline.PlanRequest{Mode: pipeline.PlanResume}
	}
	return opts, nil
}

func itemArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one item ID, got %d", c.NArg())
	}
	return c.Args().First(), nil
}

func enrollCommand(c *cli.Context) error {
	id, err := itemArg(c)
	if err != nil {
		return err
	}
	item := &core.Item{
		ID:        id,
		TenantID:  c.String("tenant"),
		Title:     c.String("title"),
		Speaker:   c.String("speaker"),
		SourceURL: c.String("url"),
	}
	if d := c.String("date"); d != "" {
		item.SermonDate, err = time.Parse(time.DateOnly, d)
		if err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", d)
		}
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	added, err := app.Enroll(c.Context, item)
	if err != nil {
		return fmt.Errorf("failed to enroll %s: %w", id, err)
	}
	fmt.Fprintf(c.App.Writer, "enrolled %s for tenant %s (%s)\n", added.ID, added.TenantID, added.Status)
	return nil
}

func runCommand(c *cli.Context) error {
	id, err := itemArg(c)
	if err != nil {
		return err
	}
	opts, err := runOptions(c)
	if err != nil {
		return err
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	summary, runErr := app.Run(c.Context, id, opts)
	if summary != nil {
		if err := printSummary(c, summary); err != nil {
			return err
		}
	}
	return runErr
}

func batchCommand(c *cli.Context) error {
	opts, err := runOptions(c)
	if err != nil {
		return err
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	ids := c.Args().Slice()
	if len(ids) == 0 {
		tenant := c.String("tenant")
		if tenant == "" {
			return errors.New("give item IDs or --tenant")
		}
		items, err := app.Items(c.Context, tenant)
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.Status == core.StatusPending {
				ids = append(ids, it.ID)
			}
		}
		if len(ids) == 0 {
			fmt.Fprintf(c.App.Writer, "no pending items for tenant %s\n", tenant)
			return nil
		}
	}

	batch, err := app.NewBatch(c.Int("concurrency"))
	if err != nil {
		return err
	}
	report, err := batch.Run(c.Context, ids, opts)
	if err != nil {
		return err
	}
	if err := printReport(c, report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d items failed", report.Failed, report.Total)
	}
	return nil
}

func queueCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("expected at least one item ID")
	}
	priority, err := queue.ParsePriority(c.String("priority"))
	if err != nil {
		return err
	}

	return drain(c, func(q *queue.Queue) ([]queue.JobHandle, error) {
		var handles []queue.JobHandle
		for _, id := range c.Args().Slice() {
			h, err := q.Enqueue(id, priority)
			if errors.Is(err, queue.ErrAlreadyQueued) {
				continue
			}
			if err != nil {
				return nil, err
			}
			handles = append(handles, h)
		}
		return handles, nil
	})
}

func reprocessCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("expected at least one item ID")
	}
	return drain(c, func(q *queue.Queue) ([]queue.JobHandle, error) {
		var handles []queue.JobHandle
		for _, id := range c.Args().Slice() {
			h, err := q.Reprocess(c.Context, id)
			if err != nil && !errors.Is(err, queue.ErrAlreadyQueued) {
				return nil, err
			}
			handles = append(handles, h)
		}
		return handles, nil
	})
}

// drain starts a queue, submits jobs through enqueue and waits until every
// job has finished. The metrics endpoint is served meanwhile when
// configured.
func drain(c *cli.Context, enqueue func(*queue.Queue) ([]queue.JobHandle, error)) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	var opts []queue.Option
	if w := c.Int("workers"); w > 0 {
		opts = append(opts, queue.WithWorkers(w))
	}
	q, err := app.NewQueue(opts...)
	if err != nil {
		return err
	}

	if addr := app.Config().MetricsAddr; addr != "" {
		go func() {
			if err := app.Metrics().Serve(c.Context, addr, slog.Default()); err != nil {
				slog.Error("metrics endpoint failed", "addr", addr, "err", err)
			}
		}()
	}

	handles, err := enqueue(q)
	if err != nil {
		return err
	}
	if err := q.Start(c.Context); err != nil {
		return err
	}
	q.Wait()
	q.Stop()

	failed := 0
	for _, h := range handles {
		job, ok := q.Job(h)
		if !ok {
			continue
		}
		printJob(c, job)
		if job.Status == queue.JobFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(handles))
	}
	return nil
}

func stateCommand(c *cli.Context) error {
	id, err := itemArg(c)
	if err != nil {
		return err
	}
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	item, err := app.Item(c.Context, id)
	if err != nil {
		return fmt.Errorf("item %s: %w", id, err)
	}
	state, err := app.State(c.Context, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("state %s: %w", id, err)
	}
	return printJSON(c, map[string]any{
		"item":  item,
		"state": state,
	})
}

func stagesCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	for _, st := range app.Registry().Stages() {
		class := "recoverable"
		if st.Fatal {
			class = "fatal"
		}
		fmt.Fprintf(c.App.Writer, "%d. %-11s %-11s %s\n", st.Order, st.Name, class, st.Description)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("expected a search query")
	}
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	searcher, err := app.NewSearcher()
	if err != nil {
		return err
	}
	limit := c.Int("limit")
	if limit <= 0 {
		limit = app.Config().Search.MaxHits
	}
	results, err := searcher.Search(c.Context, c.String("tenant"), query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	printResults(c, results)
	return nil
}

func reembedCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	reembedder, err := app.NewReembedder(c.App.ErrWriter)
	if err != nil {
		return err
	}

	cfg := app.Config()
	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.DBPath)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	result, err := reembedder.Run(c.Context, c.String("tenant"))
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "reembedded %d chunks of %d items (%d reindexed), %d tokens, $%.4f\n",
		result.Chunks, result.Items, result.Indexed, result.Tokens, result.CostUSD)
	return nil
}
