package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/homily/core"
	"github.com/poiesic/homily/queue"
	"github.com/poiesic/homily/search"
)

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(c *cli.Context, s *core.ArtifactSummary) error {
	if c.Bool("json") {
		return printJSON(c, s)
	}
	w := c.App.Writer

	header := fmt.Sprintf("item %s", s.ItemID)
	if s.Title != "" {
		header += fmt.Sprintf(" %q", s.Title)
	}
	if s.DryRun {
		header += " (dry run)"
	}
	fmt.Fprintf(w, "%s: run %s, status %s\n", header, s.RunStatus, s.Status)

	for _, r := range s.Stages {
		line := fmt.Sprintf("  %-11s %-9s %8s", r.Stage, r.Outcome, r.Duration.Round(time.Millisecond))
		if r.Error != "" {
			line += "  " + r.Error
		}
		fmt.Fprintln(w, line)
	}
	for _, warn := range s.Warnings {
		fmt.Fprintf(w, "warning: %s: %s\n", warn.Stage, warn.Error)
	}
	if s.FailedStep != "" {
		fmt.Fprintf(w, "FAILED at stage %s: %s\n", s.FailedStep, s.Error)
	}
	if s.Publication.PostURL != "" {
		fmt.Fprintf(w, "published: %s\n", s.Publication.PostURL)
	}
	if s.TotalCost > 0 {
		fmt.Fprintf(w, "cost: $%.4f%s\n", s.TotalCost, costBreakdown(s.Costs))
	}
	return nil
}

func costBreakdown(costs map[string]float64) string {
	if len(costs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(costs))
	for k := range costs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s $%.4f", strings.TrimSuffix(k, "_usd"), costs[k])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func printReport(c *cli.Context, r *core.RunReport) error {
	if c.Bool("json") {
		return printJSON(c, r)
	}
	w := c.App.Writer
	for _, it := range r.Items {
		mark := "ok"
		if !it.Succeeded {
			mark = "FAILED"
		}
		line := fmt.Sprintf("  %-24s %-6s %8s", it.ItemID, mark, it.Duration.Round(time.Millisecond))
		if it.FailedStep != "" {
			line += fmt.Sprintf("  %s: %s", it.FailedStep, it.Error)
		} else if it.Error != "" {
			line += "  " + it.Error
		}
		if n := len(it.Warnings); n > 0 {
			line += fmt.Sprintf("  (%d warnings)", n)
		}
		fmt.Fprintln(w, line)
	}
	var total float64
	for _, v := range r.Costs {
		total += v
	}
	fmt.Fprintf(w, "%d items: %d succeeded, %d failed in %s, cost $%.4f\n",
		r.Total, r.Successful, r.Failed, r.TotalDuration.Round(time.Millisecond), total)
	return nil
}

func printJob(c *cli.Context, job queue.Job) {
	line := fmt.Sprintf("%s %-24s %-9s %s", job.Handle, job.ItemID, job.Status, job.Priority)
	if job.Error != "" {
		line += "  " + job.Error
	}
	fmt.Fprintln(c.App.Writer, line)
}

func printResults(c *cli.Context, results []*search.Result) {
	w := c.App.Writer
	if len(results) == 0 {
		fmt.Fprintln(w, "no matches")
		return
	}
	for i, r := range results {
		mark := ""
		if r.Verbatim {
			mark = " *"
		}
		fmt.Fprintf(w, "%d. %s [%s @ %s] score %.3f%s\n", i+1, r.Title, r.ItemID, clock(r.Start), r.Score, mark)
		fmt.Fprintf(w, "   %s\n", snippet(r.Text, 160))
	}
}

// clock formats seconds as m:ss or h:mm:ss.
func clock(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	h, m, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func snippet(text string, n int) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
