package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/vodcat/internal/config"
	"github.com/vmunix/vodcat/internal/pipeline"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [category...]",
	Short: "Crawl categories and merge new entries",
	Long: `Crawl the named categories (all configured categories when none are given)
in configuration order. Interrupting the crawl stops new item fetches; entries
already resolved are merged and saved.

Examples:
  vodcat crawl                 # Crawl everything
  vodcat crawl Drama Movies    # Crawl two categories
  vodcat crawl --workers 8     # Use eight item workers`,
	RunE: runCrawl,
}

var crawlWorkers int

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.Flags().IntVar(&crawlWorkers, "workers", 0, "Item workers per category (default from config)")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	a, closeApp, err := openApp(func(cfg *config.Config) {
		if crawlWorkers > 0 {
			cfg.Crawl.Workers = crawlWorkers
		}
	})
	if err != nil {
		return err
	}
	defer closeApp()

	cats, err := pipeline.Select(a.Categories, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var results []pipeline.Result
	err = a.WithLock(func() error {
		results = a.Pipeline.Run(ctx, cats)
		return nil
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(resultsToJSON(results))
	} else {
		fmt.Println(renderResults(results))
	}
	return crawlError(ctx, results)
}

func crawlError(ctx context.Context, results []pipeline.Result) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d categories failed", failed, len(results))
	}
	if ctx.Err() != nil {
		return fmt.Errorf("crawl interrupted")
	}
	return nil
}

type resultJSON struct {
	Category   string `json:"category"`
	RunID      string `json:"run_id,omitempty"`
	Status     string `json:"status"`
	Items      int    `json:"items"`
	Episodes   int    `json:"episodes_added"`
	Movies     int    `json:"movies_added"`
	NewSeries  int    `json:"new_series"`
	Known      int    `json:"known"`
	Unresolved int    `json:"unresolved"`
	Failed     int    `json:"failed_items"`
	Skipped    int    `json:"skipped_items"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func resultsToJSON(results []pipeline.Result) []resultJSON {
	out := make([]resultJSON, 0, len(results))
	for _, r := range results {
		j := resultJSON{
			Category:   r.Category,
			RunID:      r.RunID,
			Status:     r.Status(),
			Items:      r.Items,
			Episodes:   r.Stats.Episodes,
			Movies:     r.Stats.Movies,
			NewSeries:  r.Stats.NewSeries,
			Known:      r.Known + r.Stats.Duplicates,
			Unresolved: r.Unresolved,
			Failed:     r.Failed,
			Skipped:    r.Skipped,
			DurationMS: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			j.Error = r.Err.Error()
		}
		out = append(out, j)
	}
	return out
}

func renderResults(results []pipeline.Result) string {
	headers := []string{"Category", "Status", "Items", "Added", "Known", "Unresolved", "Failed", "Duration"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Category,
			r.Status(),
			strconv.Itoa(r.Items),
			strconv.Itoa(r.Stats.Added()),
			strconv.Itoa(r.Known + r.Stats.Duplicates),
			strconv.Itoa(r.Unresolved),
			strconv.Itoa(r.Failed + r.Skipped),
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	return renderTable(headers, rows, aligns)
}
