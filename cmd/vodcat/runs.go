package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/vodcat/internal/history"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent category runs",
	RunE:  runRuns,
}

var (
	runsCategory string
	runsLimit    int
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringVar(&runsCategory, "category", "", "Only runs of this category")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs")
}

func runRuns(cmd *cobra.Command, args []string) error {
	a, closeApp, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp()

	runs, err := a.History.List(commandContext(cmd), history.Filter{Category: runsCategory, Limit: runsLimit})
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if jsonOutput {
		if runs == nil {
			runs = []*history.Run{}
		}
		printJSON(runs)
		return nil
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	fmt.Println(renderRuns(runs))
	return nil
}

func renderRuns(runs []*history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		took := "running"
		if !r.Running() {
			took = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.Category,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			took,
			strconv.Itoa(r.Items),
			strconv.Itoa(r.Added),
			strconv.Itoa(r.Dropped),
			truncate(r.Error, 40),
		})
	}
	return renderTable(
		[]string{"ID", "Category", "Started", "Took", "Items", "Added", "Dropped", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
