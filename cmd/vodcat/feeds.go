package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vmunix/vodcat/internal/feed"
)

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "Import configured JSON feeds into the catalog",
	RunE:  runFeeds,
}

func init() {
	rootCmd.AddCommand(feedsCmd)
}

func runFeeds(cmd *cobra.Command, args []string) error {
	a, closeApp, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp()

	if len(a.Config.Feeds) == 0 {
		fmt.Println("No feeds configured.")
		return nil
	}

	var (
		results   []feed.Result
		importErr error
	)
	err = a.WithLock(func() error {
		results, importErr = a.ImportFeeds(commandContext(cmd))
		return nil
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		if results == nil {
			results = []feed.Result{}
		}
		printJSON(results)
	} else if len(results) > 0 {
		fmt.Println(renderFeedResults(results))
	}
	return importErr
}

func renderFeedResults(results []feed.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Feed,
			r.Category,
			strconv.Itoa(r.Items),
			strconv.Itoa(r.Stats.Added()),
			strconv.Itoa(r.Stats.Duplicates),
		})
	}
	return renderTable([]string{"Feed", "Category", "Items", "Added", "Known"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight})
}
