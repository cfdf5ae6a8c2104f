package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vmunix/vodcat/internal/catalog"
)

var listCmd = &cobra.Command{
	Use:   "list <category>",
	Short: "Show a category's catalog",
	Long: `Show the persisted catalog of one category.

Examples:
  vodcat list Drama              # Series with episode counts
  vodcat list Drama --episodes   # Every episode
  vodcat list Movies --json      # Machine-readable output`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

var listEpisodes bool

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listEpisodes, "episodes", false, "List every episode")
}

func runList(cmd *cobra.Command, args []string) error {
	a, closeApp, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp()

	cat, err := a.Store.Read(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(cat)
		return nil
	}
	if cat.Empty() {
		fmt.Printf("%s: catalog is empty\n", args[0])
		return nil
	}
	if len(cat.Series) > 0 {
		if listEpisodes {
			fmt.Println(renderEpisodes(cat))
		} else {
			fmt.Println(renderSeries(cat))
		}
	}
	if len(cat.Movies) > 0 {
		fmt.Println(renderMovies(cat))
	}
	fmt.Printf("%d series, %d episodes, %d movies\n", len(cat.Series), cat.EpisodeCount(), len(cat.Movies))
	return nil
}

func renderSeries(cat *catalog.Catalog) string {
	rows := make([][]string, 0, len(cat.Series))
	for _, sr := range cat.Series {
		first, last := "", ""
		if n := len(sr.Episodes); n > 0 {
			first = sr.Episodes[0].Label()
			last = sr.Episodes[n-1].Label()
		}
		rows = append(rows, []string{sr.Name, strconv.Itoa(len(sr.Episodes)), first, last})
	}
	return renderTable([]string{"Series", "Episodes", "First", "Last"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft})
}

func renderEpisodes(cat *catalog.Catalog) string {
	var rows [][]string
	for _, sr := range cat.Series {
		for _, e := range sr.Episodes {
			rows = append(rows, []string{
				sr.Name, e.Season, e.Label(), e.Name, strconv.FormatInt(e.CUID, 10), string(e.StreamID),
			})
		}
	}
	return renderTable([]string{"Series", "Season", "Episode", "Name", "CUID", "Stream"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
}

func renderMovies(cat *catalog.Catalog) string {
	rows := make([][]string, 0, len(cat.Movies))
	for _, m := range cat.Movies {
		rows = append(rows, []string{m.Title, strconv.FormatInt(m.CUID, 10), string(m.StreamID)})
	}
	return renderTable([]string{"Movie", "CUID", "Stream"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft})
}
