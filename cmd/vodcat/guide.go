package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/vodcat/internal/config"
)

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Export the programme guide as XMLTV",
	RunE:  runGuide,
}

var guideOutput string

func init() {
	rootCmd.AddCommand(guideCmd)
	guideCmd.Flags().StringVarP(&guideOutput, "output", "o", "", "Output file (default from config)")
}

func runGuide(cmd *cobra.Command, args []string) error {
	a, closeApp, err := openApp(func(cfg *config.Config) {
		if guideOutput != "" {
			cfg.Guide.Output = guideOutput
		}
	})
	if err != nil {
		return err
	}
	defer closeApp()

	n, err := a.ExportGuide(commandContext(cmd))
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(map[string]any{"path": a.Config.Guide.Output, "programmes": n})
		return nil
	}
	fmt.Printf("Wrote %d programmes to %s\n", n, a.Config.Guide.Output)
	return nil
}
