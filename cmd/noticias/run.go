package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/pevans/noticias/browser"
	"github.com/pevans/noticias/config"
	"github.com/pevans/noticias/harvest"
	"github.com/pevans/noticias/output"
	"github.com/pevans/noticias/scraper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runScrape runs the driver over the configured range and saves the
// results. Interruptions and fetch failures are not errors; only a failure
// to write the CSV is.
func runScrape(cmd *cobra.Command, cfg *config.FileConfig, launcher browser.Launcher, logger *zap.Logger) error {
	driver := harvest.NewDriver(launcher, cfg.Site, logger)
	results := driver.Run(cmd.Context(), cfg.Run.StartPage, cfg.Run.EndPage, cfg.Run.PageDelay)

	out := cmd.OutOrStdout()

	err := output.SaveCSV(cfg.Run.Output, results)
	if errors.Is(err, output.ErrNothingToSave) {
		fmt.Fprintln(out, "Nothing to save.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}

	fmt.Fprintf(out, "✓ Saved %s\n", cfg.Run.Output)
	fmt.Fprintf(out, "Total: %d articles collected\n\n", len(results))
	printPreview(out, results[0])

	return nil
}

// printPreview prints the first collected record.
func printPreview(out io.Writer, record scraper.NewsRecord) {
	fmt.Fprintln(out, "First article:")
	fmt.Fprintf(out, "  Title:   %s\n", record.Title)
	fmt.Fprintf(out, "  Link:    %s\n", record.Link)
	fmt.Fprintf(out, "  Date:    %s\n", record.Date)
	fmt.Fprintf(out, "  Author:  %s\n", record.Author)

	content := record.Content
	if len([]rune(content)) > 200 {
		content = string([]rune(content)[:197]) + "..."
	}
	fmt.Fprintf(out, "  Content: %s\n", content)
}
