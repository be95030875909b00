package cmd

import (
	"fmt"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/luisromp/personarag/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Rebuild the vector index from the configured document sources",
	Long: `Reads every document from the local directory and the remote listing,
splits them into chunks, embeds the chunks, and swaps the result in as the
new active index. Unchanged documents produce identical chunk IDs, so
re-running is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfgFile)
		if err != nil {
			return err
		}
		defer a.close()

		var (
			barMu sync.Mutex
			bar   *progressbar.ProgressBar
		)
		ingester := a.ingester(func(done, total int, uri string) {
			barMu.Lock()
			defer barMu.Unlock()
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Ingesting documents"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			bar.Set(done)
		})

		report, err := ingester.Run(cmd.Context())
		if bar != nil {
			bar.Finish()
		}
		if err != nil {
			return fmt.Errorf("ingestion: %w", err)
		}

		printReport(report)
		return nil
	},
}

func printReport(r *ingest.Report) {
	fmt.Printf("Ingestion complete: %d documents loaded, %d skipped\n", r.Loaded, r.Skipped)
	for _, e := range r.Errors {
		fmt.Printf("  skipped: %s\n", e)
	}
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
