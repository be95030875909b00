package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/luisromp/personarag/internal/server"
)

var skipIngest bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ingest the knowledge base and start the HTTP API",
	Long: `Builds the vector index from the configured document sources, then
starts the chat API. Ingestion runs before the server accepts traffic so
queries never hit an empty or half-built index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfgFile)
		if err != nil {
			return err
		}
		defer a.close()

		ingester := a.ingester(nil)

		if !skipIngest {
			log.Printf("serve: ingesting knowledge base")
			report, err := ingester.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("ingestion: %w", err)
			}
			log.Printf("serve: ingestion done: %d loaded, %d skipped, %d errors",
				report.Loaded, report.Skipped, len(report.Errors))
		}

		for _, lang := range a.idx.Languages() {
			log.Printf("serve: language %q: %d indexed chunks", lang, a.idx.Count(lang))
		}

		srv := server.New(a.cfg.Server, a.pipeline, ingester)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-stop:
			log.Printf("serve: received %s, shutting down", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "start without rebuilding the index")
	rootCmd.AddCommand(serveCmd)
}
