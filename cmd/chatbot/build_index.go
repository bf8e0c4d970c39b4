package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/app"
	"github.com/circassiandna/chatbot/config"
	"github.com/circassiandna/chatbot/services/retrieval"
)

func newBuildIndexCmd() *cobra.Command {
	var indexName string

	cmd := &cobra.Command{
		Use:   "build-index",
		Short: "Embed the knowledge base and upload it to the vector index",
		Long: `build-index creates the vector index when it is missing, embeds every
knowledge-base entry and upserts the vectors in batches. Entries that
fail to embed are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()

			if indexName != "" {
				cfg.Vector.IndexName = indexName
			}

			report, err := buildIndex(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			printBuildReport(cmd.OutOrStdout(), cfg.Vector.IndexName, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&indexName, "index", "", "index name (default from PINECONE_INDEX)")
	return cmd
}

func buildIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*retrieval.BuildReport, error) {
	if !cfg.Vector.HasVectorCredential() {
		return nil, fmt.Errorf("vector backend %q has no credential configured", cfg.Vector.Backend)
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer deps.Close(ctx)

	return deps.Builder.BuildIndex(ctx, cfg.Vector.IndexName)
}

func printBuildReport(w io.Writer, indexName string, report *retrieval.BuildReport) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", green("Index built:"), indexName)
	if report.Created {
		fmt.Fprintln(w, "  created new index")
	}
	fmt.Fprintf(w, "  embedded: %d in %d batches\n", report.Embedded, report.Batches)
	if report.Skipped > 0 {
		fmt.Fprintf(w, "  skipped:  %s\n", yellow(report.Skipped))
	}
}
