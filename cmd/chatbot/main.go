// Package main is the chatbot entry point: the HTTP server and the
// knowledge-base maintenance commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/config"
	"github.com/circassiandna/chatbot/handlers"
	"github.com/circassiandna/chatbot/internal/observability"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chatbot",
		Short: "Circassian DNA FAQ chatbot",
		Long: `chatbot answers questions about Circassian DNA from a curated
knowledge base, retrieving context from a vector index or a keyword
fallback before asking the language model.

Examples:
  # Run the HTTP server
  chatbot serve

  # Embed the knowledge base into the vector index
  chatbot build-index

  # Merge the per-language source files into knowledgebase.json
  chatbot combine --dir data --output knowledgebase.json`,
		Version:       handlers.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newBuildIndexCmd())
	root.AddCommand(newCombineCmd())
	return root
}

// initLogger builds the process logger from the observability settings
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
}

// setup loads the configuration and the logger every command starts from
func setup(ctx context.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}
