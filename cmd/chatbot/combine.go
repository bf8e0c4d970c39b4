package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/circassiandna/chatbot/services/knowledge"
)

func newCombineCmd() *cobra.Command {
	opts := knowledge.DefaultMergeOptions()
	var output string

	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Merge per-language FAQ files into the knowledge base",
		Long: `combine reads {dir}/{lang}/{name}_{lang}.json for every language and
name, tolerating trailing commas, and writes a single title to text JSON
object. Missing or invalid files are skipped with a warning. Nothing is
written when no file yields an entry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync()

			if output == "" {
				output = cfg.Knowledge.Path
			}
			result, err := combine(opts, output, logger)
			if err != nil {
				return err
			}
			printMergeResult(cmd.OutOrStdout(), output, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", opts.Dir, "source directory holding one subdirectory per language")
	cmd.Flags().StringSliceVar(&opts.Languages, "langs", opts.Languages, "language subdirectories to read")
	cmd.Flags().StringSliceVar(&opts.Names, "names", opts.Names, "file name stems to read per language")
	cmd.Flags().StringVarP(&output, "output", "o", "", "knowledge-base file to write (default from KNOWLEDGE_BASE_PATH)")
	return cmd
}

func combine(opts knowledge.MergeOptions, output string, logger *zap.Logger) (*knowledge.MergeResult, error) {
	result, err := knowledge.Merge(opts, logger)
	if err != nil {
		return nil, err
	}
	if err := knowledge.WriteFile(output, result.Store); err != nil {
		return nil, err
	}
	logger.Info("knowledge base written",
		zap.String("output", output),
		zap.Int("entries", result.Store.Len()))
	return result, nil
}

func printMergeResult(w io.Writer, output string, result *knowledge.MergeResult) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "%s %s (%d entries)\n", green("Wrote"), output, result.Store.Len())
	for _, f := range result.Added {
		fmt.Fprintf(w, "  added   %s\n", f)
	}
	for _, f := range result.Skipped {
		fmt.Fprintf(w, "  %s %s\n", yellow("skipped"), f)
	}
}
