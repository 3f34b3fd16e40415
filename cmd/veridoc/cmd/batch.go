package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veridoc-io/veridoc/internal/batch"
	"github.com/veridoc-io/veridoc/internal/config"
)

// batchCmd represents the batch command for parallel manifest verification.
var batchCmd = &cobra.Command{
	Use:   "batch [manifest]",
	Short: "Verify a manifest of documents in parallel",
	Long: `Verify every document listed in a CSV manifest using a pool of
parallel workers.

The manifest needs a header row with at least the file, kind and name
columns; roll_no, skill and description are optional. Document paths in
the manifest resolve against the working directory.

Examples:
  veridoc batch manifest.csv
  veridoc batch manifest.csv --workers 8 --continue-on-error
  veridoc batch manifest.csv --format csv --output results.csv`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config.
// CLI flags override config file values.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) batch.Config {
	batchConfig := cfg.ToBatchConfig()

	if cmd.Flags().Changed("workers") {
		batchConfig.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("continue-on-error") {
		batchConfig.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}

	return batchConfig
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyCapabilityFlags(cfg, cmd)

	batchConfig := configToBatchConfig(cfg, cmd)

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	outputFile := cfg.Output.File
	if cmd.Flags().Changed("output") {
		outputFile, _ = cmd.Flags().GetString("output")
	}
	quiet, _ := cmd.Flags().GetBool("quiet")

	entries, err := batch.LoadManifest(args[0])
	if err != nil {
		return err
	}

	if !quiet {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Verifying %d documents...\n", len(entries))
	}

	p, err := buildVerifier(cfg)
	if err != nil {
		return fmt.Errorf("failed to build verification pipeline: %w", err)
	}

	result, err := batch.Run(cmd.Context(), p, entries, batchConfig)
	if err != nil {
		return fmt.Errorf("batch verification failed: %w", err)
	}

	if err := result.SaveResults(format, outputFile, quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	result.PrintStats(quiet)

	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntP("workers", "w", 4, "number of parallel workers")
	batchCmd.Flags().Bool("continue-on-error", false, "keep verifying after a document fails")
	batchCmd.Flags().StringP("format", "f", "text", "output format: text, json, csv")
	batchCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	batchCmd.Flags().Bool("quiet", false, "suppress progress output")
	batchCmd.Flags().String("caption-url", "", "caption model base URL (overrides config)")
	batchCmd.Flags().String("ocr-url", "", "OCR model base URL (overrides config)")
	batchCmd.Flags().Int("model-timeout", 0, "model call timeout in seconds")
}
