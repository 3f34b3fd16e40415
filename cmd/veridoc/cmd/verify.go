package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veridoc-io/veridoc/internal/capability"
	"github.com/veridoc-io/veridoc/internal/classify"
	"github.com/veridoc-io/veridoc/internal/config"
	"github.com/veridoc-io/veridoc/internal/pipeline"
	"github.com/veridoc-io/veridoc/internal/scoring"
)

const (
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatText = "text"
)

// verifyCmd represents the verify command.
var verifyCmd = &cobra.Command{
	Use:   "verify [document]",
	Short: "Verify a single student document",
	Long: `Verify one document image or PDF against the claimed identity and
content fields.

The document is normalized, captioned for plausibility, read by the OCR
backend, and the extracted text is matched against the claims. The
outcome carries the decision (AUTO_APPROVE, NEEDS_REVIEW, AUTO_REJECT)
and per-component confidence scores.

Examples:
  veridoc verify idcard.png --kind COLLEGE_ID --name "Priya Sharma" --roll-no 21CS045
  veridoc verify cert.pdf --kind CERTIFICATE --name "Priya Sharma" \
    --skill "Machine Learning" --description "IIT Delhi - Machine Learning"
  veridoc verify idcard.png --kind COLLEGE_ID --name "Priya Sharma" --format json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runVerifyCommand,
}

func runVerifyCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyCapabilityFlags(cfg, cmd)

	kindFlag, _ := cmd.Flags().GetString("kind")
	kind, err := classify.ParseKind(kindFlag)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	rollNumber, _ := cmd.Flags().GetString("roll-no")
	skill, _ := cmd.Flags().GetString("skill")
	description, _ := cmd.Flags().GetString("description")

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	if format != outputFormatText && format != outputFormatJSON {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			format, strings.Join([]string{outputFormatText, outputFormatJSON}, ", "))
	}

	outputFile := cfg.Output.File
	if cmd.Flags().Changed("output") {
		outputFile, _ = cmd.Flags().GetString("output")
	}

	document, err := os.ReadFile(args[0]) //nolint:gosec // G304: document path comes from the CLI user
	if err != nil {
		return fmt.Errorf("read document %s: %w", args[0], err)
	}

	p, err := buildVerifier(cfg)
	if err != nil {
		return fmt.Errorf("failed to build verification pipeline: %w", err)
	}

	outcome, err := p.Verify(cmd.Context(), pipeline.Request{
		RawDocument: document,
		Kind:        kind,
		Name:        name,
		RollNumber:  rollNumber,
		Skill:       skill,
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	rendered, err := formatOutcome(outcome, format, cfg.Output.ConfidencePrecision)
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(rendered), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Outcome written to %s\n", outputFile)
		return nil
	}

	_, _ = fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

// buildVerifier assembles the verification pipeline from the loaded
// configuration, talking to the configured caption and OCR backends.
func buildVerifier(cfg *config.Config) (*pipeline.Pipeline, error) {
	return pipeline.NewBuilder().
		WithConfig(cfg.ToPipelineConfig()).
		WithCaptioner(capability.NewHTTPCaptioner(cfg.Capability.CaptionURL)).
		WithTextExtractor(capability.NewHTTPExtractor(cfg.Capability.OCRURL)).
		Build()
}

// applyCapabilityFlags folds model backend flag overrides into the loaded
// configuration before the pipeline is built.
func applyCapabilityFlags(cfg *config.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("caption-url") {
		cfg.Capability.CaptionURL, _ = cmd.Flags().GetString("caption-url")
	}
	if cmd.Flags().Changed("ocr-url") {
		cfg.Capability.OCRURL, _ = cmd.Flags().GetString("ocr-url")
	}
	if cmd.Flags().Changed("model-timeout") {
		cfg.Capability.TimeoutSec, _ = cmd.Flags().GetInt("model-timeout")
	}
}

// formatOutcome renders a single verification outcome as text or JSON.
func formatOutcome(outcome *pipeline.Outcome, format string, precision int) (string, error) {
	if precision <= 0 {
		precision = 2
	}

	if format == outputFormatJSON {
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal outcome: %w", err)
		}
		return string(data) + "\n", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "decision: %s (confidence %.*f)\n", outcome.Decision, precision, outcome.Scores.Overall)
	fmt.Fprintf(&b, "valid: %t\n", outcome.IsValid)
	fmt.Fprintf(&b, "message: %s\n", outcome.Message)
	if len(outcome.Scores.Components) > 0 {
		b.WriteString("scores:\n")
		names := make([]string, 0, len(outcome.Scores.Components))
		for name := range outcome.Scores.Components {
			names = append(names, string(name))
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s: %.*f\n", name, precision, outcome.Scores.Components[scoring.Component(name)])
		}
	}
	return b.String(), nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringP("kind", "k", "", "claimed document kind: COLLEGE_ID or CERTIFICATE")
	verifyCmd.Flags().StringP("name", "n", "", "claimed student name")
	verifyCmd.Flags().String("roll-no", "", "claimed roll number (COLLEGE_ID documents)")
	verifyCmd.Flags().String("skill", "", "claimed skill or achievement (CERTIFICATE documents)")
	verifyCmd.Flags().String("description", "", `claimed description in "Institution - Skill" form`)
	verifyCmd.Flags().StringP("format", "f", "text", "output format: text, json")
	verifyCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	verifyCmd.Flags().String("caption-url", "", "caption model base URL (overrides config)")
	verifyCmd.Flags().String("ocr-url", "", "OCR model base URL (overrides config)")
	verifyCmd.Flags().Int("model-timeout", 0, "model call timeout in seconds")

	_ = verifyCmd.MarkFlagRequired("kind")
	_ = verifyCmd.MarkFlagRequired("name")
}
