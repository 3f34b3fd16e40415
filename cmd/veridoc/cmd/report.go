package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veridoc-io/veridoc/internal/report"
	"github.com/veridoc-io/veridoc/internal/store"
)

// reportCmd represents the report command.
var reportCmd = &cobra.Command{
	Use:   "report [roll-number]",
	Short: "Generate a verified-achievement PDF for a student",
	Long: `Generate a PDF summary of a student's verified submissions.

The report lists every submission for the roll number that was approved
automatically or in manual review, with the confidence recorded at
verification time.

Examples:
  veridoc report 21CS045
  veridoc report 21CS045 --student-name "Priya Sharma" --output priya.pdf`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runReportCommand,
}

func runReportCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	dsn := cfg.Store.DSN
	if cmd.Flags().Changed("dsn") {
		dsn, _ = cmd.Flags().GetString("dsn")
	}
	if dsn == "" {
		return errors.New("report requires a submission store, set store.dsn or --dsn")
	}

	studentName, _ := cmd.Flags().GetString("student-name")
	outputFile, _ := cmd.Flags().GetString("output")

	rollNumber := args[0]
	if outputFile == "" {
		outputFile = fmt.Sprintf("%s-report.pdf", rollNumber)
	}

	st, err := store.Open(dsn)
	if err != nil {
		return fmt.Errorf("failed to open submission store: %w", err)
	}

	subs, err := st.VerifiedByRoll(cmd.Context(), rollNumber)
	if err != nil {
		return fmt.Errorf("failed to load verified submissions: %w", err)
	}
	if len(subs) == 0 {
		return fmt.Errorf("no verified submissions for roll number %s", rollNumber)
	}

	profile := report.ProfileFromSubmissions(studentName, rollNumber, subs)
	data, err := report.Render(profile)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%d verified submissions)\n",
		outputFile, len(subs))
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("output", "o", "", "output PDF file (default: <roll-number>-report.pdf)")
	reportCmd.Flags().String("student-name", "", "student name shown on the report (default: name on record)")
	reportCmd.Flags().String("dsn", "", "MySQL DSN for the submission store (overrides config)")
}
