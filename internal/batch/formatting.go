package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/veridoc-io/veridoc/internal/pipeline"
)

// formatBatchResults formats the batch verification results in the specified format.
func formatBatchResults(r *Result, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(r)
	case "csv":
		return formatCSV(r)
	default: // text
		return formatText(r)
	}
}

// formatJSON formats results as JSON.
func formatJSON(r *Result) (string, error) {
	type document struct {
		File    string            `json:"file"`
		Outcome *pipeline.Outcome `json:"outcome"`
		Error   string            `json:"error,omitempty"`
	}

	batchResult := struct {
		Documents []document `json:"documents"`
	}{
		Documents: make([]document, len(r.Entries)),
	}

	for i, entry := range r.Entries {
		batchResult.Documents[i] = document{
			File:    entry.File,
			Outcome: r.Outcomes[i],
			Error:   errString(r.Errors[i]),
		}
	}

	bts, err := json.MarshalIndent(batchResult, "", "  ")
	return string(bts), err
}

// formatCSV formats results as CSV.
func formatCSV(r *Result) (string, error) {
	var csvData [][]string
	// Header
	csvData = append(csvData, []string{
		"file", "kind", "name", "decision", "overall_confidence", "is_valid", "message", "error",
	})

	for i, entry := range r.Entries {
		row := []string{entry.File, string(entry.Kind), entry.Name, "", "", "", "", ""}
		if outcome := r.Outcomes[i]; outcome != nil {
			row[3] = string(outcome.Decision)
			row[4] = fmt.Sprintf("%.3f", outcome.Scores.Overall)
			row[5] = strconv.FormatBool(outcome.IsValid)
			row[6] = outcome.Message
		}
		if err := r.Errors[i]; err != nil {
			row[7] = err.Error()
		}
		csvData = append(csvData, row)
	}

	var output strings.Builder
	writer := csv.NewWriter(&output)
	for _, row := range csvData {
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), nil
}

// formatText formats results as plain text.
func formatText(r *Result) (string, error) {
	var output strings.Builder
	for i, entry := range r.Entries {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("# %s\n", entry.File))
		switch {
		case r.Errors[i] != nil:
			output.WriteString(fmt.Sprintf("error: %v\n", r.Errors[i]))
		case r.Outcomes[i] == nil:
			output.WriteString("skipped\n")
		default:
			outcome := r.Outcomes[i]
			output.WriteString(fmt.Sprintf("decision: %s (confidence %.3f)\n",
				outcome.Decision, outcome.Scores.Overall))
			output.WriteString(fmt.Sprintf("message: %s\n", outcome.Message))
		}
	}
	return output.String(), nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
