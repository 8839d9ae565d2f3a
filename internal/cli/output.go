package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/habitsim/internal/models"
	"github.com/hyperjump/habitsim/pkg/utils"
)

// OutputFormat is the format for human-facing command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to a format; anything but "json" is text.
func ParseOutputFormat(s string) OutputFormat {
	if s == string(OutputJSON) {
		return OutputJSON
	}
	return OutputText
}

// WriteStatus writes status to w in the given format.
func WriteStatus(w io.Writer, status *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintln(w, "habitsim status")
	fmt.Fprintf(w, "  Model:     %s (%s, %d vectors)\n", status.ModelPath, status.ModelStatus, status.ModelVectors)
	if status.DatabasePath != "" {
		fmt.Fprintf(w, "  Database:  %s (%d habits)\n", status.DatabasePath, status.HabitCount)
	}
	fmt.Fprintf(w, "  Disk:      %s\n", FormatBytes(status.DiskUsageBytes))
	return nil
}

// WriteHabits lists habits one per line, names truncated to fit a terminal.
func WriteHabits(w io.Writer, habits []models.Habit) {
	for _, h := range habits {
		name := models.Deref(h.Name)
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "  %-36s  %s\n", h.ID, utils.Truncate(name, 60))
	}
}

// WriteSearch writes search results to w in the given format.
func WriteSearch(w io.Writer, resp *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintf(w, "No habits match %q\n", resp.Query)
		return nil
	}
	for i, r := range resp.Results {
		name := models.Deref(r.Name)
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "%2d. %.4f  %-36s  %s\n", i+1, r.Score, r.ID, utils.Truncate(name, 60))
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
