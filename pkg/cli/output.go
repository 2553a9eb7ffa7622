package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"tailor-hq/loom/pkg/govern"
	"tailor-hq/loom/pkg/govern/snapshot"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
)

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data interface{}) error
}

// TextFormatter formats output as plain text. Dependency stats get an
// aligned table; everything else falls back to %v.
type TextFormatter struct{}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case []govern.Stats:
		return writeStatsTable(w, v)
	case govern.Stats:
		return writeStatsTable(w, []govern.Stats{v})
	case []*snapshot.Record:
		return writeSnapshotTable(w, v)
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	default:
		return &TextFormatter{}
	}
}

func writeStatsTable(w io.Writer, stats []govern.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPENDENCY\tMINUTE\tDAY\tBREAKER\tFAILURES\tSPENT")
	for _, st := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t$%.2f\n",
			st.Dependency,
			usageColumn(st.UsedThisMinute, st.RemainingThisMinute),
			usageColumn(st.UsedToday, st.RemainingToday),
			st.BreakerState,
			st.ConsecutiveFailures,
			st.Spent,
		)
	}
	return tw.Flush()
}

func writeSnapshotTable(w io.Writer, records []*snapshot.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPENDENCY\tMINUTE\tDAY\tBREAKER\tFAILURES\tSPENT\tTAKEN AT")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t$%.2f\t%s\n",
			rec.Name,
			limitColumn(rec.WindowCount, rec.LimitPerMinute),
			limitColumn(rec.DailyCount, rec.DailyLimit),
			rec.BreakerState,
			rec.ConsecutiveFailures,
			rec.Spent,
			rec.TakenAt.Format("2006-01-02 15:04:05"),
		)
	}
	return tw.Flush()
}

// limitColumn renders used/limit, with "-" for an unlimited quota.
func limitColumn(used, limit int64) string {
	if limit < 0 {
		return fmt.Sprintf("%d/-", used)
	}
	return fmt.Sprintf("%d/%d", used, limit)
}

// usageColumn renders used/limit, with "-" for an unlimited quota.
func usageColumn(used, remaining int64) string {
	if remaining < 0 {
		return fmt.Sprintf("%d/-", used)
	}
	return fmt.Sprintf("%d/%d", used, used+remaining)
}
