package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"skyscraper-hq/skyscraper/pkg/orchestrator"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output, one row per collection pass.
	FormatCSV OutputFormat = "csv"
)

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown format %q: must be text, json or csv", s))
	}
}

// Formatter formats command output.
type Formatter interface {
	Format(data interface{}) ([]byte, error)
	FormatTo(w io.Writer, data interface{}) error
}

// TextFormatter formats output as plain text. Run reports get a
// human-readable summary; anything else is printed with %v.
type TextFormatter struct{}

// Format converts data to text format.
func (f *TextFormatter) Format(data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.FormatTo(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatTo writes data to writer in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data interface{}) error {
	if report, ok := data.(*orchestrator.Report); ok {
		return writeReportText(w, report)
	}
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

func writeReportText(w io.Writer, r *orchestrator.Report) error {
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "Run %s%s: cutoff %s, took %s\n\n",
		r.RunID, mode, r.Cutoff.UTC().Format(time.RFC3339), r.Duration().Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range r.Platforms {
		header := p.Name
		if p.Account != "" {
			header += " (" + p.Account + ")"
		}
		switch p.Status {
		case orchestrator.StatusSkipped:
			fmt.Fprintf(tw, "%s: skipped, not configured", header)
			if len(p.Missing) > 0 {
				fmt.Fprintf(tw, " (missing %s)", strings.Join(p.Missing, ", "))
			}
			fmt.Fprintln(tw)
			continue
		case orchestrator.StatusFailed:
			fmt.Fprintf(tw, "%s: failed: %s\n", header, p.Error)
		default:
			fmt.Fprintf(tw, "%s: %s\n", header, p.Status)
		}
		for _, pass := range p.Passes {
			if pass.Skipped != "" {
				fmt.Fprintf(tw, "  %s\tskipped: %s\n", pass.Kind, pass.Skipped)
				continue
			}
			if pass.Error != "" {
				fmt.Fprintf(tw, "  %s\terror: %s\n", pass.Kind, pass.Error)
				continue
			}
			fmt.Fprintf(tw, "  %s\tscanned %d\t%s\n", pass.Kind, pass.Outcome.Scanned, pass.Outcome.String())
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	verb := "Total"
	if r.DryRun {
		verb = "Total (nothing deleted)"
	}
	_, err := fmt.Fprintf(w, "\n%s: %s\n", verb, r.Totals().String())
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON format.
func (f *JSONFormatter) Format(data interface{}) ([]byte, error) {
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter formats a run report as CSV, one row per pass. Skipped and
// failed platforms without passes get a single row with an empty
// collection.
type CSVFormatter struct{}

var csvHeader = []string{
	"run_id", "platform", "status", "collection",
	"scanned", "deleted", "skipped_pinned", "skipped_protected", "skipped_reposts",
	"failed", "rate_limited", "error",
}

// Format converts data to CSV format.
func (f *CSVFormatter) Format(data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.FormatTo(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatTo writes data to writer in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data interface{}) error {
	r, ok := data.(*orchestrator.Report)
	if !ok {
		return fmt.Errorf("csv output not supported for %T", data)
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range r.Platforms {
		if len(p.Passes) == 0 {
			row := []string{r.RunID, p.Name, string(p.Status), "", "0", "0", "0", "0", "0", "0", "false", p.Error}
			if err := csvWriter.Write(row); err != nil {
				return err
			}
			continue
		}
		for _, pass := range p.Passes {
			o := pass.Outcome
			msg := pass.Error
			if pass.Skipped != "" {
				msg = "skipped: " + pass.Skipped
			}
			row := []string{
				r.RunID, p.Name, string(p.Status), string(pass.Kind),
				itoa(o.Scanned), itoa(o.Deleted), itoa(o.SkippedPinned), itoa(o.SkippedProtected), itoa(o.SkippedRepost),
				itoa(o.Failed), strconv.FormatBool(o.RateLimited), msg,
			}
			if err := csvWriter.Write(row); err != nil {
				return err
			}
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}
