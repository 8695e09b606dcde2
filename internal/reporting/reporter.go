// Package reporting writes finalized scan reports to an output: pretty JSON
// for machines, a console summary for humans.
package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/divyagonja/phoenixing/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter writes a finalized scan report to an output.
type Reporter interface {
	// Write renders a single report.
	Write(report *schemas.Report) error
	// Close finalizes the report and releases any underlying resources.
	Close() error
}

// nopWriteCloser wraps an io.Writer with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// New creates a reporter for the given format ("json" or "text") writing to
// outputPath, with "" or "stdout" meaning standard output.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case "json":
		return &jsonReporter{w: writer}, nil
	case "text":
		return &textReporter{w: writer}, nil
	default:
		writer.Close()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// jsonReporter renders the full report as indented JSON.
type jsonReporter struct {
	w io.WriteCloser
}

func (r *jsonReporter) Write(report *schemas.Report) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func (r *jsonReporter) Close() error { return r.w.Close() }

// textReporter renders a human-readable summary of the verdict.
type textReporter struct {
	w io.WriteCloser
}

func (r *textReporter) Write(report *schemas.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (%s)\n", report.Company.CompanyName, report.Company.CompanyNumber)
	fmt.Fprintf(&b, "Status: %s\n", report.Company.Status)
	fmt.Fprintf(&b, "Risk:   %d/100 (%s)\n", report.RiskScore, report.RiskLevel)

	verdict := "NO"
	if report.IsPhoenix {
		verdict = "YES"
	}
	fmt.Fprintf(&b, "Phoenix: %s (confidence %d%%)\n", verdict, report.PhoenixConfidence)
	for _, reason := range report.PhoenixReasons {
		fmt.Fprintf(&b, "  - %s\n", reason)
	}

	if len(report.Indicators) > 0 {
		fmt.Fprintf(&b, "Indicators (%d):\n", len(report.Indicators))
		for _, ind := range report.Indicators {
			fmt.Fprintf(&b, "  [%s] %s\n", strings.ToUpper(string(ind.Severity)), ind.Description)
		}
	}
	fmt.Fprintf(&b, "Officers: %d, similar companies: %d, filings: %d\n",
		len(report.Officers), len(report.SimilarCompanies), len(report.FilingHistory))

	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *textReporter) Close() error { return r.w.Close() }
