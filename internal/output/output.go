package output

import (
	"fmt"
	"io"
	"os"

	"github.com/qreviewer/qrev/internal/model"
)

// Writer writes a findings report in a specific format.
type Writer interface {
	Write(w io.Writer, report *model.FindingsReport) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "json":
		return &JSONWriter{}, nil
	case "text":
		return &TextWriter{}, nil
	case "markdown":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(report *model.FindingsReport, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" && outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, report)
}

// severityOrder lists severities most severe first, for grouped output.
var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeverityMajor,
	model.SeverityMinor,
	model.SeverityInfo,
}

func groupBySeverity(findings []model.Finding) map[model.Severity][]model.Finding {
	m := make(map[model.Severity][]model.Finding)
	for _, f := range findings {
		m[f.Severity] = append(m[f.Severity], f)
	}
	return m
}
