package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
)

// Format selects how command results are printed.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formatter writes a command result.
type Formatter interface {
	Format(w io.Writer, data any) error
}

// Table is tabular data. Formatters other than the table one print Rows as
// a list of objects keyed by Headers.
type Table struct {
	Headers []string
	Rows    [][]string
}

func (t Table) records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				record[strings.ToLower(h)] = row[i]
			}
		}
		out = append(out, record)
	}
	return out
}

// ParseFormat validates a format name. An empty name picks table on a
// terminal and JSON otherwise.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return detectFormat(os.Stdout), nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

func detectFormat(f *os.File) Format {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return FormatTable
	}
	return FormatJSON
}

// NewFormatter returns the formatter for format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatYAML:
		return yamlFormatter{}
	case FormatTable:
		return tableFormatter{}
	default:
		return jsonFormatter{}
	}
}

type jsonFormatter struct{}

func (jsonFormatter) Format(w io.Writer, data any) error {
	if t, ok := data.(Table); ok {
		data = t.records()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

type yamlFormatter struct{}

func (yamlFormatter) Format(w io.Writer, data any) error {
	if t, ok := data.(Table); ok {
		data = t.records()
	}
	out, err := yaml.MarshalWithOptions(data, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// tableFormatter prints Table values as a table and anything else as JSON.
type tableFormatter struct{}

func (tableFormatter) Format(w io.Writer, data any) error {
	t, ok := data.(Table)
	if !ok {
		return jsonFormatter{}.Format(w, data)
	}

	table := tablewriter.NewTable(w)
	headers := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}
	table.Header(headers...)
	for _, row := range t.Rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	return table.Render()
}
