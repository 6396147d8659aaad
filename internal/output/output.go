// Package output renders query results as a table, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// NoResults is printed by the table renderer for an empty result.
const NoResults = "No results found."

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// Formats lists the accepted format names.
func Formats() []string {
	return []string{FormatTable, FormatJSON, FormatYAML}
}

// Write renders columns and rows to w in the given format.
func Write(w io.Writer, format string, columns []string, rows [][]string) error {
	switch strings.ToLower(format) {
	case "", FormatTable:
		return writeTable(w, columns, rows)
	case FormatJSON:
		return writeJSON(w, columns, rows)
	case FormatYAML:
		return writeYAML(w, columns, rows)
	default:
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
}

func writeTable(w io.Writer, columns []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, NoResults)
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(columns...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Records turns rows into one object per row keyed by column name. When two
// columns share a name the later one wins.
func Records(columns []string, rows [][]string) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

func writeJSON(w io.Writer, columns []string, rows [][]string) error {
	data, err := json.MarshalIndent(Records(columns, rows), "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeYAML(w io.Writer, columns []string, rows [][]string) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Records(columns, rows)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
