// Package output renders command results as tables, JSON or YAML.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Formatter defines the interface for output formatting.
type Formatter interface {
	Format(data any) string
}

// Formats lists the accepted format names.
var Formats = []string{"table", "json", "yaml"}

// NewFormatter returns a Formatter for the given format string.
// Supported formats: "table" (default), "json", "yaml".
func NewFormatter(format string) Formatter {
	switch strings.ToLower(format) {
	case "json":
		return &JSONFormatter{}
	case "yaml", "yml":
		return &YAMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

// headerStyle is applied to the header row of tables. lipgloss drops the
// styling when the output is not a terminal.
var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("12"))

// TableFormatter formats data as aligned text tables using tabwriter.
type TableFormatter struct{}

func (f *TableFormatter) Format(data any) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	header := false

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice:
		if v.Len() == 0 {
			return "No fields found.\n"
		}
		elem := v.Index(0)
		if elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			for i := 0; i < v.Len(); i++ {
				fmt.Fprintln(w, v.Index(i).Interface())
			}
			break
		}

		t := elem.Type()
		headers := make([]string, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			headers[i] = strings.ToUpper(t.Field(i).Name)
		}
		fmt.Fprintln(w, strings.Join(headers, "\t"))
		header = true

		for i := 0; i < v.Len(); i++ {
			row := v.Index(i)
			if row.Kind() == reflect.Ptr {
				row = row.Elem()
			}
			vals := make([]string, row.NumField())
			for j := 0; j < row.NumField(); j++ {
				vals[j] = fmt.Sprintf("%v", row.Field(j).Interface())
			}
			fmt.Fprintln(w, strings.Join(vals, "\t"))
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			fmt.Fprintf(w, "%s:\t%v\n", t.Field(i).Name, v.Field(i).Interface())
		}
	case reflect.Map:
		keys := make([]string, 0, v.Len())
		values := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			keys = append(keys, k)
			values[k] = iter.Value().Interface()
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s:\t%v\n", k, values[k])
		}
	default:
		fmt.Fprintln(w, data)
	}

	w.Flush()
	out := buf.String()
	if header {
		first, rest, _ := strings.Cut(out, "\n")
		out = headerStyle.Render(first) + "\n" + rest
	}
	return out
}

// JSONFormatter formats data as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("error formatting JSON: %v\n", err)
	}
	return string(b) + "\n"
}

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(data any) string {
	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("error formatting YAML: %v\n", err)
	}
	return string(b)
}
