package helpers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// OutputFormat is how a command prints its result.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
	FormatYAML  OutputFormat = "yaml"
)

// ListFormats are the formats supported by listing commands.
var ListFormats = []OutputFormat{FormatTable, FormatJSON, FormatCSV}

// Formatter writes data in one output format.
type Formatter interface {
	Format(data any, writer io.Writer) error
}

// NewFormatter returns the Formatter for format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatTable:
		return &TableFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatCSV:
		return &CSVFormatter{}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Print formats data to w.
func Print(w io.Writer, format string, data any) error {
	f, err := NewFormatter(OutputFormat(format))
	if err != nil {
		return err
	}
	return f.Format(data, w)
}

// JSONFormatter writes indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any, writer io.Writer) error {
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// YAMLFormatter writes YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(data any, writer io.Writer) error {
	enc := yaml.NewEncoder(writer)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// TableFormatter writes a slice of structs as aligned columns. Only fields
// with a `header` tag are printed.
type TableFormatter struct{}

func (f *TableFormatter) Format(data any, writer io.Writer) error {
	headers, rows, err := tabulate(data)
	if err != nil || headers == nil {
		return err
	}

	w := tabwriter.NewWriter(writer, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(w, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return w.Flush()
}

// CSVFormatter writes a slice of structs as CSV using the `header` tags.
type CSVFormatter struct{}

func (f *CSVFormatter) Format(data any, writer io.Writer) error {
	headers, rows, err := tabulate(data)
	if err != nil || headers == nil {
		return err
	}

	w := csv.NewWriter(writer)
	if err := w.Write(headers); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

// tabulate flattens a slice of structs. An empty slice yields nil headers.
func tabulate(data any) ([]string, [][]string, error) {
	val := reflect.ValueOf(data)
	if val.Kind() != reflect.Slice {
		return nil, nil, fmt.Errorf("data must be a slice")
	}
	if val.Len() == 0 {
		return nil, nil, nil
	}

	elemType := val.Type().Elem()
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("slice elements must be structs, got %s", elemType.Kind())
	}

	var headers []string
	var fields []int
	for i := 0; i < elemType.NumField(); i++ {
		if tag := elemType.Field(i).Tag.Get("header"); tag != "" {
			headers = append(headers, tag)
			fields = append(fields, i)
		}
	}

	rows := make([][]string, 0, val.Len())
	for i := 0; i < val.Len(); i++ {
		v := reflect.Indirect(val.Index(i))
		row := make([]string, len(fields))
		for j, idx := range fields {
			if v.IsValid() {
				row[j] = cell(v.Field(idx))
			}
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

func cell(v reflect.Value) string {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	switch x := v.Interface().(type) {
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Local().Format("2006-01-02 15:04:05")
	case time.Duration:
		return FormatDuration(x)
	case float64:
		return strconv.FormatFloat(x, 'f', 3, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}
