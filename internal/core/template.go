package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// TemplateField is one column of a downloadable template and its example
// value.
type TemplateField struct {
	Name  string
	Value any
}

// Template describes the example file offered for download.
type Template struct {
	Filename string
	Fields   []TemplateField
}

// Header returns the column names in template order.
func (t Template) Header() []string {
	header := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		header[i] = f.Name
	}
	return header
}

// Example returns the example row as the record an import would produce.
func (t Template) Example() RawRecord {
	rec := make(RawRecord, len(t.Fields))
	for _, f := range t.Fields {
		rec[f.Name] = cellString(f.Value)
	}
	return rec
}

// CSV renders the template as a UTF-8 file with a byte-order mark, a header
// line and one example row. Spreadsheet tools otherwise tend to guess a
// legacy code page when the file is opened and saved again.
func (t Template) CSV() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header()); err != nil {
		return nil, fmt.Errorf("write template header: %w", err)
	}

	row := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		row[i] = cellString(f.Value)
	}
	if err := w.Write(row); err != nil {
		return nil, fmt.Errorf("write template row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush template: %w", err)
	}
	return buf.Bytes(), nil
}

func cellString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
