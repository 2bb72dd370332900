package transform

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/NicolasHaas/godata/pkg/orm"
)

// CSVSerializer prepends a header line to a collection. The header follows
// Columns when set, otherwise the sorted keys of the first row.
type CSVSerializer struct {
	Columns []string
}

func (CSVSerializer) Item(_ string, data map[string]any) any {
	return data
}

func (s CSVSerializer) Collection(_ string, data []map[string]any) any {
	if len(data) == 0 {
		return []any{}
	}
	out := make([]any, 0, len(data)+1)
	out = append(out, encodeHeader(s.columns(data[0])))
	for _, row := range data {
		out = append(out, row)
	}
	return out
}

func (CSVSerializer) Meta(map[string]any) map[string]any {
	return map[string]any{}
}

func (s CSVSerializer) columns(first map[string]any) []string {
	if len(s.Columns) > 0 {
		return s.Columns
	}
	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func encodeHeader(columns []string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(columns)
	w.Flush()
	return strings.TrimRight(buf.String(), "\r\n")
}

// WriteCSV writes a CSVSerializer collection payload to w.
func WriteCSV(w io.Writer, payload any) error {
	lines, ok := payload.([]any)
	if !ok {
		return fmt.Errorf("%w: csv payload is %T", ErrUnsupportedEntity, payload)
	}
	if len(lines) == 0 {
		return nil
	}

	header, ok := lines[0].(string)
	if !ok {
		return fmt.Errorf("%w: csv payload has no header", ErrUnsupportedEntity)
	}
	columns, err := csv.NewReader(strings.NewReader(header)).Read()
	if err != nil {
		return fmt.Errorf("transform: parse csv header: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("transform: write csv: %w", err)
	}
	record := make([]string, len(columns))
	for _, line := range lines[1:] {
		row, ok := line.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: csv row is %T", ErrUnsupportedEntity, line)
		}
		for i, col := range columns {
			record[i] = csvValue(row[col])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("transform: write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return orm.FormatTime(t)
	default:
		return fmt.Sprint(t)
	}
}
