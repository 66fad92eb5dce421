// Package transfer reads and writes tabular records as CSV or JSON for the
// admin export and import endpoints.
package transfer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Record kinds that can be exported or imported.
const (
	KindEvents      = "events"
	KindReferees    = "referees"
	KindAssignments = "assignments"
	KindHonors      = "honors"
)

// Errors
var (
	ErrUnknownFormat = errors.New("format must be csv or json")
	ErrUnknownKind   = errors.New("unknown export or import kind")
	ErrMalformed     = errors.New("malformed import file")
)

// Table is a header plus rows of string cells in header order.
type Table struct {
	Header []string
	Rows   [][]string
}

// Record is one imported row keyed by lower-cased column name.
type Record struct {
	Line   int // 1-based data row number, header excluded
	Fields map[string]string
}

// Get returns the trimmed value of column, or "".
func (r Record) Get(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// Has reports whether column was present in the input.
func (r Record) Has(column string) bool {
	_, ok := r.Fields[column]
	return ok
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	if format == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Write encodes t to w. JSON output is an array of objects keyed by header.
func Write(w io.Writer, format string, t Table) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(t.Header); err != nil {
			return err
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return err
		}
		return cw.Error()
	case FormatJSON:
		out := make([]map[string]string, 0, len(t.Rows))
		for _, row := range t.Rows {
			obj := make(map[string]string, len(t.Header))
			for i, col := range t.Header {
				if i < len(row) {
					obj[col] = row[i]
				}
			}
			out = append(out, obj)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Read decodes records from r. It returns the column names seen, lower-cased,
// in input order for CSV and sorted for JSON.
func Read(r io.Reader, format string) ([]string, []Record, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatJSON:
		return readJSON(r)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func readCSV(r io.Reader) ([]string, []Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read csv header: %w", ErrMalformed, err)
	}
	for i, h := range header {
		header[i] = normalizeColumn(h)
	}

	var records []Record
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read csv row %d: %w", ErrMalformed, line, err)
		}
		if isBlank(row) {
			line--
			continue
		}
		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				fields[col] = row[i]
			}
		}
		records = append(records, Record{Line: line, Fields: fields})
	}
	return header, records, nil
}

func readJSON(r io.Reader) ([]string, []Record, error) {
	var raw []map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: decode json: %w", ErrMalformed, err)
	}

	seen := make(map[string]struct{})
	records := make([]Record, 0, len(raw))
	for i, obj := range raw {
		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			col := normalizeColumn(k)
			seen[col] = struct{}{}
			fields[col] = stringify(v)
		}
		records = append(records, Record{Line: i + 1, Fields: fields})
	}
	header := make([]string, 0, len(seen))
	for col := range seen {
		header = append(header, col)
	}
	sort.Strings(header)
	return header, records, nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func normalizeColumn(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\uFEFF")))
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Unknown returns the columns not in known, in input order.
func Unknown(columns []string, known ...string) []string {
	allowed := make(map[string]struct{}, len(known))
	for _, k := range known {
		allowed[k] = struct{}{}
	}
	var out []string
	for _, c := range columns {
		if _, ok := allowed[c]; !ok && c != "" {
			out = append(out, c)
		}
	}
	return out
}

// ParseBool accepts true/false, yes/no, 1/0 and y/n, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true, nil
	case "false", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
