package application

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"spconnect/domain/schema"
)

// Row formats accepted by the append recipe.
const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

// RowSource yields rows with a fixed schema. Next returns io.EOF when done.
type RowSource interface {
	Schema() schema.Schema
	Next() (Row, error)
}

// RowSink receives rows with a fixed schema.
type RowSink interface {
	WriteSchema(s schema.Schema) error
	WriteRow(row Row) error
	Close() error
}

// NewRowSource reads rows of the given format from r.
func NewRowSource(format string, r io.Reader) (RowSource, error) {
	switch strings.ToLower(format) {
	case FormatCSV, "":
		return newCSVSource(r)
	case FormatJSONL, "json":
		return newJSONLSource(r)
	}
	return nil, fmt.Errorf("unsupported row format %q", format)
}

// NewRowSink writes rows of the given format to w.
func NewRowSink(format string, w io.Writer) (RowSink, error) {
	switch strings.ToLower(format) {
	case FormatCSV, "":
		return &csvSink{w: csv.NewWriter(w)}, nil
	case FormatJSONL, "json":
		return &jsonlSink{enc: json.NewEncoder(w)}, nil
	}
	return nil, fmt.Errorf("unsupported row format %q", format)
}

// csvSource takes column names from the header row; every column is a string.
type csvSource struct {
	r      *csv.Reader
	schema schema.Schema
}

func newCSVSource(r io.Reader) (*csvSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	s := schema.Schema{}
	for _, name := range header {
		s.Columns = append(s.Columns, schema.Column{Name: name, Type: schema.TypeString})
	}
	return &csvSource{r: cr, schema: s}, nil
}

func (s *csvSource) Schema() schema.Schema { return s.schema }

func (s *csvSource) Next() (Row, error) {
	record, err := s.r.Read()
	if err != nil {
		return nil, err
	}
	row := make(Row, len(s.schema.Columns))
	for i, col := range s.schema.Columns {
		if i < len(record) {
			row[col.Name] = record[i]
		}
	}
	return row, nil
}

// jsonlSource reads one object per line. The schema is taken from the keys of
// the first object, sorted, with types inferred from its values.
type jsonlSource struct {
	scanner *bufio.Scanner
	schema  schema.Schema
	first   Row
}

func newJSONLSource(r io.Reader) (*jsonlSource, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	src := &jsonlSource{scanner: sc}

	first, err := src.readLine()
	if errors.Is(err, io.EOF) {
		return src, nil
	}
	if err != nil {
		return nil, err
	}
	src.first = first

	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		src.schema.Columns = append(src.schema.Columns, schema.Column{Name: k, Type: inferType(first[k])})
	}
	return src, nil
}

func inferType(v any) string {
	switch v.(type) {
	case bool:
		return schema.TypeBoolean
	case float64, json.Number:
		return "double"
	case map[string]any:
		return schema.TypeObject
	case []any:
		return schema.TypeArray
	}
	return schema.TypeString
}

func (s *jsonlSource) readLine() (Row, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		var row Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("decode json line: %w", err)
		}
		return row, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *jsonlSource) Schema() schema.Schema { return s.schema }

func (s *jsonlSource) Next() (Row, error) {
	if s.first != nil {
		row := s.first
		s.first = nil
		return row, nil
	}
	return s.readLine()
}

type csvSink struct {
	w       *csv.Writer
	columns []string
}

func (s *csvSink) WriteSchema(sc schema.Schema) error {
	s.columns = sc.Names()
	return s.w.Write(s.columns)
}

func (s *csvSink) WriteRow(row Row) error {
	record := make([]string, len(s.columns))
	for i, name := range s.columns {
		if v, ok := row[name]; ok && v != nil {
			record[i] = fmt.Sprint(v)
		}
	}
	return s.w.Write(record)
}

func (s *csvSink) Close() error {
	s.w.Flush()
	return s.w.Error()
}

type jsonlSink struct {
	enc *json.Encoder
}

func (s *jsonlSink) WriteSchema(schema.Schema) error { return nil }

func (s *jsonlSink) WriteRow(row Row) error { return s.enc.Encode(row) }

func (s *jsonlSink) Close() error { return nil }
