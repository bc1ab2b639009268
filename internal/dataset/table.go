package dataset

import (
	"errors"
	"strings"
)

// Table holds parsed delimited-text data: a header row and one string record
// per data line, keyed positionally by the header names. Values are kept as
// strings; no type coercion happens at parse time.
type Table struct {
	Header  []string
	Records []map[string]string
}

// ParseTable parses newline-delimited comma-separated text. The first line is
// the header; each following non-empty line is split on commas positionally.
// Quoting is not supported, so fields containing commas mis-split. The scoring
// pipeline that produces the files never quotes.
func ParseTable(data []byte) (*Table, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, errors.New("table: missing header row")
	}

	header := strings.Split(lines[0], ",")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := &Table{Header: header}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		record := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				record[name] = fields[i]
			} else {
				record[name] = ""
			}
		}
		t.Records = append(t.Records, record)
	}
	return t, nil
}

// Column returns all values of a named column, in record order.
func (t *Table) Column(name string) []string {
	out := make([]string, 0, len(t.Records))
	for _, rec := range t.Records {
		out = append(out, rec[name])
	}
	return out
}
