package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMissingColumn is returned when a source table lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

var (
	orderColumns = []string{
		"user_id", "order_id", "customer name", "age_group", "gender", "country",
		"department", "category", "name", "num_of_item", "total_sales", "total_profit",
		"year", "month", "month_name",
	}
	customerColumns = []string{
		"user_id", "customer name", "age_group", "gender", "total_sales", "segment", "is_one_time_buyer",
	}
	eventColumns = []string{"session_id", "event_type", "traffic_source", "created_at"}
)

// table is a header-indexed view over raw string records.
type table struct {
	name  string
	index map[string]int
	rows  [][]string
}

func newTable(name string, records [][]string, required []string) (*table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no header row", name)
	}
	index := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		key := strings.ToLower(strings.TrimSpace(col))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: %w %q", name, ErrMissingColumn, col)
		}
	}
	return &table{name: name, index: index, rows: records[1:]}, nil
}

func (t *table) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) float(row []string, col string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(t.get(row, col), ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func (t *table) int(row []string, col string) int {
	s := t.get(row, col)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	// spreadsheet exports often write integers as 2023.0
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func (t *table) bool(row []string, col string) *bool {
	return ParseFlag(t.get(row, col))
}

// ParseFlag reads a boolean cell. It returns nil for empty or unrecognized values.
func ParseFlag(s string) *bool {
	var b bool
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1", "1.0":
		b = true
	case "false", "f", "no", "n", "0", "0.0":
		b = false
	default:
		return nil
	}
	return &b
}

// ID normalizes identifier cells: spreadsheet integers such as "123.0" become "123".
func ID(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.ParseInt(strings.TrimSuffix(s, ".0"), 10, 64); err == nil {
			return strings.TrimSuffix(s, ".0")
		}
	}
	return s
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTimestamp parses created_at values. It returns nil instead of an error
// when the value is empty or malformed.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
