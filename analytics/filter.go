package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"thelook/api/models"
)

// AllYears is the year selector value that disables year filtering.
const AllYears = "All"

// ErrInvalidFilter is returned for unparseable or unknown filter values.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter is the dashboard selection. A nil Year selects every year; an empty
// Departments list selects every department.
type Filter struct {
	Year        *int     `json:"year,omitempty"`
	Departments []string `json:"departments,omitempty"`
}

// ParseYear turns a year selector into a filter year. "All" and "" yield nil.
func ParseYear(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, AllYears) {
		return nil, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: year %q", ErrInvalidFilter, s)
	}
	return &y, nil
}

// Validate checks the selected departments against the known ones.
func (f Filter) Validate(known []string) error {
	allowed := make(map[string]struct{}, len(known))
	for _, d := range known {
		allowed[d] = struct{}{}
	}
	for _, d := range f.Departments {
		if _, ok := allowed[d]; !ok {
			return fmt.Errorf("%w: unknown department %q", ErrInvalidFilter, d)
		}
	}
	return nil
}

// Key identifies the selection independent of department order.
func (f Filter) Key() string {
	year := AllYears
	if f.Year != nil {
		year = strconv.Itoa(*f.Year)
	}
	deps := append([]string(nil), f.Departments...)
	sort.Strings(deps)
	return year + "|" + strings.Join(deps, ",")
}

// Orders restricts orders by year and department.
func (f Filter) Orders(orders []models.Order) []models.Order {
	var deps map[string]struct{}
	if len(f.Departments) > 0 {
		deps = make(map[string]struct{}, len(f.Departments))
		for _, d := range f.Departments {
			deps[d] = struct{}{}
		}
	}
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if f.Year != nil && o.Year != *f.Year {
			continue
		}
		if deps != nil {
			if _, ok := deps[o.Department]; !ok {
				continue
			}
		}
		out = append(out, o)
	}
	return out
}

// Events restricts events by year. Events carry no department. When a year
// is selected, events without a parseable timestamp are excluded.
func (f Filter) Events(events []models.Event) []models.Event {
	if f.Year == nil {
		return events
	}
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if y, ok := e.Year(); ok && y == *f.Year {
			out = append(out, e)
		}
	}
	return out
}

// AvailableYears lists distinct order years, newest first.
func AvailableYears(orders []models.Order) []int {
	seen := make(map[int]struct{})
	var years []int
	for _, o := range orders {
		if _, ok := seen[o.Year]; ok || o.Year == 0 {
			continue
		}
		seen[o.Year] = struct{}{}
		years = append(years, o.Year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// AvailableDepartments lists distinct order departments in first-seen order.
func AvailableDepartments(orders []models.Order) []string {
	seen := make(stringSet)
	var deps []string
	for _, o := range orders {
		if _, ok := seen[o.Department]; ok || o.Department == "" {
			continue
		}
		seen.add(o.Department)
		deps = append(deps, o.Department)
	}
	return deps
}
