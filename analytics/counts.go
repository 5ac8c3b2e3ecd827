package analytics

import "sort"

// ValueCount is one bucket of a categorical count.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CountValues counts occurrences of each non-empty value, largest count
// first with ties broken by value.
func CountValues(values []string) []ValueCount {
	counts := make(map[string]int)
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

type stringSet map[string]struct{}

func (s stringSet) add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}
