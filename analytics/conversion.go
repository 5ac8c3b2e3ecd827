package analytics

import (
	"sort"

	"thelook/api/models"
)

// ChannelConversionStat is the converted / unconverted session split of one
// traffic source.
type ChannelConversionStat struct {
	TrafficSource    string `json:"traffic_source"`
	ConvertedCount   int    `json:"converted_count"`
	UnconvertedCount int    `json:"unconverted_count"`
	ConversionRate   Ratio  `json:"conversion_rate"`
}

// Sessions is the number of distinct sessions attributed to the channel.
func (s ChannelConversionStat) Sessions() int {
	return s.ConvertedCount + s.UnconvertedCount
}

// ConversionRates counts distinct converted and unconverted sessions per
// traffic source and derives the conversion percentage. A channel seen with
// only one outcome gets zero for the other. Sessions without a traffic
// source are not counted, and a repeated session id counts once (first row
// wins). Rows are sorted by traffic source.
func ConversionRates(sessions []Session) []ChannelConversionStat {
	seen := make(map[string]struct{}, len(sessions))
	byChannel := make(map[string]*ChannelConversionStat)
	for _, s := range sessions {
		if s.TrafficSource == "" {
			continue
		}
		if _, dup := seen[s.SessionID]; dup {
			continue
		}
		seen[s.SessionID] = struct{}{}

		st, ok := byChannel[s.TrafficSource]
		if !ok {
			st = &ChannelConversionStat{TrafficSource: s.TrafficSource}
			byChannel[s.TrafficSource] = st
		}
		if s.Converted {
			st.ConvertedCount++
		} else {
			st.UnconvertedCount++
		}
	}

	out := make([]ChannelConversionStat, 0, len(byChannel))
	for _, st := range byChannel {
		st.ConversionRate = Percent(st.ConvertedCount, st.Sessions())
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrafficSource < out[j].TrafficSource })
	return out
}

// ChannelConversion runs the whole session conversion flow over an event slice.
func ChannelConversion(events []models.Event, opts SessionOptions) ([]ChannelConversionStat, error) {
	sessions, err := BuildSessions(events, opts)
	if err != nil {
		return nil, err
	}
	return ConversionRates(sessions), nil
}

// TrafficSourceShare counts events per traffic source, largest first.
func TrafficSourceShare(events []models.Event) []ValueCount {
	values := make([]string, 0, len(events))
	for _, e := range events {
		values = append(values, e.TrafficSource)
	}
	return CountValues(values)
}
