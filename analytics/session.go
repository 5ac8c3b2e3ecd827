package analytics

import (
	"errors"
	"fmt"

	"thelook/api/models"
)

// DefaultPurchaseEventType is the event_type that marks a completed purchase.
const DefaultPurchaseEventType = "purchase"

// AttributionPolicy decides which traffic source a session is credited to
// when its events carry more than one.
type AttributionPolicy string

const (
	FirstTouch   AttributionPolicy = "first_touch"
	LastTouch    AttributionPolicy = "last_touch"
	MostFrequent AttributionPolicy = "most_frequent"
	Strict       AttributionPolicy = "strict"
)

// ErrMixedChannels is returned under the Strict policy when a session's
// events name more than one traffic source.
var ErrMixedChannels = errors.New("session spans multiple traffic sources")

// ParseAttributionPolicy validates a policy name. Empty means FirstTouch.
func ParseAttributionPolicy(s string) (AttributionPolicy, error) {
	switch p := AttributionPolicy(s); p {
	case "":
		return FirstTouch, nil
	case FirstTouch, LastTouch, MostFrequent, Strict:
		return p, nil
	default:
		return "", fmt.Errorf("unknown attribution policy %q", s)
	}
}

// Session is one browsing visit derived from the events sharing a session id.
type Session struct {
	SessionID     string `json:"session_id"`
	TrafficSource string `json:"traffic_source"`
	Converted     bool   `json:"converted"`
}

// SessionOutcome is the purchase classification of one session.
type SessionOutcome struct {
	SessionID string
	Converted bool
}

// SessionOptions configures session building.
type SessionOptions struct {
	PurchaseEventType string
	Policy            AttributionPolicy
}

// ClassifySessions returns one outcome per distinct session id, in order of
// first appearance. A session is converted when any of its events is a
// purchase. Events without a session id are ignored.
func ClassifySessions(events []models.Event, purchaseEventType string) []SessionOutcome {
	if purchaseEventType == "" {
		purchaseEventType = DefaultPurchaseEventType
	}
	index := make(map[string]int)
	var out []SessionOutcome
	for _, e := range events {
		if e.SessionID == "" {
			continue
		}
		i, ok := index[e.SessionID]
		if !ok {
			i = len(out)
			index[e.SessionID] = i
			out = append(out, SessionOutcome{SessionID: e.SessionID})
		}
		if e.EventType == purchaseEventType {
			out[i].Converted = true
		}
	}
	return out
}

type channelTally struct {
	order  []string
	counts map[string]int
	last   string
}

// AttributeChannels maps each session id to its representative traffic
// source under the given policy. Events with an empty traffic source do not
// take part; a session whose events never name one is absent from the map.
func AttributeChannels(events []models.Event, policy AttributionPolicy) (map[string]string, error) {
	tallies := make(map[string]*channelTally)
	var ids []string
	for _, e := range events {
		if e.SessionID == "" || e.TrafficSource == "" {
			continue
		}
		t, ok := tallies[e.SessionID]
		if !ok {
			t = &channelTally{counts: make(map[string]int)}
			tallies[e.SessionID] = t
			ids = append(ids, e.SessionID)
		}
		if t.counts[e.TrafficSource] == 0 {
			t.order = append(t.order, e.TrafficSource)
		}
		t.counts[e.TrafficSource]++
		t.last = e.TrafficSource
	}

	out := make(map[string]string, len(tallies))
	for _, id := range ids {
		t := tallies[id]
		switch policy {
		case FirstTouch, "":
			out[id] = t.order[0]
		case LastTouch:
			out[id] = t.last
		case MostFrequent:
			best := t.order[0]
			for _, ch := range t.order[1:] {
				if t.counts[ch] > t.counts[best] {
					best = ch
				}
			}
			out[id] = best
		case Strict:
			if len(t.order) > 1 {
				return nil, fmt.Errorf("%w: session %s has %v", ErrMixedChannels, id, t.order)
			}
			out[id] = t.order[0]
		default:
			return nil, fmt.Errorf("unknown attribution policy %q", policy)
		}
	}
	return out, nil
}

// BuildSessions classifies every session and joins it with its attributed
// traffic source. Sessions come out in order of first appearance; sessions
// with no traffic source keep an empty TrafficSource.
func BuildSessions(events []models.Event, opts SessionOptions) ([]Session, error) {
	outcomes := ClassifySessions(events, opts.PurchaseEventType)
	channels, err := AttributeChannels(events, opts.Policy)
	if err != nil {
		return nil, err
	}
	sessions := make([]Session, 0, len(outcomes))
	for _, o := range outcomes {
		sessions = append(sessions, Session{
			SessionID:     o.SessionID,
			TrafficSource: channels[o.SessionID],
			Converted:     o.Converted,
		})
	}
	return sessions, nil
}
