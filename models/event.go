// models/event.go
package models

import "time"

// Event is one raw clickstream interaction. CreatedAt is nil when the source
// timestamp was missing or could not be parsed.
type Event struct {
	EventID       string     `json:"event_id,omitempty"`
	UserID        string     `json:"user_id,omitempty"`
	SessionID     string     `json:"session_id" binding:"required"`
	EventType     string     `json:"event_type" binding:"required"`
	TrafficSource string     `json:"traffic_source"`
	URI           string     `json:"uri,omitempty"`
	IPAddress     string     `json:"ip_address,omitempty"`
	CreatedAt     *time.Time `json:"created_at"`
}

// Year returns the calendar year of CreatedAt.
func (e Event) Year() (int, bool) {
	if e.CreatedAt == nil {
		return 0, false
	}
	return e.CreatedAt.Year(), true
}

// TimeCount is a bucketed count used by the live tracking statistics.
type TimeCount struct {
	Time      time.Time `json:"time"`
	EventType *string   `json:"event_type,omitempty"`
	Count     uint64    `json:"count"`
}
