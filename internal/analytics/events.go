package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventLetter     EventType = "letter"
	EventStale      EventType = "stale"
	EventIndexBuilt EventType = "index_built"
)

// SearchEvent describes one answered (or superseded) search request.
type SearchEvent struct {
	Type       EventType      `json:"type"`
	Query      string         `json:"query"`
	Lang       string         `json:"lang"`
	Mode       string         `json:"mode"`
	Exact      bool           `json:"exact"`
	TotalHits  int            `json:"total_hits"`
	Categories map[string]int `json:"categories,omitempty"`
	LatencyMs  int64          `json:"latency_ms"`
	CacheHit   bool           `json:"cache_hit"`
	Timestamp  time.Time      `json:"timestamp"`
	RequestID  string         `json:"request_id,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
}
