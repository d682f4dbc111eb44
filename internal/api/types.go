package api

import (
	"time"

	"github.com/mattjoyce/obsq/internal/events"
)

// PushResponse is returned by POST /items.
type PushResponse struct {
	Ticket  uint64 `json:"ticket"`
	Pending int    `json:"pending"`
}

// StatsResponse is returned by GET /stats.
type StatsResponse struct {
	Queue      string `json:"queue"`
	Mode       string `json:"mode"`
	State      string `json:"state"`
	Pending    int    `json:"pending"`
	Consumers  int    `json:"consumers"`
	Pushed     uint64 `json:"pushed"`
	Dispatched uint64 `json:"dispatched"`
	Failures   uint64 `json:"failures"`
}

// EventsResponse is returned by GET /events.
type EventsResponse struct {
	Events []events.Event `json:"events"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	QueueState    string `json:"queue_state"`
}

// JournalEntry is one recorded delivery.
type JournalEntry struct {
	Seq        int64     `json:"seq"`
	ID         string    `json:"id"`
	Payload    string    `json:"payload"`
	Digest     string    `json:"digest"`
	RecordedAt time.Time `json:"recorded_at"`
}

// JournalResponse is returned by GET /journal.
type JournalResponse struct {
	Queue   string         `json:"queue"`
	Total   int            `json:"total"`
	Entries []JournalEntry `json:"entries"`
}
