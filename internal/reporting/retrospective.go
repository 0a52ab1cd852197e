// Package reporting aggregates recent checkout outcomes into a retrospective
// report for operators. The journal is a bounded in-memory window, not a
// durable transaction log.
package reporting

import (
	"sync"
	"time"
)

// LogEntry records one completed checkout traversal, success or failure.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	OrderID   string    `json:"orderid,omitempty"` // empty when aborted before id assignment
	UserID    string    `json:"user"`
	Status    string    `json:"status"` // "SUCCESS" or "FAILURE"
	ErrorType string    `json:"error_type,omitempty"`
	Units     int       `json:"units"`
	Total     float64   `json:"total"`
	Gateway   string    `json:"gateway,omitempty"`
}

// Checkout status values for LogEntry.Status.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// Report summarizes checkout activity over the journal window.
type Report struct {
	TotalCheckouts     int            `json:"total_checkouts"`
	Succeeded          int            `json:"succeeded"`
	Failed             int            `json:"failed"`
	UnitsSold          int            `json:"units_sold"`
	ValueSold          float64        `json:"value_sold"`
	ErrorBreakdown     map[string]int `json:"error_breakdown"`
	GatewayUsage       map[string]int `json:"gateway_usage"`
	DateFrom           time.Time      `json:"date_from"`
	DateTo             time.Time      `json:"date_to"`
	ProcessingDuration time.Duration  `json:"processing_duration_ns"`
}

// GenerateRetrospective analyzes a slice of LogEntry items and produces a
// Report. Units and value count successful checkouts only.
func GenerateRetrospective(entries []LogEntry) *Report {
	report := &Report{
		ErrorBreakdown: make(map[string]int),
		GatewayUsage:   make(map[string]int),
	}
	if len(entries) == 0 {
		return report
	}

	report.DateFrom = entries[0].Timestamp
	report.DateTo = entries[0].Timestamp

	for _, e := range entries {
		report.TotalCheckouts++
		if e.Timestamp.Before(report.DateFrom) {
			report.DateFrom = e.Timestamp
		}
		if e.Timestamp.After(report.DateTo) {
			report.DateTo = e.Timestamp
		}

		switch e.Status {
		case StatusSuccess:
			report.Succeeded++
			report.UnitsSold += e.Units
			report.ValueSold += e.Total
		case StatusFailure:
			report.Failed++
			if e.ErrorType != "" {
				report.ErrorBreakdown[e.ErrorType]++
			}
		}
		if e.Gateway != "" {
			report.GatewayUsage[e.Gateway]++
		}
	}

	report.ProcessingDuration = report.DateTo.Sub(report.DateFrom)
	return report
}

// Journal is a bounded, concurrency-safe window of recent checkout entries.
// When full, the oldest entries are dropped.
type Journal struct {
	mu      sync.Mutex
	max     int
	entries []LogEntry
}

// NewJournal creates a Journal holding at most max entries.
func NewJournal(max int) *Journal {
	if max <= 0 {
		max = 1024
	}
	return &Journal{max: max}
}

// Append records an entry, evicting the oldest when the window is full.
func (j *Journal) Append(e LogEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.entries) >= j.max {
		j.entries = j.entries[1:]
	}
	j.entries = append(j.entries, e)
}

// Snapshot returns a copy of the current window.
func (j *Journal) Snapshot() []LogEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]LogEntry, len(j.entries))
	copy(out, j.entries)
	return out
}
