// Package reporting aggregates finished checkout flows into retrospective
// summaries for merchant-facing dashboards.
package reporting

import (
	"sync"
	"time"
)

// FlowLogEntry records one finished checkout flow.
type FlowLogEntry struct {
	Timestamp  time.Time
	FlowID     string
	ShopperRef string
	Status     string // "success", "failure" or "cancelled"
	MethodType string // payment method the shopper ended on, if any
	Amount     int64
	Currency   string
	ErrorCode  string // set for failed flows
}

// RetrospectiveReport summarizes checkout activity over a set of flow logs.
type RetrospectiveReport struct {
	TotalFlows           int
	SuccessfulFlows      int
	FailedFlows          int
	CancelledFlows       int
	TotalAmountProcessed int64            // successful flows only
	AmountByCurrency     map[string]int64 // successful flows only
	ErrorBreakdown       map[string]int   // per error code, failed flows only
	MethodUsage          map[string]int   // per method type, all flows
	DateFrom             time.Time
	DateTo               time.Time
}

// FlowJournal is a thread-safe collector of flow log entries. The demo host
// appends one entry per finished flow and reads the journal back when
// serving retrospectives.
type FlowJournal struct {
	mu      sync.Mutex
	entries []FlowLogEntry
}

// NewFlowJournal creates an empty FlowJournal.
func NewFlowJournal() *FlowJournal {
	return &FlowJournal{}
}

// Append records one finished flow.
func (j *FlowJournal) Append(entry FlowLogEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

// Entries returns a copy of the journal.
func (j *FlowJournal) Entries() []FlowLogEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]FlowLogEntry, len(j.entries))
	copy(out, j.entries)
	return out
}

// RetrospectiveReporter generates retrospective reports from flow logs.
type RetrospectiveReporter struct{}

// NewRetrospectiveReporter creates a new RetrospectiveReporter.
func NewRetrospectiveReporter() *RetrospectiveReporter {
	return &RetrospectiveReporter{}
}

// GenerateRetrospective analyzes a slice of flow logs and produces a
// RetrospectiveReport.
func (rr *RetrospectiveReporter) GenerateRetrospective(logs []FlowLogEntry) *RetrospectiveReport {
	report := &RetrospectiveReport{
		AmountByCurrency: make(map[string]int64),
		ErrorBreakdown:   make(map[string]int),
		MethodUsage:      make(map[string]int),
	}
	if len(logs) == 0 {
		return report
	}

	report.DateFrom = logs[0].Timestamp
	report.DateTo = logs[0].Timestamp
	for _, entry := range logs {
		report.TotalFlows++

		if entry.Timestamp.Before(report.DateFrom) {
			report.DateFrom = entry.Timestamp
		}
		if entry.Timestamp.After(report.DateTo) {
			report.DateTo = entry.Timestamp
		}

		if entry.MethodType != "" {
			report.MethodUsage[entry.MethodType]++
		}

		switch entry.Status {
		case "success":
			report.SuccessfulFlows++
			report.TotalAmountProcessed += entry.Amount
			report.AmountByCurrency[entry.Currency] += entry.Amount
		case "failure":
			report.FailedFlows++
			if entry.ErrorCode != "" {
				report.ErrorBreakdown[entry.ErrorCode]++
			}
		case "cancelled":
			report.CancelledFlows++
		}
	}

	return report
}
