package reporting_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-service/internal/reporting"
)

func TestGenerateRetrospective_Empty(t *testing.T) {
	report := reporting.GenerateRetrospective(nil)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.TotalCheckouts)
	assert.Empty(t, report.ErrorBreakdown)
	assert.Empty(t, report.GatewayUsage)
}

func TestGenerateRetrospective_Aggregation(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	entries := []reporting.LogEntry{
		{Timestamp: base, OrderID: "o-1", UserID: "u-1", Status: reporting.StatusSuccess, Units: 3, Total: 120, Gateway: "paypal"},
		{Timestamp: base.Add(time.Minute), OrderID: "o-2", UserID: "u-2", Status: reporting.StatusSuccess, Units: 1, Total: 50, Gateway: "paypal"},
		{Timestamp: base.Add(2 * time.Minute), UserID: "u-3", Status: reporting.StatusFailure, ErrorType: "invalid_cart"},
		{Timestamp: base.Add(3 * time.Minute), OrderID: "o-4", UserID: "u-4", Status: reporting.StatusFailure, ErrorType: "gateway_error", Gateway: "paypal"},
	}

	report := reporting.GenerateRetrospective(entries)

	assert.Equal(t, 4, report.TotalCheckouts)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 4, report.UnitsSold)
	assert.Equal(t, 170.0, report.ValueSold)
	assert.Equal(t, map[string]int{"invalid_cart": 1, "gateway_error": 1}, report.ErrorBreakdown)
	assert.Equal(t, map[string]int{"paypal": 3}, report.GatewayUsage)
	assert.Equal(t, base, report.DateFrom)
	assert.Equal(t, base.Add(3*time.Minute), report.DateTo)
	assert.Equal(t, 3*time.Minute, report.ProcessingDuration)
}

func TestJournal_Bounded(t *testing.T) {
	j := reporting.NewJournal(2)

	j.Append(reporting.LogEntry{OrderID: "o-1"})
	j.Append(reporting.LogEntry{OrderID: "o-2"})
	j.Append(reporting.LogEntry{OrderID: "o-3"})

	snapshot := j.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "o-2", snapshot[0].OrderID, "oldest entry is evicted first")
	assert.Equal(t, "o-3", snapshot[1].OrderID)
}

func TestJournal_SnapshotIsACopy(t *testing.T) {
	j := reporting.NewJournal(4)
	j.Append(reporting.LogEntry{OrderID: "o-1"})

	snapshot := j.Snapshot()
	snapshot[0].OrderID = "mutated"

	assert.Equal(t, "o-1", j.Snapshot()[0].OrderID)
}
