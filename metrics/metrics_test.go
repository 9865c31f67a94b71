package metrics

import (
	"testing"
	"time"
)

func TestMetricsHappyPath(t *testing.T) {
	m := New()

	m.RecordFileFetched(1024)
	m.RecordFileFetched(2048)
	m.RecordFileFailed()
	m.RecordCandidateRetry()

	time.Sleep(10 * time.Millisecond)

	report := m.GenerateReport()

	if report.FilesFetched != 2 {
		t.Errorf("expected 2 files fetched, got %d", report.FilesFetched)
	}
	if report.FilesFailed != 1 {
		t.Errorf("expected 1 file failed, got %d", report.FilesFailed)
	}
	if report.BytesFetched != 3072 {
		t.Errorf("expected 3072 bytes fetched, got %d", report.BytesFetched)
	}
	if report.CandidateRetries != 1 {
		t.Errorf("expected 1 candidate retry, got %d", report.CandidateRetries)
	}
	if report.Duration < 10*time.Millisecond {
		t.Errorf("expected duration >= 10ms, got %v", report.Duration)
	}
	if report.ThroughputBps <= 0 {
		t.Errorf("expected positive throughput, got %f", report.ThroughputBps)
	}

	if str := report.String(); str == "" {
		t.Error("expected non-empty string representation")
	}
}
