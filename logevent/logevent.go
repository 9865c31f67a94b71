// Package logevent implements the Log collaborator from section 6: plain
// printf-style event and transfer records, gated by the log_enable
// configuration option. Grounded on gurre-ddb-pitr's cmd/ddb-pitr
// progress logging, which likewise writes directly to stdout rather than
// through a structured logging library.
package logevent

import (
	"fmt"
	"io"
	"time"
)

// Log is the out-of-scope Log collaborator. A zero Log with Enabled
// false discards everything.
type Log struct {
	Out     io.Writer
	Enabled bool
}

// New creates a Log writing to w when enabled is true.
func New(w io.Writer, enabled bool) *Log {
	return &Log{Out: w, Enabled: enabled}
}

// Event records a point-in-time occurrence: a kind ("FETCH STARTED",
// "FETCH SUCCEEDED", "FETCH FAILED", ...), an optional subject, an
// optional dataset or checkpoint id, a timestamp, and an optional duration.
func (l *Log) Event(kind, subject string, id *int, ts time.Time, dur *time.Duration) {
	if l == nil || !l.Enabled {
		return
	}
	idStr := "-"
	if id != nil {
		idStr = fmt.Sprintf("%d", *id)
	}
	durStr := "-"
	if dur != nil {
		durStr = dur.String()
	}
	fmt.Fprintf(l.Out, "%s: %s subject=%s id=%s dur=%s\n",
		ts.Format(time.RFC3339Nano), kind, subject, idStr, durStr)
}

// Transfer records a completed data movement: kind ("fetch" per file,
// "FETCH" per checkpoint), the source and destination, the dataset id,
// start time, duration, and byte count. It is written for successful
// transfers only; a failed file is reported through Event.
func (l *Log) Transfer(kind, from, to string, id int, ts time.Time, dur time.Duration, bytes uint64) {
	if l == nil || !l.Enabled {
		return
	}
	fmt.Fprintf(l.Out, "%s: %s %s -> %s id=%d dur=%s bytes=%d\n",
		ts.Format(time.RFC3339Nano), kind, from, to, id, dur, bytes)
}
