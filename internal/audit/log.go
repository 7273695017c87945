// Package audit keeps a bounded, time-ordered record of ad-hoc
// commands executed against the fleet. The log is independent of the
// collection loops: only direct execution requests mutate it.
package audit

import (
	"sync"
	"time"

	"fleetdash/internal/executor"
)

// DefaultCapacity is the number of executions retained.
const DefaultCapacity = 100

// Execution is one recorded command run.
type Execution struct {
	ID        string           `json:"id"`
	HostID    string           `json:"serverId"`
	HostName  string           `json:"serverName"`
	Command   string           `json:"command"`
	Result    *executor.Result `json:"result"`
	Timestamp time.Time        `json:"timestamp"`
}

// Log is a bounded newest-first execution history.
type Log struct {
	mu       sync.RWMutex
	entries  []Execution
	capacity int
}

// NewLog creates a log with the given capacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries:  make([]Execution, 0, capacity),
		capacity: capacity,
	}
}

// Record prepends an execution. When the log exceeds capacity the
// oldest entry is dropped from the tail.
func (l *Log) Record(exec Execution) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]Execution{exec}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
}

// Query returns at most limit executions, newest first, optionally
// filtered by host id (empty hostID means all hosts). A non-positive
// limit returns nothing.
func (l *Log) Query(limit int, hostID string) []Execution {
	if limit <= 0 {
		return []Execution{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Execution, 0, limit)
	for _, e := range l.entries {
		if hostID != "" && e.HostID != hostID {
			continue
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// Len returns the number of retained executions.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
