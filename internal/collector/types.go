package collector

import (
	"time"

	"fleetdash/internal/probe"
)

// CPUStats holds CPU usage and load averages.
type CPUStats struct {
	Usage  float64 `json:"usage"`
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// MemoryStats holds memory figures in megabytes, as reported by free -m.
type MemoryStats struct {
	Total       int64   `json:"total"`
	Used        int64   `json:"used"`
	Free        int64   `json:"free"`
	Available   int64   `json:"available"`
	UsedPercent float64 `json:"usedPercent"`
}

// DiskStats holds root filesystem figures. Sizes keep the
// human-readable form emitted by df -h ("40G"); only the used
// percentage is numeric.
type DiskStats struct {
	Total       string  `json:"total"`
	Used        string  `json:"used"`
	Available   string  `json:"available"`
	UsedPercent float64 `json:"usedPercent"`
}

// NetworkStats holds cumulative byte counters for the first matching
// physical interface.
type NetworkStats struct {
	RxBytes int64 `json:"rxBytes"`
	TxBytes int64 `json:"txBytes"`
}

// Process is one row of the top-processes listing.
type Process struct {
	PID    int     `json:"pid"`
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
	Name   string  `json:"name"`
}

// PingInfo folds the freshest probe state into a snapshot.
type PingInfo struct {
	Current *float64    `json:"current"`
	Alive   bool        `json:"alive"`
	Stats   probe.Stats `json:"stats"`
}

// Snapshot is one complete telemetry reading for a host. A snapshot
// with Success=false carries an error and no usable metrics; partial
// snapshots are never produced.
type Snapshot struct {
	HostID    string       `json:"serverId"`
	Timestamp time.Time    `json:"timestamp"`
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
	CPU       CPUStats     `json:"cpu"`
	Memory    MemoryStats  `json:"memory"`
	Disk      DiskStats    `json:"disk"`
	Network   NetworkStats `json:"network"`
	Uptime    string       `json:"uptime"`
	Processes []Process    `json:"processes"`
	Ping      PingInfo     `json:"ping"`
	Health    int          `json:"health"`
}

// Outcome is the settled result of collecting one host in a batch.
type Outcome struct {
	HostID   string    `json:"serverId"`
	Success  bool      `json:"success"`
	Snapshot *Snapshot `json:"data,omitempty"`
	Error    string    `json:"error,omitempty"`
}
