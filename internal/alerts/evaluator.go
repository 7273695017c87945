package alerts

import (
	"fmt"
	"time"

	"fleetdash/internal/collector"
	"fleetdash/internal/config"
)

// Alert levels.
const (
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Alert is one threshold breach on one host. A host produces at most
// one alert per category, at the highest breached level.
type Alert struct {
	HostID    string    `json:"serverId"`
	Category  string    `json:"type"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// Evaluator derives alerts from the latest telemetry cache. Evaluation
// is pure: it never mutates snapshots or thresholds, so re-evaluating
// unchanged state yields identical alerts (timestamps aside).
type Evaluator struct {
	store      *collector.Store
	thresholds *ThresholdStore
}

func NewEvaluator(store *collector.Store, thresholds *ThresholdStore) *Evaluator {
	return &Evaluator{store: store, thresholds: thresholds}
}

// Evaluate checks one snapshot against bounds. Categories are checked
// in a fixed order (cpu, memory, disk) and within each the critical
// bound is checked before the warning bound. Failed or missing
// snapshots produce no alerts.
func Evaluate(snap *collector.Snapshot, th config.Thresholds) []Alert {
	if snap == nil || !snap.Success {
		return nil
	}

	now := time.Now()
	var out []Alert

	check := func(category string, value float64, b config.Bounds, unit string) {
		var level string
		var threshold float64
		switch {
		case value > b.Critical:
			level, threshold = LevelCritical, b.Critical
		case value > b.Warning:
			level, threshold = LevelWarning, b.Warning
		default:
			return
		}
		out = append(out, Alert{
			HostID:    snap.HostID,
			Category:  category,
			Level:     level,
			Message:   fmt.Sprintf("%s usage at %.1f%s (threshold %.0f%s)", category, value, unit, threshold, unit),
			Value:     value,
			Threshold: threshold,
			Timestamp: now,
		})
	}

	check("cpu", snap.CPU.Usage, th.CPU, "%")
	check("memory", snap.Memory.UsedPercent, th.Memory, "%")
	check("disk", snap.Disk.UsedPercent, th.Disk, "%")
	return out
}

// ForHost evaluates the latest cached snapshot of one host.
func (e *Evaluator) ForHost(hostID string) []Alert {
	return Evaluate(e.store.Latest(hostID), e.thresholds.Current())
}

// All evaluates every host with a cached snapshot.
func (e *Evaluator) All() []Alert {
	th := e.thresholds.Current()
	var out []Alert
	for _, snap := range e.store.All() {
		out = append(out, Evaluate(snap, th)...)
	}
	return out
}
