package collector

import (
	"math"

	"fleetdash/internal/config"
	"fleetdash/internal/probe"
)

// ComputeHealth derives a 0-100 score from a snapshot and the latest
// probe result. Scoring starts at 100 and applies deductions per
// category; a dead host costs 50 on its own, elevated latency at most
// 10. A failed snapshot scores 0 outright.
func ComputeHealth(snap *Snapshot, ping *probe.Result, th config.Thresholds) int {
	if snap == nil || !snap.Success {
		return 0
	}

	score := 100

	switch {
	case snap.CPU.Usage > th.CPU.Critical:
		score -= 30
	case snap.CPU.Usage > th.CPU.Warning:
		score -= 15
	}

	switch {
	case snap.Memory.UsedPercent > th.Memory.Critical:
		score -= 30
	case snap.Memory.UsedPercent > th.Memory.Warning:
		score -= 15
	}

	switch {
	case snap.Disk.UsedPercent > th.Disk.Critical:
		score -= 20
	case snap.Disk.UsedPercent > th.Disk.Warning:
		score -= 10
	}

	if ping != nil {
		if !ping.Alive {
			score -= 50
		} else if ping.LatencyMs != nil {
			switch {
			case *ping.LatencyMs > th.Ping.Critical:
				score -= 10
			case *ping.LatencyMs > th.Ping.Warning:
				score -= 5
			}
		}
	}

	if score < 0 {
		score = 0
	}
	return score
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
