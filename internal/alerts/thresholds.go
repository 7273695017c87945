package alerts

import (
	"fmt"
	"sync"

	"fleetdash/internal/config"
	"fleetdash/internal/errors"
)

// ThresholdStore holds the live alert thresholds. Reads vastly
// outnumber writes; updates come in one field at a time from the
// settings surface.
type ThresholdStore struct {
	mu sync.RWMutex
	th config.Thresholds
}

func NewThresholdStore(th config.Thresholds) *ThresholdStore {
	return &ThresholdStore{th: th}
}

// Current returns a copy of the live thresholds.
func (s *ThresholdStore) Current() config.Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.th
}

// Set updates one bound. category is one of cpu, memory, disk, ping;
// kind is warning or critical. Values must be positive. A warning set
// at or above its critical counterpart is accepted: evaluation checks
// critical first, so the critical bound simply dominates.
func (s *ThresholdStore) Set(category, kind string, value float64) error {
	if value <= 0 {
		return errors.New(errors.ErrValidation,
			fmt.Sprintf("threshold value must be positive, got %v", value),
			"pass a value greater than zero")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var b *config.Bounds
	switch category {
	case "cpu":
		b = &s.th.CPU
	case "memory":
		b = &s.th.Memory
	case "disk":
		b = &s.th.Disk
	case "ping":
		b = &s.th.Ping
	default:
		return errors.New(errors.ErrValidation,
			fmt.Sprintf("unknown threshold category %q", category),
			"use one of: cpu, memory, disk, ping")
	}

	switch kind {
	case "warning":
		b.Warning = value
	case "critical":
		b.Critical = value
	default:
		return errors.New(errors.ErrValidation,
			fmt.Sprintf("unknown threshold kind %q", kind),
			"use warning or critical")
	}
	return nil
}
