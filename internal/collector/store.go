package collector

import "sync"

// DefaultHistorySize bounds per-host snapshot history.
const DefaultHistorySize = 60

// Store keeps the latest successful snapshot per host plus a bounded
// trailing history. Failed snapshots never enter the store, so Latest
// always answers with the last known-good reading.
type Store struct {
	mu       sync.RWMutex
	latest   map[string]*Snapshot
	history  map[string][]*Snapshot
	capacity int
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &Store{
		latest:   make(map[string]*Snapshot),
		history:  make(map[string][]*Snapshot),
		capacity: capacity,
	}
}

// Update records a successful snapshot. Snapshots with Success=false
// are ignored.
func (s *Store) Update(snap *Snapshot) {
	if snap == nil || !snap.Success {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest[snap.HostID] = snap
	h := append(s.history[snap.HostID], snap)
	if len(h) > s.capacity {
		h = h[len(h)-s.capacity:]
	}
	s.history[snap.HostID] = h
}

// Latest returns the most recent successful snapshot for a host, or
// nil when none has been recorded yet.
func (s *Store) Latest(hostID string) *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest[hostID]
}

// All returns the latest snapshot for every host that has one.
func (s *Store) All() map[string]*Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Snapshot, len(s.latest))
	for id, snap := range s.latest {
		out[id] = snap
	}
	return out
}

// History returns up to limit snapshots for a host in chronological
// order. limit <= 0 returns the full retained window.
func (s *Store) History(hostID string, limit int) []*Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[hostID]
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]*Snapshot, len(h))
	copy(out, h)
	return out
}
