// Package probe implements the liveness probe loop. Each host is
// periodically checked for reachability with a TCP probe against its
// SSH endpoint; results go into a bounded per-host ring from which
// rolling latency statistics are derived.
//
// A probe never fails a cycle: an unreachable host is recorded as a
// normal result with Alive=false.
package probe

import (
	"context"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"fleetdash/internal/config"
	"fleetdash/internal/logger"
)

// DefaultHistorySize is the number of probe results retained per host.
const DefaultHistorySize = 100

// Result is one liveness check. LatencyMs is nil when the host was
// unreachable. Immutable once created.
type Result struct {
	HostID    string    `json:"serverId"`
	Alive     bool      `json:"alive"`
	LatencyMs *float64  `json:"time"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Stats are rolling statistics over a host's probe history, derived on
// demand and never stored.
type Stats struct {
	Avg        float64 `json:"avg"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	PacketLoss float64 `json:"packetLoss"`
	Total      int     `json:"total"`
	Successful int     `json:"successful"`
}

// Service probes the configured fleet and owns the per-host histories.
type Service struct {
	hosts    []config.Host
	port     int
	timeout  time.Duration
	interval time.Duration
	log      logger.Logger

	mu      sync.RWMutex
	history map[string]*ring
}

// NewService creates a probe service for the configured fleet.
func NewService(cfg *config.Config, log logger.Logger) *Service {
	if log == nil {
		log = logger.Noop()
	}
	port := cfg.SSH.Port
	if port <= 0 {
		port = 22
	}
	return &Service{
		hosts:    cfg.Hosts,
		port:     port,
		timeout:  cfg.Monitoring.ProbeTimeout,
		interval: cfg.Monitoring.PingInterval,
		log:      log,
		history:  make(map[string]*ring),
	}
}

// Probe performs a single liveness check against the host's SSH
// endpoint. Unreachability is a normal result, never an error.
func (s *Service) Probe(ctx context.Context, host config.Host) Result {
	address := host.Address
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, strconv.Itoa(s.port))
	}

	dialer := net.Dialer{Timeout: s.timeout}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Result{
			HostID:    host.ID,
			Alive:     false,
			Timestamp: time.Now(),
			Error:     err.Error(),
		}
	}
	conn.Close()

	latency := round2(float64(time.Since(start).Microseconds()) / 1000.0)
	return Result{
		HostID:    host.ID,
		Alive:     true,
		LatencyMs: &latency,
		Timestamp: time.Now(),
	}
}

// Record appends a result to the host's bounded history.
func (s *Service) Record(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rg, ok := s.history[r.HostID]
	if !ok {
		rg = newRing(DefaultHistorySize)
		s.history[r.HostID] = rg
	}
	rg.push(r)
}

// History returns up to limit results for the host in chronological
// order (oldest first).
func (s *Service) History(hostID string, limit int) []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rg, ok := s.history[hostID]
	if !ok {
		return nil
	}
	return rg.last(limit)
}

// Latest returns the most recent result for the host, or nil if the
// host has not been probed yet.
func (s *Service) Latest(hostID string) *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rg, ok := s.history[hostID]
	if !ok || rg.count == 0 {
		return nil
	}
	r := rg.newest()
	return &r
}

// Stats computes rolling statistics over the host's history. An empty
// history yields 100% packet loss and zeroed latency figures.
func (s *Service) Stats(hostID string) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rg, ok := s.history[hostID]
	if !ok || rg.count == 0 {
		return Stats{PacketLoss: 100}
	}

	results := rg.last(rg.count)
	var sum, min, max float64
	successful := 0
	for _, r := range results {
		if !r.Alive || r.LatencyMs == nil {
			continue
		}
		t := *r.LatencyMs
		if successful == 0 || t < min {
			min = t
		}
		if t > max {
			max = t
		}
		sum += t
		successful++
	}

	avg := 0.0
	if successful > 0 {
		avg = sum / float64(successful)
	}
	loss := float64(len(results)-successful) / float64(len(results)) * 100

	return Stats{
		Avg:        round2(avg),
		Min:        round2(min),
		Max:        round2(max),
		PacketLoss: round2(loss),
		Total:      len(results),
		Successful: successful,
	}
}

// Start runs an immediate probe pass across all hosts and then repeats
// at the configured interval until ctx is cancelled. Every result is
// recorded and delivered to onResult exactly once; hosts are probed
// independently so one host's failure never blocks another's probe.
func (s *Service) Start(ctx context.Context, onResult func(Result)) {
	s.log.Info("probe loop started (interval %s, %d hosts)", s.interval, len(s.hosts))

	s.pass(ctx, onResult)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("probe loop stopped")
			return
		case <-ticker.C:
			s.pass(ctx, onResult)
		}
	}
}

func (s *Service) pass(ctx context.Context, onResult func(Result)) {
	var wg sync.WaitGroup
	for _, host := range s.hosts {
		wg.Add(1)
		go func(h config.Host) {
			defer wg.Done()
			r := s.Probe(ctx, h)
			s.Record(r)
			if onResult != nil {
				onResult(r)
			}
		}(host)
	}
	wg.Wait()
}

// ring is a fixed-size circular buffer of probe results.
type ring struct {
	data  []Result
	head  int
	count int
	size  int
}

func newRing(size int) *ring {
	return &ring{data: make([]Result, size), size: size}
}

func (r *ring) push(v Result) {
	r.data[r.head] = v
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

func (r *ring) newest() Result {
	idx := (r.head - 1 + r.size) % r.size
	return r.data[idx]
}

// last returns the last count values in chronological order (oldest first).
func (r *ring) last(count int) []Result {
	if count <= 0 || r.count == 0 {
		return nil
	}
	if count > r.count {
		count = r.count
	}

	out := make([]Result, count)
	start := (r.head - count + r.size) % r.size
	for i := 0; i < count; i++ {
		out[i] = r.data[(start+i)%r.size]
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
