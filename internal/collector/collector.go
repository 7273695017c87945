package collector

import (
	"context"
	"sync"
	"time"

	"fleetdash/internal/config"
	"fleetdash/internal/executor"
	"fleetdash/internal/logger"
	"fleetdash/internal/probe"
)

// Runner executes a single remote command on a host. *executor.Executor
// satisfies it; tests substitute canned responses.
type Runner interface {
	Execute(ctx context.Context, host config.Host, command string) (*executor.Result, error)
}

// Collector gathers full telemetry snapshots over SSH. Each snapshot
// fans the sub-metric commands out concurrently on one host, and
// CollectAll fans hosts out concurrently across the fleet.
type Collector struct {
	hosts      []config.Host
	runner     Runner
	probes     *probe.Service
	thresholds func() config.Thresholds
	store      *Store
	interval   time.Duration
	log        logger.Logger
}

func New(cfg *config.Config, runner Runner, probes *probe.Service, thresholds func() config.Thresholds, log logger.Logger) *Collector {
	if log == nil {
		log = logger.Noop()
	}
	return &Collector{
		hosts:      cfg.Hosts,
		runner:     runner,
		probes:     probes,
		thresholds: thresholds,
		store:      NewStore(DefaultHistorySize),
		interval:   cfg.Monitoring.StatsInterval,
		log:        log,
	}
}

// Store exposes the snapshot cache for read-side consumers.
func (c *Collector) Store() *Store { return c.store }

// Collect gathers one snapshot for a single host. Transport failure on
// any sub-command invalidates the whole snapshot (Success=false, no
// metrics); a command that merely produces unparseable output degrades
// only its own sub-metric to the zero default. Successful snapshots are
// recorded in the store before returning.
func (c *Collector) Collect(ctx context.Context, host config.Host) *Snapshot {
	commands := []string{
		cmdCPUUsage,
		cmdLoadAvg,
		cmdMemory,
		cmdDisk,
		cmdNetwork,
		cmdUptime,
		cmdProcs,
	}

	outputs := make([]string, len(commands))
	errs := make([]error, len(commands))

	var wg sync.WaitGroup
	for i, cmd := range commands {
		wg.Add(1)
		go func(i int, cmd string) {
			defer wg.Done()
			res, err := c.runner.Execute(ctx, host, cmd)
			if err != nil {
				errs[i] = err
				return
			}
			outputs[i] = res.Stdout
		}(i, cmd)
	}
	wg.Wait()

	snap := &Snapshot{
		HostID:    host.ID,
		Timestamp: time.Now(),
	}

	for _, err := range errs {
		if err != nil {
			snap.Error = err.Error()
			c.log.Debug("stats collection failed for %s: %v", host.ID, err)
			return snap
		}
	}

	snap.Success = true
	snap.CPU.Usage = parseCPUUsage(outputs[0])
	snap.CPU.Load1, snap.CPU.Load5, snap.CPU.Load15 = parseLoadAvg(outputs[1])
	snap.Memory = parseMemory(outputs[2])
	snap.Disk = parseDisk(outputs[3])
	snap.Network = parseNetwork(outputs[4])
	snap.Uptime = parseUptime(outputs[5])
	snap.Processes = parseProcesses(outputs[6])

	var ping *probe.Result
	if c.probes != nil {
		// Stats come from the rolling history even before the first probe
		// lands, so an empty history reads as 100% loss rather than zero.
		snap.Ping.Stats = c.probes.Stats(host.ID)
		ping = c.probes.Latest(host.ID)
		if ping != nil {
			snap.Ping.Current = ping.LatencyMs
			snap.Ping.Alive = ping.Alive
		}
	}
	snap.Health = ComputeHealth(snap, ping, c.thresholds())

	c.store.Update(snap)
	return snap
}

// CollectAll collects every configured host concurrently and returns a
// settled outcome per host. One host failing never disturbs the others.
func (c *Collector) CollectAll(ctx context.Context) []Outcome {
	outcomes := make([]Outcome, len(c.hosts))

	var wg sync.WaitGroup
	for i, host := range c.hosts {
		wg.Add(1)
		go func(i int, host config.Host) {
			defer wg.Done()
			snap := c.Collect(ctx, host)
			if snap.Success {
				outcomes[i] = Outcome{HostID: host.ID, Success: true, Snapshot: snap}
			} else {
				outcomes[i] = Outcome{HostID: host.ID, Error: snap.Error}
			}
		}(i, host)
	}
	wg.Wait()

	return outcomes
}

// Start runs the collection loop until ctx is cancelled: one immediate
// batch, then one per configured interval. onBatch receives every
// settled batch, including ones where all hosts failed.
func (c *Collector) Start(ctx context.Context, onBatch func([]Outcome)) {
	run := func() {
		batch := c.CollectAll(ctx)
		if onBatch != nil {
			onBatch(batch)
		}
	}

	run()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
