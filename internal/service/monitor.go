// Package service ties the monitoring pipeline together: it owns the
// background loops, answers the API surface's queries and turns
// collection results into WebSocket events.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetdash/internal/alerts"
	"fleetdash/internal/audit"
	"fleetdash/internal/collector"
	"fleetdash/internal/config"
	"fleetdash/internal/dockerctl"
	"fleetdash/internal/errors"
	"fleetdash/internal/executor"
	"fleetdash/internal/hub"
	"fleetdash/internal/logger"
	"fleetdash/internal/probe"
)

// ErrHostNotFound maps to 404 on the HTTP surface.
var ErrHostNotFound = errors.New(errors.ErrValidation,
	"server not found",
	"check the server id against the configured hosts")

// CommandRunner is the executor surface the monitor needs.
type CommandRunner interface {
	Execute(ctx context.Context, host config.Host, command string) (*executor.Result, error)
	ExecuteScript(ctx context.Context, host config.Host, commands []string) ([]executor.StepResult, error)
}

// Broadcaster pushes events to connected dashboard clients.
// Host-scoped events go through SendToSubscribers so clients watching
// a subset of the fleet only receive what they asked for; fleet-wide
// events use Broadcast.
type Broadcaster interface {
	Broadcast(hub.Event)
	SendToSubscribers(hostID string, event hub.Event)
}

// ContainerManager is the docker surface the monitor needs; nil when
// no daemon is available.
type ContainerManager interface {
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Status(ctx context.Context, name string) dockerctl.Status
	Logs(ctx context.Context, name string, tail int) (string, error)
}

// Monitor is the fleet monitoring façade.
type Monitor struct {
	cfg        *config.Config
	runner     CommandRunner
	collector  *collector.Collector
	probes     *probe.Service
	evaluator  *alerts.Evaluator
	thresholds *alerts.ThresholdStore
	audit      *audit.Log
	broadcast  Broadcaster
	docker     ContainerManager
	log        logger.Logger

	mu        sync.Mutex
	lastAlive map[string]bool
}

// Options carries the monitor's collaborators. Docker may be nil.
type Options struct {
	Config      *config.Config
	Runner      CommandRunner
	Collector   *collector.Collector
	Probes      *probe.Service
	Thresholds  *alerts.ThresholdStore
	Broadcaster Broadcaster
	Docker      ContainerManager
	Logger      logger.Logger
}

func NewMonitor(opts Options) *Monitor {
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	return &Monitor{
		cfg:        opts.Config,
		runner:     opts.Runner,
		collector:  opts.Collector,
		probes:     opts.Probes,
		evaluator:  alerts.NewEvaluator(opts.Collector.Store(), opts.Thresholds),
		thresholds: opts.Thresholds,
		audit:      audit.NewLog(audit.DefaultCapacity),
		broadcast:  opts.Broadcaster,
		docker:     opts.Docker,
		log:        log,
		lastAlive:  make(map[string]bool),
	}
}

// Run drives the probe and collection loops until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.probes.Start(ctx, m.onProbe)
	}()
	go func() {
		defer wg.Done()
		m.collector.Start(ctx, m.onBatch)
	}()
	wg.Wait()
}

func (m *Monitor) onBatch(batch []collector.Outcome) {
	for _, outcome := range batch {
		if !outcome.Success {
			continue
		}
		m.broadcast.SendToSubscribers(outcome.HostID, hub.NewEvent(hub.EventStatsUpdate, outcome.Snapshot))
		for _, alert := range m.evaluator.ForHost(outcome.HostID) {
			m.broadcast.SendToSubscribers(outcome.HostID, hub.NewEvent(hub.EventAlert, alert))
		}
	}
}

func (m *Monitor) onProbe(result probe.Result) {
	m.broadcast.SendToSubscribers(result.HostID, hub.NewEvent(hub.EventPingUpdate, result))

	m.mu.Lock()
	prev, seen := m.lastAlive[result.HostID]
	m.lastAlive[result.HostID] = result.Alive
	m.mu.Unlock()

	// The first observation sets the baseline silently.
	if seen && prev != result.Alive {
		status := "offline"
		if result.Alive {
			status = "online"
		}
		m.log.Info("host %s went %s", result.HostID, status)
		m.broadcast.Broadcast(hub.NewEvent(hub.EventStatusChange, map[string]interface{}{
			"serverId": result.HostID,
			"status":   status,
		}))
	}
}

func (m *Monitor) host(id string) (config.Host, error) {
	h := m.cfg.HostByID(id)
	if h == nil {
		return config.Host{}, ErrHostNotFound
	}
	return *h, nil
}

// HostSummary is one row of the fleet listing.
type HostSummary struct {
	config.Host
	Status     string     `json:"status"`
	Running    bool       `json:"running"`
	Health     int        `json:"health"`
	Ping       *float64   `json:"ping"`
	Alive      bool       `json:"alive"`
	Alerts     int        `json:"alerts"`
	LastUpdate *time.Time `json:"lastUpdate"`
}

// ListHosts summarizes every configured host from the caches; it never
// touches the network.
func (m *Monitor) ListHosts(ctx context.Context) []HostSummary {
	out := make([]HostSummary, 0, len(m.cfg.Hosts))
	for _, h := range m.cfg.Hosts {
		s := HostSummary{Host: h, Status: dockerctl.StatusNotFound}
		if m.docker != nil && h.Container != "" {
			cs := m.docker.Status(ctx, h.Container)
			s.Status = cs.Status
			s.Running = cs.Running
		}
		if snap := m.collector.Store().Latest(h.ID); snap != nil {
			s.Health = snap.Health
			ts := snap.Timestamp
			s.LastUpdate = &ts
		}
		if ping := m.probes.Latest(h.ID); ping != nil {
			s.Ping = ping.LatencyMs
			s.Alive = ping.Alive
		}
		s.Alerts = len(m.evaluator.ForHost(h.ID))
		out = append(out, s)
	}
	return out
}

// HostDetail is the drill-down view of one host.
type HostDetail struct {
	config.Host
	Status  string              `json:"status"`
	Running bool                `json:"running"`
	Stats   *collector.Snapshot `json:"stats"`
	Ping    probe.Stats         `json:"ping"`
	Alerts  []alerts.Alert      `json:"alerts"`
}

func (m *Monitor) HostDetail(ctx context.Context, hostID string) (*HostDetail, error) {
	h, err := m.host(hostID)
	if err != nil {
		return nil, err
	}
	d := &HostDetail{Host: h, Status: dockerctl.StatusNotFound}
	if m.docker != nil && h.Container != "" {
		cs := m.docker.Status(ctx, h.Container)
		d.Status = cs.Status
		d.Running = cs.Running
	}
	d.Stats = m.collector.Store().Latest(h.ID)
	d.Ping = m.probes.Stats(h.ID)
	d.Alerts = m.evaluator.ForHost(h.ID)
	return d, nil
}

// ExecuteCommand runs one command on a host and records it in the
// audit log. Transport failures are returned as errors and not
// recorded; command failures (non-zero exit) are normal results.
func (m *Monitor) ExecuteCommand(ctx context.Context, hostID, command string) (*audit.Execution, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.New(errors.ErrValidation,
			"serverId and command are required", "")
	}
	h, err := m.host(hostID)
	if err != nil {
		return nil, err
	}

	result, err := m.runner.Execute(ctx, h, command)
	if err != nil {
		return nil, err
	}

	entry := audit.Execution{
		ID:        uuid.NewString(),
		HostID:    h.ID,
		HostName:  h.Name,
		Command:   command,
		Result:    result,
		Timestamp: time.Now(),
	}
	m.audit.Record(entry)
	return &entry, nil
}

// ExecuteScript runs commands sequentially, stopping after the first
// failing step. Completed steps are always returned, even when a
// transport error interrupts the script.
func (m *Monitor) ExecuteScript(ctx context.Context, hostID string, commands []string) ([]executor.StepResult, error) {
	if len(commands) == 0 {
		return nil, errors.New(errors.ErrValidation,
			"serverId and commands array are required", "")
	}
	h, err := m.host(hostID)
	if err != nil {
		return nil, err
	}
	return m.runner.ExecuteScript(ctx, h, commands)
}

// CommandHistory returns recorded executions newest first, optionally
// filtered by host.
func (m *Monitor) CommandHistory(limit int, hostID string) []audit.Execution {
	return m.audit.Query(limit, hostID)
}

// PingReport bundles probe history and aggregates for one host.
type PingReport struct {
	HostID  string         `json:"serverId"`
	History []probe.Result `json:"history"`
	Stats   probe.Stats    `json:"stats"`
}

func (m *Monitor) PingReport(hostID string, limit int) (*PingReport, error) {
	if _, err := m.host(hostID); err != nil {
		return nil, err
	}
	return &PingReport{
		HostID:  hostID,
		History: m.probes.History(hostID, limit),
		Stats:   m.probes.Stats(hostID),
	}, nil
}

func (m *Monitor) LatestStats(hostID string) (*collector.Snapshot, error) {
	if _, err := m.host(hostID); err != nil {
		return nil, err
	}
	return m.collector.Store().Latest(hostID), nil
}

func (m *Monitor) StatsHistory(hostID string, limit int) ([]*collector.Snapshot, error) {
	if _, err := m.host(hostID); err != nil {
		return nil, err
	}
	return m.collector.Store().History(hostID, limit), nil
}

// AlertReport is the per-host alert listing.
type AlertReport struct {
	HostID   string         `json:"serverId"`
	HostName string         `json:"serverName"`
	Alerts   []alerts.Alert `json:"alerts"`
	Count    int            `json:"count"`
}

func (m *Monitor) Alerts() []alerts.Alert {
	var out []alerts.Alert
	for _, h := range m.cfg.Hosts {
		out = append(out, m.evaluator.ForHost(h.ID)...)
	}
	return out
}

func (m *Monitor) AlertsFor(hostID string) (*AlertReport, error) {
	h, err := m.host(hostID)
	if err != nil {
		return nil, err
	}
	hostAlerts := m.evaluator.ForHost(h.ID)
	return &AlertReport{
		HostID:   h.ID,
		HostName: h.Name,
		Alerts:   hostAlerts,
		Count:    len(hostAlerts),
	}, nil
}

func (m *Monitor) Thresholds() config.Thresholds {
	return m.thresholds.Current()
}

func (m *Monitor) SetThreshold(category, kind string, value float64) (config.Thresholds, error) {
	if err := m.thresholds.Set(category, kind, value); err != nil {
		return config.Thresholds{}, err
	}
	m.log.Info("threshold %s.%s set to %v", category, kind, value)
	return m.thresholds.Current(), nil
}

// OverviewRow is the condensed per-host monitoring summary.
type OverviewRow struct {
	HostID     string     `json:"serverId"`
	HostName   string     `json:"serverName"`
	Health     int        `json:"health"`
	CPU        float64    `json:"cpu"`
	Memory     float64    `json:"memory"`
	Disk       float64    `json:"disk"`
	Ping       *float64   `json:"ping"`
	PingAvg    float64    `json:"pingAvg"`
	Alive      bool       `json:"alive"`
	Alerts     int        `json:"alerts"`
	Critical   int        `json:"criticalAlerts"`
	LastUpdate *time.Time `json:"lastUpdate"`
}

func (m *Monitor) Overview() []OverviewRow {
	out := make([]OverviewRow, 0, len(m.cfg.Hosts))
	for _, h := range m.cfg.Hosts {
		row := OverviewRow{HostID: h.ID, HostName: h.Name}
		if snap := m.collector.Store().Latest(h.ID); snap != nil {
			row.Health = snap.Health
			row.CPU = snap.CPU.Usage
			row.Memory = snap.Memory.UsedPercent
			row.Disk = snap.Disk.UsedPercent
			ts := snap.Timestamp
			row.LastUpdate = &ts
		}
		if ping := m.probes.Latest(h.ID); ping != nil {
			row.Ping = ping.LatencyMs
			row.Alive = ping.Alive
		}
		row.PingAvg = m.probes.Stats(h.ID).Avg
		for _, a := range m.evaluator.ForHost(h.ID) {
			row.Alerts++
			if a.Level == alerts.LevelCritical {
				row.Critical++
			}
		}
		out = append(out, row)
	}
	return out
}

// container resolves a host to its configured container name.
func (m *Monitor) container(hostID string) (string, error) {
	h, err := m.host(hostID)
	if err != nil {
		return "", err
	}
	if h.Container == "" {
		return "", errors.New(errors.ErrValidation,
			"server has no container configured",
			"set the container field for this host in the config")
	}
	if m.docker == nil {
		return "", errors.New(errors.ErrDocker,
			"docker is not available",
			"start the docker daemon and restart the dashboard")
	}
	return h.Container, nil
}

func (m *Monitor) StartContainer(ctx context.Context, hostID string) error {
	name, err := m.container(hostID)
	if err != nil {
		return err
	}
	return m.docker.Start(ctx, name)
}

func (m *Monitor) StopContainer(ctx context.Context, hostID string) error {
	name, err := m.container(hostID)
	if err != nil {
		return err
	}
	return m.docker.Stop(ctx, name)
}

func (m *Monitor) RestartContainer(ctx context.Context, hostID string) error {
	name, err := m.container(hostID)
	if err != nil {
		return err
	}
	return m.docker.Restart(ctx, name)
}

func (m *Monitor) ContainerLogs(ctx context.Context, hostID string, tail int) (string, error) {
	name, err := m.container(hostID)
	if err != nil {
		return "", err
	}
	return m.docker.Logs(ctx, name, tail)
}
