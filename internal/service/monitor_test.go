package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdash/internal/alerts"
	"fleetdash/internal/collector"
	"fleetdash/internal/config"
	"fleetdash/internal/errors"
	"fleetdash/internal/executor"
	"fleetdash/internal/hub"
	"fleetdash/internal/probe"
)

type sentEvent struct {
	event  hub.Event
	hostID string // empty for fleet-wide broadcasts
	scoped bool
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (r *recordingBroadcaster) Broadcast(ev hub.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentEvent{event: ev})
}

func (r *recordingBroadcaster) SendToSubscribers(hostID string, ev hub.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentEvent{event: ev, hostID: hostID, scoped: true})
}

func (r *recordingBroadcaster) byType(eventType string) []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentEvent
	for _, s := range r.sent {
		if s.event.Type == eventType {
			out = append(out, s)
		}
	}
	return out
}

type stubRunner struct {
	result *executor.Result
	err    error
	steps  []executor.StepResult
	calls  []string
}

func (s *stubRunner) Execute(_ context.Context, _ config.Host, command string) (*executor.Result, error) {
	s.calls = append(s.calls, command)
	return s.result, s.err
}

func (s *stubRunner) ExecuteScript(_ context.Context, _ config.Host, commands []string) ([]executor.StepResult, error) {
	return s.steps, s.err
}

func newTestMonitor(t *testing.T, runner *stubRunner) (*Monitor, *recordingBroadcaster) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Hosts = []config.Host{
		{ID: "web-1", Name: "Web One", Address: "10.0.0.1", Container: "web"},
		{ID: "db-1", Name: "DB One", Address: "10.0.0.2"},
	}
	ts := alerts.NewThresholdStore(config.DefaultThresholds())
	coll := collector.New(cfg, runner, nil, ts.Current, nil)
	bc := &recordingBroadcaster{}
	return NewMonitor(Options{
		Config:      cfg,
		Runner:      runner,
		Collector:   coll,
		Probes:      probe.NewService(cfg, nil),
		Thresholds:  ts,
		Broadcaster: bc,
	}), bc
}

func TestExecuteCommandRecordsAudit(t *testing.T) {
	runner := &stubRunner{result: &executor.Result{Success: true, ExitCode: 0, Stdout: "ok"}}
	m, _ := newTestMonitor(t, runner)

	entry, err := m.ExecuteCommand(context.Background(), "web-1", "uptime")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "web-1", entry.HostID)
	assert.Equal(t, "Web One", entry.HostName)
	assert.Equal(t, "uptime", entry.Command)

	history := m.CommandHistory(10, "")
	require.Len(t, history, 1)
	assert.Equal(t, entry.ID, history[0].ID)
}

func TestExecuteCommandValidation(t *testing.T) {
	m, _ := newTestMonitor(t, &stubRunner{})

	_, err := m.ExecuteCommand(context.Background(), "web-1", "   ")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	_, err = m.ExecuteCommand(context.Background(), "ghost", "uptime")
	assert.ErrorIs(t, err, ErrHostNotFound)
}

func TestExecuteCommandTransportErrorNotRecorded(t *testing.T) {
	runner := &stubRunner{err: errors.New(errors.ErrSSH, "connection refused", "")}
	m, _ := newTestMonitor(t, runner)

	_, err := m.ExecuteCommand(context.Background(), "web-1", "uptime")
	require.Error(t, err)
	assert.Empty(t, m.CommandHistory(10, ""))
}

func TestExecuteScript(t *testing.T) {
	runner := &stubRunner{steps: []executor.StepResult{
		{Command: "step1", Result: &executor.Result{Success: true}},
		{Command: "step2", Result: &executor.Result{Success: false, ExitCode: 1}},
	}}
	m, _ := newTestMonitor(t, runner)

	steps, err := m.ExecuteScript(context.Background(), "web-1", []string{"step1", "step2", "step3"})
	require.NoError(t, err)
	assert.Len(t, steps, 2)

	_, err = m.ExecuteScript(context.Background(), "web-1", nil)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
}

func TestBatchBroadcastsStatsAndAlerts(t *testing.T) {
	m, bc := newTestMonitor(t, &stubRunner{})

	hot := &collector.Snapshot{
		HostID:  "web-1",
		Success: true,
		CPU:     collector.CPUStats{Usage: 95},
		Health:  70,
	}
	m.collector.Store().Update(hot)

	m.onBatch([]collector.Outcome{
		{HostID: "web-1", Success: true, Snapshot: hot},
		{HostID: "db-1", Error: "connection refused"},
	})

	stats := bc.byType(hub.EventStatsUpdate)
	require.Len(t, stats, 1, "failed outcomes produce no events")
	assert.True(t, stats[0].scoped, "stats updates go to subscribers of the host")
	assert.Equal(t, "web-1", stats[0].hostID)

	alertEvents := bc.byType(hub.EventAlert)
	require.Len(t, alertEvents, 1)
	assert.True(t, alertEvents[0].scoped)
	assert.Equal(t, "web-1", alertEvents[0].hostID)
	alert, ok := alertEvents[0].event.Data.(alerts.Alert)
	require.True(t, ok)
	assert.Equal(t, "cpu", alert.Category)
	assert.Equal(t, alerts.LevelCritical, alert.Level)
}

func TestProbeStatusChangeOnFlipOnly(t *testing.T) {
	m, bc := newTestMonitor(t, &stubRunner{})

	lat := 5.0
	m.onProbe(probe.Result{HostID: "web-1", Alive: true, LatencyMs: &lat})
	assert.Empty(t, bc.byType(hub.EventStatusChange), "baseline observation is silent")

	m.onProbe(probe.Result{HostID: "web-1", Alive: true, LatencyMs: &lat})
	assert.Empty(t, bc.byType(hub.EventStatusChange))

	m.onProbe(probe.Result{HostID: "web-1", Alive: false})
	changes := bc.byType(hub.EventStatusChange)
	require.Len(t, changes, 1)
	assert.False(t, changes[0].scoped, "status flips go to every client")
	data := changes[0].event.Data.(map[string]interface{})
	assert.Equal(t, "offline", data["status"])

	m.onProbe(probe.Result{HostID: "web-1", Alive: true, LatencyMs: &lat})
	changes = bc.byType(hub.EventStatusChange)
	require.Len(t, changes, 2)
	assert.Equal(t, "online", changes[1].event.Data.(map[string]interface{})["status"])

	pingEvents := bc.byType(hub.EventPingUpdate)
	assert.Len(t, pingEvents, 4, "every probe result is broadcast")
	assert.True(t, pingEvents[0].scoped)
	assert.Equal(t, "web-1", pingEvents[0].hostID)
}

func TestListHostsAndOverviewFromCaches(t *testing.T) {
	m, _ := newTestMonitor(t, &stubRunner{})

	now := time.Now()
	m.collector.Store().Update(&collector.Snapshot{
		HostID:    "web-1",
		Success:   true,
		Timestamp: now,
		CPU:       collector.CPUStats{Usage: 40},
		Memory:    collector.MemoryStats{UsedPercent: 80},
		Health:    85,
	})
	lat := 12.5
	m.probes.Record(probe.Result{HostID: "web-1", Alive: true, LatencyMs: &lat})

	hosts := m.ListHosts(context.Background())
	require.Len(t, hosts, 2)
	web := hosts[0]
	assert.Equal(t, "web-1", web.ID)
	assert.Equal(t, 85, web.Health)
	assert.True(t, web.Alive)
	require.NotNil(t, web.Ping)
	assert.Equal(t, 12.5, *web.Ping)
	assert.Equal(t, 1, web.Alerts, "memory warning")

	db := hosts[1]
	assert.Zero(t, db.Health)
	assert.False(t, db.Alive)
	assert.Nil(t, db.LastUpdate)

	rows := m.Overview()
	require.Len(t, rows, 2)
	assert.Equal(t, 40.0, rows[0].CPU)
	assert.Equal(t, 80.0, rows[0].Memory)
	assert.Equal(t, 1, rows[0].Alerts)
	assert.Equal(t, 0, rows[0].Critical)
}

func TestHostDetailNotFound(t *testing.T) {
	m, _ := newTestMonitor(t, &stubRunner{})
	_, err := m.HostDetail(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrHostNotFound)
}

func TestThresholdRoundTrip(t *testing.T) {
	m, _ := newTestMonitor(t, &stubRunner{})

	th, err := m.SetThreshold("cpu", "warning", 60)
	require.NoError(t, err)
	assert.Equal(t, 60.0, th.CPU.Warning)
	assert.Equal(t, 60.0, m.Thresholds().CPU.Warning)

	_, err = m.SetThreshold("gpu", "warning", 60)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
}

func TestContainerOpsRequireConfiguration(t *testing.T) {
	m, _ := newTestMonitor(t, &stubRunner{})

	// db-1 has no container configured.
	err := m.StartContainer(context.Background(), "db-1")
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	// web-1 has one, but no docker manager is attached.
	err = m.StartContainer(context.Background(), "web-1")
	assert.True(t, errors.IsCode(err, errors.ErrDocker))
}
