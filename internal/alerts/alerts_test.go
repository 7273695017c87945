package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdash/internal/collector"
	"fleetdash/internal/config"
	"fleetdash/internal/errors"
)

func snapshot(cpu, mem, disk float64) *collector.Snapshot {
	return &collector.Snapshot{
		HostID:  "web-1",
		Success: true,
		CPU:     collector.CPUStats{Usage: cpu},
		Memory:  collector.MemoryStats{UsedPercent: mem},
		Disk:    collector.DiskStats{UsedPercent: disk},
	}
}

func TestEvaluateLevels(t *testing.T) {
	th := config.DefaultThresholds()

	tests := []struct {
		name string
		snap *collector.Snapshot
		want []struct{ category, level string }
	}{
		{
			name: "all nominal",
			snap: snapshot(10, 20, 30),
			want: nil,
		},
		{
			name: "cpu warning",
			snap: snapshot(75, 20, 30),
			want: []struct{ category, level string }{{"cpu", LevelWarning}},
		},
		{
			name: "cpu critical supersedes warning",
			snap: snapshot(95, 20, 30),
			want: []struct{ category, level string }{{"cpu", LevelCritical}},
		},
		{
			name: "fixed category order",
			snap: snapshot(95, 80, 96),
			want: []struct{ category, level string }{
				{"cpu", LevelCritical},
				{"memory", LevelWarning},
				{"disk", LevelCritical},
			},
		},
		{
			name: "exactly at warning does not trip",
			snap: snapshot(70, 75, 80),
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := Evaluate(tt.snap, th)
			require.Len(t, alerts, len(tt.want))
			for i, w := range tt.want {
				assert.Equal(t, w.category, alerts[i].Category)
				assert.Equal(t, w.level, alerts[i].Level)
				assert.Equal(t, "web-1", alerts[i].HostID)
				assert.NotEmpty(t, alerts[i].Message)
			}
		})
	}
}

func TestEvaluateSkipsFailedSnapshots(t *testing.T) {
	th := config.DefaultThresholds()
	assert.Nil(t, Evaluate(nil, th))
	assert.Nil(t, Evaluate(&collector.Snapshot{Success: false, CPU: collector.CPUStats{Usage: 99}}, th))
}

func TestEvaluateIsIdempotent(t *testing.T) {
	th := config.DefaultThresholds()
	snap := snapshot(95, 80, 30)

	first := Evaluate(snap, th)
	second := Evaluate(snap, th)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Category, second[i].Category)
		assert.Equal(t, first[i].Level, second[i].Level)
		assert.Equal(t, first[i].Value, second[i].Value)
	}
}

func TestThresholdStoreSet(t *testing.T) {
	s := NewThresholdStore(config.DefaultThresholds())

	require.NoError(t, s.Set("cpu", "warning", 50))
	assert.Equal(t, 50.0, s.Current().CPU.Warning)
	assert.Equal(t, 90.0, s.Current().CPU.Critical, "other bounds untouched")

	require.NoError(t, s.Set("ping", "critical", 1000))
	assert.Equal(t, 1000.0, s.Current().Ping.Critical)
}

func TestThresholdStoreRejectsBadInput(t *testing.T) {
	s := NewThresholdStore(config.DefaultThresholds())

	err := s.Set("gpu", "warning", 50)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	err = s.Set("cpu", "severe", 50)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	err = s.Set("cpu", "warning", -1)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	assert.Equal(t, config.DefaultThresholds(), s.Current(), "rejected updates leave state untouched")
}

func TestThresholdUpdateChangesEvaluation(t *testing.T) {
	store := collector.NewStore(0)
	store.Update(snapshot(60, 20, 30))
	ts := NewThresholdStore(config.DefaultThresholds())
	ev := NewEvaluator(store, ts)

	assert.Empty(t, ev.ForHost("web-1"))

	require.NoError(t, ts.Set("cpu", "warning", 50))
	alerts := ev.ForHost("web-1")
	require.Len(t, alerts, 1)
	assert.Equal(t, LevelWarning, alerts[0].Level)

	require.NoError(t, ts.Set("cpu", "critical", 55))
	alerts = ev.ForHost("web-1")
	require.Len(t, alerts, 1)
	assert.Equal(t, LevelCritical, alerts[0].Level)
}
