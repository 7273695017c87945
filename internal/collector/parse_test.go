package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCPUUsage(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want float64
	}{
		{"plain value", "12.5\n", 12.5},
		{"integer", "3", 3},
		{"garbage", "Cpu(s): what", 0},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCPUUsage(tt.out))
		})
	}
}

func TestParseLoadAvg(t *testing.T) {
	l1, l5, l15 := parseLoadAvg(" 0.52, 0.58, 0.59\n")
	assert.Equal(t, 0.52, l1)
	assert.Equal(t, 0.58, l5)
	assert.Equal(t, 0.59, l15)

	l1, l5, l15 = parseLoadAvg("not a load average")
	assert.Zero(t, l1)
	assert.Zero(t, l5)
	assert.Zero(t, l15)
}

func TestParseMemory(t *testing.T) {
	m := parseMemory(`{"total":7976,"used":3988,"free":1200,"available":3500}`)
	assert.Equal(t, int64(7976), m.Total)
	assert.Equal(t, int64(3988), m.Used)
	assert.Equal(t, int64(1200), m.Free)
	assert.Equal(t, int64(3500), m.Available)
	assert.Equal(t, 50.0, m.UsedPercent)

	assert.Equal(t, MemoryStats{}, parseMemory("free: command not found"))
	assert.Equal(t, MemoryStats{}, parseMemory(""))
}

func TestParseDisk(t *testing.T) {
	d := parseDisk(`{"total":"40G","used":"33G","available":"7G","usedPercent":"83%"}`)
	assert.Equal(t, "40G", d.Total)
	assert.Equal(t, "33G", d.Used)
	assert.Equal(t, "7G", d.Available)
	assert.Equal(t, 83.0, d.UsedPercent)

	d = parseDisk("df: /: No such file or directory")
	assert.Equal(t, DiskStats{Total: "0G", Used: "0G", Available: "0G"}, d)
}

func TestParseNetwork(t *testing.T) {
	n := parseNetwork(`{"rx":123456789,"tx":987654}`)
	assert.Equal(t, int64(123456789), n.RxBytes)
	assert.Equal(t, int64(987654), n.TxBytes)

	assert.Equal(t, NetworkStats{}, parseNetwork(""))
}

func TestParseUptime(t *testing.T) {
	assert.Equal(t, "up 3 days, 4 hours", parseUptime("up 3 days, 4 hours\n"))
	assert.Equal(t, "Unknown", parseUptime("  \n"))
}

func TestParseProcesses(t *testing.T) {
	out := "1234|25.3|4.1|nginx\n5678|12.0|2.2|postgres\nbad line\n9|0.5|0.1|sshd"
	procs := parseProcesses(out)
	require.Len(t, procs, 3)
	assert.Equal(t, Process{PID: 1234, CPU: 25.3, Memory: 4.1, Name: "nginx"}, procs[0])
	assert.Equal(t, Process{PID: 5678, CPU: 12.0, Memory: 2.2, Name: "postgres"}, procs[1])
	assert.Equal(t, Process{PID: 9, CPU: 0.5, Memory: 0.1, Name: "sshd"}, procs[2])

	assert.Empty(t, parseProcesses(""))
}
