package collector

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Remote command set. Every command is a plain POSIX pipeline so the
// parsing stays trivial on this side: numeric commands emit a single
// token, structured ones emit a one-line JSON object via awk.
const (
	cmdCPUUsage = `top -bn1 | grep "Cpu(s)" | awk '{print $2}' | cut -d'%' -f1`
	cmdLoadAvg  = `uptime | awk -F'load average:' '{print $2}'`
	cmdMemory   = `free -m | awk 'NR==2{printf "{\"total\":%s,\"used\":%s,\"free\":%s,\"available\":%s}", $2,$3,$4,$7}'`
	cmdDisk     = `df -h / | awk 'NR==2{printf "{\"total\":\"%s\",\"used\":\"%s\",\"available\":\"%s\",\"usedPercent\":\"%s\"}", $2,$3,$4,$5}'`
	cmdNetwork  = `cat /proc/net/dev | grep -E "eth0|ens|enp" | head -1 | awk '{printf "{\"rx\":%s,\"tx\":%s}", $2,$10}'`
	cmdUptime   = `uptime -p`
	cmdProcs    = `ps aux --sort=-%cpu | head -6 | tail -5 | awk '{printf "%s|%s|%s|%s\n", $2,$3,$4,$11}'`
)

// Parsers never fail: unparseable output yields the documented zero
// default for that sub-metric so one broken pipeline does not poison
// the rest of the snapshot.

func parseCPUUsage(out string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseLoadAvg(out string) (load1, load5, load15 float64) {
	parts := strings.Split(strings.TrimSpace(out), ",")
	if len(parts) != 3 {
		return 0, 0, 0
	}
	load1, _ = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	load5, _ = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	load15, _ = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	return load1, load5, load15
}

func parseMemory(out string) MemoryStats {
	var raw struct {
		Total     int64 `json:"total"`
		Used      int64 `json:"used"`
		Free      int64 `json:"free"`
		Available int64 `json:"available"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &raw); err != nil {
		return MemoryStats{}
	}
	m := MemoryStats{
		Total:     raw.Total,
		Used:      raw.Used,
		Free:      raw.Free,
		Available: raw.Available,
	}
	if m.Total > 0 {
		m.UsedPercent = round2(float64(m.Used) / float64(m.Total) * 100)
	}
	return m
}

func parseDisk(out string) DiskStats {
	var raw struct {
		Total       string `json:"total"`
		Used        string `json:"used"`
		Available   string `json:"available"`
		UsedPercent string `json:"usedPercent"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &raw); err != nil {
		return DiskStats{Total: "0G", Used: "0G", Available: "0G"}
	}
	pct, _ := strconv.ParseFloat(strings.TrimSuffix(raw.UsedPercent, "%"), 64)
	return DiskStats{
		Total:       raw.Total,
		Used:        raw.Used,
		Available:   raw.Available,
		UsedPercent: pct,
	}
}

func parseNetwork(out string) NetworkStats {
	var raw struct {
		Rx int64 `json:"rx"`
		Tx int64 `json:"tx"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &raw); err != nil {
		return NetworkStats{}
	}
	return NetworkStats{RxBytes: raw.Rx, TxBytes: raw.Tx}
}

func parseUptime(out string) string {
	s := strings.TrimSpace(out)
	if s == "" {
		return "Unknown"
	}
	return s
}

func parseProcesses(out string) []Process {
	procs := make([]Process, 0, 5)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Split(strings.TrimSpace(line), "|")
		if len(fields) != 4 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		cpu, _ := strconv.ParseFloat(fields[1], 64)
		mem, _ := strconv.ParseFloat(fields[2], 64)
		procs = append(procs, Process{
			PID:    pid,
			CPU:    cpu,
			Memory: mem,
			Name:   fields[3],
		})
	}
	return procs
}
