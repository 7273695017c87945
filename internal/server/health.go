package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// health reports the dashboard's own vitals: process uptime, load and
// memory pressure on the machine running it, and the number of
// connected WebSocket clients. Sampling errors degrade the payload
// rather than failing the endpoint.
func (s *Server) health(c *gin.Context) {
	payload := gin.H{
		"success":     true,
		"status":      "healthy",
		"uptime":      time.Since(s.started).Seconds(),
		"timestamp":   time.Now(),
		"connections": s.hub.ClientCount(),
	}

	if avg, err := load.Avg(); err == nil {
		payload["load"] = gin.H{"load1": avg.Load1, "load5": avg.Load5, "load15": avg.Load15}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		payload["memory"] = gin.H{"total": vm.Total, "used": vm.Used, "usedPercent": vm.UsedPercent}
	}
	if counts, err := cpu.Counts(true); err == nil {
		payload["cpus"] = counts
	}

	c.JSON(http.StatusOK, payload)
}
