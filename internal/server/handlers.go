package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fleetdash/internal/commands"
	"fleetdash/internal/errors"
	"fleetdash/internal/service"
)

// fail writes the error envelope with the status its code implies.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case stderrors.Is(err, service.ErrHostNotFound):
		status = http.StatusNotFound
	case errors.IsCode(err, errors.ErrValidation):
		status = http.StatusBadRequest
	case errors.IsCode(err, errors.ErrDocker):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func (s *Server) listServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"servers": s.monitor.ListHosts(c.Request.Context()),
	})
}

func (s *Server) serverDetail(c *gin.Context) {
	detail, err := s.monitor.HostDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "server": detail})
}

func (s *Server) startContainer(c *gin.Context) {
	s.containerAction(c, s.monitor.StartContainer, "started")
}

func (s *Server) stopContainer(c *gin.Context) {
	s.containerAction(c, s.monitor.StopContainer, "stopped")
}

func (s *Server) restartContainer(c *gin.Context) {
	s.containerAction(c, s.monitor.RestartContainer, "restarted")
}

func (s *Server) containerAction(c *gin.Context, action func(ctx context.Context, hostID string) error, verb string) {
	if err := action(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "container " + verb})
}

func (s *Server) serverStats(c *gin.Context) {
	stats, err := s.monitor.LatestStats(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (s *Server) serverStatsHistory(c *gin.Context) {
	history, err := s.monitor.StatsHistory(c.Param("id"), intQuery(c, "limit", 20))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": history})
}

func (s *Server) containerLogs(c *gin.Context) {
	logs, err := s.monitor.ContainerLogs(c.Request.Context(), c.Param("id"), intQuery(c, "tail", 100))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "logs": logs})
}

type executeRequest struct {
	ServerID string `json:"serverId"`
	Command  string `json:"command"`
}

func (s *Server) executeCommand(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "serverId and command are required"})
		return
	}
	entry, err := s.monitor.ExecuteCommand(c.Request.Context(), req.ServerID, req.Command)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": entry.Result, "execution": entry})
}

type scriptRequest struct {
	ServerID string   `json:"serverId"`
	Commands []string `json:"commands"`
}

func (s *Server) executeScript(c *gin.Context) {
	var req scriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "serverId and commands array are required"})
		return
	}
	results, err := s.monitor.ExecuteScript(c.Request.Context(), req.ServerID, req.Commands)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
}

func (s *Server) commandHistory(c *gin.Context) {
	history := s.monitor.CommandHistory(intQuery(c, "limit", 20), c.Query("serverId"))
	c.JSON(http.StatusOK, gin.H{"success": true, "history": history})
}

func (s *Server) commandTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "templates": commands.Templates()})
}

func (s *Server) pingReport(c *gin.Context) {
	report, err := s.monitor.PingReport(c.Param("id"), intQuery(c, "limit", 20))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"serverId": report.HostID,
		"history":  report.History,
		"stats":    report.Stats,
	})
}

func (s *Server) allAlerts(c *gin.Context) {
	all := s.monitor.Alerts()
	c.JSON(http.StatusOK, gin.H{"success": true, "alerts": all, "count": len(all)})
}

func (s *Server) hostAlerts(c *gin.Context) {
	report, err := s.monitor.AlertsFor(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"serverId":   report.HostID,
		"serverName": report.HostName,
		"alerts":     report.Alerts,
		"count":      report.Count,
	})
}

func (s *Server) getThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "thresholds": s.monitor.Thresholds()})
}

type thresholdRequest struct {
	Category string   `json:"category"`
	Type     string   `json:"type"`
	Value    *float64 `json:"value"`
}

func (s *Server) setThreshold(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Category == "" || req.Type == "" || req.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "category, type, and value are required"})
		return
	}
	th, err := s.monitor.SetThreshold(req.Category, req.Type, *req.Value)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "thresholds": th})
}

func (s *Server) overview(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "overview": s.monitor.Overview()})
}
