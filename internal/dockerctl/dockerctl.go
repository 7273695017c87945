// Package dockerctl wraps the Docker SDK for the container actions the
// dashboard exposes. Hosts that declare a container name get
// start/stop/restart/logs controls; everything is keyed by container
// name, matching how operators configure the fleet.
package dockerctl

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"fleetdash/internal/errors"
	"fleetdash/internal/logger"
)

// StatusNotFound is reported when a configured container does not
// exist on the daemon.
const StatusNotFound = "not_found"

// Manager talks to the local Docker daemon.
type Manager struct {
	cli *client.Client
	log logger.Logger
}

// New connects using the environment (DOCKER_HOST or the default unix
// socket) with API version negotiation.
func New(log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.Noop()
	}
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrDocker,
			"failed to create docker client",
			"check DOCKER_HOST or that /var/run/docker.sock is accessible")
	}
	return &Manager{cli: cli, log: log}, nil
}

// Ping verifies the daemon is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	if _, err := m.cli.Ping(ctx); err != nil {
		return errors.WrapWithCode(err, errors.ErrDocker,
			"docker daemon unreachable",
			"check that the docker daemon is running")
	}
	return nil
}

// Status describes one container's lifecycle state.
type Status struct {
	Status     string `json:"status"`
	Running    bool   `json:"running"`
	StartedAt  string `json:"startedAt,omitempty"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

// Container is one row of the container listing.
type Container struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Image   string `json:"image"`
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

func (m *Manager) Start(ctx context.Context, name string) error {
	if err := m.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return errors.WrapWithCode(err, errors.ErrDocker,
			fmt.Sprintf("failed to start container %s", name), "")
	}
	m.log.Info("container %s started", name)
	return nil
}

func (m *Manager) Stop(ctx context.Context, name string) error {
	if err := m.cli.ContainerStop(ctx, name, container.StopOptions{}); err != nil {
		return errors.WrapWithCode(err, errors.ErrDocker,
			fmt.Sprintf("failed to stop container %s", name), "")
	}
	m.log.Info("container %s stopped", name)
	return nil
}

func (m *Manager) Restart(ctx context.Context, name string) error {
	if err := m.cli.ContainerRestart(ctx, name, container.StopOptions{}); err != nil {
		return errors.WrapWithCode(err, errors.ErrDocker,
			fmt.Sprintf("failed to restart container %s", name), "")
	}
	m.log.Info("container %s restarted", name)
	return nil
}

// Status inspects a container. A missing container is not an error:
// the dashboard renders it as not_found.
func (m *Manager) Status(ctx context.Context, name string) Status {
	info, err := m.cli.ContainerInspect(ctx, name)
	if err != nil {
		return Status{Status: StatusNotFound}
	}
	return Status{
		Status:     info.State.Status,
		Running:    info.State.Running,
		StartedAt:  info.State.StartedAt,
		FinishedAt: info.State.FinishedAt,
	}
}

// Logs returns the trailing tail lines of a container's combined
// stdout and stderr.
func (m *Manager) Logs(ctx context.Context, name string, tail int) (string, error) {
	if tail <= 0 {
		tail = 100
	}
	reader, err := m.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
		Timestamps: true,
	})
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrDocker,
			fmt.Sprintf("failed to read logs for container %s", name), "")
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, reader); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrDocker,
			fmt.Sprintf("failed to demultiplex logs for container %s", name), "")
	}
	return buf.String(), nil
}

// List returns every container on the daemon, running or not.
func (m *Manager) List(ctx context.Context) ([]Container, error) {
	list, err := m.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrDocker,
			"failed to list containers", "")
	}
	out := make([]Container, 0, len(list))
	for _, c := range list {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		id := c.ID
		if len(id) > 12 {
			id = id[:12]
		}
		out = append(out, Container{
			ID:      id,
			Name:    name,
			Image:   c.Image,
			Status:  c.State,
			Running: c.State == "running",
		})
	}
	return out, nil
}
