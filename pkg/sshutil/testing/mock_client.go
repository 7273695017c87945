// Package testing provides a mock SSH client for testing
// SSH-dependent code without real connections.
package testing

import (
	"errors"
	"sync"

	"fleetdash/pkg/sshutil"
)

// CommandResponse defines a canned response for a specific command.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Err      error
}

// MockClient simulates an SSH connection for testing. Commands are
// matched exactly against registered responses; unregistered commands
// return the Default response.
type MockClient struct {
	mu        sync.Mutex
	host      string
	closed    bool
	responses map[string]CommandResponse
	executed  []string

	// Default is returned for commands with no registered response.
	Default CommandResponse
}

// NewMockClient creates a new mock SSH client.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:      host,
		responses: make(map[string]CommandResponse),
	}
}

// Respond registers a canned response for an exact command string.
func (m *MockClient) Respond(cmd string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cmd] = resp
}

// RespondOutput registers a successful response with the given stdout.
func (m *MockClient) RespondOutput(cmd, stdout string) {
	m.Respond(cmd, CommandResponse{Stdout: []byte(stdout)})
}

// Exec returns the registered response for cmd, or Default.
func (m *MockClient) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, -1, errors.New("connection closed")
	}

	m.executed = append(m.executed, cmd)

	if resp, ok := m.responses[cmd]; ok {
		return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Err
	}
	return m.Default.Stdout, m.Default.Stderr, m.Default.ExitCode, m.Default.Err
}

// Close marks the connection closed; subsequent Exec calls fail.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Executed returns the commands run against this client, in order.
func (m *MockClient) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.executed))
	copy(out, m.executed)
	return out
}

// GetHost returns the host this mock was created for.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns a fake host:port address.
func (m *MockClient) GetAddress() string {
	return m.host + ":22"
}

var _ sshutil.SSHClient = (*MockClient)(nil)
