package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdash/internal/config"
	"fleetdash/internal/errors"
	"fleetdash/internal/logger"
	"fleetdash/pkg/sshutil"
	sshtesting "fleetdash/pkg/sshutil/testing"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Hosts = []config.Host{
		{ID: "web1", Name: "Web Server 01", Address: "10.0.0.1"},
	}
	return cfg
}

// dialerFor returns a Dialer handing out the given mock, plus a pointer
// so the test can inspect it afterwards.
func dialerFor(mock *sshtesting.MockClient) sshutil.Dialer {
	return func(address string, creds sshutil.Credentials) (sshutil.SSHClient, error) {
		return mock, nil
	}
}

func failingDialer(err error) sshutil.Dialer {
	return func(address string, creds sshutil.Credentials) (sshutil.SSHClient, error) {
		return nil, err
	}
}

func TestExecuteSuccess(t *testing.T) {
	cfg := testConfig()
	mock := sshtesting.NewMockClient("10.0.0.1")
	mock.RespondOutput("hostname", "web1\n")

	e := New(cfg, logger.Noop())
	e.SetDialer(dialerFor(mock))

	result, err := e.Execute(context.Background(), cfg.Hosts[0], "hostname")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "web1", result.Stdout)
	assert.Empty(t, result.Stderr)
	assert.False(t, result.Timestamp.IsZero())
	assert.True(t, mock.Closed(), "connection must be torn down after the call")
}

func TestExecuteCommandFailure(t *testing.T) {
	cfg := testConfig()
	mock := sshtesting.NewMockClient("10.0.0.1")
	mock.Respond("cat /missing", sshtesting.CommandResponse{
		Stderr:   []byte("cat: /missing: No such file or directory\n"),
		ExitCode: 1,
	})

	e := New(cfg, logger.Noop())
	e.SetDialer(dialerFor(mock))

	result, err := e.Execute(context.Background(), cfg.Hosts[0], "cat /missing")
	require.NoError(t, err, "a failed command is not a transport error")

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Stderr, "No such file")
	assert.True(t, mock.Closed())
}

func TestExecuteTransportFailure(t *testing.T) {
	cfg := testConfig()
	dialErr := errors.New(errors.ErrSSH, "Can't reach '10.0.0.1'", "")

	e := New(cfg, logger.Noop())
	e.SetDialer(failingDialer(dialErr))

	result, err := e.Execute(context.Background(), cfg.Hosts[0], "hostname")
	require.Error(t, err)
	assert.Nil(t, result, "no Result when the command never ran")
	assert.True(t, errors.IsCode(err, errors.ErrSSH))
}

func TestExecuteTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Monitoring.CommandTimeout = 10 * time.Millisecond

	// A dialer whose client blocks forever on Exec.
	blocking := &blockingClient{unblock: make(chan struct{})}
	defer close(blocking.unblock)

	e := New(cfg, logger.Noop())
	e.SetDialer(func(address string, creds sshutil.Credentials) (sshutil.SSHClient, error) {
		return blocking, nil
	})

	_, err := e.Execute(context.Background(), cfg.Hosts[0], "sleep 1000")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSSH))
}

func TestExecuteScriptStopsAtFirstFailure(t *testing.T) {
	cfg := testConfig()
	mock := sshtesting.NewMockClient("10.0.0.1")
	mock.RespondOutput("step1", "ok")
	mock.Respond("step2", sshtesting.CommandResponse{ExitCode: 2, Stderr: []byte("boom")})
	mock.RespondOutput("step3", "never reached")

	e := New(cfg, logger.Noop())
	e.SetDialer(dialerFor(mock))

	results, err := e.ExecuteScript(context.Background(), cfg.Hosts[0], []string{"step1", "step2", "step3"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.True(t, results[0].Result.Success)
	assert.False(t, results[1].Result.Success)
	assert.NotContains(t, mock.Executed(), "step3")
}

func TestExecuteScriptTransportFailureMidway(t *testing.T) {
	cfg := testConfig()

	calls := 0
	mock := sshtesting.NewMockClient("10.0.0.1")
	mock.RespondOutput("step1", "ok")

	e := New(cfg, logger.Noop())
	e.SetDialer(func(address string, creds sshutil.Credentials) (sshutil.SSHClient, error) {
		calls++
		if calls > 1 {
			return nil, errors.New(errors.ErrSSH, "host went away", "")
		}
		return mock, nil
	})

	results, err := e.ExecuteScript(context.Background(), cfg.Hosts[0], []string{"step1", "step2"})
	require.Error(t, err)
	assert.Len(t, results, 1, "completed steps are still reported")
}

// blockingClient blocks Exec until unblock is closed, for timeout tests.
type blockingClient struct {
	unblock chan struct{}
}

func (b *blockingClient) Exec(cmd string) ([]byte, []byte, int, error) {
	<-b.unblock
	return nil, nil, -1, context.Canceled
}

func (b *blockingClient) Close() error      { return nil }
func (b *blockingClient) GetHost() string   { return "blocking" }
func (b *blockingClient) GetAddress() string { return "blocking:22" }
