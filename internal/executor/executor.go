// Package executor implements one-shot remote command execution over
// SSH. Every call opens a fresh connection and session, runs exactly
// one command, and tears the connection down on every exit path. There
// is no pooling or reuse: invocations are independent and isolated,
// traded for the cost of a handshake per command.
package executor

import (
	"context"
	"strings"
	"time"

	"fleetdash/internal/config"
	"fleetdash/internal/errors"
	"fleetdash/internal/logger"
	"fleetdash/pkg/sshutil"
)

// Result is the outcome of a command that actually ran on the remote
// host. Transport failures (host unreachable, auth rejected) are
// reported as errors instead, so callers can distinguish "command ran
// and failed" from "command never ran".
type Result struct {
	Success   bool      `json:"success"`
	ExitCode  int       `json:"exitCode"`
	Stdout    string    `json:"output"`
	Stderr    string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// StepResult pairs a script step with its outcome.
type StepResult struct {
	Command string  `json:"command"`
	Result  *Result `json:"result"`
}

// Executor runs commands on remote hosts.
type Executor struct {
	dial    sshutil.Dialer
	creds   sshutil.Credentials
	timeout time.Duration
	log     logger.Logger
}

// New creates an executor using the fleet SSH credentials from cfg.
func New(cfg *config.Config, log logger.Logger) *Executor {
	if log == nil {
		log = logger.Noop()
	}
	return &Executor{
		dial: sshutil.DialAs,
		creds: sshutil.Credentials{
			User:     cfg.SSH.User,
			Password: cfg.SSH.Password,
			KeyFile:  cfg.SSH.KeyFile,
			Port:     cfg.SSH.Port,
			Timeout:  cfg.SSH.Timeout,
		},
		timeout: cfg.Monitoring.CommandTimeout,
		log:     log,
	}
}

// SetDialer replaces the connection factory. Used by tests to
// substitute a mock transport.
func (e *Executor) SetDialer(dial sshutil.Dialer) {
	e.dial = dial
}

// Execute runs a single command on the host and captures its output.
// The context bounds the whole call including the connection handshake;
// if e was built with a CommandTimeout it is applied when the caller's
// context carries no deadline.
func (e *Executor) Execute(ctx context.Context, host config.Host, command string) (*Result, error) {
	if _, ok := ctx.Deadline(); !ok && e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	client, err := e.dial(host.Address, e.creds)
	if err != nil {
		// Transport failure: the command never ran.
		return nil, err
	}
	defer client.Close()

	type outcome struct {
		stdout, stderr []byte
		exitCode       int
		err            error
	}
	ch := make(chan outcome, 1)

	go func() {
		stdout, stderr, code, err := client.Exec(command)
		ch <- outcome{stdout, stderr, code, err}
	}()

	select {
	case <-ctx.Done():
		// Abandon the session; Close unblocks the Exec goroutine.
		client.Close()
		return nil, errors.WrapWithCode(ctx.Err(), errors.ErrSSH,
			"Command timed out on '"+host.ID+"'",
			"The host may be overloaded. Check it manually: ssh "+host.Address)
	case o := <-ch:
		if o.err != nil {
			return nil, o.err
		}
		e.log.Debug("executed on %s: %s (exit %d)", host.ID, command, o.exitCode)
		return &Result{
			Success:   o.exitCode == 0,
			ExitCode:  o.exitCode,
			Stdout:    strings.TrimSpace(string(o.stdout)),
			Stderr:    strings.TrimSpace(string(o.stderr)),
			Timestamp: time.Now(),
		}, nil
	}
}

// ExecuteScript runs commands sequentially on the host, stopping after
// the first command that fails (non-zero exit) or a transport failure.
// Results for completed steps are returned in both cases.
func (e *Executor) ExecuteScript(ctx context.Context, host config.Host, commands []string) ([]StepResult, error) {
	results := make([]StepResult, 0, len(commands))

	for _, command := range commands {
		result, err := e.Execute(ctx, host, command)
		if err != nil {
			return results, err
		}

		results = append(results, StepResult{Command: command, Result: result})

		if !result.Success {
			break
		}
	}

	return results, nil
}
