// Package sshutil wraps golang.org/x/crypto/ssh with the connection
// conventions fleetdash uses: one fresh connection per command, shared
// fleet credentials with ~/.ssh/config fallback, and an interface for
// mocking in tests.
package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"fleetdash/internal/errors"
)

// Credentials holds the authentication settings for a connection.
// Empty fields are resolved from ~/.ssh/config where possible.
type Credentials struct {
	User     string
	Password string
	KeyFile  string
	Port     int
	Timeout  time.Duration
}

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The original host used to connect
	Address string // The resolved address (host:port)
}

// StrictHostKeyChecking controls host key verification behavior.
// When true, host keys are verified against ~/.ssh/known_hosts.
// The default is false: monitored fleet hosts are provisioned and
// recycled frequently, so pinning keys causes more outages than it
// prevents. Operators who want verification can flip this at startup.
var StrictHostKeyChecking = false

// Dial establishes an SSH connection to the specified host.
// The host can be a hostname, an IP, a host:port pair, or an SSH
// config alias; settings absent from creds are resolved from
// ~/.ssh/config when available.
func Dial(host string, creds Credentials) (*Client, error) {
	settings := resolveSettings(host, creds)

	config, err := buildClientConfig(settings)
	if err != nil {
		return nil, err
	}

	timeout := creds.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	address := settings.address()
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err))
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
	}, nil
}

// DialAs adapts Dial to the Dialer interface.
func DialAs(address string, creds Credentials) (SSHClient, error) {
	return Dial(address, creds)
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the original host used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// settings holds fully resolved connection parameters.
type settings struct {
	hostname string
	port     string
	user     string
	password string
	keyFile  string
}

func (s *settings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSettings merges explicit credentials with ~/.ssh/config values
// and defaults. Explicit values always win.
func resolveSettings(host string, creds Credentials) *settings {
	s := &settings{
		hostname: host,
		port:     "22",
		user:     creds.User,
		password: creds.Password,
		keyFile:  creds.KeyFile,
	}

	if creds.Port > 0 {
		s.port = strconv.Itoa(creds.Port)
	}

	// host:port in the address overrides the configured port
	if h, p, err := net.SplitHostPort(host); err == nil {
		s.hostname = h
		s.port = p
	}

	cfgPath := filepath.Join(homeDir(), ".ssh", "config")
	f, err := os.Open(cfgPath)
	if err != nil {
		return applySettingsDefaults(s)
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return applySettingsDefaults(s)
	}

	if hostname, _ := cfg.Get(s.hostname, "HostName"); hostname != "" {
		s.hostname = hostname
	}
	if s.user == "" {
		if user, _ := cfg.Get(host, "User"); user != "" {
			s.user = user
		}
	}
	if creds.Port == 0 {
		if port, _ := cfg.Get(host, "Port"); port != "" {
			s.port = port
		}
	}
	if s.keyFile == "" {
		if identity, _ := cfg.Get(host, "IdentityFile"); identity != "" {
			s.keyFile = expandPath(identity)
		}
	}

	return applySettingsDefaults(s)
}

func applySettingsDefaults(s *settings) *settings {
	if s.user == "" {
		s.user = currentUser()
	}
	return s
}

// buildClientConfig creates an SSH client config with authentication methods.
func buildClientConfig(s *settings) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	if s.password != "" {
		authMethods = append(authMethods, ssh.Password(s.password))
	}

	if s.keyFile != "" {
		if keyAuth, err := keyFileAuth(s.keyFile); err == nil {
			authMethods = append(authMethods, keyAuth)
		}
	}

	if agentAuth := sshAgentAuth(); agentAuth != nil {
		authMethods = append(authMethods, agentAuth)
	}

	// Fall back to the conventional key locations.
	for _, keyPath := range []string{
		filepath.Join(homeDir(), ".ssh", "id_ed25519"),
		filepath.Join(homeDir(), ".ssh", "id_rsa"),
	} {
		if keyPath == s.keyFile {
			continue
		}
		if keyAuth, err := keyFileAuth(keyPath); err == nil {
			authMethods = append(authMethods, keyAuth)
		}
	}

	if len(authMethods) == 0 {
		return nil, errors.New(errors.ErrSSH,
			"No SSH auth methods available",
			"Set ssh.password or ssh.key_file in the config, or load a key: ssh-add -l")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // verification is opt-in, see StrictHostKeyChecking
	if StrictHostKeyChecking {
		knownHostsPath := filepath.Join(homeDir(), ".ssh", "known_hosts")
		cb, err := knownhosts.New(knownHostsPath)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrSSH,
				"Failed to load known_hosts",
				"Create ~/.ssh/known_hosts or disable strict host key checking")
		}
		hostKeyCallback = cb
	}

	return &ssh.ClientConfig{
		User:            s.user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         10 * time.Second,
	}, nil
}

// sshAgentAuth returns an auth method using the SSH agent if available.
// Returns nil if no agent is running or it has no keys loaded.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil
	}

	agentClient := agent.NewClient(conn)
	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		conn.Close()
		return nil
	}

	return ssh.PublicKeysCallback(agentClient.Signers)
}

// keyFileAuth returns an auth method using a private key file.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}

	return ssh.PublicKeys(signer), nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? Try: ssh <host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		return "Auth failed. Check the ssh credentials in the config."
	}
	var keyErr *knownhosts.KeyError
	if stderrors.As(err, &keyErr) {
		return "Host key mismatch. Update known_hosts: ssh-keygen -R <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}
