package config

import "time"

// Config represents the complete fleetdash.yaml configuration file.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	SSH        SSHConfig        `yaml:"ssh" mapstructure:"ssh"`
	Hosts      []Host           `yaml:"hosts" mapstructure:"hosts"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Thresholds Thresholds       `yaml:"thresholds" mapstructure:"thresholds"`
	Websocket  WebsocketConfig  `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":3000".
	Addr string `yaml:"addr" mapstructure:"addr"`

	// Mode is the gin mode: "debug" or "release".
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// SSHConfig holds shared credentials for the monitored fleet.
// Hosts are provisioned with a common monitoring account; per-host
// overrides come from ~/.ssh/config when a field is left empty.
type SSHConfig struct {
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`

	// KeyFile is a path to a private key, tried when Password is empty.
	KeyFile string `yaml:"key_file" mapstructure:"key_file"`

	Port    int           `yaml:"port" mapstructure:"port"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Host defines one remote machine under monitoring.
// The host list is read-only after startup; hosts are referenced by ID
// everywhere else.
type Host struct {
	ID          string   `yaml:"id" mapstructure:"id"`
	Name        string   `yaml:"name" mapstructure:"name"`
	Address     string   `yaml:"address" mapstructure:"address"`
	Description string   `yaml:"description" mapstructure:"description"`
	Container   string   `yaml:"container" mapstructure:"container"`
	Tags        []string `yaml:"tags" mapstructure:"tags"`
}

// MonitoringConfig holds the periodic loop intervals.
type MonitoringConfig struct {
	StatsInterval time.Duration `yaml:"stats_interval" mapstructure:"stats_interval"`
	PingInterval  time.Duration `yaml:"ping_interval" mapstructure:"ping_interval"`

	// ProbeTimeout is the socket-level budget for one liveness probe.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`

	// CommandTimeout bounds each remote command execution.
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
}

// WebsocketConfig controls the broadcast hub.
type WebsocketConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
}

// Bounds is a warning/critical threshold pair for one metric category.
type Bounds struct {
	Warning  float64 `yaml:"warning" mapstructure:"warning" json:"warning"`
	Critical float64 `yaml:"critical" mapstructure:"critical" json:"critical"`
}

// Thresholds holds the alert bounds per metric category. The live,
// mutable copy is owned by the alerts package; this type is the value
// shape shared between config, scoring, and evaluation.
type Thresholds struct {
	CPU    Bounds `yaml:"cpu" mapstructure:"cpu" json:"cpu"`
	Memory Bounds `yaml:"memory" mapstructure:"memory" json:"memory"`
	Disk   Bounds `yaml:"disk" mapstructure:"disk" json:"disk"`
	Ping   Bounds `yaml:"ping" mapstructure:"ping" json:"ping"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":3000",
			Mode: "debug",
		},
		SSH: SSHConfig{
			User:    "monitor",
			Port:    22,
			Timeout: 20 * time.Second,
		},
		Hosts: []Host{},
		Monitoring: MonitoringConfig{
			StatsInterval:  5 * time.Second,
			PingInterval:   10 * time.Second,
			ProbeTimeout:   10 * time.Second,
			CommandTimeout: 30 * time.Second,
		},
		Thresholds: DefaultThresholds(),
		Websocket: WebsocketConfig{
			HeartbeatInterval: 30 * time.Second,
		},
	}
}

// DefaultThresholds returns the standard alert bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPU:    Bounds{Warning: 70, Critical: 90},
		Memory: Bounds{Warning: 75, Critical: 90},
		Disk:   Bounds{Warning: 80, Critical: 95},
		Ping:   Bounds{Warning: 100, Critical: 500},
	}
}

// HostByID returns the host with the given id, or nil if not configured.
func (c *Config) HostByID(id string) *Host {
	for i := range c.Hosts {
		if c.Hosts[i].ID == id {
			return &c.Hosts[i]
		}
	}
	return nil
}
