package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"fleetdash/internal/errors"
)

// ConfigFileName is the default config file name.
const ConfigFileName = "fleetdash.yaml"

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'fleetdash init' to create one, or specify a path with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to parse config file",
			"Check the file matches the expected structure")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Find locates the config file: an explicit path first, then
// fleetdash.yaml in the current directory.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Specified config file not found: "+explicit,
				"Check the path is correct")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	local := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	return "", nil
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return errors.New(errors.ErrConfig,
			"No hosts configured",
			"Add at least one host to the hosts list")
	}

	seen := make(map[string]bool, len(c.Hosts))
	for _, h := range c.Hosts {
		if h.ID == "" {
			return errors.New(errors.ErrConfig,
				"Host with empty id",
				"Every host needs a unique id")
		}
		if seen[h.ID] {
			return errors.New(errors.ErrConfig,
				"Duplicate host id: "+h.ID,
				"Host ids must be unique")
		}
		seen[h.ID] = true
		if h.Address == "" {
			return errors.New(errors.ErrConfig,
				"Host '"+h.ID+"' has no address",
				"Set the address field to a hostname or IP")
		}
	}

	if c.Monitoring.StatsInterval <= 0 || c.Monitoring.PingInterval <= 0 {
		return errors.New(errors.ErrConfig,
			"Monitoring intervals must be positive",
			"Check stats_interval and ping_interval")
	}

	return nil
}

// Save writes the configuration to the given path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to serialize config",
			"")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file: "+path,
			"Check directory permissions")
	}

	return nil
}
