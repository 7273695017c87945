package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdash/internal/config"
	"fleetdash/internal/errors"
)

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dev", "dev"},
		{"", ""},
		{"1.2.3", "v1.2.3"},
		{"v1.2.3", "v1.2.3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatVersion(tt.in))
	}
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleetdash.yaml")
	configFlag = path
	defer func() { configFlag = "" }()

	require.NoError(t, initConfig())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Hosts, 1)
	assert.Equal(t, "example", cfg.Hosts[0].ID)

	err = initConfig()
	require.Error(t, err, "refuses to overwrite without --force")
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	initForce = true
	defer func() { initForce = false }()
	assert.NoError(t, initConfig())
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"serve", "init", "version"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}
