package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmon-dev/cmon/internal/config"
	"github.com/cmon-dev/cmon/internal/errors"
)

func TestInit_NonInteractive(t *testing.T) {
	out, dir := useTestEnv(t, "")
	path := filepath.Join(dir, "cmon.yaml")
	t.Setenv("FW1_KEY", "secret-token")

	err := Init(InitOptions{
		Path:           path,
		NonInteractive: true,
		Name:           "fw1",
		Host:           "10.0.0.1",
		APIKey:         "${FW1_KEY}",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Created "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Conserve mode monitor configuration")
	assert.Contains(t, string(data), "${FW1_KEY}", "references are written as-is")
	assert.Contains(t, string(data), "interval: 30s")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// The written file loads back into a runnable config.
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, config.ValidateRunnable(cfg))
	require.Len(t, cfg.Devices, 1)
	assert.Equal(t, "fw1", cfg.Devices[0].Name)
	assert.Equal(t, "secret-token", cfg.Devices[0].APIKey)
	assert.Equal(t, config.DefaultConfig().Poll, cfg.Poll)
}

func TestInit_NameDefaultsToHost(t *testing.T) {
	_, dir := useTestEnv(t, "")
	path := filepath.Join(dir, "cmon.yaml")

	require.NoError(t, Init(InitOptions{Path: path, NonInteractive: true, Host: "10.0.0.9", APIKey: "k"}))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", cfg.Devices[0].Name)
}

func TestInit_Errors(t *testing.T) {
	tests := []struct {
		name  string
		opts  InitOptions
		exist bool
		want  string
	}{
		{
			name: "missing host",
			opts: InitOptions{NonInteractive: true, APIKey: "k"},
			want: "host and API key are required",
		},
		{
			name: "missing api key",
			opts: InitOptions{NonInteractive: true, Host: "10.0.0.1"},
			want: "host and API key are required",
		},
		{
			name:  "existing file without force",
			opts:  InitOptions{NonInteractive: true, Host: "10.0.0.1", APIKey: "k"},
			exist: true,
			want:  "already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, dir := useTestEnv(t, "")
			tt.opts.Path = filepath.Join(dir, "cmon.yaml")
			if tt.exist {
				require.NoError(t, os.WriteFile(tt.opts.Path, []byte("version: 1\n"), 0o600))
			}

			err := Init(tt.opts)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInit_Force(t *testing.T) {
	_, dir := useTestEnv(t, "")
	path := filepath.Join(dir, "cmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o600))

	err := Init(InitOptions{Path: path, NonInteractive: true, Overwrite: true, Host: "10.0.0.1", APIKey: "k"})
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Devices, 1)
}

func TestInit_TargetsTemplate(t *testing.T) {
	out, dir := useTestEnv(t, "")
	path := filepath.Join(dir, config.DefaultTargetsFile)

	require.NoError(t, Init(InitOptions{TargetsTemplate: path}))
	assert.Contains(t, out.String(), "cmon run --targets "+path)

	devices, err := config.LoadTargets(path)
	require.NoError(t, err)
	assert.Empty(t, devices, "template holds only comments")

	err = Init(InitOptions{TargetsTemplate: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestGetInitDefaults(t *testing.T) {
	t.Run("env vars populated", func(t *testing.T) {
		t.Setenv("CMON_HOST", "10.1.1.1")
		t.Setenv("CMON_DEVICE_NAME", "env-fw")
		t.Setenv("CMON_API_KEY", "${ENV_KEY}")
		t.Setenv("CMON_NON_INTERACTIVE", "true")
		t.Setenv("CI", "")

		d := getInitDefaults()
		assert.Equal(t, "10.1.1.1", d.Host)
		assert.Equal(t, "env-fw", d.Name)
		assert.Equal(t, "${ENV_KEY}", d.APIKey)
		assert.True(t, d.NonInteractive)
	})

	t.Run("CI implies non-interactive", func(t *testing.T) {
		t.Setenv("CMON_NON_INTERACTIVE", "")
		t.Setenv("CI", "true")
		assert.True(t, getInitDefaults().NonInteractive)
	})

	t.Run("nothing set", func(t *testing.T) {
		t.Setenv("CMON_HOST", "")
		t.Setenv("CMON_NON_INTERACTIVE", "")
		t.Setenv("CI", "")
		d := getInitDefaults()
		assert.Empty(t, d.Host)
		assert.False(t, d.NonInteractive)
	})
}

func TestApplyInitDefaults(t *testing.T) {
	opts := InitOptions{Host: "flag-host"}
	applyInitDefaults(&opts, initDefaults{Host: "env-host", Name: "env-name", APIKey: "env-key", NonInteractive: true})

	assert.Equal(t, "flag-host", opts.Host, "flags win over env")
	assert.Equal(t, "env-name", opts.Name)
	assert.Equal(t, "env-key", opts.APIKey)
	assert.True(t, opts.NonInteractive)
}
