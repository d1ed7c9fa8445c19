package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr string
	}{
		{name: "defaults", args: nil, want: options{}},
		{
			name: "all flags",
			args: []string{"-c", "taskdeck.yaml", "--migrate", "up", "--seed"},
			want: options{configPath: "taskdeck.yaml", migrate: "up", seed: true},
		},
		{name: "unknown migrate command", args: []string{"--migrate", "sideways"}, wantErr: "unknown migration command"},
		{name: "unknown flag", args: []string{"--verbose"}, wantErr: "unknown flag"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseFlags(tc.args)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLoadAppConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdeck.yaml")
	content := []byte(`
server:
  port: 9090
  log_level: warn
store:
  backend: memory
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := loadAppConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoadAppConfig_MissingFile(t *testing.T) {
	_, err := loadAppConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to load configuration")
}

func TestRun_MigrateRequiresDatabaseURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: memory\n"), 0o600))
	t.Setenv("TASKDECK_DATABASE_URL", "")

	err := run(context.Background(), options{configPath: path, migrate: "status"})

	assert.ErrorContains(t, err, "database.url is required to run migrations")
}
