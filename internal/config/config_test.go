package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args []string, file string) (Config, error) {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))

	v, err := New(fs)
	require.NoError(t, err)

	return Load(v, file)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, []string{"--mmdb", "/data/geo.mmdb"}, "")
	require.NoError(t, err)

	assert.Equal(t, Config{
		MMDBPath: "/data/geo.mmdb",
		Bind:     DefaultBind,
		LogLevel: "info",
	}, cfg)
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := load(t, []string{
		"--mmdb", "/data/geo.mmdb",
		"--bind", "0.0.0.0:8080",
		"--grpc-bind", ":9090",
		"--log-level", "DEBUG",
		"--strict-errors",
		"--watch",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Bind)
	assert.Equal(t, ":9090", cfg.GRPCBind)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.StrictErrors)
	assert.True(t, cfg.Watch)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("GEORESOLVE_MMDB", "/env/geo.mmdb")
	t.Setenv("GEORESOLVE_GRPC_BIND", ":9999")
	t.Setenv("GEORESOLVE_STRICT_ERRORS", "true")
	t.Setenv("GEORESOLVE_LOG_LEVEL", "warn")

	cfg, err := load(t, nil, "")
	require.NoError(t, err)

	assert.Equal(t, "/env/geo.mmdb", cfg.MMDBPath)
	assert.Equal(t, ":9999", cfg.GRPCBind)
	assert.True(t, cfg.StrictErrors)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("GEORESOLVE_MMDB", "/env/geo.mmdb")

	cfg, err := load(t, []string{"--mmdb", "/flag/geo.mmdb"}, "")
	require.NoError(t, err)

	assert.Equal(t, "/flag/geo.mmdb", cfg.MMDBPath)
}

func TestLoad_ConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "georesolve.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
mmdb = "/file/geo.mmdb"
bind = "127.0.0.1:4000"
watch = true
`), 0o600))

	cfg, err := load(t, nil, file)
	require.NoError(t, err)

	assert.Equal(t, "/file/geo.mmdb", cfg.MMDBPath)
	assert.Equal(t, "127.0.0.1:4000", cfg.Bind)
	assert.True(t, cfg.Watch)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := load(t, []string{"--mmdb", "/data/geo.mmdb"}, filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid",
			cfg:  Config{MMDBPath: "geo.mmdb", Bind: DefaultBind, LogLevel: "error"},
		},
		{
			name:    "missing mmdb",
			cfg:     Config{Bind: DefaultBind, LogLevel: "info"},
			wantErr: "mmdb path is required",
		},
		{
			name:    "missing bind",
			cfg:     Config{MMDBPath: "geo.mmdb", LogLevel: "info"},
			wantErr: "bind address is required",
		},
		{
			name:    "unknown log level",
			cfg:     Config{MMDBPath: "geo.mmdb", Bind: DefaultBind, LogLevel: "trace"},
			wantErr: `unknown log level "trace"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
