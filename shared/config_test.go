package shared

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"ACVP_LOG_DEVELOPMENT", "ACVP_LOG_LEVEL", "ACVP_BACKEND", "ACVP_MODULE_PATH", "ACVP_FLAGS"} {
		t.Setenv(key, "")
	}

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendBuiltin, cfg.Backend)
	assert.False(t, cfg.LogDevelopment)
	assert.Empty(t, cfg.Flags)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	for _, key := range []string{"ACVP_LOG_DEVELOPMENT", "ACVP_BACKEND", "ACVP_MODULE_PATH", "ACVP_FLAGS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	path := filepath.Join(t.TempDir(), "harness.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"ACVP_BACKEND=module\nACVP_MODULE_PATH=/usr/local/bin/tlskdf-module\nACVP_FLAGS=hello-randoms, ,extra\nACVP_LOG_DEVELOPMENT=true\n"), 0o600))
	t.Cleanup(func() {
		for _, key := range []string{"ACVP_LOG_DEVELOPMENT", "ACVP_BACKEND", "ACVP_MODULE_PATH", "ACVP_FLAGS"} {
			os.Unsetenv(key)
		}
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendModule, cfg.Backend)
	assert.Equal(t, "/usr/local/bin/tlskdf-module", cfg.ModulePath)
	assert.Equal(t, []string{"hello-randoms", "extra"}, cfg.Flags)
	assert.True(t, cfg.LogDevelopment)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingNamedFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, (&Config{Backend: BackendModule}).Validate())
	assert.Error(t, (&Config{Backend: "openssl"}).Validate())
	assert.NoError(t, (&Config{Backend: BackendBuiltin}).Validate())
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{ServiceName: "test", Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}
