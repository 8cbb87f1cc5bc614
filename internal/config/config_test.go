package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
)

// isolate points the dotenv lookup at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("TASKBOARD_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "data/taskboard.db", cfg.DBPath)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, models.TaskInProgress, cfg.OpenStatus)
	assert.Equal(t, 5, cfg.RecentLimit)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.EnvFile)
}

func TestLoadEnvironmentAndFlags(t *testing.T) {
	isolate(t)
	t.Setenv("TASKBOARD_ADDR", ":9000")
	t.Setenv("TASKBOARD_OPEN_STATUS", "Wait Approve")
	t.Setenv("TASKBOARD_TOKEN_TTL", "2h")
	t.Setenv("TASKBOARD_LOG_LEVEL", "debug")

	cfg, err := Load([]string{"-addr", ":9100", "-recent", "3"})
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr, "flags win over the environment")
	assert.Equal(t, models.TaskWaitApprove, cfg.OpenStatus)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 3, cfg.RecentLimit)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadDotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TASKBOARD_DB_PATH=/tmp/from-file.db\nTASKBOARD_JWT_SECRET=from-file\n"), 0o600))
	t.Setenv("TASKBOARD_ENV_FILE", path)
	// Registered so that the values godotenv sets are restored afterwards.
	t.Setenv("TASKBOARD_DB_PATH", "")
	t.Setenv("TASKBOARD_JWT_SECRET", "from-env")
	os.Unsetenv("TASKBOARD_DB_PATH")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.EnvFile)
	assert.Equal(t, "/tmp/from-file.db", cfg.DBPath)
	assert.Equal(t, "from-env", cfg.JWTSecret, "process environment wins over the file")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	isolate(t)

	_, err := Load([]string{"-open-status", "done"})
	assert.Error(t, err)

	_, err = Load([]string{"-log-level", "loud"})
	assert.Error(t, err)

	_, err = Load([]string{"-token-ttl", "0s"})
	assert.Error(t, err)

	_, err = Load([]string{"-recent", "0"})
	assert.Error(t, err)

	_, err = Load([]string{"-unknown"})
	assert.Error(t, err)
}
