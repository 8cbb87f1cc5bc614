// Package config resolves settings from flags, the environment and an
// optional .env file, in that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"taskboard/internal/models"
	"taskboard/internal/util"
)

type Config struct {
	Addr        string
	DBPath      string
	StaticDir   string
	JWTSecret   string
	TokenTTL    time.Duration
	OpenStatus  models.TaskStatus
	RecentLimit int
	LogLevel    slog.Level
	// EnvFile is the dotenv file that was loaded, if any.
	EnvFile string
}

// Load reads the dotenv file named by TASKBOARD_ENV_FILE (default ".env")
// when it exists, then parses args. Variables already set in the process
// environment win over the file.
func Load(args []string) (Config, error) {
	var cfg Config

	envFile := util.EnvOrDefault("TASKBOARD_ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
		cfg.EnvFile = envFile
	}

	fs := flag.NewFlagSet("taskboard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Addr, "addr", util.EnvOrDefault("TASKBOARD_ADDR", ":8080"), "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", util.EnvOrDefault("TASKBOARD_DB_PATH", "data/taskboard.db"), "Path to sqlite database file")
	fs.StringVar(&cfg.StaticDir, "static", util.EnvOrDefault("TASKBOARD_STATIC_DIR", "web/dist"), "Directory with built frontend")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", os.Getenv("TASKBOARD_JWT_SECRET"), "HMAC secret for session tokens")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", util.EnvDurationOrDefault("TASKBOARD_TOKEN_TTL", 72*time.Hour), "Session token lifetime")
	openStatus := fs.String("open-status", util.EnvOrDefault("TASKBOARD_OPEN_STATUS", string(models.TaskInProgress)),
		"Status an unread task moves to when opened (In-progress or Wait Approve)")
	fs.IntVar(&cfg.RecentLimit, "recent", util.EnvIntOrDefault("TASKBOARD_RECENT_LIMIT", 5), "Projects listed as recent on the dashboard")
	logLevel := fs.String("log-level", util.EnvOrDefault("TASKBOARD_LOG_LEVEL", "info"), "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.OpenStatus = models.TaskStatus(*openStatus)
	if cfg.OpenStatus != models.TaskInProgress && cfg.OpenStatus != models.TaskWaitApprove {
		return Config{}, fmt.Errorf("open-status must be %q or %q", models.TaskInProgress, models.TaskWaitApprove)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return Config{}, fmt.Errorf("log-level: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, errors.New("token-ttl must be positive")
	}
	if cfg.RecentLimit <= 0 {
		return Config{}, errors.New("recent must be positive")
	}
	return cfg, nil
}
