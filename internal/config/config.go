package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the base server configuration.
type Config struct {
	Host         string
	Port         string
	SQLiteDBPath string

	AllowTestMode            bool
	JWTSecret                string
	JWTAccessTokenExpirySec  int
	JWTRefreshTokenExpirySec int

	// AmpliPi controller connection settings.
	AmpliPiHost      string
	AmpliPiPort      string
	AmpliPiAPIPath   string
	AmpliPiTimeoutMs int

	// WebAppURL is the base URL of the controller's web app. Relative album
	// art paths returned in stream metadata are resolved against it.
	WebAppURL string

	// PollSchedule is the cron spec driving entity refresh passes.
	PollSchedule string

	// AssetInstallDir is where companion sensor templates and automation
	// blueprints are installed.
	AssetInstallDir string

	Vendor string

	AuditRetentionDays int
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	host := envString("HOST", "0.0.0.0")
	port := envString("PORT", "9000")
	sqlitePath := envString("SQLITE_DB_PATH", "./data/amplipi-hub.db")
	allowTestMode := envBool("ALLOW_TEST_MODE", false)
	jwtSecret := envString("JWT_SECRET", "")
	jwtAccessExpiry := envInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)
	jwtRefreshExpiry := envInt("JWT_REFRESH_TOKEN_EXPIRY", 2592000)
	amplipiHost := envString("AMPLIPI_HOST", "amplipi.local")
	amplipiPort := envString("AMPLIPI_PORT", "80")
	amplipiAPIPath := envString("AMPLIPI_API_PATH", "/api")
	amplipiTimeout := envInt("AMPLIPI_TIMEOUT_MS", 10000)
	webAppURL := envString("AMPLIPI_WEBAPP_URL", "")
	pollSchedule := envString("POLL_SCHEDULE", "@every 5s")
	assetInstallDir := envString("ASSET_INSTALL_DIR", "./data/assets")
	vendor := envString("AMPLIPI_VENDOR", "MicroNova")
	auditRetentionDays := envInt("AUDIT_RETENTION_DAYS", 90)

	if len(strings.TrimSpace(jwtSecret)) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	if webAppURL == "" {
		webAppURL = fmt.Sprintf("http://%s:%s", amplipiHost, amplipiPort)
	}

	return Config{
		Host:                     host,
		Port:                     port,
		SQLiteDBPath:             sqlitePath,
		AllowTestMode:            allowTestMode,
		JWTSecret:                jwtSecret,
		JWTAccessTokenExpirySec:  jwtAccessExpiry,
		JWTRefreshTokenExpirySec: jwtRefreshExpiry,
		AmpliPiHost:              amplipiHost,
		AmpliPiPort:              amplipiPort,
		AmpliPiAPIPath:           amplipiAPIPath,
		AmpliPiTimeoutMs:         amplipiTimeout,
		WebAppURL:                webAppURL,
		PollSchedule:             pollSchedule,
		AssetInstallDir:          assetInstallDir,
		Vendor:                   vendor,
		AuditRetentionDays:       auditRetentionDays,
	}, nil
}

// AmpliPiBaseURL returns the controller's REST API base URL.
func (cfg Config) AmpliPiBaseURL() string {
	path := cfg.AmpliPiAPIPath
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("http://%s:%s%s", cfg.AmpliPiHost, cfg.AmpliPiPort, strings.TrimSuffix(path, "/"))
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.EqualFold(val, "true")
}
