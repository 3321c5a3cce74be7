package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ListenAddr string
	DaemonURL  string // go-librespot REST base URL
	DaemonWS   string // go-librespot WebSocket event stream URL

	DataDir     string
	CatalogPath string // DataDir/catalog.json, shared with the admin backend
	ImagesDir   string // DataDir/images, hash-addressed cover storage

	// Timing
	SettleDelay       time.Duration // carousel settle before a play fires
	ConfirmTimeout    time.Duration // wait for the daemon's playing confirmation
	PlayTimeout       time.Duration // HTTP timeout for play requests
	ControlTimeout    time.Duration // HTTP timeout for pause/seek/etc.
	BroadcastInterval time.Duration // periodic snapshot push to clients
	SaveInterval      time.Duration // resume auto-save period while playing
	ReconnectDelay    time.Duration // daemon event stream reconnect
	SyncCooldown      time.Duration // block carousel sync after a play fires

	PositionDelta int64         // min position movement (ms) to re-persist
	ResumeExpiry  time.Duration // resume records older than this are dropped

	LogLevel  string
	LogPath   string
	LogMaxMB  int
	LogMaxAge int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as a duration or returns a default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables and defaults.")
	}

	dataDir := getEnv("DATA_DIR", "data")

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":3001"),
		DaemonURL:  getEnv("LIBRESPOT_URL", "http://localhost:3678"),
		DaemonWS:   getEnv("LIBRESPOT_WS", "ws://localhost:3678/events"),

		DataDir:     dataDir,
		CatalogPath: filepath.Join(dataDir, "catalog.json"),
		ImagesDir:   filepath.Join(dataDir, "images"),

		SettleDelay:       getEnvDuration("SETTLE_DELAY", time.Second),
		ConfirmTimeout:    getEnvDuration("CONFIRM_TIMEOUT", 3*time.Second),
		PlayTimeout:       getEnvDuration("PLAY_TIMEOUT", 5*time.Second),
		ControlTimeout:    getEnvDuration("CONTROL_TIMEOUT", 2*time.Second),
		BroadcastInterval: getEnvDuration("BROADCAST_INTERVAL", time.Second),
		SaveInterval:      getEnvDuration("SAVE_INTERVAL", 10*time.Second),
		ReconnectDelay:    getEnvDuration("RECONNECT_DELAY", 5*time.Second),
		SyncCooldown:      getEnvDuration("SYNC_COOLDOWN", 3*time.Second),

		PositionDelta: int64(getEnvInt("POSITION_DELTA_MS", 5000)),
		ResumeExpiry:  getEnvDuration("RESUME_EXPIRY", 24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPath:   getEnv("LOG_PATH", ""),
		LogMaxMB:  getEnvInt("LOG_MAX_MB", 5),
		LogMaxAge: getEnvInt("LOG_MAX_AGE", 30),
	}
}
