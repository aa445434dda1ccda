// Package config centralises configuration parsing for the import daemon.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sstent/tracksync-go/internal/ibi"
)

// Config captures runtime configuration values for the import daemon.
type Config struct {
	DataDir        string
	DBPath         string
	InboxDir       string
	ExportDir      string // empty disables Parquet export
	ImportSchedule string // cron expression
	ImportOnStart  bool
	HTTPAddress    string
	RunTimeout     time.Duration

	IBILowBPM       float64
	IBIHighBPM      float64
	IBIAlpha        float64
	IBIMedianWindow int
}

// Load reads the .env files (if present, ".env" by default) and then the
// environment into Config, applying defaults for local use.
func Load(envFiles ...string) Config {
	// a missing .env is normal outside development
	_ = godotenv.Load(envFiles...)

	dataDir := getEnv("DATA_DIR", "./data")
	cfg := Config{
		DataDir:         dataDir,
		DBPath:          getEnv("DB_PATH", filepath.Join(dataDir, "tracks.db")),
		InboxDir:        getEnv("INBOX_DIR", filepath.Join(dataDir, "inbox")),
		ExportDir:       getEnv("EXPORT_DIR", ""),
		ImportSchedule:  getEnv("IMPORT_SCHEDULE", "@hourly"),
		ImportOnStart:   getBoolEnv("IMPORT_ON_START", true),
		HTTPAddress:     getEnv("HTTP_ADDRESS", ":8888"),
		RunTimeout:      getDurationEnv("IMPORT_RUN_TIMEOUT", 30*time.Minute),
		IBILowBPM:       getFloatEnv("IBI_LOW_BPM", ibi.DefaultLowLimitBPM),
		IBIHighBPM:      getFloatEnv("IBI_HIGH_BPM", ibi.DefaultHighLimitBPM),
		IBIAlpha:        getFloatEnv("IBI_LOW_PASS_ALPHA", ibi.DefaultLowPassAlpha),
		IBIMedianWindow: getIntEnv("IBI_MEDIAN_WINDOW", ibi.DefaultMedianWindow),
	}
	cfg.validateIBI()
	return cfg
}

// IBIPipeline builds the beat interval filters from the configured thresholds.
// Unusable thresholds are replaced by the defaults.
func (c Config) IBIPipeline() ibi.Pipeline {
	c.validateIBI()
	return ibi.Pipeline{
		ibi.LowLimitBPM(c.IBILowBPM),
		ibi.HighLimitBPM(c.IBIHighBPM),
		ibi.LowPass(c.IBIAlpha),
		ibi.MovingMedian(c.IBIMedianWindow),
	}
}

// validateIBI resets filter settings that would drop every beat or flatten the
// derived heart rate.
func (c *Config) validateIBI() {
	if c.IBIAlpha <= 0 || c.IBIAlpha > 1 {
		log.Printf("IBI_LOW_PASS_ALPHA %v is outside (0, 1], using %v", c.IBIAlpha, ibi.DefaultLowPassAlpha)
		c.IBIAlpha = ibi.DefaultLowPassAlpha
	}
	if c.IBILowBPM <= 0 || c.IBILowBPM >= c.IBIHighBPM {
		log.Printf("IBI_LOW_BPM %v and IBI_HIGH_BPM %v do not form a range, using %v and %v",
			c.IBILowBPM, c.IBIHighBPM, ibi.DefaultLowLimitBPM, ibi.DefaultHighLimitBPM)
		c.IBILowBPM = ibi.DefaultLowLimitBPM
		c.IBIHighBPM = ibi.DefaultHighLimitBPM
	}
	if c.IBIMedianWindow < 1 {
		log.Printf("IBI_MEDIAN_WINDOW %d is below 1, using %d", c.IBIMedianWindow, ibi.DefaultMedianWindow)
		c.IBIMedianWindow = ibi.DefaultMedianWindow
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
