package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	SQLitePath string
	WebPath    string

	// Feed behavior
	FeedPageSize  int // items per fetch, clamped to 1..24
	FeedReadAhead int // trigger pagination this many cells from the end

	// Gesture timing (milliseconds)
	LongPressMS     int // press-and-hold threshold
	DeleteArmMS     int // two-step delete confirmation window
	SweepIntervalMS int // timer sweep tick

	// State push
	WSPushSec int

	// Images
	ImgQuality         int
	ImgPrimaryMaxWidth int

	// Mixed-content policy: reject http:// servers when the UI is on https
	StrictTransport bool

	// Always serve HLS transcodes instead of static passthrough
	ForceTranscode bool

	// Logging
	LogLevel  string
	LogFormat string // "json", "text", "dev"
}

func Load() Config {
	dbPath := env("SQLITE_PATH", "/var/lib/emby-shorts/prefs.db")
	webPath := env("WEB_PATH", "/app/web")

	_ = os.MkdirAll(filepath.Dir(dbPath), 0755)
	_ = os.MkdirAll(webPath, 0755)

	cfg := Config{
		SQLitePath:         dbPath,
		WebPath:            webPath,
		FeedPageSize:       clamp(envInt("FEED_PAGE_SIZE", 15), 1, 24),
		FeedReadAhead:      envInt("FEED_READAHEAD", 3),
		LongPressMS:        envInt("LONGPRESS_MS", 450),
		DeleteArmMS:        envInt("DELETE_ARM_MS", 3500),
		SweepIntervalMS:    envInt("SWEEP_INTERVAL_MS", 250),
		WSPushSec:          envInt("WS_PUSH_SEC", 2),
		ImgQuality:         envInt("IMG_QUALITY", 80),
		ImgPrimaryMaxWidth: envInt("IMG_PRIMARY_MAX_WIDTH", 600),
		StrictTransport:    envBool("STRICT_TRANSPORT", false),
		ForceTranscode:     envBool("FORCE_TRANSCODE", false),
		LogLevel:           env("LOG_LEVEL", "info"),
		LogFormat:          env("LOG_FORMAT", "text"),
	}

	fmt.Printf("[INFO] Using SQLite prefs DB at: %s\n", dbPath)
	fmt.Printf("[INFO] Serving static UI from: %s\n", webPath)
	return cfg
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
