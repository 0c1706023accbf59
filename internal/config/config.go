package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds server configuration loaded from environment variables.
// The three Redis addresses point at distinct databases: the chat store,
// the authdb and the usermeta store. Any of them may be empty, in which
// case the corresponding fake or SQLite fallback is wired instead.
type Config struct {
	Port        string
	RoutePrefix string
	APISecret   string

	RedisAddr string
	DBPath    string

	AuthRedisAddr     string
	UsermetaRedisAddr string
	NotifyURL         string

	RoomTTL         time.Duration
	MaxRoomMessages int

	// SyncDispatch makes message posting await fan-out and TTL refresh
	// before responding. Production keeps it off; tests turn it on.
	SyncDispatch bool

	// PolicyFailOpen decides what a policy-oracle failure means.
	PolicyFailOpen bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Port:              envOrDefault("PORT", "8000"),
		RoutePrefix:       envOrDefault("ROUTE_PREFIX", "chat/v1"),
		APISecret:         os.Getenv("API_SECRET"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		DBPath:            envOrDefault("DB_PATH", "chatrooms.db"),
		AuthRedisAddr:     os.Getenv("AUTH_REDIS_ADDR"),
		UsermetaRedisAddr: os.Getenv("USERMETA_REDIS_ADDR"),
		NotifyURL:         os.Getenv("NOTIFICATIONS_URL"),
		RoomTTL:           envOrDefaultDuration("ROOM_TTL", 60*24*time.Hour),
		MaxRoomMessages:   envOrDefaultInt("MAX_MESSAGES", 100),
		SyncDispatch:      envOrDefaultBool("SYNC_DISPATCH", false),
		PolicyFailOpen:    envOrDefaultBool("POLICY_FAIL_OPEN", true),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrDefaultBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
