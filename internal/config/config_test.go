package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.RoutePrefix != "chat/v1" {
		t.Errorf("expected default prefix chat/v1, got %s", cfg.RoutePrefix)
	}
	if cfg.MaxRoomMessages != 100 {
		t.Errorf("expected default max messages 100, got %d", cfg.MaxRoomMessages)
	}
	if cfg.RoomTTL != 60*24*time.Hour {
		t.Errorf("expected default ttl of 60 days, got %s", cfg.RoomTTL)
	}
	if cfg.SyncDispatch {
		t.Error("expected async dispatch by default")
	}
	if !cfg.PolicyFailOpen {
		t.Error("expected fail-open policy by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ROUTE_PREFIX", "chat/v2")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("MAX_MESSAGES", "25")
	t.Setenv("ROOM_TTL", "24h")
	t.Setenv("SYNC_DISPATCH", "true")
	t.Setenv("POLICY_FAIL_OPEN", "false")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.RoutePrefix != "chat/v2" {
		t.Errorf("expected prefix chat/v2, got %s", cfg.RoutePrefix)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Errorf("expected redis addr, got %s", cfg.RedisAddr)
	}
	if cfg.MaxRoomMessages != 25 {
		t.Errorf("expected max messages 25, got %d", cfg.MaxRoomMessages)
	}
	if cfg.RoomTTL != 24*time.Hour {
		t.Errorf("expected ttl 24h, got %s", cfg.RoomTTL)
	}
	if !cfg.SyncDispatch {
		t.Error("expected sync dispatch")
	}
	if cfg.PolicyFailOpen {
		t.Error("expected fail-closed policy")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	t.Setenv("MAX_MESSAGES", "notanumber")
	t.Setenv("ROOM_TTL", "soon")
	t.Setenv("SYNC_DISPATCH", "maybe")

	cfg := Load()
	if cfg.MaxRoomMessages != 100 {
		t.Errorf("expected fallback max messages 100, got %d", cfg.MaxRoomMessages)
	}
	if cfg.RoomTTL != 60*24*time.Hour {
		t.Errorf("expected fallback ttl, got %s", cfg.RoomTTL)
	}
	if cfg.SyncDispatch {
		t.Error("expected fallback sync dispatch false")
	}
}
