package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devaloi/chatrooms/internal/auth"
	"github.com/devaloi/chatrooms/internal/config"
	"github.com/devaloi/chatrooms/internal/handler"
	"github.com/devaloi/chatrooms/internal/middleware"
	"github.com/devaloi/chatrooms/internal/notify"
	"github.com/devaloi/chatrooms/internal/policy"
	"github.com/devaloi/chatrooms/internal/room"
	"github.com/devaloi/chatrooms/internal/store"
	"github.com/devaloi/chatrooms/internal/stream"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newStore(ctx, cfg, log)
	if err != nil {
		log.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	authClient, err := newAuthClient(ctx, cfg, log)
	if err != nil {
		log.Error("authdb init failed", "error", err)
		os.Exit(1)
	}

	policyClient, err := newPolicyClient(ctx, cfg, log)
	if err != nil {
		log.Error("policy init failed", "error", err)
		os.Exit(1)
	}

	var sender notify.Sender = notify.NopSender{}
	if cfg.NotifyURL != "" {
		sender = notify.NewHTTPSender(cfg.NotifyURL, cfg.APISecret)
	} else {
		log.Warn("notifications service not configured, dropping notifications")
	}

	failMode := policy.FailClosed
	if cfg.PolicyFailOpen {
		failMode = policy.FailOpen
	}

	manager := room.NewManager(s, cfg.RoutePrefix, cfg.RoomTTL, cfg.MaxRoomMessages)
	fanout := notify.NewFanout(policyClient, sender, cfg.RoutePrefix, failMode, log)
	hub := stream.NewHub()

	api := handler.New(handler.Options{
		Rooms:        manager,
		Auth:         authClient,
		Policy:       policyClient,
		Fanout:       fanout,
		Stream:       hub,
		Prefix:       cfg.RoutePrefix,
		APISecret:    cfg.APISecret,
		FailMode:     failMode,
		SyncDispatch: cfg.SyncDispatch,
		Log:          log,
	})

	mux := http.NewServeMux()
	api.Register(mux)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: middleware.Logging(log, middleware.RequestID(mux)),
	}

	go func() {
		log.Info("chatrooms listening", "addr", server.Addr, "prefix", cfg.RoutePrefix)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}

// newStore picks the Redis backend when configured, SQLite otherwise.
func newStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.RedisAddr != "" {
		return store.NewRedis(ctx, cfg.RedisAddr)
	}
	log.Warn("no redis configured, using sqlite store", "path", cfg.DBPath)
	return store.NewSQLite(cfg.DBPath)
}

func newAuthClient(ctx context.Context, cfg config.Config, log *slog.Logger) (auth.Client, error) {
	if cfg.AuthRedisAddr != "" {
		return auth.NewRedisClient(ctx, cfg.AuthRedisAddr)
	}
	log.Warn("no authdb configured, only api-secret auth will work")
	return auth.NewFakeClient(), nil
}

func newPolicyClient(ctx context.Context, cfg config.Config, log *slog.Logger) (policy.Client, error) {
	if cfg.UsermetaRedisAddr != "" {
		meta, err := policy.NewRedisUsermeta(ctx, cfg.UsermetaRedisAddr)
		if err != nil {
			return nil, err
		}
		return policy.NewRealClient(meta, cfg.RoutePrefix, log), nil
	}
	log.Warn("usermeta not configured, using fake policy client (no bans, no notifications)")
	return policy.FakeClient{}, nil
}
