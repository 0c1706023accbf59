package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/devaloi/chatrooms/internal/domain"
)

// Usermeta reads per-user metadata values. A nil entry means the key is
// not set for that user.
type Usermeta interface {
	Values(ctx context.Context, keys ...string) ([]*string, error)
}

// RedisUsermeta reads usermeta from a Redis server shared with the users
// service.
type RedisUsermeta struct {
	client *redis.Client
}

// NewRedisUsermeta connects to the usermeta Redis at addr.
func NewRedisUsermeta(ctx context.Context, addr string) (*RedisUsermeta, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("usermeta connect %s: %w", addr, err)
	}
	return &RedisUsermeta{client: client}, nil
}

// Values fetches the given keys with one MGET.
func (u *RedisUsermeta) Values(ctx context.Context, keys ...string) ([]*string, error) {
	raw, err := u.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("usermeta mget: %w", err)
	}
	out := make([]*string, len(raw))
	for i, v := range raw {
		if s, ok := v.(string); ok {
			out[i] = &s
		}
	}
	return out, nil
}

// Close closes the Redis client.
func (u *RedisUsermeta) Close() error {
	return u.client.Close()
}

// RealClient implements Client over a usermeta store. serviceID is used
// as the sender of alternative notifications.
type RealClient struct {
	meta      Usermeta
	serviceID string
	log       *slog.Logger
}

// NewRealClient builds a policy client reading from meta.
func NewRealClient(meta Usermeta, serviceID string, log *slog.Logger) *RealClient {
	return &RealClient{meta: meta, serviceID: serviceID, log: log}
}

// IsBanned reports whether the user's $banned flag is set.
func (c *RealClient) IsBanned(ctx context.Context, username string) (bool, error) {
	values, err := c.meta.Values(ctx, username+":$banned")
	if err != nil {
		return false, err
	}
	banned := values[0] != nil && *values[0] != ""
	return banned, nil
}

// IsEmailConfirmed checks the user's email against the ConfirmedOn
// record, a JSON map of confirmed address to confirmation timestamp.
func (c *RealClient) IsEmailConfirmed(ctx context.Context, username string) (bool, error) {
	values, err := c.meta.Values(ctx, username+":email", username+":ConfirmedOn")
	if err != nil {
		return false, err
	}
	email, confirmedOn := values[0], values[1]
	if email == nil || *email == "" {
		return false, nil
	}
	if confirmedOn == nil || *confirmedOn == "" {
		return false, nil
	}

	var confirmations map[string]int64
	if err := json.Unmarshal([]byte(*confirmedOn), &confirmations); err != nil {
		c.log.Warn("failed to parse ConfirmedOn", "username", username, "error", err)
		return false, nil
	}
	return confirmations[*email] != 0, nil
}

// ShouldNotify suppresses delivery when the receiver has chat disabled
// (telling the sender via an alternative notification) or has blocked
// the sender.
func (c *RealClient) ShouldNotify(ctx context.Context, sender, receiver string) (Decision, error) {
	values, err := c.meta.Values(ctx, receiver+":$blocked", receiver+":$chatdisabled")
	if err != nil {
		return Decision{}, err
	}
	blocked, chatDisabled := values[0], values[1]

	if chatDisabled != nil && *chatDisabled == "true" {
		c.log.Info("do not notify: chat disabled for receiver", "receiver", receiver)
		return Decision{
			Notify: false,
			Alternative: &domain.Notification{
				From: c.serviceID,
				To:   sender,
				Type: "chat-disabled",
				Data: map[string]any{"receiver": receiver},
			},
		}, nil
	}

	if blocked != nil {
		for _, name := range strings.Split(*blocked, ",") {
			if name == sender {
				c.log.Info("do not notify: receiver blocked the sender",
					"sender", sender, "receiver", receiver)
				return Decision{Notify: false}, nil
			}
		}
	}
	return Decision{Notify: true}, nil
}
