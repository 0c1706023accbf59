// Package auth resolves authentication tokens to accounts against the
// shared authdb. Token validation policy itself lives in the users
// service; this package only looks tokens up.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Account is the identity stored under a token in the authdb.
type Account struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Client resolves tokens to accounts. An unknown token yields
// (nil, nil), not an error.
type Client interface {
	Account(ctx context.Context, token string) (*Account, error)
}

// RedisClient reads accounts from the authdb Redis, where each token is
// a key holding a JSON account record.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to the authdb Redis at addr.
func NewRedisClient(ctx context.Context, addr string) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("authdb connect %s: %w", addr, err)
	}
	return &RedisClient{client: client}, nil
}

// Account looks up the account stored under token.
func (c *RedisClient) Account(ctx context.Context, token string) (*Account, error) {
	record, err := c.client.Get(ctx, token).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authdb get: %w", err)
	}
	var account Account
	if err := json.Unmarshal(record, &account); err != nil {
		return nil, fmt.Errorf("authdb decode: %w", err)
	}
	return &account, nil
}

// Close closes the Redis client.
func (c *RedisClient) Close() error {
	return c.client.Close()
}

// FakeClient is an in-memory token table for tests and offline runs.
type FakeClient struct {
	mu       sync.Mutex
	accounts map[string]Account
}

// NewFakeClient returns an empty fake authdb.
func NewFakeClient() *FakeClient {
	return &FakeClient{accounts: make(map[string]Account)}
}

// AddAccount registers an account under token.
func (c *FakeClient) AddAccount(token string, account Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[token] = account
}

// Account resolves a token previously registered with AddAccount.
func (c *FakeClient) Account(ctx context.Context, token string) (*Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	account, ok := c.accounts[token]
	if !ok {
		return nil, nil
	}
	return &account, nil
}
