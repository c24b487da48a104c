package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arkadem/campus-platform-iam/internal/core/domain"
	"github.com/arkadem/campus-platform-iam/internal/repository"
)

const defaultAccountCachePrefix = "iam:account:profile"

// AccountCache keeps a short-lived JSON copy of account profiles so read-heavy
// endpoints skip the relational store. Mutating operations must evict.
type AccountCache struct {
	client *red.Client
	prefix string
	ttl    time.Duration
}

// NewAccountCache constructs a cache with the provided key prefix and TTL.
func NewAccountCache(client *red.Client, keyPrefix string, ttl time.Duration) *AccountCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultAccountCachePrefix
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &AccountCache{client: client, prefix: prefix, ttl: ttl}
}

type cachedAccount struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Nickname     string `json:"nickname"`
	PasswordHash string `json:"password_hash"`
	Status       string `json:"status"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Read returns the cached account for the id, or repository.ErrNotFound.
func (c *AccountCache) Read(ctx context.Context, id string) (*domain.Account, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get account cache: %w", err)
	}

	var entry cachedAccount
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// Corrupted entries are dropped rather than served.
		_ = c.client.Del(ctx, c.key(id)).Err()
		return nil, repository.ErrNotFound
	}

	return &domain.Account{
		ID:           entry.ID,
		Email:        entry.Email,
		Nickname:     entry.Nickname,
		PasswordHash: entry.PasswordHash,
		Status:       domain.AccountStatus(entry.Status),
		CreatedAt:    time.Unix(entry.CreatedAt, 0).UTC(),
		UpdatedAt:    time.Unix(entry.UpdatedAt, 0).UTC(),
	}, nil
}

// Write stores the account under its id with the cache TTL.
func (c *AccountCache) Write(ctx context.Context, account domain.Account) error {
	entry := cachedAccount{
		ID:           account.ID,
		Email:        account.Email,
		Nickname:     account.Nickname,
		PasswordHash: account.PasswordHash,
		Status:       string(account.Status),
		CreatedAt:    account.CreatedAt.UTC().Unix(),
		UpdatedAt:    account.UpdatedAt.UTC().Unix(),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal account cache entry: %w", err)
	}

	if err := c.client.Set(ctx, c.key(account.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set account cache: %w", err)
	}

	return nil
}

// Evict drops the cached profile for the id.
func (c *AccountCache) Evict(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del account cache: %w", err)
	}
	return nil
}

func (c *AccountCache) key(id string) string {
	return fmt.Sprintf("%s:%s", c.prefix, id)
}
