package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/elevatespaces/staging-api/internal/config"
	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis, or returns nil when Redis is not
// configured or unreachable. Callers treat a nil client as "no cache".
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unavailable at %s, running without cache: %v", cfg.Addr, err)
		return nil
	}
	return client
}

// PersonalSnapshot is the cached shape of a user's credit position.
type PersonalSnapshot struct {
	Balance int64 `json:"balance"`
}

// TeamSnapshot is the cached shape of a team's credit position.
type TeamSnapshot struct {
	Wallet  int64                  `json:"wallet"`
	Members []models.MemberCredits `json:"members"`
}

// CreditCache stores short-lived credit snapshots so display reads skip the
// database. All methods are no-ops on a nil client, and cache errors are
// swallowed: the database remains the source of truth.
type CreditCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCreditCache(client *redis.Client, ttl time.Duration) *CreditCache {
	return &CreditCache{client: client, ttl: ttl}
}

func personalKey(userID uuid.UUID) string {
	return fmt.Sprintf("credits:user:%s", userID)
}

func teamKey(teamID uuid.UUID) string {
	return fmt.Sprintf("credits:team:%s", teamID)
}

func (c *CreditCache) GetPersonal(ctx context.Context, userID uuid.UUID) (*PersonalSnapshot, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, personalKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var snap PersonalSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false
	}
	return &snap, true
}

func (c *CreditCache) SetPersonal(ctx context.Context, userID uuid.UUID, snap PersonalSnapshot) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, personalKey(userID), data, c.ttl).Err(); err != nil {
		log.Printf("failed to cache personal credits for %s: %v", userID, err)
	}
}

func (c *CreditCache) GetTeam(ctx context.Context, teamID uuid.UUID) (*TeamSnapshot, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, teamKey(teamID)).Bytes()
	if err != nil {
		return nil, false
	}
	var snap TeamSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false
	}
	return &snap, true
}

func (c *CreditCache) SetTeam(ctx context.Context, teamID uuid.UUID, snap TeamSnapshot) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, teamKey(teamID), data, c.ttl).Err(); err != nil {
		log.Printf("failed to cache team credits for %s: %v", teamID, err)
	}
}

// InvalidatePersonal drops the cached snapshot after a balance mutation.
func (c *CreditCache) InvalidatePersonal(ctx context.Context, userID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, personalKey(userID)).Err(); err != nil {
		log.Printf("failed to invalidate personal credits for %s: %v", userID, err)
	}
}

// InvalidateTeam drops the cached snapshot after a wallet or allocation
// mutation.
func (c *CreditCache) InvalidateTeam(ctx context.Context, teamID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, teamKey(teamID)).Err(); err != nil {
		log.Printf("failed to invalidate team credits for %s: %v", teamID, err)
	}
}
