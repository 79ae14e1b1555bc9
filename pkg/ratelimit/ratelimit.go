package ratelimit

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Action classes consulted before credential and code verification
const (
	ClassLogin     = "login"
	ClassMFAVerify = "mfa_verify"
)

// Limiter answers whether an identity may perform another action of a
// given class right now. Identity is typically an email or source IP.
type Limiter interface {
	Allow(ctx context.Context, identity, class string) (bool, error)
}

// Policy is the ceiling for one action class
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicies match the verification surfaces this core protects
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		ClassLogin:     {Limit: 10, Window: time.Minute},
		ClassMFAVerify: {Limit: 5, Window: time.Minute},
	}
}

// RedisLimiter counts attempts in redis with INCR + EXPIRE windows so
// the ceiling holds across instances. When redis is unreachable it
// falls back to an in-process counter rather than failing open.
type RedisLimiter struct {
	client   *redis.Client
	policies map[string]Policy
	fallback *gocache.Cache
}

func NewRedisLimiter(client *redis.Client, policies map[string]Policy) *RedisLimiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &RedisLimiter{
		client:   client,
		policies: policies,
		fallback: gocache.New(time.Minute, 5*time.Minute),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, identity, class string) (bool, error) {
	policy, ok := l.policies[class]
	if !ok {
		return true, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", class, identity)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return l.allowFallback(key, policy), nil
	}
	if count == 1 {
		l.client.Expire(ctx, key, policy.Window)
	}

	return count <= int64(policy.Limit), nil
}

func (l *RedisLimiter) allowFallback(key string, policy Policy) bool {
	count, err := l.fallback.IncrementInt64(key, 1)
	if err != nil {
		l.fallback.Set(key, int64(1), policy.Window)
		return true
	}
	return count <= int64(policy.Limit)
}

// MemoryLimiter is a process-local limiter for tests and single-node
// deployments.
type MemoryLimiter struct {
	policies map[string]Policy
	counts   *gocache.Cache
}

func NewMemoryLimiter(policies map[string]Policy) *MemoryLimiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &MemoryLimiter{
		policies: policies,
		counts:   gocache.New(time.Minute, 5*time.Minute),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, identity, class string) (bool, error) {
	policy, ok := l.policies[class]
	if !ok {
		return true, nil
	}

	key := fmt.Sprintf("%s:%s", class, identity)
	count, err := l.counts.IncrementInt64(key, 1)
	if err != nil {
		l.counts.Set(key, int64(1), policy.Window)
		return true, nil
	}
	return count <= int64(policy.Limit), nil
}
