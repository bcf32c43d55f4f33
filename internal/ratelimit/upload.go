package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/fintelhq/fintel/internal/config"
)

const (
	keyUploadClient = "upload:client:%s"
	keyUploadLock   = "upload:lock:%s"
)

// UploadLimiter throttles document uploads per client and serializes
// concurrent submissions of the same document. Disabled unless configured;
// a nil limiter admits everything.
type UploadLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	rate    float64
	burst   int
	lockTTL time.Duration
}

// NewUploadLimiter builds the limiter from config. Returns nil when rate
// limiting is disabled.
func NewUploadLimiter(cfg config.Config) (*UploadLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.UploadRate <= 0 || limitCfg.UploadBurst <= 0 {
		return nil, errors.New("upload rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &UploadLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    limitCfg.UploadRate,
		burst:   limitCfg.UploadBurst,
		lockTTL: time.Duration(limitCfg.UploadLockTTLSeconds) * time.Second,
	}, nil
}

// Enabled reports whether the limiter is active.
func (l *UploadLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowClient admits or rejects one upload for the given client key.
func (l *UploadLimiter) AllowClient(ctx context.Context, clientKey string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyUploadClient, strings.TrimSpace(clientKey)), l.rate, l.burst)
}

// TryLockDocument takes a short lock keyed on the document content so the
// same file submitted twice concurrently is processed once at a time.
func (l *UploadLimiter) TryLockDocument(ctx context.Context, content []byte) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, fmt.Sprintf(keyUploadLock, contentDigest(content)), l.lockTTL)
}

// ReleaseDocument frees the document lock.
func (l *UploadLimiter) ReleaseDocument(ctx context.Context, content []byte, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, fmt.Sprintf(keyUploadLock, contentDigest(content)), token)
}

func contentDigest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
