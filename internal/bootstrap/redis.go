package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orafinite/scan-api/config"
	"github.com/orafinite/scan-api/internal/data"
)

const redisPingTimeout = 5 * time.Second

// RedisConnectConfig groups dependencies for connecting to Redis.
type RedisConnectConfig struct {
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// ConnectRedis builds a client via data.NewRedisClient and verifies the
// connection with a bounded ping before handing it out.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single or sentinel clients at runtime.
func ConnectRedis(cfg RedisConnectConfig) (redis.UniversalClient, error) {
	client, err := data.NewRedisClient(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "addr", redactAddr(connAddr(cfg.RedisConfig)))
	}

	return client, nil
}

// connAddr describes the connection target for logging.
func connAddr(cfg config.RedisConfig) string {
	if cfg.UseSentinel {
		return "sentinel:" + cfg.SentinelMasterName
	}
	return strings.TrimSpace(cfg.URI)
}

// redactAddr strips credentials from a connection description before logging.
func redactAddr(addrDesc string) string {
	if u, parseErr := url.Parse(addrDesc); parseErr == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if i := strings.LastIndex(addrDesc, "@"); i > -1 {
		return addrDesc[i+1:]
	}
	return addrDesc
}
