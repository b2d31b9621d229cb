package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
)

// MetadataCache decorates a domain.TokenMetadataSource with a Redis
// read-through cache. Entries never expire: ERC-20 name, symbol and decimals
// are immutable on chain.
//
// Key schema:
//
//	erc20:{address} - JSON-serialized domain.Erc20
type MetadataCache struct {
	rdb    *redis.Client
	inner  domain.TokenMetadataSource
	logger *slog.Logger
}

// NewMetadataCache wraps inner with a cache backed by the given Client.
func NewMetadataCache(c *Client, inner domain.TokenMetadataSource, logger *slog.Logger) *MetadataCache {
	return &MetadataCache{
		rdb:    c.rdb,
		inner:  inner,
		logger: logger.With(slog.String("component", "metadata_cache")),
	}
}

func erc20Key(address string) string { return "erc20:" + address }

// Erc20Metadata returns the cached metadata for address, falling back to the
// inner source on a miss. A cache write failure is logged and swallowed; the
// fetched metadata is still returned.
func (mc *MetadataCache) Erc20Metadata(ctx context.Context, address string) (domain.Erc20, error) {
	key := erc20Key(address)

	data, err := mc.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var token domain.Erc20
		if err := json.Unmarshal(data, &token); err == nil {
			return token, nil
		}
		// Corrupt entry; refetch and overwrite.
		mc.logger.WarnContext(ctx, "discarding corrupt cache entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		return domain.Erc20{}, fmt.Errorf("redis: get %s: %w", key, err)
	}

	token, err := mc.inner.Erc20Metadata(ctx, address)
	if err != nil {
		return domain.Erc20{}, err
	}

	payload, err := json.Marshal(token)
	if err != nil {
		return domain.Erc20{}, fmt.Errorf("redis: marshal %s: %w", key, err)
	}
	if err := mc.rdb.Set(ctx, key, payload, 0).Err(); err != nil {
		mc.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return token, nil
}

// Compile-time interface check.
var _ domain.TokenMetadataSource = (*MetadataCache)(nil)
