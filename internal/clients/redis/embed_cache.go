package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
)

const embedCacheTTL = 24 * time.Hour

// EmbedCache memoizes embeddings by model and input text. A nil *EmbedCache is
// valid and disables caching, so callers never branch on configuration.
type EmbedCache struct {
	client *goredis.Client
	log    *logger.Logger
}

func NewEmbedCache(addr string, baseLog *logger.Logger) (*EmbedCache, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if addr == "" {
		return nil, nil
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	return &EmbedCache{
		client: client,
		log:    baseLog.With("service", "EmbedCache"),
	}, nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "|" + text))
	return "embed:" + hex.EncodeToString(sum[:])
}

// Get returns the cached embedding for (model, text), or nil on a miss. Cache
// failures degrade to a miss.
func (c *EmbedCache) Get(ctx context.Context, model, text string) []float32 {
	if c == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, cacheKey(model, text)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("embed cache read failed", "error", err)
		}
		return nil
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil
	}
	return vec
}

// Put stores an embedding best-effort; write failures are logged and dropped.
func (c *EmbedCache) Put(ctx context.Context, model, text string, vec []float32) {
	if c == nil || len(vec) == 0 {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(model, text), raw, embedCacheTTL).Err(); err != nil {
		c.log.Warn("embed cache write failed", "error", err)
	}
}

func (c *EmbedCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
