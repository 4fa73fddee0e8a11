package registry

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
)

type cachedClient struct {
	c     Client
	cache *lru.Cache
}

func (cc *cachedClient) Lookup(ctx context.Context, domain string) (Record, error) {
	if v, ok := cc.cache.Get(domain); ok {
		return v.(Record), nil
	}
	rec, err := cc.c.Lookup(ctx, domain)
	if err != nil {
		// failures are not cached, the next lookup gets another chance
		return rec, err
	}
	cc.cache.Add(domain, rec)
	return rec, nil
}

// NewCachedClient keeps the last size successful lookups of c in memory.
// A non-positive size disables caching and returns c as is.
func NewCachedClient(c Client, size int) Client {
	if size <= 0 {
		return c
	}
	cache, err := lru.New(size)
	if err != nil {
		log.Warn().Msgf("failed to create registry cache: %s", err)
		return c
	}
	return &cachedClient{
		c:     c,
		cache: cache,
	}
}
