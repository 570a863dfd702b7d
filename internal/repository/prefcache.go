// internal/repository/prefcache.go
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"comms-delivery/internal/common/logger"
	"comms-delivery/internal/models"
)

// preferenceNilSentinel caches a confirmed "no preference row" so repeated
// deliveries to unconfigured recipients skip the database too.
const preferenceNilSentinel = "nil"

// PreferenceReader is the lookup surface the channel resolver depends on.
type PreferenceReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.ChannelPreference, error)
	FindByContactID(ctx context.Context, contactID string) (*models.ChannelPreference, error)
}

// CachedPreferenceStore is a read-through cache over the preference
// repository with a bounded TTL. Cache failures fail open: a miss or broken
// cache never blocks a delivery, it just costs a database read. A brief
// stale window after a preference write is tolerated.
type CachedPreferenceStore struct {
	repo  *ChannelPreferenceRepository
	cache *redis.Client
	ttl   time.Duration
	log   logger.Logger
}

func NewCachedPreferenceStore(repo *ChannelPreferenceRepository, cache *redis.Client, ttl time.Duration, log logger.Logger) *CachedPreferenceStore {
	return &CachedPreferenceStore{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log.WithFields(map[string]interface{}{"component": "prefcache"}),
	}
}

func prefCacheKey(kind, id string) string {
	return fmt.Sprintf("pref:%s:%s", kind, id)
}

func (s *CachedPreferenceStore) FindByUserID(ctx context.Context, userID string) (*models.ChannelPreference, error) {
	return s.readThrough(ctx, prefCacheKey("user", userID), func() (*models.ChannelPreference, error) {
		return s.repo.FindByUserID(ctx, userID)
	})
}

func (s *CachedPreferenceStore) FindByContactID(ctx context.Context, contactID string) (*models.ChannelPreference, error) {
	return s.readThrough(ctx, prefCacheKey("contact", contactID), func() (*models.ChannelPreference, error) {
		return s.repo.FindByContactID(ctx, contactID)
	})
}

// Upsert writes through the repository and evicts the cache entry so the
// next read repopulates it.
func (s *CachedPreferenceStore) Upsert(ctx context.Context, p *models.ChannelPreference) error {
	if err := s.repo.Upsert(ctx, p); err != nil {
		return err
	}
	s.evict(ctx, p)
	return nil
}

func (s *CachedPreferenceStore) readThrough(ctx context.Context, key string, load func() (*models.ChannelPreference, error)) (*models.ChannelPreference, error) {
	cached, err := s.cache.Get(ctx, key).Result()
	if err == nil {
		if cached == preferenceNilSentinel {
			return nil, nil
		}
		var p models.ChannelPreference
		if err := json.Unmarshal([]byte(cached), &p); err == nil {
			return &p, nil
		}
		// Corrupt entry: fall through to the repository and overwrite.
	} else if err != redis.Nil {
		s.log.Warn("preference cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	p, err := load()
	if err != nil {
		return nil, err
	}

	payload := preferenceNilSentinel
	if p != nil {
		if data, err := json.Marshal(p); err == nil {
			payload = string(data)
		}
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		s.log.Warn("preference cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	return p, nil
}

func (s *CachedPreferenceStore) evict(ctx context.Context, p *models.ChannelPreference) {
	keys := make([]string, 0, 2)
	if p.UserID != "" {
		keys = append(keys, prefCacheKey("user", p.UserID))
	}
	if p.ContactID != "" {
		keys = append(keys, prefCacheKey("contact", p.ContactID))
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn("preference cache evict failed", map[string]interface{}{
			"keys":  keys,
			"error": err.Error(),
		})
	}
}
