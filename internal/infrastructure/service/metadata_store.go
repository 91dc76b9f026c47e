package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/alem-hub/academy-ledger/internal/infrastructure/persistence/redis"
)

// LocalMetadataStore keeps credential documents in process memory. It is
// used when Redis is disabled; documents are lost on restart.
type LocalMetadataStore struct {
	items *gocache.Cache
}

var _ MetadataStore = (*LocalMetadataStore)(nil)

// NewLocalMetadataStore creates an empty store.
func NewLocalMetadataStore() *LocalMetadataStore {
	return &LocalMetadataStore{items: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

// Set stores value as JSON. A zero ttl keeps the document forever.
func (s *LocalMetadataStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.items.Set(key, data, ttl)
	return nil
}

// Get decodes the document at key into dest. Absent keys return
// redis.ErrCacheMiss, same as *redis.Cache.
func (s *LocalMetadataStore) Get(_ context.Context, key string, dest any) error {
	v, ok := s.items.Get(key)
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal(v.([]byte), dest)
}
