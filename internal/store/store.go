// Package store persists the backend client's auth state (session, PKCE verifier) as key/value strings.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/brizzai/clgmart/internal/config"
	"github.com/redis/go-redis/v9"
)

// Storage is the key/value contract the auth client keeps its state in
type Storage interface {
	// GetItem returns the value and whether it was present
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// New builds the storage selected by cfg.Driver
func New(cfg *config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case config.StorageMemory, "":
		return NewMemory(), nil
	case config.StorageFile:
		return NewFile(cfg.Path)
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		return NewRedis(client, cfg.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// Memory keeps items for the life of the process
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemory creates an empty Memory store
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
