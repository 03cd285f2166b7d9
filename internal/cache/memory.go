package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/dgallion1/docmerge/internal/generator"
)

// MemoryConfig sizes an in-process cache.
type MemoryConfig struct {
	// MaxEntries is the maximum number of fingerprints kept. 0 disables caching.
	MaxEntries int
	// TTL is the lifetime of an entry. 0 means no expiration.
	TTL time.Duration
}

// Memory is an LRU cache with optional expiry.
type Memory struct {
	mu     sync.Mutex
	items  map[string]*memoryEntry
	lru    *list.List
	config MemoryConfig
	now    func() time.Time
}

type memoryEntry struct {
	key       string
	artifacts []generator.Artifact
	expiry    time.Time
	element   *list.Element
}

func NewMemory(config MemoryConfig) *Memory {
	return &Memory{
		items:  make(map[string]*memoryEntry),
		lru:    list.New(),
		config: config,
		now:    time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]generator.Artifact, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if m.config.TTL > 0 && m.now().After(e.expiry) {
		m.removeLocked(e)
		return nil, false, nil
	}
	m.lru.MoveToFront(e.element)
	return generator.CloneAll(e.artifacts), true, nil
}

func (m *Memory) Put(_ context.Context, key string, artifacts []generator.Artifact) error {
	if m.config.MaxEntries == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var expiry time.Time
	if m.config.TTL > 0 {
		expiry = m.now().Add(m.config.TTL)
	}

	if existing, ok := m.items[key]; ok {
		existing.artifacts = generator.CloneAll(artifacts)
		existing.expiry = expiry
		m.lru.MoveToFront(existing.element)
		return nil
	}

	if m.lru.Len() >= m.config.MaxEntries {
		if oldest := m.lru.Back(); oldest != nil {
			m.removeLocked(oldest.Value.(*memoryEntry))
		}
	}

	e := &memoryEntry{key: key, artifacts: generator.CloneAll(artifacts), expiry: expiry}
	e.element = m.lru.PushFront(e)
	m.items[key] = e
	return nil
}

// Remove drops a fingerprint.
func (m *Memory) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.items[key]; ok {
		m.removeLocked(e)
	}
}

// Size returns the number of cached fingerprints.
func (m *Memory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) removeLocked(e *memoryEntry) {
	delete(m.items, e.key)
	m.lru.Remove(e.element)
}
