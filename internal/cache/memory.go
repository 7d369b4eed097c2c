package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// Memory is an in-process TTL cache. Expiry is lazy (checked on read) with
// a periodic sweep to bound memory.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	done    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewMemory creates an in-process cache sweeping expired entries every
// sweepInterval (0 means no background sweep).
func NewMemory(sweepInterval time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go m.sweepLoop(sweepInterval)
	}
	return m
}

// Close stops the background sweep.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.done) })
}

func (m *Memory) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for k, e := range m.entries {
				if now.After(e.expiresAt) {
					delete(m.entries, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *Memory) get(key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.payload, true
}

func (m *Memory) put(key string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{payload: payload, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
}

func (m *Memory) GetWorkflow(_ context.Context, topic, workflowContext, optionsKey string) ([]byte, bool) {
	return m.get(WorkflowKey(topic, workflowContext, optionsKey))
}

func (m *Memory) PutWorkflow(_ context.Context, topic, workflowContext, optionsKey string, payload []byte, ttl time.Duration) {
	m.put(WorkflowKey(topic, workflowContext, optionsKey), payload, ttl)
}

func (m *Memory) GetAgent(_ context.Context, agent, promptKey string) (string, bool) {
	b, ok := m.get(AgentKey(agent, promptKey))
	return string(b), ok
}

func (m *Memory) PutAgent(_ context.Context, agent, promptKey, text string, ttl time.Duration) {
	m.put(AgentKey(agent, promptKey), []byte(text), ttl)
}

// Invalidate removes entries matching a glob pattern (path.Match syntax).
func (m *Memory) Invalidate(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if ok, err := path.Match(pattern, k); err == nil && ok {
			delete(m.entries, k)
		}
	}
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// Len reports live (unexpired) entries; used by tests and stats.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	now := time.Now()
	for _, e := range m.entries {
		if !now.After(e.expiresAt) {
			n++
		}
	}
	return n
}
