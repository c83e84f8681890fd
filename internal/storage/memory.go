package storage

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps encoded payloads in process memory. A positive capacity limits
// the total number of stored bytes, which makes write rejection reproducible.
type Memory struct {
	mu       sync.RWMutex
	data     map[string][]byte
	capacity int
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// NewMemoryWithCapacity returns a Memory store that rejects writes once the
// stored payloads would exceed capacity bytes.
func NewMemoryWithCapacity(capacity int) *Memory {
	m := NewMemory()
	m.capacity = capacity
	return m
}

func (m *Memory) Load(_ context.Context, key string, dst any) (bool, error) {
	m.mu.RLock()
	payload, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return decodeInto(key, payload, dst), nil
}

func (m *Memory) Save(_ context.Context, key string, value any) error {
	payload, err := encode(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capacity > 0 {
		used := len(payload)
		for k, v := range m.data {
			if k != key {
				used += len(v)
			}
		}
		if used > m.capacity {
			return fmt.Errorf("save %q: %w", key, ErrQuotaExceeded)
		}
	}
	m.data[key] = payload
	return nil
}

// Raw returns the stored payload for key.
func (m *Memory) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.data[key]
	return payload, ok
}

// PutRaw stores payload for key without encoding it.
func (m *Memory) PutRaw(key string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = payload
}
