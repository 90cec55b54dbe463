package publish

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"mex-go/internal/mex"
)

// MemoryPublisher keeps uploads in a map. It exists for tests.
type MemoryPublisher struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryPublisher creates an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{objects: make(map[string][]byte)}
}

func (p *MemoryPublisher) ValidateSetup() error {
	return nil
}

func (p *MemoryPublisher) Put(key string, r io.Reader, size int64) error {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	if n != size {
		return fmt.Errorf("short read for %s: got %d of %d bytes", key, n, size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects[key] = buf.Bytes()
	return nil
}

// Get returns the stored bytes for key, or false if absent.
func (p *MemoryPublisher) Get(key string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.objects[key]
	return data, ok
}

// Keys returns the stored keys in no particular order.
func (p *MemoryPublisher) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.objects))
	for k := range p.objects {
		keys = append(keys, k)
	}
	return keys
}

// Compile-time check that MemoryPublisher implements mex.Publisher
var _ mex.Publisher = (*MemoryPublisher)(nil)
