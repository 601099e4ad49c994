package cache

import (
	"sync"
)

// NewMemoryBackend returns a backend that keeps all stores in memory
func NewMemoryBackend() Backend {
	return &memoryBackend{
		data: make(map[string]map[Key]*Response),
	}
}

type memoryBackend struct {
	data map[string]map[Key]*Response
	m    sync.RWMutex
}

func (b *memoryBackend) Create(store string) error {
	b.m.Lock()
	defer b.m.Unlock()
	if _, ok := b.data[store]; !ok {
		b.data[store] = make(map[Key]*Response)
	}

	return nil
}

func (b *memoryBackend) Get(store string, key Key) (*Response, error) {
	b.m.RLock()
	defer b.m.RUnlock()
	resp, ok := b.data[store][key]
	if !ok {
		return nil, ErrEntryNotFound
	}

	return resp.Clone(), nil
}

func (b *memoryBackend) Put(store string, key Key, resp *Response) error {
	b.m.Lock()
	defer b.m.Unlock()
	entries, ok := b.data[store]
	if !ok {
		entries = make(map[Key]*Response)
		b.data[store] = entries
	}
	entries[key] = resp.Clone()

	return nil
}

func (b *memoryBackend) Names() ([]string, error) {
	b.m.RLock()
	defer b.m.RUnlock()
	names := make([]string, 0, len(b.data))
	for name := range b.data {
		names = append(names, name)
	}

	return names, nil
}

func (b *memoryBackend) Drop(store string) error {
	b.m.Lock()
	defer b.m.Unlock()
	delete(b.data, store)

	return nil
}

func (b *memoryBackend) Close() error {
	return nil
}
