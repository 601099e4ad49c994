package cache

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrEntryNotFound represents an error where a cache entry was not found
	ErrEntryNotFound = errors.New("cache entry not found")
)

// Backend is a storage engine holding named stores of responses.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Create makes sure the named store exists
	Create(store string) error
	// Get returns ErrEntryNotFound when the key is absent
	Get(store string, key Key) (*Response, error)
	// Put overwrites the entry for key, creating the store if needed
	Put(store string, key Key, resp *Response) error
	// Names lists the existing stores
	Names() ([]string, error)
	// Drop removes a store and every entry in it
	Drop(store string) error
	Close() error
}

// New returns a registry on top of backend b
func New(b Backend) *Registry {
	return &Registry{
		b:      b,
		stores: make(map[string]*Store),
		m:      &sync.Mutex{},
	}
}

// Registry hands out store handles and manages store generations.
// Storage faults are logged and reported as misses, they never reach callers.
type Registry struct {
	b      Backend
	stores map[string]*Store
	m      *sync.Mutex
}

// Open returns the store with the given name, creating it on first use.
// Repeated calls return the same handle.
func (r *Registry) Open(name string) *Store {
	r.m.Lock()
	defer r.m.Unlock()

	if s, ok := r.stores[name]; ok {
		return s
	}
	if err := r.b.Create(name); err != nil {
		log.WithField("store", name).Errorf("failed to create store: %s", err)
	}
	s := &Store{name: name, b: r.b}
	r.stores[name] = s

	return s
}

// Names returns the sorted names of all existing stores
func (r *Registry) Names() []string {
	names, err := r.b.Names()
	if err != nil {
		log.Errorf("failed to list stores: %s", err)
		return nil
	}
	sort.Strings(names)

	return names
}

// Delete removes a store and all of its entries.
// It returns false if the store could not be removed.
func (r *Registry) Delete(name string) bool {
	r.m.Lock()
	s := r.stores[name]
	delete(r.stores, name)
	r.m.Unlock()

	// Detach the handle so in-flight writes cannot bring the store back
	if s != nil {
		s.m.Lock()
		defer s.m.Unlock()
		s.deleted = true
	}

	if err := r.b.Drop(name); err != nil {
		log.WithField("store", name).Errorf("failed to delete store: %s", err)
		return false
	}

	return true
}

// Prune deletes every store whose name starts with prefix and is not listed in keep.
// It returns the names that were deleted.
func (r *Registry) Prune(prefix string, keep ...string) []string {
	var deleted []string
	for _, name := range r.Names() {
		if !strings.HasPrefix(name, prefix) || inStringSlice(keep, name) {
			continue
		}
		log.WithField("store", name).Info("deleting old cache")
		if r.Delete(name) {
			deleted = append(deleted, name)
		}
	}

	return deleted
}

// Close closes the underlying backend
func (r *Registry) Close() error {
	return r.b.Close()
}

// Store is a handle on a single named store.
// Once its store is deleted the handle reads as empty and ignores writes.
type Store struct {
	name    string
	b       Backend
	m       sync.RWMutex
	deleted bool
}

// Name returns the store name
func (s *Store) Name() string {
	return s.name
}

// Get returns a copy of the entry for key.
// The second return value is false on a miss or a storage fault.
func (s *Store) Get(key Key) (*Response, bool) {
	s.m.RLock()
	defer s.m.RUnlock()
	if s.deleted {
		return nil, false
	}

	resp, err := s.b.Get(s.name, key)
	if errors.Cause(err) == ErrEntryNotFound {
		return nil, false
	}
	if err != nil {
		log.WithFields(log.Fields{"store": s.name, "key": key}).Errorf("failed to read entry: %s", err)
		return nil, false
	}

	return resp, true
}

// Put stores a copy of resp under key, replacing any previous entry
func (s *Store) Put(key Key, resp *Response) {
	s.m.RLock()
	defer s.m.RUnlock()
	if s.deleted {
		log.WithFields(log.Fields{"store": s.name, "key": key}).Debug("store was deleted, dropping write")
		return
	}

	err := s.b.Put(s.name, key, resp)
	if err != nil {
		log.WithFields(log.Fields{"store": s.name, "key": key}).Errorf("failed to write entry: %s", err)
	}
}

func inStringSlice(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}

	return false
}
