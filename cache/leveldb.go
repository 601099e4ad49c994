package cache

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	dirPerm os.FileMode = 0700

	namePrefix  = "n:"
	entryPrefix = "e:"
)

var (
	// ErrCorruptEntry represents a stored body that no longer matches its hash
	ErrCorruptEntry = errors.New("cache entry is corrupt")
)

// NewLevelDBBackend opens (or creates) a leveldb database in cacheDir
func NewLevelDBBackend(cacheDir string) (Backend, error) {
	if cacheDir == "" {
		return nil, errors.New("cache dir not provided")
	}
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		if err := os.MkdirAll(cacheDir, dirPerm); err != nil {
			return nil, errors.Wrap(err, "failed to create cache dir")
		}
	}
	db, err := leveldb.OpenFile(cacheDir, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open leveldb in %s", cacheDir)
	}

	return &levelBackend{db: db}, nil
}

// levelBackend persists stores in leveldb.
// Store names live under "n:<store>", entries under "e:<store>\x00<key>".
type levelBackend struct {
	db *leveldb.DB
}

func nameKey(store string) []byte {
	return []byte(namePrefix + store)
}

func storePrefix(store string) []byte {
	return []byte(entryPrefix + store + "\x00")
}

func entryKey(store string, key Key) []byte {
	return append(storePrefix(store), string(key)...)
}

func (b *levelBackend) Create(store string) error {
	return errors.Wrap(b.db.Put(nameKey(store), nil, nil), "failed to save store name")
}

func (b *levelBackend) Get(store string, key Key) (*Response, error) {
	data, err := b.db.Get(entryKey(store, key), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read entry")
	}

	resp := &Response{}
	if err := json.Unmarshal(data, resp); err != nil {
		return nil, errors.Wrap(err, "failed to parse entry")
	}
	if !resp.Verify() {
		return nil, ErrCorruptEntry
	}

	return resp, nil
}

func (b *levelBackend) Put(store string, key Key, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "failed to marshal entry")
	}

	batch := new(leveldb.Batch)
	batch.Put(nameKey(store), nil)
	batch.Put(entryKey(store, key), data)

	return errors.Wrap(b.db.Write(batch, nil), "failed to write entry")
}

func (b *levelBackend) Names() ([]string, error) {
	it := b.db.NewIterator(util.BytesPrefix([]byte(namePrefix)), nil)
	defer it.Release()

	var names []string
	for it.Next() {
		names = append(names, string(it.Key()[len(namePrefix):]))
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate store names")
	}

	return names, nil
}

func (b *levelBackend) Drop(store string) error {
	batch := new(leveldb.Batch)
	batch.Delete(nameKey(store))

	it := b.db.NewIterator(util.BytesPrefix(storePrefix(store)), nil)
	for it.Next() {
		k := make([]byte, len(it.Key()))
		copy(k, it.Key())
		batch.Delete(k)
	}
	it.Release()
	if err := it.Error(); err != nil {
		return errors.Wrap(err, "failed to iterate store entries")
	}

	return errors.Wrap(b.db.Write(batch, nil), "failed to drop store")
}

func (b *levelBackend) Close() error {
	return b.db.Close()
}
