package cache

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

func newMemLevelDBBackend() (*levelBackend, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}

	return &levelBackend{db: db}, nil
}

func TestLevelDBCorruptEntryIsMiss(t *testing.T) {
	assert := assert.New(t)
	b, err := newMemLevelDBBackend()
	require.NoError(t, err)
	defer b.Close()

	key := mustKey(t, "http://localhost:8080/static/js/app.js")
	resp := NewResponse(200, nil, []byte("console.log(1)"))
	resp.Body = []byte("tampered")
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	require.NoError(t, b.db.Put(entryKey("number-trainer-static-v1", key), data, nil))

	_, err = b.Get("number-trainer-static-v1", key)
	assert.Equal(ErrCorruptEntry, err)

	s := New(b).Open("number-trainer-static-v1")
	_, ok := s.Get(key)
	assert.False(ok)
}

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	key := mustKey(t, "http://localhost:8080/api/health")

	b, err := NewLevelDBBackend(dir)
	require.NoError(t, err)
	New(b).Open("number-trainer-api-v1").Put(key, NewResponse(200, nil, []byte(`{"status":"healthy"}`)))
	require.NoError(t, b.Close())

	b, err = NewLevelDBBackend(dir)
	require.NoError(t, err)
	defer b.Close()
	r := New(b)
	assert.Equal([]string{"number-trainer-api-v1"}, r.Names())
	got, ok := r.Open("number-trainer-api-v1").Get(key)
	assert.True(ok)
	assert.Equal(`{"status":"healthy"}`, string(got.Body))
}

func TestNewLevelDBBackendRequiresDir(t *testing.T) {
	_, err := NewLevelDBBackend("")
	assert.Error(t, err)
}
