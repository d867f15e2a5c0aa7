package memstore

import (
	"sync"

	"github.com/jrsteele09/ferretcontrol-console/tokenstore"
)

var _ tokenstore.Store = (*MemStore)(nil)

type MemStore struct {
	values map[string]string
	lock   sync.RWMutex

	// FailSet makes Set return the error for matching keys (tests only)
	FailSet map[string]error
}

func New() *MemStore {
	return &MemStore{
		values:  make(map[string]string),
		FailSet: make(map[string]error),
	}
}

func (ms *MemStore) Get(key string) (string, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	v, ok := ms.values[key]
	if !ok {
		return "", tokenstore.ErrNotFound
	}
	return v, nil
}

func (ms *MemStore) Set(key, value string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	if err := ms.FailSet[key]; err != nil {
		return err
	}
	ms.values[key] = value
	return nil
}

func (ms *MemStore) Delete(key string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	delete(ms.values, key)
	return nil
}

// Len returns the number of stored keys
func (ms *MemStore) Len() int {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	return len(ms.values)
}
