// Package state persists the vault's accounting records through a key-value
// backend. Records are RLP encoded via fixed "stored" mirror structs so the
// wire shape stays stable independent of the in-memory types.
package state

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"restakevault/storage"
)

// Manager mediates all reads and writes against the storage backend. It is
// safe for concurrent use; every public operation takes the manager lock.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

// NewManager constructs a manager bound to the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var errNilManager = errors.New("state: manager not configured")

// KVPut RLP-encodes the value and stores it under the key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil || m.db == nil {
		return errNilManager
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put(key, encoded)
}

// KVGet decodes the stored value into out, reporting whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilManager
	}
	m.mu.Lock()
	raw, err := m.db.Get(key)
	m.mu.Unlock()
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// KVDelete removes the key if present.
func (m *Manager) KVDelete(key []byte) error {
	if m == nil || m.db == nil {
		return errNilManager
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Delete(key)
}

// kvHas reports raw key presence without decoding.
func (m *Manager) kvHas(key []byte) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNilManager
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.db.Get(key); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// bigIntKey renders a non-negative big integer as a fixed-width 32-byte suffix.
func bigIntKey(v *big.Int) []byte {
	buf := make([]byte, 32)
	if v != nil {
		v.FillBytes(buf)
	}
	return buf
}
