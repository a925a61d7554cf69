package storage

import "sync"

// Mem is an in-memory Store for tests and RAM-only targets. Commit is a
// no-op.
type Mem struct {
	mu   sync.Mutex
	u32s map[string]uint32
	strs map[string]string
}

// NewMem creates an empty in-memory store.
func NewMem() *Mem {
	return &Mem{
		u32s: make(map[string]uint32),
		strs: make(map[string]string),
	}
}

func memKey(namespace, key string) string {
	return namespace + "/" + key
}

func (m *Mem) GetU32(namespace, key string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.u32s[memKey(namespace, key)]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

func (m *Mem) SetU32(namespace, key string, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.u32s[memKey(namespace, key)] = value
	return nil
}

func (m *Mem) GetString(namespace, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.strs[memKey(namespace, key)]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Mem) SetString(namespace, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strs[memKey(namespace, key)] = value
	return nil
}

func (m *Mem) Commit() error {
	return nil
}
