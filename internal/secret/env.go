package secret

import (
	"os"
	"strings"
	"sync"
)

// EnvStore reads secrets from process environment variables, which
// includes anything godotenv loaded from .env.
type EnvStore struct {
	Prefix string
}

func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

func (e *EnvStore) name(key string) string {
	return e.Prefix + strings.ToUpper(key)
}

func (e *EnvStore) Set(key string, value []byte) error {
	return os.Setenv(e.name(key), string(value))
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	v, ok := os.LookupEnv(e.name(key))
	if !ok {
		return nil, nil
	}
	return []byte(strings.TrimSpace(v)), nil
}

// MemoryStore keeps secrets in a map, such as a key passed on the command line.
type MemoryStore struct {
	mu   sync.RWMutex
	vals map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vals: make(map[string][]byte)}
}

func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vals[key], nil
}
