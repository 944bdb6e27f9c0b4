package secret

import "fmt"

// APIKeyName is the secret holding the comment API key.
const APIKeyName = "YOUTUBE_API_KEY"

// SecretStore provides a pluggable interface for sensitive values such as
// API keys. Get returns an empty slice and nil error when the key is unset.
type SecretStore interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
}

// Require returns the secret as a string, failing when it is missing or empty.
func Require(s SecretStore, key string) (string, error) {
	v, err := s.Get(key)
	if err != nil {
		return "", fmt.Errorf("secret %s: %w", key, err)
	}
	if len(v) == 0 {
		return "", fmt.Errorf("secret %s is not set", key)
	}
	return string(v), nil
}
