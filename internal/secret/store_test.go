package secret

import "testing"

func TestEnvStore(t *testing.T) {
	t.Setenv("CF_TEST_YOUTUBE_API_KEY", "  abc123 \n")
	s := &EnvStore{Prefix: "CF_TEST_"}

	v, err := Require(s, APIKeyName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "abc123" {
		t.Errorf("expected trimmed key, got %q", v)
	}

	if err := s.Set(APIKeyName, nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := Require(s, APIKeyName); err == nil {
		t.Error("expected error for an empty secret")
	}
	if _, err := Require(&EnvStore{Prefix: "CF_UNSET_"}, APIKeyName); err == nil {
		t.Error("expected error for a missing secret")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	if got, _ := s.Get("x"); got != nil {
		t.Errorf("expected nil for unknown key, got %q", got)
	}
	_ = s.Set("x", []byte("secret"))
	if v, err := Require(s, "x"); err != nil || v != "secret" {
		t.Errorf("got %q, %v", v, err)
	}
	_ = s.Set("x", nil)
	if _, err := Require(s, "x"); err == nil {
		t.Error("empty secret must not satisfy Require")
	}
}
