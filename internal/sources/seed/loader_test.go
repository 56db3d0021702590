package seed

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleSeed = `---
services:
  - key: test
    path_prefix: /test
    routes:
      - id: r-second
        verb: get
        path: /second/:id
        authenticated: true
    instances:
      - id: i-1
        url: ${SEED_TEST_URL}
        locality: local
applications:
  - key: test_key
    owner: acc-1
accounts:
  - id: acc-1
    groups: [readers]
groups:
  - id: readers
    routes: [r-second]
sessions:
  - token: abc
    account: acc-1
    created_at: 2026-01-02T03:04:05Z
    expires_in: 1h
`

func TestLoaderLoad(t *testing.T) {
	t.Setenv("SEED_TEST_URL", "https://service.com")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "seed.yaml")
	if err := os.WriteFile(path, []byte(sampleSeed), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}

	f, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(f.Services) != 1 || len(f.Services[0].Routes) != 1 {
		t.Fatalf("Load() services = %+v", f.Services)
	}
	if got := f.Services[0].Instances[0].URL; got != "https://service.com" {
		t.Errorf("instance url = %q, want expanded env value", got)
	}
	if f.Sessions[0].ExpiresIn != time.Hour {
		t.Errorf("expires_in = %v, want 1h", f.Sessions[0].ExpiresIn)
	}
	if f.Sessions[0].CreatedAt == nil || f.Sessions[0].CreatedAt.Year() != 2026 {
		t.Errorf("created_at = %v", f.Sessions[0].CreatedAt)
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	if _, err := NewLoader("/nonexistent/seed.yaml").Load(); err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("services: [unclosed")); err == nil {
		t.Error("Parse() with invalid yaml should return error")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SEED_A", "alpha")

	tests := []struct {
		input string
		want  string
	}{
		{"url: ${SEED_A}", "url: alpha"},
		{"url: ${SEED_UNSET_VAR}", "url: "},
		{"url: $SEED_A", "url: $SEED_A"},
		{"a: ${SEED_A}/${SEED_A}", "a: alpha/alpha"},
	}

	for _, tt := range tests {
		if got := string(expandEnv([]byte(tt.input))); got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
