package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotenv(t *testing.T) {
	content := `# AI
GEMINI_API_KEY="k-123"
export ZENTASK_STORE_DRIVER=memory

SPACED_KEY = spaced_value
SINGLE='single-quoted'
not a pair
`
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, k := range []string{"GEMINI_API_KEY", "ZENTASK_STORE_DRIVER", "SPACED_KEY", "SINGLE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	if err := LoadDotenv(path); err != nil {
		t.Fatal(err)
	}

	tests := []struct{ key, want string }{
		{"GEMINI_API_KEY", "k-123"},
		{"ZENTASK_STORE_DRIVER", "memory"},
		{"SPACED_KEY", "spaced_value"},
		{"SINGLE", "single-quoted"},
	}
	for _, tt := range tests {
		if got := os.Getenv(tt.key); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestLoadDotenvKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ZENTASK_ADDR=:1111\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ZENTASK_ADDR", ":2222")

	if err := LoadDotenv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("ZENTASK_ADDR"); got != ":2222" {
		t.Fatalf("existing value overridden: %q", got)
	}
}

func TestLoadDotenvMissingFile(t *testing.T) {
	if err := LoadDotenv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}
