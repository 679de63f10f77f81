package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveLocal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"worlds/alpha", "worlds/alpha"},
		{"/srv/worlds/alpha", "/srv/worlds/alpha"},
		{"file:///srv/worlds/alpha", "/srv/worlds/alpha"},
	}
	for _, tt := range tests {
		got, err := Resolve(context.Background(), tt.in, t.TempDir())
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveEmpty(t *testing.T) {
	if _, err := Resolve(context.Background(), "", t.TempDir()); err == nil {
		t.Fatal("expected error for empty location")
	}
}

func TestResolveFetchesOnce(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "level.dat"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cache := t.TempDir()
	location := "file::" + src

	dst, err := Resolve(context.Background(), location, cache)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasPrefix(dst, cache) {
		t.Errorf("dst = %q, want under %q", dst, cache)
	}
	if _, err := os.Stat(filepath.Join(dst, "level.dat")); err != nil {
		t.Errorf("fetched world missing level.dat: %v", err)
	}

	again, err := Resolve(context.Background(), location, cache)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if again != dst {
		t.Errorf("second Resolve = %q, want cached %q", again, dst)
	}
}

func TestCacheNameStable(t *testing.T) {
	a := cacheName("https://example.com/worlds/alpha.zip")
	b := cacheName("https://example.com/worlds/alpha.zip")
	c := cacheName("https://example.org/worlds/alpha.zip")
	if a != b {
		t.Errorf("cacheName not stable: %q vs %q", a, b)
	}
	if a == c {
		t.Errorf("different URLs share cache name %q", a)
	}
	if !strings.HasPrefix(a, "alpha-") {
		t.Errorf("cacheName = %q, want alpha- prefix", a)
	}
}
