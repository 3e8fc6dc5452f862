package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(xdg, appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirHome(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheLocation(t *testing.T) {
	c := &CLI{config: DefaultConfig()}

	c.config.Cache.Dir = "/tmp/cg"
	if got := c.cacheLocation(); got != "/tmp/cg" {
		t.Errorf("file backend = %q", got)
	}

	c.config.Cache.Backend = cacheRedis
	c.config.Cache.RedisAddr = "localhost:6379"
	if got := c.cacheLocation(); got != "redis://localhost:6379" {
		t.Errorf("redis backend = %q", got)
	}

	c.config.Cache.Backend = cacheNone
	if got := c.cacheLocation(); got != "" {
		t.Errorf("none backend = %q", got)
	}
}

func TestNewCacheNoCache(t *testing.T) {
	c := &CLI{config: DefaultConfig(), noCache: true}
	c.config.Cache.Dir = t.TempDir()

	ch, err := c.newCache()
	if err != nil {
		t.Fatalf("newCache() error: %v", err)
	}
	defer ch.Close()

	entries, _ := os.ReadDir(c.config.Cache.Dir)
	if len(entries) != 0 {
		t.Errorf("--no-cache should not touch the cache dir, found %d entries", len(entries))
	}
}

func TestCacheClearCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, "[cache]\nbackend = \"file\"\ndir = \""+filepath.ToSlash(dir)+"\"\n")
	if err := os.WriteFile(filepath.Join(dir, "stale.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	root := New(&bytes.Buffer{}, LogWarn).RootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", cfg, "cache", "clear"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	if !strings.Contains(out.String(), "Cleared file cache") {
		t.Errorf("output = %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "stale.json")); !os.IsNotExist(err) {
		t.Errorf("stale entry survived: %v", err)
	}
}
