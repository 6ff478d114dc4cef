package cli

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvLoader_LaterFilesWin(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "base.env")
	second := filepath.Join(dir, "override.env")
	if err := os.WriteFile(first, []byte("EVENTSYNC_TEST_PAGE_SIZE=10\nEVENTSYNC_TEST_SOURCE=base\n"), 0o600); err != nil {
		t.Fatalf("write base env: %v", err)
	}
	if err := os.WriteFile(second, []byte("EVENTSYNC_TEST_SOURCE=override\n"), 0o600); err != nil {
		t.Fatalf("write override env: %v", err)
	}
	t.Setenv(EnvFileVar, "")
	t.Setenv("EVENTSYNC_TEST_PAGE_SIZE", "")
	t.Setenv("EVENTSYNC_TEST_SOURCE", "")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, ".env")
	if err := fs.Parse([]string{"--env", first + "," + second}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected two loaded files, got %#v", loaded)
	}
	if got := os.Getenv("EVENTSYNC_TEST_SOURCE"); got != "override" {
		t.Fatalf("expected later file to win, got %q", got)
	}
	if got := os.Getenv("EVENTSYNC_TEST_PAGE_SIZE"); got != "10" {
		t.Fatalf("expected base value to survive, got %q", got)
	}
}

func TestEnvLoader_MissingDefaultIsIgnored(t *testing.T) {
	t.Setenv(EnvFileVar, "")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, filepath.Join(t.TempDir(), "absent.env"))
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("missing default file must not fail: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected nothing loaded, got %#v", loaded)
	}
}

func TestEnvLoader_MissingExplicitFileFails(t *testing.T) {
	t.Setenv(EnvFileVar, filepath.Join(t.TempDir(), "nope.env"))

	loader := AddEnvFlag(flag.NewFlagSet("test", flag.ContinueOnError), ".env")
	if _, err := loader.Load(); err == nil {
		t.Fatalf("expected error for explicitly requested missing file")
	}
}
