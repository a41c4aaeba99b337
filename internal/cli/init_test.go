package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("INVOICER_TEST_KEY=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INVOICER_TEST_KEY", "")
	os.Unsetenv("INVOICER_TEST_KEY")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("INVOICER_TEST_KEY"); got != "from-file" {
		t.Errorf("INVOICER_TEST_KEY = %q, want from-file", got)
	}
}

func TestLoadEnvFileMissingIsIgnored(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("LoadEnvFile() error = %v, want nil", err)
	}
}

func TestLoadEnvFileKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("INVOICER_TEST_KEEP=file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INVOICER_TEST_KEEP", "env")
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("INVOICER_TEST_KEEP"); got != "env" {
		t.Errorf("INVOICER_TEST_KEEP = %q, want env", got)
	}
}
