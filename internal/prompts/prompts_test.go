package prompts

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLibrary_EmbeddedDefaults(t *testing.T) {
	l := NewLibrary("")
	if l.System() == "" {
		t.Error("embedded system prompt is empty")
	}
	if l.User() == "" {
		t.Error("embedded user prompt is empty")
	}
}

func TestLibrary_DirectoryOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, systemPromptFile), []byte("custom system\n"), 0600); err != nil {
		t.Fatal(err)
	}

	l := NewLibrary(dir)
	if l.System() != "custom system" {
		t.Errorf("system = %q, want custom system", l.System())
	}
	// No user override present, the embedded text stays.
	if l.User() != NewLibrary("").User() {
		t.Errorf("user prompt should fall back to embedded default")
	}
}

func TestLibrary_BlankOverrideIgnored(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, systemPromptFile), []byte("   \n"), 0600); err != nil {
		t.Fatal(err)
	}

	l := NewLibrary(dir)
	if l.System() != NewLibrary("").System() {
		t.Errorf("blank override must not replace the embedded prompt")
	}
}

func TestLibrary_ReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, userPromptFile)
	if err := os.WriteFile(path, []byte("first"), 0600); err != nil {
		t.Fatal(err)
	}

	l := NewLibrary(dir)
	if l.User() != "first" {
		t.Fatalf("user = %q, want first", l.User())
	}

	if err := os.WriteFile(path, []byte("second"), 0600); err != nil {
		t.Fatal(err)
	}
	l.reload()
	if l.User() != "second" {
		t.Errorf("user = %q, want second after reload", l.User())
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	l.reload()
	if l.User() != NewLibrary("").User() {
		t.Errorf("removing the override should revert to the embedded prompt")
	}
}
