package tools

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.toml")

	content := `
[tools.translate_text]
enabled = false

[tools.prepare_and_send]
description = "Send email (asks for confirmation first)"
timeout_secs = 180
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if m.Allowed("translate_text") {
		t.Error("translate_text should be disabled")
	}
	if !m.Allowed("prepare_and_send") {
		t.Error("prepare_and_send should stay enabled")
	}
	if !m.Allowed("never_mentioned") {
		t.Error("unmentioned tools default to enabled")
	}

	if got := m.DescriptionFor("prepare_and_send", "fallback"); got != "Send email (asks for confirmation first)" {
		t.Errorf("description override not applied: %q", got)
	}
	if got := m.DescriptionFor("translate_text", "fallback"); got != "fallback" {
		t.Errorf("fallback description expected: %q", got)
	}

	if got := m.TimeoutFor("prepare_and_send", time.Second); got != 180*time.Second {
		t.Errorf("timeout override not applied: %v", got)
	}
	if got := m.TimeoutFor("translate_text", 15*time.Second); got != 15*time.Second {
		t.Errorf("fallback timeout expected: %v", got)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	m, err := LoadManifest("")
	if err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if !m.Allowed("anything") {
		t.Error("empty manifest allows everything")
	}

	m, err = LoadManifest(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if !m.Allowed("anything") {
		t.Error("missing manifest allows everything")
	}
}

func TestLoadManifestInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadManifest(path); err == nil {
		t.Fatal("invalid toml should fail")
	}
}
