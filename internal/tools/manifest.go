package tools

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Override adjusts a single tool's exposure without touching code:
// operators can disable a tool, rewrite its description, or tighten its
// execution deadline.
type Override struct {
	Enabled     *bool  `toml:"enabled"`
	Description string `toml:"description"`
	TimeoutSecs int    `toml:"timeout_secs"`
}

// Manifest is the parsed tools.toml file.
//
//	[tools.prepare_and_send]
//	timeout_secs = 60
//
//	[tools.translate_text]
//	enabled = false
type Manifest struct {
	Tools map[string]Override `toml:"tools"`
}

// LoadManifest reads and parses a tools.toml manifest. A missing path
// yields an empty manifest rather than an error.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return &Manifest{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Allowed reports whether the named tool is exposed.
func (m *Manifest) Allowed(name string) bool {
	ov, ok := m.Tools[name]
	if !ok || ov.Enabled == nil {
		return true
	}
	return *ov.Enabled
}

// DescriptionFor returns the override description, or fallback.
func (m *Manifest) DescriptionFor(name, fallback string) string {
	if ov, ok := m.Tools[name]; ok && ov.Description != "" {
		return ov.Description
	}
	return fallback
}

// TimeoutFor returns the execution deadline for a tool.
func (m *Manifest) TimeoutFor(name string, fallback time.Duration) time.Duration {
	if ov, ok := m.Tools[name]; ok && ov.TimeoutSecs > 0 {
		return time.Duration(ov.TimeoutSecs) * time.Second
	}
	return fallback
}
