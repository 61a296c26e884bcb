// Package config holds the tooldeck server configuration: a single JSON
// file with defaults created on first run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all tooldeck configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// SMTP submission settings for the email toolset
	SMTP SMTPConfig `json:"smtp"`

	// DeepL API settings for the translation toolset
	DeepL DeepLConfig `json:"deepl"`

	// MQTT invocation channel (optional)
	MQTT MQTTConfig `json:"mqtt"`

	// Operator authentication for the HTTP gateway
	Auth AuthConfig `json:"auth"`

	// Invocation audit journal
	Audit AuditConfig `json:"audit"`

	// Tool manifest overrides
	Tools ToolsConfig `json:"tools"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	DataDir  string `json:"dataDir"`
	LogLevel string `json:"logLevel"`
}

// SMTPConfig mirrors the mail submission settings the email toolset needs.
// Encryption is "tls" (implicit TLS, the classic SMTPS port 465) or
// "starttls" (plaintext connect, then upgrade).
type SMTPConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	From        string `json:"from"`
	Password    string `json:"password,omitempty"`
	Signature   string `json:"signature,omitempty"`
	Encryption  string `json:"encryption"`
	TimeoutSecs int    `json:"timeoutSecs"`
}

type DeepLConfig struct {
	APIKey      string `json:"apiKey,omitempty"`
	BaseURL     string `json:"baseUrl"`
	TimeoutSecs int    `json:"timeoutSecs"`
}

type MQTTConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// AuthConfig gates the gateway's invoke and audit routes. PasswordHash is a
// bcrypt hash of the operator password; tokens are HS256 JWTs.
type AuthConfig struct {
	Enabled         bool   `json:"enabled"`
	JWTSecret       string `json:"jwtSecret,omitempty"`
	PasswordHash    string `json:"passwordHash,omitempty"`
	TokenTTLMinutes int    `json:"tokenTtlMinutes"`
}

type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// ToolsConfig points at the optional tools.toml manifest and sets the
// confirmation deadline for side-effecting tools.
type ToolsConfig struct {
	ManifestPath       string `json:"manifestPath,omitempty"`
	ConfirmTimeoutSecs int    `json:"confirmTimeoutSecs"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8430,
			DataDir:  "./data",
			LogLevel: "info",
		},
		SMTP: SMTPConfig{
			Host:        "smtp.gmail.com",
			Port:        465,
			From:        "someone@example.com",
			Encryption:  "tls",
			TimeoutSecs: 30,
		},
		DeepL: DeepLConfig{
			BaseURL:     "https://api-free.deepl.com/v2",
			TimeoutSecs: 15,
		},
		MQTT: MQTTConfig{
			Host: "127.0.0.1",
			Port: 1883,
		},
		Auth: AuthConfig{
			TokenTTLMinutes: 60,
		},
		Audit: AuditConfig{
			Enabled: true,
		},
		Tools: ToolsConfig{
			ConfirmTimeoutSecs: 120,
		},
	}
}

// Load reads config from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := os.MkdirAll(cfg.Server.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return cfg, nil
}

// Save writes config to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0640)
}

// AuditPath resolves the audit database path, defaulting into the data dir.
func (c *Config) AuditPath() string {
	if c.Audit.Path != "" {
		return c.Audit.Path
	}
	return filepath.Join(c.Server.DataDir, "audit.db")
}
