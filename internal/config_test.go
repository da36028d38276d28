package internal

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Remote.BaseURL = "https://tasks.example.com/v1"
	cfg.Remote.Token = "secret"
	return cfg
}

func TestDefaultConfig_MissingRemote(t *testing.T) {
	cfg := NewDefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("default config without remote credentials should fail validation")
	}
}

func TestConfig_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config should pass: %v", err)
	}
}

func TestSyncConfig_Durations(t *testing.T) {
	cfg := SyncConfig{IntervalSeconds: 300, SettleDelaySeconds: 2, SuppressWindowSeconds: 5}
	if got := cfg.Interval(); got != 5*time.Minute {
		t.Errorf("Interval() = %v, want 5m", got)
	}
	if got := cfg.SettleDelay(); got != 2*time.Second {
		t.Errorf("SettleDelay() = %v, want 2s", got)
	}
	if got := cfg.SuppressWindow(); got != 5*time.Second {
		t.Errorf("SuppressWindow() = %v, want 5s", got)
	}
}

func TestSyncConfig_ZeroInterval(t *testing.T) {
	cfg := SyncConfig{IntervalSeconds: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero interval should fail validation")
	}
}

func TestVaultConfig_RequiresTasksDoc(t *testing.T) {
	cfg := VaultConfig{Path: "./vault", TasksDoc: ""}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty tasks doc should fail validation")
	}
}

func TestHTTPConfig_DisabledSkipsPortCheck(t *testing.T) {
	cfg := HTTPConfig{Enabled: false, Port: 0}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled http should not require a port: %v", err)
	}
}

func TestHTTPConfig_EnabledRequiresPort(t *testing.T) {
	cfg := HTTPConfig{Enabled: true, Port: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled http with no port should fail validation")
	}
}

func TestHistoryConfig_EnabledRequiresPath(t *testing.T) {
	cfg := HistoryConfig{Enabled: true, Path: ""}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled history with no path should fail validation")
	}
	cfg.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled history should skip path check: %v", err)
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
