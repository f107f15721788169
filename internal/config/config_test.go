package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/valo_coach")
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CHAT_RATE_MAX", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTPPort != "9090" {
		t.Fatalf("unexpected port: %q", cfg.HTTPPort)
	}
	if cfg.LLMModel != "gemini-1.5-flash-latest" {
		t.Fatalf("unexpected default model: %q", cfg.LLMModel)
	}
	if cfg.LLMBaseURL == "" {
		t.Fatalf("expected default base url")
	}
	if cfg.JWTAccessTTLMinutes != 15 {
		t.Fatalf("unexpected default access ttl: %d", cfg.JWTAccessTTLMinutes)
	}
	if cfg.ChatRateMax != 5 {
		t.Fatalf("unexpected rate max: %d", cfg.ChatRateMax)
	}
	if cfg.ChatMaxConversations != 1000 || cfg.ChatConversationTTLMinutes != 60 {
		t.Fatalf("unexpected conversation limits: %d/%d", cfg.ChatMaxConversations, cfg.ChatConversationTTLMinutes)
	}
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	// t.Setenv registra la restauración; Unsetenv deja la variable ausente.
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LLM_API_KEY", "")
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("LLM_API_KEY")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for missing required vars")
	}
}
