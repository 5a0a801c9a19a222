package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("OPENROUTER_API_KEY", "test_api_key")
	os.Setenv("SOLUTION_MODEL", "test_model")
	os.Setenv("ENABLE_FILE_LOGGING", "true")
	os.Setenv("HOTKEY_CAPTURE", "Ctrl+Shift+T")

	defer func() {
		os.Unsetenv("OPENROUTER_API_KEY")
		os.Unsetenv("SOLUTION_MODEL")
		os.Unsetenv("ENABLE_FILE_LOGGING")
		os.Unsetenv("HOTKEY_CAPTURE")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.APIKey != "test_api_key" {
		t.Errorf("Expected APIKey to be 'test_api_key', got '%s'", cfg.APIKey)
	}
	if cfg.SolutionModel != "test_model" {
		t.Errorf("Expected SolutionModel to be 'test_model', got '%s'", cfg.SolutionModel)
	}
	if !cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be true, got %v", cfg.EnableFileLogging)
	}
	if cfg.Hotkeys.Capture != "Ctrl+Shift+T" {
		t.Errorf("Expected capture hotkey to be 'Ctrl+Shift+T', got '%s'", cfg.Hotkeys.Capture)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"BASE_URL", "QUEUE_CAPACITY", "BRIDGE_PORT", "REQUEST_DEADLINE_SEC", "LANGUAGE"} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.BaseURL != defaultBaseURL {
		t.Errorf("Expected default base URL %q, got %q", defaultBaseURL, cfg.BaseURL)
	}
	if cfg.QueueCapacity != defaultQueueCapacity {
		t.Errorf("Expected default queue capacity %d, got %d", defaultQueueCapacity, cfg.QueueCapacity)
	}
	if cfg.BridgePort != defaultBridgePort {
		t.Errorf("Expected default bridge port %d, got %d", defaultBridgePort, cfg.BridgePort)
	}
	if cfg.DeadlineSec != defaultDeadlineSec {
		t.Errorf("Expected default deadline %d, got %d", defaultDeadlineSec, cfg.DeadlineSec)
	}
	if cfg.Language != defaultLanguage {
		t.Errorf("Expected default language %q, got %q", defaultLanguage, cfg.Language)
	}
}

func TestGetEnvInt(t *testing.T) {
	os.Setenv("QUEUE_CAPACITY", "not-a-number")
	defer os.Unsetenv("QUEUE_CAPACITY")

	if got := getEnvInt("QUEUE_CAPACITY", 5); got != 5 {
		t.Errorf("Expected fallback 5 for invalid integer, got %d", got)
	}

	os.Setenv("QUEUE_CAPACITY", "-3")
	if got := getEnvInt("QUEUE_CAPACITY", 5); got != 5 {
		t.Errorf("Expected fallback 5 for non-positive integer, got %d", got)
	}

	os.Setenv("QUEUE_CAPACITY", "9")
	if got := getEnvInt("QUEUE_CAPACITY", 5); got != 9 {
		t.Errorf("Expected 9, got %d", got)
	}
}
