package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIKeyPath = "/run/secrets/api_keys/openrouter"
	APIKeyPathEnvVar  = "OPENROUTER_API_KEY_FILE"

	defaultBaseURL         = "https://openrouter.ai/api/v1"
	defaultExtractionModel = "openai/gpt-4o"
	defaultSolutionModel   = "openai/gpt-4o"
	defaultDebuggingModel  = "openai/gpt-4o"
	defaultLanguage        = "python"
	defaultQueueCapacity   = 5
	defaultBridgePort      = 49600
	defaultDeadlineSec     = 60
)

// Hotkeys holds one global key combination per action.
type Hotkeys struct {
	Capture      string
	Solve        string
	Reset        string
	MoveLeft     string
	MoveRight    string
	MoveUp       string
	MoveDown     string
	ToggleWindow string
	ToggleMode   string
	CopyCode     string
}

type Config struct {
	APIKey            string
	APIKeyPath        string
	BaseURL           string
	ExtractionModel   string
	SolutionModel     string
	DebuggingModel    string
	Language          string
	EnableFileLogging bool
	ScreenshotDir     string
	QueueCapacity     int
	BridgePort        int
	DeadlineSec       int
	Hotkeys           Hotkeys
}

type LoadOptions struct {
	APIKeyPathOverride string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use INTERVIEW_CODER_ENV as a path to a config file
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)

	cfg := &Config{
		APIKey:            resolveAPIKey(apiKeyPath),
		APIKeyPath:        apiKeyPath,
		BaseURL:           getEnvWithDefault("BASE_URL", defaultBaseURL),
		ExtractionModel:   getEnvWithDefault("EXTRACTION_MODEL", defaultExtractionModel),
		SolutionModel:     getEnvWithDefault("SOLUTION_MODEL", defaultSolutionModel),
		DebuggingModel:    getEnvWithDefault("DEBUGGING_MODEL", defaultDebuggingModel),
		Language:          getEnvWithDefault("LANGUAGE", defaultLanguage),
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		ScreenshotDir:     resolveScreenshotDir(),
		QueueCapacity:     getEnvInt("QUEUE_CAPACITY", defaultQueueCapacity),
		BridgePort:        getEnvInt("BRIDGE_PORT", defaultBridgePort),
		DeadlineSec:       getEnvInt("REQUEST_DEADLINE_SEC", defaultDeadlineSec),
		Hotkeys: Hotkeys{
			Capture:      getEnvWithDefault("HOTKEY_CAPTURE", "Ctrl+H"),
			Solve:        getEnvWithDefault("HOTKEY_SOLVE", "Ctrl+Enter"),
			Reset:        getEnvWithDefault("HOTKEY_RESET", "Ctrl+R"),
			MoveLeft:     getEnvWithDefault("HOTKEY_MOVE_LEFT", "Ctrl+Left"),
			MoveRight:    getEnvWithDefault("HOTKEY_MOVE_RIGHT", "Ctrl+Right"),
			MoveUp:       getEnvWithDefault("HOTKEY_MOVE_UP", "Ctrl+Up"),
			MoveDown:     getEnvWithDefault("HOTKEY_MOVE_DOWN", "Ctrl+Down"),
			ToggleWindow: getEnvWithDefault("HOTKEY_TOGGLE_WINDOW", "Ctrl+B"),
			ToggleMode:   getEnvWithDefault("HOTKEY_TOGGLE_MODE", "Ctrl+M"),
			CopyCode:     getEnvWithDefault("HOTKEY_COPY_CODE", "Ctrl+Shift+C"),
		},
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv("INTERVIEW_CODER_ENV"); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return os.Getenv("OPENROUTER_API_KEY")
}

func resolveScreenshotDir() string {
	if dir := os.Getenv("SCREENSHOT_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "interview-coder", "screenshots")
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
