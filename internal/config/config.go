package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	GeminiAPIKey string        `yaml:"gemini_api_key"`
	ModelName    string        `yaml:"model_name"`
	LLMTimeout   time.Duration `yaml:"llm_timeout"`

	StorageBackend string `yaml:"storage_backend"` // "memory" or "sqlite"
	SQLitePath     string `yaml:"sqlite_path"`

	UseMockLLM bool `yaml:"use_mock_llm"` // true = use mock even with a key set
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Load reads all env vars and builds the config. If HUMANVSAI_CONFIG points
// at a YAML file, values from that file take precedence over the
// environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("HUMANVSAI_PORT", "8080"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		ModelName:    getEnv("HUMANVSAI_MODEL_NAME", "gemini-2.0-flash-exp"),
		LLMTimeout:   getDurationEnv("HUMANVSAI_LLM_TIMEOUT", 30*time.Second),

		StorageBackend: getEnv("HUMANVSAI_STORAGE_BACKEND", "memory"),
		SQLitePath:     getEnv("HUMANVSAI_SQLITE_PATH", "data/humanvsai.db"),
	}
	// Without a key the real client cannot work, fall back to the mock.
	cfg.UseMockLLM = getBoolEnv("HUMANVSAI_USE_MOCK_LLM", cfg.GeminiAPIKey == "")

	if path := os.Getenv("HUMANVSAI_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.StorageBackend != "memory" && cfg.StorageBackend != "sqlite" {
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}
