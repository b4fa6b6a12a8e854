package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EngineTesseract = "tesseract"
	EngineLLM       = "llm"

	TranslatorDeepL      = "deepl"
	TranslatorOpenRouter = "openrouter"

	EnvPathEnvVar = "SSTRANSLATE_ENV"
	DataDirEnvVar = "SSTRANSLATE_DATA_DIR"
)

type LoadOptions struct {
	DataDirOverride    string
	TranslatorOverride string
	OCREngineOverride  string
}

type Config struct {
	CaptureHotkey        string
	CloseHotkey          string
	EnableFileLogging    bool
	TranslateDeadlineSec int
	OCREngine            string
	OCRLangs             string
	Translator           string
	DeepLAPIKey          string
	DeepLAPIURL          string
	OpenRouterAPIKey     string
	Model                string
	Providers            []string
	DataDir              string
	HistoryLimit         int
	CopyToClipboard      bool
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order: process env, then the first .env found
	// next to the executable, in the working directory, or at SSTRANSLATE_ENV.
	// godotenv.Load never overrides variables that are already set.
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	var providers []string
	if providersStr := os.Getenv("PROVIDERS"); providersStr != "" {
		for _, provider := range strings.Split(providersStr, ",") {
			if trimmed := strings.TrimSpace(provider); trimmed != "" {
				providers = append(providers, trimmed)
			}
		}
	}

	cfg := &Config{
		CaptureHotkey:        getEnvWithDefault("CAPTURE_HOTKEY", "F8"),
		CloseHotkey:          getEnvWithDefault("CLOSE_HOTKEY", "Esc"),
		EnableFileLogging:    strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		TranslateDeadlineSec: getPositiveInt("TRANSLATE_DEADLINE_SEC", 20),
		OCREngine:            resolveChoice(opts.OCREngineOverride, os.Getenv("OCR_ENGINE"), EngineTesseract, EngineLLM),
		OCRLangs:             getEnvWithDefault("OCR_LANGS", "eng"),
		Translator:           resolveChoice(opts.TranslatorOverride, os.Getenv("TRANSLATOR"), TranslatorDeepL, TranslatorOpenRouter),
		DeepLAPIKey:          strings.TrimSpace(os.Getenv("DEEPL_API_KEY")),
		DeepLAPIURL:          strings.TrimRight(strings.TrimSpace(os.Getenv("DEEPL_API_URL")), "/"),
		OpenRouterAPIKey:     strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),
		Model:                os.Getenv("MODEL"),
		Providers:            providers,
		DataDir:              resolveDataDir(opts),
		HistoryLimit:         getPositiveInt("HISTORY_LIMIT", 50),
		CopyToClipboard:      strings.ToLower(os.Getenv("COPY_TO_CLIPBOARD")) == "true",
	}

	return cfg, nil
}

// SettingsPath and HistoryPath locate the two JSON documents.
func (c *Config) SettingsPath() string { return filepath.Join(c.DataDir, "settings.json") }
func (c *Config) HistoryPath() string  { return filepath.Join(c.DataDir, "history.json") }

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveDataDir(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.DataDirOverride); override != "" {
		return override
	}
	if dir := strings.TrimSpace(os.Getenv(DataDirEnvVar)); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "sstranslate")
	}
	return "."
}

// resolveChoice picks the first non-empty of override and env that is one
// of the allowed values; the first allowed value is the default.
func resolveChoice(override, env string, allowed ...string) string {
	for _, candidate := range []string{override, env} {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		for _, a := range allowed {
			if candidate == a {
				return a
			}
		}
	}
	return allowed[0]
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
