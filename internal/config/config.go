package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the per-user and per-repo configuration directory name.
const DirName = ".piecewall"

// Summarizer backends.
const (
	SummarizerOpenAI = "openai"
	SummarizerOllama = "ollama"
	SummarizerEcho   = "echo"
)

// Config holds application configuration.
type Config struct {
	// PieceMaxChars bounds piece text at the input surfaces (CLI, MCP, HTTP).
	// The store itself accepts any string.
	PieceMaxChars int `json:"piece_max_chars"`

	// SeedNewRooms fills an empty room with the five starter pieces on first view.
	SeedNewRooms bool `json:"seed_new_rooms,omitempty"`

	// Summarizer selects the consolidation backend: "openai", "ollama" or "echo".
	Summarizer string `json:"summarizer,omitempty"`

	// OpenAIModel is the chat model used by the openai backend.
	OpenAIModel string `json:"openai_model,omitempty"`

	// OpenAIBaseURL overrides the API endpoint (proxies, compatible servers).
	// The API key is always read from OPENAI_API_KEY, never from this file.
	OpenAIBaseURL string `json:"openai_base_url,omitempty"`

	OllamaURL   string `json:"ollama_url,omitempty"`
	OllamaModel string `json:"ollama_model,omitempty"`

	// SummarizeTimeoutSeconds caps a single summarizer round trip.
	SummarizeTimeoutSeconds int `json:"summarize_timeout_seconds,omitempty"`

	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.piecewall/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool groups to disable entirely ("piece", "wall").
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PieceMaxChars:           500,
		Summarizer:              SummarizerOpenAI,
		OpenAIModel:             "gpt-4o-mini",
		OllamaURL:               "http://localhost:11434",
		OllamaModel:             "llama3.2",
		SummarizeTimeoutSeconds: 60,
		Temperature:             0.7,
		MaxTokens:               800,
		LogLevel:                "info",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both the global dir and the nearest
// repo-level .piecewall/config.json found walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .piecewall/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw returns a zero-valued config (not defaults) if the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		PieceMaxChars:           firstInt(overlay.PieceMaxChars, base.PieceMaxChars),
		Summarizer:              firstString(overlay.Summarizer, base.Summarizer),
		OpenAIModel:             firstString(overlay.OpenAIModel, base.OpenAIModel),
		OpenAIBaseURL:           firstString(overlay.OpenAIBaseURL, base.OpenAIBaseURL),
		OllamaURL:               firstString(overlay.OllamaURL, base.OllamaURL),
		OllamaModel:             firstString(overlay.OllamaModel, base.OllamaModel),
		SummarizeTimeoutSeconds: firstInt(overlay.SummarizeTimeoutSeconds, base.SummarizeTimeoutSeconds),
		MaxTokens:               firstInt(overlay.MaxTokens, base.MaxTokens),
		LogLevel:                firstString(overlay.LogLevel, base.LogLevel),
		DBMaxOpenConns:          firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:          firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	result.Temperature = overlay.Temperature
	if result.Temperature == 0 {
		result.Temperature = base.Temperature
	}

	// Booleans: overlay wins if true, else base
	result.SeedNewRooms = base.SeedNewRooms || overlay.SeedNewRooms
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
