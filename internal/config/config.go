package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Supported LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Config holds the configuration for the application. It is built once
// at startup and injected; nothing reads the environment after this.
type Config struct {
	// LLM provider selection.
	LLMProvider          string
	GeminiAPIKey         string
	GeminiModel          string
	GeminiEmbeddingModel string
	GroqAPIKey           string
	GroqModel            string

	// HTTP server.
	ListenAddr     string
	AdminAPISecret string

	// Data directory, database and diagnostics.
	DataDir       string
	DatabasePath  string
	SaveArtifacts bool

	// Optional remote profile service ("<key id>:<hex secret>" admin key).
	ProfileServiceURL string
	ProfileAdminKey   string

	// Telegram bot.
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
	DefaultUserCode        string
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = ProviderGemini
	}
	if provider != ProviderGemini && provider != ProviderGroq {
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", provider)
	}

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	groqAPIKey := os.Getenv("GROQ_API_KEY")
	if provider == ProviderGemini && geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	if provider == ProviderGroq && groqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "gemini-2.0-flash"
	}
	geminiEmbeddingModel := os.Getenv("GEMINI_EMBEDDING_MODEL")
	if geminiEmbeddingModel == "" {
		geminiEmbeddingModel = "embedding-001"
	}
	groqModel := os.Getenv("GROQ_MODEL")
	if groqModel == "" {
		groqModel = "llama-3.3-70b-versatile"
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	databasePath := os.Getenv("DATABASE_PATH")
	if databasePath == "" {
		databasePath = filepath.Join(dataDir, "ai-menu-builder.db")
	}

	return &Config{
		LLMProvider:            provider,
		GeminiAPIKey:           geminiAPIKey,
		GeminiModel:            geminiModel,
		GeminiEmbeddingModel:   geminiEmbeddingModel,
		GroqAPIKey:             groqAPIKey,
		GroqModel:              groqModel,
		ListenAddr:             listenAddr,
		AdminAPISecret:         os.Getenv("ADMIN_API_SECRET"),
		DataDir:                dataDir,
		DatabasePath:           databasePath,
		SaveArtifacts:          os.Getenv("SAVE_ARTIFACTS") == "true",
		ProfileServiceURL:      os.Getenv("PROFILE_SERVICE_URL"),
		ProfileAdminKey:        os.Getenv("PROFILE_SERVICE_ADMIN_KEY"),
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: envInt64List("TELEGRAM_ALLOWED_USER_IDS"),
		AdminTelegramID:        envInt64("ADMIN_TELEGRAM_ID"),
		DefaultUserCode:        os.Getenv("DEFAULT_USER_CODE"),
	}, nil
}

func envInt64(key string) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// envInt64List parses a comma-separated id list, skipping entries that
// do not parse.
func envInt64List(key string) []int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
