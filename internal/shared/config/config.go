package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	DatabaseURL string
	RedisURL    string

	LLMProvider  string
	LLMModel     string
	ConverterURL string

	LocalStoreDir string
	ClientAPIKey  string
	TokenSecret   string

	SessionTTL       time.Duration
	ArtifactCacheTTL time.Duration
	ExportCacheTTL   time.Duration
	TokenTTL         time.Duration

	GenerationMaxTokens int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	for _, path := range []string{".env", "cmd/.env"} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	secret := getEnv("TOKEN_SECRET", "")

	if env == "production" {
		if dbURL == "" {
			log.Printf("DATABASE_URL is required in production")
		}
		if secret == "" {
			log.Fatal("TOKEN_SECRET is required in production")
		}
	}
	if secret == "" {
		secret = "dev-secret"
	}

	return Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 env,
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:         dbURL,
		RedisURL:            getEnv("REDIS_URL", ""),
		LLMProvider:         normalizeProvider(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:            getEnv("LLM_MODEL", ""),
		ConverterURL:        getEnv("CONVERTER_URL", ""),
		LocalStoreDir:       getEnv("LOCAL_STORE_DIR", "./data"),
		ClientAPIKey:        getEnv("CLIENT_API_KEY", ""),
		TokenSecret:         secret,
		SessionTTL:          getDuration("SESSION_TTL", 24*time.Hour),
		ArtifactCacheTTL:    getDuration("ARTIFACT_CACHE_TTL", 10*time.Minute),
		ExportCacheTTL:      getDuration("EXPORT_CACHE_TTL", time.Hour),
		TokenTTL:            getDuration("TOKEN_TTL", time.Hour),
		GenerationMaxTokens: getInt("GENERATION_MAX_TOKENS", 3000),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q, using default", key, raw)
		return def
	}
	return val
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid int %q, using default", key, raw)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "none", "placeholder":
		return "none"
	default:
		return "openai"
	}
}
