package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Notion    NotionConfig
	Groq      GroqConfig
	Retrieval RetrievalConfig
	Cache     CacheConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type NotionConfig struct {
	Token   string
	BaseURL string // overridable for tests/local stubs
}

type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type RetrievalConfig struct {
	SourcesFile  string
	Threshold    int
	ExcerptLimit int
	// AnswerBelowThreshold keeps the original always-answer behavior: weak
	// matches still go to the model. Set false to short-circuit them to a
	// static reply without a completion call.
	AnswerBelowThreshold bool
}

type CacheConfig struct {
	TTL time.Duration
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Notion: NotionConfig{
			BaseURL: "https://api.notion.com",
		},
		Groq: GroqConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama-3.1-8b-instant",
			Timeout: 30 * time.Second,
		},
		Retrieval: RetrievalConfig{
			SourcesFile:          "sources.json",
			Threshold:            60,
			ExcerptLimit:         1500,
			AnswerBelowThreshold: true,
		},
		Cache: CacheConfig{
			TTL: 10 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists. NOTION_TOKEN and GROQ_API_KEY
// are required; everything else has defaults overridable via DOCSCHAT_*
// variables.
func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()
	return loadWith(os.Getenv)
}

// loadWith is the testable seam: it reads everything through getenv.
func loadWith(getenv func(string) string) (Config, error) {
	cfg := defaults()

	cfg.Notion.Token = getenv("NOTION_TOKEN")
	cfg.Groq.APIKey = getenv("GROQ_API_KEY")

	if v := getenv("DOCSCHAT_HOST"); v != "" {
		cfg.Server.Host = v
	}
	// PORT matches the conventional deployment variable; DOCSCHAT_PORT wins.
	for _, key := range []string{"PORT", "DOCSCHAT_PORT"} {
		if v := getenv(key); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			cfg.Server.Port = port
		}
	}

	if v := getenv("DOCSCHAT_NOTION_BASE_URL"); v != "" {
		cfg.Notion.BaseURL = v
	}
	if v := getenv("DOCSCHAT_GROQ_BASE_URL"); v != "" {
		cfg.Groq.BaseURL = v
	}
	if v := getenv("DOCSCHAT_GROQ_MODEL"); v != "" {
		cfg.Groq.Model = v
	}
	if v := getenv("DOCSCHAT_GROQ_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DOCSCHAT_GROQ_TIMEOUT %q: %w", v, err)
		}
		cfg.Groq.Timeout = d
	}

	if v := getenv("DOCSCHAT_SOURCES_FILE"); v != "" {
		cfg.Retrieval.SourcesFile = v
	}
	if v := getenv("DOCSCHAT_THRESHOLD"); v != "" {
		threshold, err := strconv.Atoi(v)
		if err != nil || threshold < 0 || threshold > 100 {
			return Config{}, fmt.Errorf("invalid DOCSCHAT_THRESHOLD %q: must be an integer in [0,100]", v)
		}
		cfg.Retrieval.Threshold = threshold
	}
	if v := getenv("DOCSCHAT_EXCERPT_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return Config{}, fmt.Errorf("invalid DOCSCHAT_EXCERPT_LIMIT %q: must be a positive integer", v)
		}
		cfg.Retrieval.ExcerptLimit = limit
	}
	if v := getenv("DOCSCHAT_ANSWER_BELOW_THRESHOLD"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DOCSCHAT_ANSWER_BELOW_THRESHOLD %q: %w", v, err)
		}
		cfg.Retrieval.AnswerBelowThreshold = b
	}

	if v := getenv("DOCSCHAT_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DOCSCHAT_CACHE_TTL %q: %w", v, err)
		}
		cfg.Cache.TTL = d
	}

	if v := getenv("DOCSCHAT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if cfg.Notion.Token == "" {
		return Config{}, fmt.Errorf("missing required config: NOTION_TOKEN (set it in the environment or a .env file)")
	}
	if cfg.Groq.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: GROQ_API_KEY (set it in the environment or a .env file)")
	}

	return cfg, nil
}
