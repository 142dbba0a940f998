package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrMissing = errors.New("config: required value missing")

const EnvConfigPath = "LINKMIND_CONFIG"

type Config struct {
	AppPort      int             `yaml:"app_port"`
	MCPTransport string          `yaml:"mcp_transport"`
	ProxyURL     string          `yaml:"proxy_url"`
	Embedding    EmbeddingConfig `yaml:"embedding"`
	Vector       VectorConfig    `yaml:"vector"`
	Search       SearchConfig    `yaml:"search"`
	Fetch        FetchConfig     `yaml:"fetch"`
	Chunk        ChunkConfig     `yaml:"chunk"`
	Ingest       IngestConfig    `yaml:"ingest"`
	Retrieval    RetrievalConfig `yaml:"retrieval"`
	Log          LogConfig       `yaml:"log"`
}

type EmbeddingConfig struct {
	Backend    string `yaml:"backend"`
	URL        string `yaml:"url"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

type VectorConfig struct {
	Backend    string `yaml:"backend"`
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port"`
	Collection string `yaml:"collection"`
}

type SearchConfig struct {
	Backend           string  `yaml:"backend"`
	SerpApiKey        string  `yaml:"serpapi_key"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	CacheSize         int     `yaml:"cache_size"`
	MaxResults        int     `yaml:"max_results"`
}

type FetchConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	CacheSize       int           `yaml:"cache_size"`
	Timeout         time.Duration `yaml:"timeout"`
	Format          string        `yaml:"format"`
	BrowserFallback bool          `yaml:"browser_fallback"`
}

type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type IngestConfig struct {
	BatchSize int `yaml:"batch_size"`
	QueueSize int `yaml:"queue_size"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
	// nil disables the threshold
	MinScore *float64 `yaml:"min_score"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() *Config {
	return &Config{
		AppPort:      8080,
		MCPTransport: "http",
		Embedding: EmbeddingConfig{
			Backend:    "hashing",
			URL:        "http://localhost:8000",
			Dimensions: 384,
			BatchSize:  32,
		},
		Vector: VectorConfig{
			Backend:    "memory",
			QdrantHost: "localhost",
			QdrantPort: 6334,
			Collection: "linkmind_chunks",
		},
		Search: SearchConfig{
			Backend:           "duckduckgo",
			RequestsPerSecond: 1,
			CacheSize:         128,
			MaxResults:        8,
		},
		Fetch: FetchConfig{
			MaxAttempts: 5,
			RetryDelay:  500 * time.Millisecond,
			CacheSize:   128,
			Timeout:     30 * time.Second,
			Format:      "text",
		},
		Chunk: ChunkConfig{
			Size:    2048,
			Overlap: 512,
		},
		Ingest: IngestConfig{
			BatchSize: 10,
			QueueSize: 64,
		},
		Retrieval: RetrievalConfig{
			TopK: 6,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load starts from Default, applies the YAML file named by LINKMIND_CONFIG if
// set, then environment overrides, and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigPath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	setString := func(key string, dst *string) {
		if v, ok := lookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := lookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := lookupEnv(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := lookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	setInt("APP_PORT", &c.AppPort)
	setString("MCP_TRANSPORT", &c.MCPTransport)
	setString("PROXY_URL", &c.ProxyURL)
	setString("EMBEDDING_BACKEND", &c.Embedding.Backend)
	setString("EMBEDDING_URL", &c.Embedding.URL)
	setInt("EMBEDDING_DIMENSIONS", &c.Embedding.Dimensions)
	setString("VECTOR_BACKEND", &c.Vector.Backend)
	setString("QDRANT_HOST", &c.Vector.QdrantHost)
	setInt("QDRANT_PORT", &c.Vector.QdrantPort)
	setString("QDRANT_COLLECTION", &c.Vector.Collection)
	setString("SEARCH_BACKEND", &c.Search.Backend)
	setString("SERPAPI_KEY", &c.Search.SerpApiKey)
	setFloat("SEARCH_RPS", &c.Search.RequestsPerSecond)
	setString("FETCH_FORMAT", &c.Fetch.Format)
	setBool("BROWSER_FALLBACK", &c.Fetch.BrowserFallback)
	setString("LOG_LEVEL", &c.Log.Level)

	return errors.Join(errs...)
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Validate rejects combinations the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.AppPort <= 0 || c.AppPort > 65535 {
		errs = append(errs, fmt.Errorf("app_port %d out of range", c.AppPort))
	}
	if !oneOf(c.MCPTransport, "stdio", "http", "off") {
		errs = append(errs, fmt.Errorf("mcp_transport %q must be stdio, http or off", c.MCPTransport))
	}

	switch c.Embedding.Backend {
	case "hashing":
	case "tei":
		if c.Embedding.URL == "" {
			errs = append(errs, fmt.Errorf("embedding.url: %w", ErrMissing))
		}
	default:
		errs = append(errs, fmt.Errorf("embedding.backend %q must be hashing or tei", c.Embedding.Backend))
	}

	switch c.Vector.Backend {
	case "memory":
	case "qdrant":
		if c.Vector.QdrantHost == "" {
			errs = append(errs, fmt.Errorf("vector.qdrant_host: %w", ErrMissing))
		}
	default:
		errs = append(errs, fmt.Errorf("vector.backend %q must be memory or qdrant", c.Vector.Backend))
	}

	switch c.Search.Backend {
	case "duckduckgo":
	case "serpapi":
		if c.Search.SerpApiKey == "" {
			errs = append(errs, fmt.Errorf("search.serpapi_key: %w", ErrMissing))
		}
	default:
		errs = append(errs, fmt.Errorf("search.backend %q must be duckduckgo or serpapi", c.Search.Backend))
	}

	if !oneOf(c.Fetch.Format, "text", "markdown") {
		errs = append(errs, fmt.Errorf("fetch.format %q must be text or markdown", c.Fetch.Format))
	}
	if c.Fetch.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("fetch.max_attempts must be positive"))
	}
	if c.Chunk.Size <= 0 {
		errs = append(errs, fmt.Errorf("chunk.size must be positive"))
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		errs = append(errs, fmt.Errorf("chunk.overlap %d must be in [0, %d)", c.Chunk.Overlap, c.Chunk.Size))
	}
	if c.Ingest.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.batch_size must be positive"))
	}
	if c.Ingest.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.queue_size must be positive"))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive"))
	}

	return errors.Join(errs...)
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
