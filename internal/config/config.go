package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"docmatch"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"docmatch"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AuthSecret     string        `envconfig:"AUTH_SECRET"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Matching struct {
		PairingThreshold    float64 `envconfig:"PAIRING_THRESHOLD" default:"0.15"`
		AcceptanceThreshold float64 `envconfig:"ACCEPTANCE_THRESHOLD" default:"0.15"`
		FilterBySupplier    bool    `envconfig:"FILTER_BY_SUPPLIER" default:"true"`
		UseReferenceLogic   bool    `envconfig:"USE_REFERENCE_LOGIC" default:"true"`
		IgnoreChronology    bool    `envconfig:"IGNORE_CHRONOLOGY" default:"false"`
		MaxCandidates       int     `envconfig:"MAX_CANDIDATE_DOCUMENTS" default:"10000"`
		ProcessingCap       int     `envconfig:"CANDIDATE_PROCESSING_CAP" default:"1000"`
		MatchThreshold      float64 `envconfig:"MATCH_CONFIDENCE_THRESHOLD" default:"0.5"`
		NoMatchThreshold    float64 `envconfig:"NO_MATCH_CONFIDENCE_THRESHOLD" default:"0.2"`
	}

	Models struct {
		Disabled         bool   `envconfig:"DISABLE_MODELS" default:"false"`
		ScoringModelPath string `envconfig:"SCORING_MODEL_PATH"`
		EmbeddingURL     string `envconfig:"EMBEDDING_URL" default:"http://localhost:11434/api/embed"`
		EmbeddingModel   string `envconfig:"EMBEDDING_MODEL" default:"nomic-embed-text"`
	}

	Cache struct {
		RedisAddr string        `envconfig:"REDIS_ADDR"`
		TTL       time.Duration `envconfig:"EMBEDDING_CACHE_TTL" default:"168h"`
		// MemoryLimit bounds the in-process cache used when Redis is not
		// configured.
		MemoryLimit int `envconfig:"EMBEDDING_CACHE_SIZE" default:"10000"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
