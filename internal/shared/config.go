package shared

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string        `envconfig:"APP_ENV" default:"prod" validate:"oneof=dev development prod test"`
	HTTPAddr       string        `envconfig:"HTTP_ADDR" default:":8080" validate:"required"`
	MetricsAddr    string        `envconfig:"METRICS_ADDR" default:":9100"`
	DataDir        string        `envconfig:"DATA_DIR" default:"." validate:"required"`
	DataPatterns   []string      `envconfig:"DATA_PATTERNS" default:"*_deduped.csv,*_deduped.xlsx" validate:"min=1,dive,required"`
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	RedisPass      string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	CacheTTL       time.Duration `envconfig:"CACHE_TTL" default:"15m" validate:"gte=0"`
	LoadWorkers    int           `envconfig:"LOAD_WORKERS" default:"4" validate:"gte=1,lte=64"`
	RescanInterval time.Duration `envconfig:"RESCAN_INTERVAL" default:"5s" validate:"gte=0"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s" validate:"gt=0"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if c.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR is empty; datasets are cached in memory")
	}
	return c, nil
}
