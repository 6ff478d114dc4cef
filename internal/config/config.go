package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"8"`

	SourceName           string        `envconfig:"SOURCE_NAME" default:"platinumlist"`
	UpstreamBaseURL      string        `envconfig:"UPSTREAM_BASE_URL" default:"https://api.platinumlist.net/v/7"`
	UpstreamAPIKey       string        `envconfig:"UPSTREAM_API_KEY" default:""`
	UpstreamAPIKeyHeader string        `envconfig:"UPSTREAM_API_KEY_HEADER" default:"Api-Authorization"`
	UpstreamTimeout      time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"20s"`
	PartnerRef           string        `envconfig:"PARTNER_REF" default:"yjg3yzi"`
	AffiliateBaseURL     string        `envconfig:"AFFILIATE_BASE_URL" default:"https://platinumlist.net/aff/"`
	PageSize             int           `envconfig:"PAGE_SIZE" default:"50"`
	MaxPages             int           `envconfig:"MAX_PAGES" default:"20"`
	PageDelay            time.Duration `envconfig:"PAGE_DELAY" default:"300ms"`

	TaxonomyFile   string  `envconfig:"TAXONOMY_FILE" default:""`
	VenueHintRatio float64 `envconfig:"VENUE_HINT_RATIO" default:"0"`

	CronSecret         string `envconfig:"CRON_SECRET" default:""`
	CronSecretBcrypt   string `envconfig:"CRON_SECRET_BCRYPT" default:""`
	CronHeader         string `envconfig:"CRON_HEADER" default:"X-Vercel-Cron"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.SourceName) == "" {
		return fmt.Errorf("SOURCE_NAME is required")
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(c.UpstreamBaseURL)); err != nil {
		return fmt.Errorf("UPSTREAM_BASE_URL must be an absolute URL: %w", err)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(c.AffiliateBaseURL)); err != nil {
		return fmt.Errorf("AFFILIATE_BASE_URL must be an absolute URL: %w", err)
	}
	if c.PageSize < 1 || c.PageSize > 500 {
		return fmt.Errorf("PAGE_SIZE must be between 1 and 500")
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("MAX_PAGES must be >= 1")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("PAGE_DELAY must be >= 0")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be > 0")
	}
	if c.VenueHintRatio < 0 || c.VenueHintRatio > 1 {
		return fmt.Errorf("VENUE_HINT_RATIO must be between 0 and 1")
	}
	if strings.TrimSpace(c.CronHeader) == "" {
		return fmt.Errorf("CRON_HEADER is required")
	}
	return nil
}

// HasCronSecret reports whether bearer authorization is configured at all.
func (c *Config) HasCronSecret() bool {
	if c == nil {
		return false
	}
	return strings.TrimSpace(c.CronSecret) != "" || strings.TrimSpace(c.CronSecretBcrypt) != ""
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
