package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Environment:      "local",
		LogLevel:         "info",
		DatabaseURL:      "postgres://localhost/events",
		DBMinConns:       1,
		DBMaxConns:       4,
		SourceName:       "platinumlist",
		UpstreamBaseURL:  "https://api.example.test/v7",
		UpstreamTimeout:  10 * time.Second,
		AffiliateBaseURL: "https://example.test/aff/",
		PageSize:         50,
		MaxPages:         10,
		PageDelay:        250 * time.Millisecond,
		CronHeader:       "X-Vercel-Cron",
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to validate, got %v", err)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = " " }, want: "DATABASE_URL"},
		{name: "min above max", mutate: func(c *Config) { c.DBMinConns = 9 }, want: "DB_MIN_CONNS"},
		{name: "page size", mutate: func(c *Config) { c.PageSize = 0 }, want: "PAGE_SIZE"},
		{name: "max pages", mutate: func(c *Config) { c.MaxPages = 0 }, want: "MAX_PAGES"},
		{name: "relative upstream", mutate: func(c *Config) { c.UpstreamBaseURL = "events" }, want: "UPSTREAM_BASE_URL"},
		{name: "hint ratio", mutate: func(c *Config) { c.VenueHintRatio = 1.5 }, want: "VENUE_HINT_RATIO"},
	}

	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %s, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCORSAllowedOriginsList_Dedupes(t *testing.T) {
	t.Parallel()

	cfg := Config{CORSAllowedOrigins: " https://a.test ,https://b.test,,https://a.test"}
	got := cfg.CORSAllowedOriginsList()
	if len(got) != 2 || got[0] != "https://a.test" || got[1] != "https://b.test" {
		t.Fatalf("unexpected origins: %#v", got)
	}
}

func TestHasCronSecret(t *testing.T) {
	t.Parallel()

	var nilCfg *Config
	if nilCfg.HasCronSecret() {
		t.Fatalf("nil config must not report a secret")
	}
	cfg := Config{CronSecretBcrypt: "$2a$12$abc"}
	if !cfg.HasCronSecret() {
		t.Fatalf("expected bcrypt secret to count as configured")
	}
}
