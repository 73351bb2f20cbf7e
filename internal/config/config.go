package config

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string   `env:"APP_PORT" envDefault:"3000"`
	AppEnv         string   `env:"APP_ENV" envDefault:"development"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"` // CORS allowed origins
	// TrustedProxies lists the CIDRs whose X-Forwarded-For / X-Real-Ip headers are believed.
	// Empty means client IPs come from the connection address only.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`

	DynamoTables  DynamoTables `envPrefix:"DYNAMO_TABLE_"`
	ArchiveBucket string       `env:"ARCHIVE_BUCKET"` // raw BGG payload archive; empty disables

	BGG           BGG `envPrefix:"BGG_"`
	GameCacheSize int `env:"GAME_CACHE_SIZE" envDefault:"512"` // in-process LRU entries; 0 disables

	Firebase Firebase `envPrefix:"FIREBASE_"`
	SMTP     SMTP     `envPrefix:"SMTP_"`

	WarmConcurrency int `env:"WARM_CONCURRENCY" envDefault:"4"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Games             string `env:"GAMES" envDefault:"games"`
	VerificationCodes string `env:"VERIFICATION_CODES" envDefault:"email_verification_codes"`
}

// BGG configures the outbound BoardGameGeek XML API client.
type BGG struct {
	BaseURL   string  `env:"BASE_URL" envDefault:"https://boardgamegeek.com/xmlapi2"`
	APIToken  string  `env:"API_TOKEN"`
	RateLimit float64 `env:"RATE_LIMIT" envDefault:"2"` // requests per second
	RateBurst int     `env:"RATE_BURST" envDefault:"4"`
}

// Firebase configures the identity provider.
type Firebase struct {
	ProjectID          string `env:"PROJECT_ID"`
	ServiceAccountPath string `env:"SERVICE_ACCOUNT_PATH"`
	VerifyContinueURL  string `env:"VERIFY_CONTINUE_URL"`
}

// SMTP configures the transactional mailer. An empty Host means email is not configured.
type SMTP struct {
	Host     string `env:"HOST"`
	Port     string `env:"PORT" envDefault:"587"`
	From     string `env:"FROM" envDefault:"noreply@example.com"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if _, err := ParsePrefixes(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("parse TRUSTED_PROXIES: %w", err)
	}
	return cfg, nil
}

// TrustedProxyPrefixes returns the parsed TrustedProxies, skipping invalid entries.
// Load rejects invalid entries, so nothing is skipped for a loaded Config.
func (c *Config) TrustedProxyPrefixes() []netip.Prefix {
	var out []netip.Prefix
	for _, v := range c.TrustedProxies {
		if p, err := ParsePrefixes([]string{v}); err == nil {
			out = append(out, p...)
		}
	}
	return out
}

// ParsePrefixes parses CIDRs. A bare address is taken as a single-host prefix.
func ParsePrefixes(values []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !strings.Contains(v, "/") {
			addr, err := netip.ParseAddr(v)
			if err != nil {
				return nil, err
			}
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(v)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Masked())
	}
	return out, nil
}
