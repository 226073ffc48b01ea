package main

import "time"

type Config struct {
	Host         string `env:"HOST,default=0.0.0.0"`
	Port         int    `env:"PORT,default=5000"`
	UpstreamHost string `env:"UPSTREAM_HOST,default=127.0.0.1"`
	UpstreamPort int    `env:"UPSTREAM_PORT,default=5001"`

	// Nil means "use the lab defaults"; an explicitly empty variable
	// disables the corresponding stage.
	BlockedKeywords *string `env:"BLOCKED_KEYWORDS"`
	RewriteRules    *string `env:"REWRITE_RULES"`

	Colours         bool          `env:"COLOURS,default=true"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	HealthInterval  time.Duration `env:"HEALTH_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
}

// Lab defaults, used when the variables are unset.
const (
	defaultBlockedKeywords = "secret,motdepasse"
	defaultRewriteRules    = "remplace=***,topsecret=censuré"
)

func (c Config) blockedKeywords() string {
	if c.BlockedKeywords == nil {
		return defaultBlockedKeywords
	}
	return *c.BlockedKeywords
}

func (c Config) rewriteRules() string {
	if c.RewriteRules == nil {
		return defaultRewriteRules
	}
	return *c.RewriteRules
}
