package config

import "time"

type AppConfig struct {
	DBDriver   string        `yaml:"db_driver" env:"WG_DB_DRIVER" env-default:"sqlite"`
	DBURL      string        `yaml:"db_url" env:"WG_DB_URL" env-default:"data/workguard.db"`
	ListenAddr string        `yaml:"listen_addr" env:"WG_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	AppEnv     string        `yaml:"app_env" env:"WG_APP_ENV"`
	AuthSecret string        `yaml:"auth_secret" env:"WG_AUTH_SECRET"`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"WG_TOKEN_TTL" env-default:"3h"`
	Alerts     AlertsConfig  `yaml:"alerts"`
	Stream     StreamConfig  `yaml:"stream"`
}

type AlertsConfig struct {
	DefaultPageSize int              `yaml:"default_page_size" env:"WG_ALERTS_DEFAULT_PAGE_SIZE" env-default:"10"`
	MaxPageSize     int              `yaml:"max_page_size" env:"WG_ALERTS_MAX_PAGE_SIZE" env-default:"100"`
	Escalation      EscalationConfig `yaml:"escalation"`
}

// EscalationConfig drives the periodic sweep that re-announces stale
// critical alerts nobody has acknowledged.
type EscalationConfig struct {
	Enabled    bool          `yaml:"enabled" env:"WG_ALERTS_ESCALATION_ENABLED" env-default:"true"`
	Schedule   string        `yaml:"schedule" env:"WG_ALERTS_ESCALATION_SCHEDULE" env-default:"@every 5m"`
	StaleAfter time.Duration `yaml:"stale_after" env:"WG_ALERTS_ESCALATION_STALE_AFTER" env-default:"30m"`
}

type StreamConfig struct {
	SendBuffer int `yaml:"send_buffer" env:"WG_STREAM_SEND_BUFFER" env-default:"32"`
}

const maxTokenTTL = 24 * time.Hour

func (c *AppConfig) EffectiveTokenTTL() time.Duration {
	ttl := 3 * time.Hour
	if c != nil && c.TokenTTL > 0 {
		ttl = c.TokenTTL
	}
	if ttl > maxTokenTTL {
		return maxTokenTTL
	}
	return ttl
}

func (c *AlertsConfig) EffectivePageSize(requested int) int {
	size := requested
	if size <= 0 {
		size = c.DefaultPageSize
	}
	if size <= 0 {
		size = 10
	}
	if c.MaxPageSize > 0 && size > c.MaxPageSize {
		size = c.MaxPageSize
	}
	return size
}
