package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config that passes Validate.
func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Database.User = "clauseiq"
	return cfg
}

func TestValidate_DefaultsPlusUserAreValid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"bad mode", func(c *Config) { c.Server.Mode = "fancy" }},
		{"no db host", func(c *Config) { c.Database.Host = "" }},
		{"no db user", func(c *Config) { c.Database.User = "" }},
		{"no db name", func(c *Config) { c.Database.DBName = "" }},
		{"db max conns", func(c *Config) { c.Database.MaxConns = 0 }},
		{"no redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"negative redis db", func(c *Config) { c.Redis.DB = -1 }},
		{"no kafka brokers", func(c *Config) { c.Kafka.Brokers = nil }},
		{"no kafka group", func(c *Config) { c.Kafka.GroupID = "" }},
		{"max clause bytes", func(c *Config) { c.Engine.MaxClauseBytes = 0 }},
		{"refresh too fast", func(c *Config) {
			c.Engine.LearnedRulesEnabled = true
			c.Engine.RefreshInterval = 100 * time.Millisecond
		}},
		{"worker concurrency", func(c *Config) { c.Worker.Concurrency = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_LearnedRulesRefreshInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.LearnedRulesEnabled = true
	cfg.Engine.RefreshInterval = time.Minute
	assert.NoError(t, cfg.Validate())

	// Disabled learned rules do not constrain the interval.
	cfg.Engine.LearnedRulesEnabled = false
	cfg.Engine.RefreshInterval = time.Millisecond
	assert.NoError(t, cfg.Validate())
}
