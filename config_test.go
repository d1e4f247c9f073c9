/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	newCmd(cfg)

	require.NoError(t, cfg.validate())
	require.Equal(t, 8080, cfg.port)
	require.Equal(t, 24*time.Hour, cfg.sessionRetention)
	require.Equal(t, time.Hour, cfg.reapInterval)
	require.Equal(t, builtinCategory, cfg.defaultCategory)
	require.Equal(t, "http", cfg.scheme())
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("CARDMATCH_PORT", "9090")
	t.Setenv("CARDMATCH_SESSION_RETENTION", "2h")
	t.Setenv("CARDMATCH_MAX_CAPACITY", "6")

	cfg := &Config{}
	newCmd(cfg)

	require.Equal(t, 9090, cfg.port)
	require.Equal(t, 2*time.Hour, cfg.sessionRetention)
	require.Equal(t, 6, cfg.maxCapacity)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"half tls", func(c *Config) { c.tlsCert = "cert.pem" }},
		{"bad port", func(c *Config) { c.port = 70000 }},
		{"zero capacity", func(c *Config) { c.maxCapacity = 0 }},
		{"zero retention", func(c *Config) { c.sessionRetention = 0 }},
		{"zero interval", func(c *Config) { c.reapInterval = 0 }},
		{"no category", func(c *Config) { c.defaultCategory = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.validate())
		})
	}
}
