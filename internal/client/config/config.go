// Package config holds settings for the dirauth CLI: defaults, then an
// optional JSON file, then command-line flags.
package config

import "time"

// Config holds runtime settings for the dirauth CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the dirauth gRPC endpoint.
//   - OnlineCheckInterval: how often the client pings the server.
//   - RequestTimeout: deadline applied to each interactive RPC.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
