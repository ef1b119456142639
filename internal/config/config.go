// Package config loads tenancyd settings.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for tenancyd.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Logging  Logging  `yaml:"logging"`
	Queue    Queue    `yaml:"queue"`
	Cache    Cache    `yaml:"cache"`
	Leases   Leases   `yaml:"leases"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Database holds SQLite configuration.
type Database struct {
	Path string `yaml:"path"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`   // debug | info | warn | error
	Service string `yaml:"service"` // value of the "service" attribute
}

// Queue holds River worker configuration.
type Queue struct {
	Workers int `yaml:"workers"`
}

// Cache holds the property directory cache configuration.
type Cache struct {
	MaxEntries int64         `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// Leases holds lease API defaults.
type Leases struct {
	DefaultExpiryDays int `yaml:"default_expiry_days"` // horizon when ?days is omitted
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:            "8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Database: Database{Path: "tenancyd.db"},
		Logging:  Logging{Level: "info", Service: "tenancyd"},
		Queue:    Queue{Workers: 2},
		Cache:    Cache{MaxEntries: 10_000, TTL: 5 * time.Minute},
		Leases:   Leases{DefaultExpiryDays: 30},
	}
}
