//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads the service configuration and publishes the
// cache-skip setting consumed by the store engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	errUnknownDriver = errors.New("config: unknown store driver")
	errEmptyDSN      = errors.New("config: store dsn is empty")
)

// Config is the service configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
	Cache  CacheConfig  `yaml:"cache"`
	Memory MemoryConfig `yaml:"memory"`
	Server ServerConfig `yaml:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects the durable store.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`
	// DSN is the driver connection string.
	DSN string `yaml:"dsn"`
}

// CacheConfig configures the store result cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
	// SkipTypes is a comma separated list of types never served from cache.
	SkipTypes string `yaml:"skip_types"`
}

// MemoryConfig configures the in-memory engine.
type MemoryConfig struct {
	Parallelism       int `yaml:"parallelism"`
	ParallelThreshold int `yaml:"parallel_threshold"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info"},
		Store:  StoreConfig{Driver: DriverSQLite, DSN: "file:trpc-query.db?_pragma=foreign_keys(1)"},
		Cache:  CacheConfig{Enabled: true, Size: 1024, TTL: 5 * time.Minute},
		Memory: MemoryConfig{ParallelThreshold: 2048},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads a YAML file over the defaults and applies environment overrides.
// An empty path loads the defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if v, ok := os.LookupEnv(EnvCacheSkipTypes); ok {
		cfg.Cache.SkipTypes = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the store settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return errEmptyDSN
	}
	return nil
}
