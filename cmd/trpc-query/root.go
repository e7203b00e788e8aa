//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-query-go/config"
	"trpc.group/trpc-go/trpc-query-go/engine"
	"trpc.group/trpc-go/trpc-query-go/engine/inmemory"
	"trpc.group/trpc-go/trpc-query-go/engine/sqlstore"
	"trpc.group/trpc-go/trpc-query-go/internal/metadata"
	"trpc.group/trpc-go/trpc-query-go/log"
	"trpc.group/trpc-go/trpc-query-go/schema"
	"trpc.group/trpc-go/trpc-query-go/storage/sqldb"
	"trpc.group/trpc-go/trpc-query-go/telemetry"
)

// storeInstance is the sqldb instance name the configured store registers as.
const storeInstance = "trpc-query"

// Engine selectors of the --engine flag.
const (
	engineStore  = "store"
	engineMemory = "memory"
)

var (
	errUnknownEngine = errors.New("unknown engine, want store or memory")
	errNoFixtures    = errors.New("the memory engine needs --fixtures")
)

// app carries the state shared by the subcommands of one invocation.
type app struct {
	configPath     string
	logLevel       string
	traceEndpoint  string
	metricEndpoint string
	protocol       string

	cfg           *config.Config
	registry      *schema.Registry
	skip          *config.CacheSkipProvider
	stopTelemetry func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "trpc-query",
		Short:        "Query metadata objects with filter tokens",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file (default: built-in defaults)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (default: from config)")
	root.PersistentFlags().StringVar(&a.traceEndpoint, "trace-endpoint", "", "OTLP endpoint for spans; empty disables tracing")
	root.PersistentFlags().StringVar(&a.metricEndpoint, "metric-endpoint", "", "OTLP endpoint for metrics; empty disables metrics")
	root.PersistentFlags().StringVar(&a.protocol, "telemetry-protocol", "grpc", "OTLP protocol for both exporters: grpc or http")

	root.AddCommand(newLoadCmd(a), newQueryCmd(a), newServeCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	// Stdout carries command output, so logs go to stderr.
	log.Default = log.New(cmd.ErrOrStderr(), level)

	if a.registry, err = metadata.NewRegistry(); err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	a.skip = config.NewCacheSkipProvider(cfg.Cache.SkipTypes)

	clean, err := telemetry.Start(cmd.Context(),
		telemetry.WithTracesEndpoint(a.traceEndpoint),
		telemetry.WithMetricsEndpoint(a.metricEndpoint),
		telemetry.WithProtocol(a.protocol),
	)
	if err != nil {
		return err
	}
	a.stopTelemetry = clean
	return nil
}

func (a *app) teardown() error {
	if a.stopTelemetry == nil {
		return nil
	}
	stop := a.stopTelemetry
	a.stopTelemetry = nil
	return stop()
}

// openStore connects to the configured store and returns its engine.
func (a *app) openStore(ctx context.Context) (*sqlstore.Engine, error) {
	dialect, err := sqlstore.DialectFor(a.cfg.Store.Driver)
	if err != nil {
		return nil, err
	}
	sqldb.RegisterInstance(storeInstance,
		sqldb.WithDriver(a.cfg.Store.Driver),
		sqldb.WithClientConnString(a.cfg.Store.DSN),
	)
	client, err := sqldb.Open(ctx, storeInstance)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Driver, err)
	}
	opts := []sqlstore.Option{sqlstore.WithDialect(dialect), sqlstore.WithCacheSkip(a.skip)}
	if a.cfg.Cache.Enabled {
		opts = append(opts, sqlstore.WithCache(a.cfg.Cache.Size, a.cfg.Cache.TTL))
	} else {
		opts = append(opts, sqlstore.WithoutCache())
	}
	return sqlstore.New(a.registry, client, opts...), nil
}

// memoryEngine returns an in-memory engine reading the objects of set.
func (a *app) memoryEngine(set *metadata.Set) *inmemory.Engine {
	return inmemory.New(a.registry,
		inmemory.WithParallelism(a.cfg.Memory.Parallelism),
		inmemory.WithParallelThreshold(a.cfg.Memory.ParallelThreshold),
		inmemory.WithSource(func(_ context.Context, typeName string) ([]any, error) {
			return set.Objects(typeName), nil
		}),
	)
}

// newService builds the query service for the selected engine. Fixtures are
// only read by the memory engine. The returned close function releases the
// store connection, if any.
func (a *app) newService(ctx context.Context, which string, fixtures []string) (*engine.Service, func() error, error) {
	switch which {
	case engineMemory:
		if len(fixtures) == 0 {
			return nil, nil, errNoFixtures
		}
		set, err := loadFixtures(fixtures)
		if err != nil {
			return nil, nil, err
		}
		svc := engine.NewService(a.registry, engine.WithMemoryEngine(a.memoryEngine(set)))
		return svc, func() error { return nil }, nil
	case engineStore:
		store, err := a.openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		return engine.NewService(a.registry, engine.WithStoreEngine(store)), store.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownEngine, which)
	}
}
