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
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-query-go/log"
	"trpc.group/trpc-go/trpc-query-go/server/rest"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr        string
		which       string
		fixtures    []string
		maxPageSize int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeFn, err := a.newService(ctx, which, fixtures)
			if err != nil {
				return err
			}
			defer closeFn()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			var opts []rest.Option
			if maxPageSize > 0 {
				opts = append(opts, rest.WithMaxPageSize(maxPageSize))
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}
			srv := &http.Server{
				Handler:           rest.New(svc, opts...).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			return serve(ctx, srv, ln)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	f.StringVar(&which, "engine", engineStore, "engine to run on: store or memory")
	f.StringArrayVar(&fixtures, "fixtures", nil, "fixture file pattern for the memory engine (repeatable)")
	f.IntVar(&maxPageSize, "max-page-size", 0, "upper bound for pageSize; 0 means unbounded")
	return cmd
}

// serve runs srv on ln until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("query API listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("query API stopped")
	return nil
}
