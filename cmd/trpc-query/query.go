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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-query-go/engine"
	"trpc.group/trpc-go/trpc-query-go/query"
	"trpc.group/trpc-go/trpc-query-go/server/rest"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		req       engine.TokenRequest
		junction  string
		which     string
		fixtures  []string
		countOnly bool
	)
	cmd := &cobra.Command{
		Use:   "query <Type>",
		Short: "Run a query and print the matches as JSON",
		Example: `  trpc-query query DataElement --filter name:like:ANC --order created:desc --page 1 --page-size 20
  trpc-query query DataElement --engine memory --fixtures 'data/**/*.yaml' --filter dataElementGroups.id:eq:gA`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := query.ParseJunctionKind(junction)
			if !ok {
				return fmt.Errorf("invalid --root-junction %q, want AND or OR", junction)
			}
			req.Type = args[0]
			req.RootJunction = kind

			svc, closeFn, err := a.newService(cmd.Context(), which, fixtures)
			if err != nil {
				return err
			}
			defer closeFn()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if countOnly {
				req.Page, req.PageSize = 0, 0
				q, err := svc.Build(req)
				if err != nil {
					return err
				}
				n, err := svc.Count(cmd.Context(), q)
				if err != nil {
					return err
				}
				return enc.Encode(map[string]int{"count": n})
			}
			res, err := svc.QueryTokens(cmd.Context(), req)
			if err != nil {
				return err
			}
			return enc.Encode(rest.NewPage(a.registry, res, req, req.PageSize > 0))
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&req.Filters, "filter", nil, "filter token path:operator[:argument] (repeatable)")
	f.StringSliceVar(&req.Orders, "order", nil, "ordering path[:asc|:desc], comma separated or repeated")
	f.StringVar(&junction, "root-junction", "AND", "how top-level filters combine: AND or OR")
	f.IntVar(&req.Page, "page", 1, "1-based page number")
	f.IntVar(&req.PageSize, "page-size", 0, "page size; 0 returns every match")
	f.StringVar(&which, "engine", engineStore, "engine to run on: store or memory")
	f.StringArrayVar(&fixtures, "fixtures", nil, "fixture file pattern for the memory engine (repeatable)")
	f.BoolVar(&countOnly, "count", false, "print the match count only")
	return cmd
}
