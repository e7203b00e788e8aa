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
	"fmt"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-query-go/log"
)

func newLoadCmd(a *app) *cobra.Command {
	var fixtures []string
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Create the store tables and save fixture objects into them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			set, err := loadFixtures(fixtures)
			if err != nil {
				return err
			}
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			objs := set.All()
			if err := store.Save(ctx, objs...); err != nil {
				return fmt.Errorf("save fixtures: %w", err)
			}
			log.Infof("saved %d objects into %s store", len(objs), a.cfg.Store.Driver)
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d objects\n", len(objs))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&fixtures, "fixtures", nil, "fixture file pattern, ** allowed (repeatable)")
	_ = cmd.MarkFlagRequired("fixtures")
	return cmd
}
