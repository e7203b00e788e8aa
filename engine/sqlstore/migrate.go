//
// Tencent is pleased to support the open source community by making trpc-query-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-query-go is licensed under the Apache License Version 2.0.
//
//

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	itelemetry "trpc.group/trpc-go/trpc-query-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-query-go/log"
	"trpc.group/trpc-go/trpc-query-go/schema"
	"trpc.group/trpc-go/trpc-query-go/telemetry/trace"
)

// Fixed store columns.
const (
	idColumn       = "id"
	ownerColumn    = "owner_id"
	positionColumn = "position"
	memberColumn   = "member_id"
)

var (
	errUnregistered = errors.New("sqlstore: object type is not registered")
	errMissingID    = errors.New("sqlstore: object has no identifier")
)

// DDL returns the statements creating every table of the registry.
func (e *Engine) DDL() []string {
	var stmts []string
	for _, s := range e.registry.Schemas() {
		cols := make([]string, 0, len(s.Properties()))
		for _, p := range s.Properties() {
			switch {
			case p.Identifier:
				cols = append(cols, fmt.Sprintf("%s TEXT PRIMARY KEY", quote(p.Column)))
			case p.IsCollection():
			case p.IsReference():
				cols = append(cols, fmt.Sprintf("%s TEXT", quote(p.Column)))
			case p.Nullable:
				cols = append(cols, fmt.Sprintf("%s %s", quote(p.Column), e.dialect.ColumnType(p.Kind)))
			default:
				cols = append(cols, fmt.Sprintf("%s %s NOT NULL", quote(p.Column), e.dialect.ColumnType(p.Kind)))
			}
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(s.Table), strings.Join(cols, ", ")))

		for _, p := range s.Properties() {
			if !p.IsCollection() {
				continue
			}
			stmts = append(stmts,
				fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s TEXT NOT NULL, %s INTEGER NOT NULL, %s TEXT NOT NULL, PRIMARY KEY (%s, %s))",
					quote(p.JoinTable), quote(ownerColumn), quote(positionColumn), quote(memberColumn),
					quote(ownerColumn), quote(positionColumn)),
				fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
					quote(p.JoinTable+"_member_idx"), quote(p.JoinTable), quote(memberColumn)),
			)
		}
	}
	return stmts
}

// Migrate creates the tables of every registered type.
func (e *Engine) Migrate(ctx context.Context) error {
	for _, stmt := range e.DDL() {
		if _, err := e.client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: migrate: %w", err)
		}
	}
	log.Debugf("sqlstore: migrated %d types", len(e.registry.Schemas()))
	return nil
}

// Save upserts objs and rewrites their collection rows in one transaction.
// References and collection members are stored by identifier only; the
// referenced objects are saved separately.
func (e *Engine) Save(ctx context.Context, objs ...any) (err error) {
	ctx, span := trace.StartSpan(ctx, itelemetry.SpanNameSave)
	defer span.End()
	defer func() { itelemetry.TraceResult(span, len(objs), err) }()

	err = e.client.Transaction(ctx, func(tx *sql.Tx) error {
		for _, obj := range objs {
			if err := e.saveOne(ctx, tx, obj); err != nil {
				return err
			}
		}
		return nil
	})
	e.invalidate()
	if err != nil {
		return fmt.Errorf("sqlstore: save: %w", err)
	}
	return nil
}

func (e *Engine) saveOne(ctx context.Context, tx *sql.Tx, obj any) error {
	s, ok := e.registry.SchemaOf(obj)
	if !ok {
		return fmt.Errorf("%w: %T", errUnregistered, obj)
	}
	id := s.ID(obj)
	if id == "" {
		return fmt.Errorf("%w: %s", errMissingID, s.Name)
	}

	var (
		cols, updates []string
		args          []any
	)
	for _, p := range s.Properties() {
		if p.IsCollection() {
			continue
		}
		v, err := e.columnValue(p, obj)
		if err != nil {
			return err
		}
		cols = append(cols, quote(p.Column))
		args = append(args, v)
		if !p.Identifier {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", quote(p.Column), quote(p.Column)))
		}
	}
	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		quote(s.Table), strings.Join(cols, ", "), e.placeholders(1, len(cols)), quote(idColumn), conflict)
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert %s %s: %w", s.Name, id, err)
	}

	for _, p := range s.Properties() {
		if !p.IsCollection() {
			continue
		}
		if err := e.saveMembers(ctx, tx, p, id, obj); err != nil {
			return fmt.Errorf("save %s.%s of %s: %w", s.Name, p.Name, id, err)
		}
	}
	return nil
}

// columnValue returns the bind argument of a non-collection property.
func (e *Engine) columnValue(p *schema.Property, obj any) (any, error) {
	v, ok := p.Get(obj)
	if !ok {
		return nil, nil
	}
	if p.IsReference() {
		target, ok := e.registry.Schema(p.Target)
		if !ok {
			return nil, fmt.Errorf("%w: %s", errUnregistered, p.Target)
		}
		if id := target.ID(v); id != "" {
			return id, nil
		}
		return nil, nil
	}
	return e.dialect.Encode(p.Kind, v), nil
}

func (e *Engine) saveMembers(ctx context.Context, tx *sql.Tx, p *schema.Property, ownerID string, obj any) error {
	target, ok := e.registry.Schema(p.Target)
	if !ok {
		return fmt.Errorf("%w: %s", errUnregistered, p.Target)
	}
	del := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", quote(p.JoinTable), quote(ownerColumn), e.dialect.Placeholder(1))
	if _, err := tx.ExecContext(ctx, del, ownerID); err != nil {
		return err
	}
	v, _ := p.Get(obj)
	members, _ := v.([]any)
	ins := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (%s)",
		quote(p.JoinTable), quote(ownerColumn), quote(positionColumn), quote(memberColumn), e.placeholders(1, 3))
	for i, m := range members {
		memberID := target.ID(m)
		if memberID == "" {
			return fmt.Errorf("%w: member %d", errMissingID, i)
		}
		if _, err := tx.ExecContext(ctx, ins, ownerID, int64(i), memberID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes obj, its collection rows and every association pointing at it.
func (e *Engine) Delete(ctx context.Context, obj any) error {
	s, ok := e.registry.SchemaOf(obj)
	if !ok {
		return fmt.Errorf("%w: %T", errUnregistered, obj)
	}
	id := s.ID(obj)
	if id == "" {
		return fmt.Errorf("%w: %s", errMissingID, s.Name)
	}
	ph := e.dialect.Placeholder(1)

	err := e.client.Transaction(ctx, func(tx *sql.Tx) error {
		var stmts []string
		for _, p := range s.Properties() {
			if p.IsCollection() {
				stmts = append(stmts, fmt.Sprintf("DELETE FROM %s WHERE %s = %s", quote(p.JoinTable), quote(ownerColumn), ph))
			}
		}
		for _, other := range e.registry.Schemas() {
			for _, p := range other.Properties() {
				switch {
				case p.Target != s.Name:
				case p.IsCollection():
					stmts = append(stmts, fmt.Sprintf("DELETE FROM %s WHERE %s = %s", quote(p.JoinTable), quote(memberColumn), ph))
				case p.IsReference():
					stmts = append(stmts, fmt.Sprintf("UPDATE %s SET %s = NULL WHERE %s = %s", quote(other.Table), quote(p.Column), quote(p.Column), ph))
				}
			}
		}
		stmts = append(stmts, fmt.Sprintf("DELETE FROM %s WHERE %s = %s", quote(s.Table), quote(idColumn), ph))
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		return nil
	})
	e.invalidate()
	if err != nil {
		return fmt.Errorf("sqlstore: delete %s %s: %w", s.Name, id, err)
	}
	return nil
}

// placeholders renders n bind parameters starting at from.
func (e *Engine) placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = e.dialect.Placeholder(from + i)
	}
	return strings.Join(ph, ", ")
}
