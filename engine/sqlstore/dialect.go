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
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-query-go/query"
	"trpc.group/trpc-go/trpc-query-go/schema"
	"trpc.group/trpc-go/trpc-query-go/storage/sqldb"
)

// sqliteTimeLayout keeps stored times fixed width so text order is time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

var errUnknownDialect = errors.New("sqlstore: unknown dialect")

// Dialect captures the SQL differences between the supported stores.
type Dialect interface {
	// Name is the sqldb driver name the dialect belongs to.
	Name() string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder(n int) string
	// ColumnType is the column type holding values of kind.
	ColumnType(kind schema.Kind) string
	// Encode converts a canonical value into a bind argument.
	Encode(kind schema.Kind, v any) any
	// Decode converts a scanned column value into its canonical form.
	Decode(kind schema.Kind, raw any) (any, error)
	// Collate makes string comparison and ordering byte-wise.
	Collate(expr string) string
	// Match renders a pattern test of expr. arg binds the prepared pattern.
	Match(expr string, op query.Operator, arg func(any) string) string
	// Window renders the LIMIT/OFFSET clause, or "".
	Window(first, limit int) string
}

// Supported dialects.
var (
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
)

// DialectFor returns the dialect of a sqldb driver.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case sqldb.DriverSQLite:
		return SQLite, nil
	case sqldb.DriverPostgres:
		return Postgres, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownDialect, driver)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return sqldb.DriverSQLite }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) ColumnType(kind schema.Kind) string {
	switch kind {
	case schema.KindInteger, schema.KindBoolean:
		return "INTEGER"
	case schema.KindNumber:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (sqliteDialect) Encode(kind schema.Kind, v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(sqliteTimeLayout)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

func (sqliteDialect) Decode(kind schema.Kind, raw any) (any, error) {
	return decode(kind, raw)
}

func (sqliteDialect) Collate(expr string) string { return expr }

// Match uses GLOB for case-sensitive patterns since sqlite LIKE folds ASCII
// case. Case-insensitive patterns fold the column with sqldb.SQLiteLower and
// compare it against a lower-cased LIKE pattern.
func (sqliteDialect) Match(expr string, op query.Operator, arg func(any) string) string {
	pattern, _ := op.Arg(0).(string)
	mode := matchMode(op)
	var test string
	switch {
	case op.CaseInsensitive() && mode == query.Exact:
		test = fmt.Sprintf("%s(%s) = %s", sqldb.SQLiteLower, expr, arg(strings.ToLower(pattern)))
	case op.CaseInsensitive():
		test = fmt.Sprintf(`%s(%s) LIKE %s ESCAPE '\'`, sqldb.SQLiteLower, expr, arg(likePattern(strings.ToLower(pattern), mode)))
	case mode == query.Exact:
		test = fmt.Sprintf("%s = %s", expr, arg(pattern))
	default:
		test = fmt.Sprintf("%s GLOB %s", expr, arg(globPattern(pattern, mode)))
	}
	if op.Negated() {
		return "NOT (" + test + ")"
	}
	return test
}

func (sqliteDialect) Window(first, limit int) string {
	switch {
	case limit > 0 && first > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, first)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case first > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", first)
	}
	return ""
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return sqldb.DriverPostgres }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) ColumnType(kind schema.Kind) string {
	switch kind {
	case schema.KindInteger:
		return "BIGINT"
	case schema.KindNumber:
		return "DOUBLE PRECISION"
	case schema.KindBoolean:
		return "BOOLEAN"
	case schema.KindTime:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

func (postgresDialect) Encode(kind schema.Kind, v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}

func (postgresDialect) Decode(kind schema.Kind, raw any) (any, error) {
	return decode(kind, raw)
}

func (postgresDialect) Collate(expr string) string { return expr + ` COLLATE "C"` }

func (postgresDialect) Match(expr string, op query.Operator, arg func(any) string) string {
	pattern, _ := op.Arg(0).(string)
	mode := matchMode(op)
	var test string
	switch {
	case op.CaseInsensitive():
		test = fmt.Sprintf(`%s ILIKE %s ESCAPE '\'`, expr, arg(likePattern(pattern, mode)))
	case mode == query.Exact:
		test = fmt.Sprintf("%s = %s", expr, arg(pattern))
	default:
		test = fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, expr, arg(likePattern(pattern, mode)))
	}
	if op.Negated() {
		return "NOT (" + test + ")"
	}
	return test
}

func (postgresDialect) Window(first, limit int) string {
	var b strings.Builder
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if first > 0 {
		fmt.Fprintf(&b, " OFFSET %d", first)
	}
	return b.String()
}

func matchMode(op query.Operator) query.MatchMode {
	if op.Kind == query.OpIEqual {
		return query.Exact
	}
	return op.Mode
}

var (
	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	globEscaper = strings.NewReplacer(`*`, `[*]`, `?`, `[?]`, `[`, `[[]`)
)

func likePattern(s string, mode query.MatchMode) string {
	s = likeEscaper.Replace(s)
	switch mode {
	case query.Start:
		return s + "%"
	case query.End:
		return "%" + s
	case query.Exact:
		return s
	default:
		return "%" + s + "%"
	}
}

func globPattern(s string, mode query.MatchMode) string {
	s = globEscaper.Replace(s)
	switch mode {
	case query.Start:
		return s + "*"
	case query.End:
		return "*" + s
	case query.Exact:
		return s
	default:
		return "*" + s + "*"
	}
}

// decode accepts what either driver scans into an any destination.
func decode(kind schema.Kind, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	switch kind {
	case schema.KindString, schema.KindReference:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case schema.KindInteger:
		switch x := raw.(type) {
		case int64:
			return x, nil
		case int32:
			return int64(x), nil
		case float64:
			return int64(x), nil
		case string:
			return strconv.ParseInt(x, 10, 64)
		}
	case schema.KindNumber:
		switch x := raw.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case string:
			return strconv.ParseFloat(x, 64)
		}
	case schema.KindBoolean:
		switch x := raw.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case string:
			return strconv.ParseBool(x)
		}
	case schema.KindTime:
		switch x := raw.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return nil, err
			}
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("cannot decode %T as %s", raw, kind)
}

// quote quotes an identifier. Generated names never contain quotes.
func quote(name string) string { return `"` + name + `"` }
