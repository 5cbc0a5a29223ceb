package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
)

// postgresDriverName is pgx behind a connection that rebinds "?" placeholders
// to "$n", so the kv queries stay portable across sqlite, mysql and postgres.
const postgresDriverName = "pgx-rebind"

func init() {
	sql.Register(postgresDriverName, pgBindDriver{pgx: stdlib.GetDefaultDriver()})
}

type pgBindDriver struct {
	pgx driver.Driver
}

func (d pgBindDriver) Open(dsn string) (driver.Conn, error) {
	conn, err := d.pgx.Open(dsn)
	if err != nil {
		return nil, err
	}
	return &pgBindConn{Conn: conn}, nil
}

type pgBindConn struct {
	driver.Conn
}

func (c *pgBindConn) Prepare(query string) (driver.Stmt, error) {
	return c.Conn.Prepare(rebindDollar(query))
}

func (c *pgBindConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	prep, ok := c.Conn.(driver.ConnPrepareContext)
	if !ok {
		return c.Prepare(query)
	}
	return prep.PrepareContext(ctx, rebindDollar(query))
}

func (c *pgBindConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if exec, ok := c.Conn.(driver.ExecerContext); ok {
		return exec.ExecContext(ctx, rebindDollar(query), args)
	}
	return nil, driver.ErrSkip
}

func (c *pgBindConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if q, ok := c.Conn.(driver.QueryerContext); ok {
		return q.QueryContext(ctx, rebindDollar(query), args)
	}
	return nil, driver.ErrSkip
}

func (c *pgBindConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if beginner, ok := c.Conn.(driver.ConnBeginTx); ok {
		return beginner.BeginTx(ctx, opts)
	}
	if opts.ReadOnly || opts.Isolation != driver.IsolationLevel(sql.LevelDefault) {
		return nil, errors.New("pgx-rebind: transaction options not supported")
	}
	return c.Conn.Begin()
}

func (c *pgBindConn) ResetSession(ctx context.Context) error {
	if resetter, ok := c.Conn.(driver.SessionResetter); ok {
		return resetter.ResetSession(ctx)
	}
	return nil
}

// rebindDollar numbers "?" placeholders outside single-quoted literals. A
// doubled quote inside a literal closes and reopens it, which leaves the
// quoted state unchanged.
func rebindDollar(query string) string {
	if strings.IndexByte(query, '?') < 0 {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		switch ch := query[i]; {
		case ch == '\'':
			quoted = !quoted
			out = append(out, ch)
		case ch == '?' && !quoted:
			n++
			out = append(out, '$')
			out = strconv.AppendInt(out, int64(n), 10)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
