package foreign

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"lxsp/internal/object"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// connection is one open database handle and its pending transaction.
type connection struct {
	driver string
	db     *sql.DB
	tx     *sql.Tx
}

func (c *connection) close() error {
	var errs []error
	if c.tx != nil {
		if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, err)
		}
		c.tx = nil
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

var drivers = map[string]bool{
	"sqlite3":  true,
	"mysql":    true,
	"postgres": true,
}

func (h *Host) connection(name string, v object.Value) (int64, *connection, error) {
	id, err := unpackInt(name, v)
	if err != nil {
		return 0, nil, err
	}
	conn, ok := h.conns[id]
	if !ok {
		return 0, nil, object.NewError(object.IOFailure, "invalid connection handle %d", id)
	}
	return id, conn, nil
}

// fnDbOpen is (dbOpen driver dsn), returning an integer handle.
func (h *Host) fnDbOpen() *object.Builtin {
	return &object.Builtin{
		Name:   "dbOpen",
		Unsafe: true,
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArgs("dbOpen", args, 2, 2); err != nil {
				return nil, err
			}
			values, err := evalArgs(ctx, args, env)
			if err != nil {
				return nil, err
			}
			driver, err := unpackSymbol("dbOpen", values[0])
			if err != nil {
				return nil, err
			}
			dsn, err := unpackSymbol("dbOpen", values[1])
			if err != nil {
				return nil, err
			}
			if !drivers[driver] {
				return nil, object.NewError(object.TypeMismatch, "unsupported database driver %s", driver)
			}

			db, err := sql.Open(driver, dsn)
			if err != nil {
				return nil, object.WrapError(object.IOFailure, err, "failed to open connection")
			}
			if driver == "sqlite3" {
				// every connection to :memory: is a fresh database
				db.SetMaxOpenConns(1)
			}

			pingCtx, cancel := withTimeout(h.dbTimeout)
			defer cancel()
			if err := db.PingContext(pingCtx); err != nil {
				db.Close()
				return nil, object.WrapError(object.IOFailure, err, "failed to ping database")
			}

			id := h.nextHandleID()
			h.conns[id] = &connection{driver: driver, db: db}
			slog.Info("database connection opened",
				slog.String("driver", driver),
				slog.Int64("handle", id))
			return &object.Integer{Value: id}, nil
		},
	}
}

// fnDbExec is (dbExec handle sql args...), returning
// (rowsAffected lastInsertId). Either is () when the driver cannot report it.
func (h *Host) fnDbExec() *object.Builtin {
	return &object.Builtin{
		Name:   "dbExec",
		Unsafe: true,
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArgs("dbExec", args, 2, -1); err != nil {
				return nil, err
			}
			values, err := evalArgs(ctx, args, env)
			if err != nil {
				return nil, err
			}
			_, conn, err := h.connection("dbExec", values[0])
			if err != nil {
				return nil, err
			}
			query, err := renderSQL("dbExec", values[1])
			if err != nil {
				return nil, err
			}
			params, err := sqlParams(values[2:])
			if err != nil {
				return nil, err
			}

			execCtx, cancel := withTimeout(h.dbTimeout)
			defer cancel()
			var result sql.Result
			if conn.tx != nil {
				result, err = conn.tx.ExecContext(execCtx, query, params...)
			} else {
				result, err = conn.db.ExecContext(execCtx, query, params...)
			}
			if err != nil {
				return nil, object.WrapError(object.IOFailure, err, "exec failed")
			}

			affected, err := result.RowsAffected()
			rows := resultValue("rows affected", conn.driver, affected, err)
			lastID, err := result.LastInsertId()
			return object.NewList(rows, resultValue("last insert id", conn.driver, lastID, err)), nil
		},
	}
}

// resultValue is n as an Integer, or nil when the driver cannot report it
// (lib/pq has no LastInsertId).
func resultValue(what, driver string, n int64, err error) object.Value {
	if err != nil {
		slog.Debug("driver did not report exec result",
			slog.String("value", what),
			slog.String("driver", driver),
			slog.Any("error", err))
		return object.Nil()
	}
	return &object.Integer{Value: n}
}

// fnDbQuery is (dbQuery handle sql args...), returning a list of rows with
// the column values in column order.
func (h *Host) fnDbQuery() *object.Builtin {
	return &object.Builtin{
		Name:   "dbQuery",
		Unsafe: true,
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArgs("dbQuery", args, 2, -1); err != nil {
				return nil, err
			}
			values, err := evalArgs(ctx, args, env)
			if err != nil {
				return nil, err
			}
			_, conn, err := h.connection("dbQuery", values[0])
			if err != nil {
				return nil, err
			}
			query, err := renderSQL("dbQuery", values[1])
			if err != nil {
				return nil, err
			}
			params, err := sqlParams(values[2:])
			if err != nil {
				return nil, err
			}

			queryCtx, cancel := withTimeout(h.dbTimeout)
			defer cancel()
			var rows *sql.Rows
			if conn.tx != nil {
				rows, err = conn.tx.QueryContext(queryCtx, query, params...)
			} else {
				rows, err = conn.db.QueryContext(queryCtx, query, params...)
			}
			if err != nil {
				return nil, object.WrapError(object.IOFailure, err, "query failed")
			}
			defer rows.Close()

			return renderRows(rows)
		},
	}
}

func (h *Host) fnDbBegin() *object.Builtin {
	return &object.Builtin{
		Name:   "dbBegin",
		Unsafe: true,
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArgs("dbBegin", args, 1, 1); err != nil {
				return nil, err
			}
			handle, err := ctx.Eval(args[0], env)
			if err != nil {
				return nil, err
			}
			_, conn, err := h.connection("dbBegin", handle)
			if err != nil {
				return nil, err
			}
			if conn.tx != nil {
				return nil, object.NewError(object.IOFailure, "transaction already in progress")
			}
			// the transaction outlives this call, so it gets no deadline
			tx, err := conn.db.Begin()
			if err != nil {
				return nil, object.WrapError(object.IOFailure, err, "failed to begin transaction")
			}
			conn.tx = tx
			return handle, nil
		},
	}
}

func (h *Host) fnDbCommit() *object.Builtin {
	return h.endTransaction("dbCommit", "commit", func(tx *sql.Tx) error { return tx.Commit() })
}

func (h *Host) fnDbRollback() *object.Builtin {
	return h.endTransaction("dbRollback", "rollback", func(tx *sql.Tx) error { return tx.Rollback() })
}

func (h *Host) endTransaction(name, verb string, end func(tx *sql.Tx) error) *object.Builtin {
	return &object.Builtin{
		Name:   name,
		Unsafe: true,
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArgs(name, args, 1, 1); err != nil {
				return nil, err
			}
			handle, err := ctx.Eval(args[0], env)
			if err != nil {
				return nil, err
			}
			_, conn, err := h.connection(name, handle)
			if err != nil {
				return nil, err
			}
			if conn.tx == nil {
				return nil, object.NewError(object.IOFailure, "invalid transaction handle")
			}
			err = end(conn.tx)
			conn.tx = nil
			if err != nil {
				return nil, object.WrapError(object.IOFailure, err, "failed to %s transaction", verb)
			}
			return handle, nil
		},
	}
}

func (h *Host) fnDbClose() *object.Builtin {
	return &object.Builtin{
		Name:   "dbClose",
		Unsafe: true,
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArgs("dbClose", args, 1, 1); err != nil {
				return nil, err
			}
			handle, err := ctx.Eval(args[0], env)
			if err != nil {
				return nil, err
			}
			id, conn, err := h.connection("dbClose", handle)
			if err != nil {
				return nil, err
			}
			delete(h.conns, id)
			if err := conn.close(); err != nil {
				return nil, object.WrapError(object.IOFailure, err, "failed to close connection")
			}
			slog.Info("database connection closed", slog.Int64("handle", id))
			return object.Nil(), nil
		},
	}
}

// renderSQL accepts a symbol, used verbatim, or a list whose elements are
// joined with spaces.
func renderSQL(name string, v object.Value) (string, error) {
	switch q := v.(type) {
	case *object.Symbol:
		return q.Name, nil
	case *object.List:
		parts := make([]string, len(q.Elements))
		for i, el := range q.Elements {
			parts[i] = el.Inspect()
		}
		return strings.Join(parts, " "), nil
	default:
		return "", object.NewError(object.TypeMismatch, "sql for `%s` must be SYMBOL or LIST, got %s", name, v.Inspect())
	}
}

func sqlParams(values []object.Value) ([]any, error) {
	params := make([]any, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case *object.Integer:
			params[i] = x.Value
		case *object.Boolean:
			params[i] = x.Value
		case *object.Symbol:
			params[i] = x.Name
		case *object.List:
			if len(x.Elements) != 0 {
				return nil, object.NewError(object.TypeMismatch, "cannot bind list %s as a query parameter", x.Inspect())
			}
			params[i] = nil
		default:
			return nil, object.NewError(object.TypeMismatch, "cannot bind %s as a query parameter", v.Inspect())
		}
	}
	return params, nil
}

func renderRows(rows *sql.Rows) (object.Value, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, object.WrapError(object.IOFailure, err, "failed to read columns")
	}
	types, _ := rows.ColumnTypes()

	var resultRows []object.Value
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, object.WrapError(object.IOFailure, err, "failed to scan row")
		}

		row := make([]object.Value, len(columns))
		for i := range columns {
			var typeName string
			if i < len(types) {
				typeName = types[i].DatabaseTypeName()
			}
			row[i] = mapValue(values[i], typeName)
		}
		resultRows = append(resultRows, object.NewList(row...))
	}
	if err := rows.Err(); err != nil {
		return nil, object.WrapError(object.IOFailure, err, "failed to read rows")
	}
	return object.NewList(resultRows...), nil
}

func mapValue(v any, dbType string) object.Value {
	if v == nil {
		return object.Nil()
	}
	switch x := v.(type) {
	case int64:
		return &object.Integer{Value: x}
	case int32:
		return &object.Integer{Value: int64(x)}
	case bool:
		return object.NativeBoolToBooleanObject(x)
	case float64:
		return object.NewSymbol(strconv.FormatFloat(x, 'f', -1, 64))
	case []byte:
		// mysql hands back integers as text unless the column is scanned typed
		switch dbType {
		case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT", "INT2", "INT4", "INT8":
			if i, err := strconv.ParseInt(string(x), 10, 64); err == nil {
				return &object.Integer{Value: i}
			}
		}
		return object.NewSymbol(string(x))
	case string:
		return object.NewSymbol(x)
	case time.Time:
		return object.NewSymbol(x.Format(time.RFC3339))
	default:
		return object.NewSymbol(fmt.Sprintf("%v", v))
	}
}
