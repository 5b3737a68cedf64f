package foreign

import (
	"errors"
	"lxsp/internal/evaluator"
	"lxsp/internal/object"
	"lxsp/internal/parser"
	"lxsp/internal/util"
	"testing"
)

func newHostEnv(t *testing.T, cfg util.Configuration) (*Host, *object.Environment) {
	t.Helper()
	host := NewHost(cfg)
	t.Cleanup(func() {
		if err := host.Close(); err != nil {
			t.Errorf("close host: %v", err)
		}
	})
	lib := evaluator.Library{Dir: t.TempDir(), Ext: "l"}
	return host, evaluator.NewRootEnvironment(lib, host.Builtins())
}

func run(t *testing.T, env *object.Environment, src string) (object.Value, error) {
	t.Helper()
	form, err := parser.ParseString(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return evaluator.New(0).Eval(form, env)
}

func mustRun(t *testing.T, env *object.Environment, src, want string) {
	t.Helper()
	got, err := run(t, env, src)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", src, err)
	}
	if got.Inspect() != want {
		t.Fatalf("%s: expected %s, got %s", src, want, got.Inspect())
	}
}

func openMemoryDB(t *testing.T) (*Host, *object.Environment) {
	t.Helper()
	host, root := newHostEnv(t, util.DefaultConfiguration())
	handle, err := run(t, root, "(unsafe (dbOpen 'sqlite3 ':memory:))")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	env := object.NewEnclosedEnvironment(root, map[string]object.Value{"db": handle})
	mustRun(t, env, "(unsafe (dbExec db '(create table people (id integer primary key, name text, active boolean))))", "(0 0)")
	return host, env
}

func TestDatabaseRoundTrip(t *testing.T) {
	_, env := openMemoryDB(t)

	mustRun(t, env, "(unsafe (dbExec db '(insert into people (name, active) values (?, ?)) 'alice true))", "(1 1)")
	mustRun(t, env, "(unsafe (dbExec db '(insert into people (name, active) values (?, ?)) 'bob false))", "(1 2)")
	mustRun(t, env, "(unsafe (dbExec db '(insert into people (name, active) values (?, ?)) () true))", "(1 3)")

	mustRun(t, env, "(unsafe (dbQuery db '(select id, name, active from people order by id)))",
		"((1 alice [true]) (2 bob [false]) (3 () [true]))")
	mustRun(t, env, "(unsafe (dbQuery db '(select name from people where id = ?) 2))", "((bob))")
	mustRun(t, env, "(unsafe (dbQuery db '(select name from people where id = ?) 99))", "()")
	mustRun(t, env, "(unsafe (dbExec db '(update people set active = ? where active = ?) false true))", "(2 3)")
}

func TestDatabaseTransactions(t *testing.T) {
	_, env := openMemoryDB(t)

	mustRun(t, env, "(unsafe (dbBegin db))", "1")
	mustRun(t, env, "(unsafe (dbExec db '(insert into people (name) values (?)) 'carol))", "(1 1)")
	mustRun(t, env, "(unsafe (dbRollback db))", "1")
	mustRun(t, env, "(unsafe (dbQuery db '(select name from people)))", "()")

	mustRun(t, env, "(unsafe (dbBegin db))", "1")
	mustRun(t, env, "(unsafe (dbExec db '(insert into people (name) values (?)) 'dave))", "(1 1)")
	mustRun(t, env, "(unsafe (dbQuery db '(select name from people)))", "((dave))")
	mustRun(t, env, "(unsafe (dbCommit db))", "1")
	mustRun(t, env, "(unsafe (dbQuery db '(select name from people)))", "((dave))")

	if _, err := run(t, env, "(unsafe (dbCommit db))"); !object.IsKind(err, object.IOFailure) {
		t.Errorf("expected io failure for commit without a transaction, got %v", err)
	}
}

func TestDatabaseClose(t *testing.T) {
	host, env := openMemoryDB(t)

	mustRun(t, env, "(unsafe (dbClose db))", "()")
	if len(host.conns) != 0 {
		t.Errorf("handle still registered after close")
	}
	if _, err := run(t, env, "(unsafe (dbQuery db '(select 1)))"); !object.IsKind(err, object.IOFailure) {
		t.Errorf("expected io failure on a closed handle, got %v", err)
	}
}

func TestDatabaseErrors(t *testing.T) {
	_, env := openMemoryDB(t)

	testCases := []struct {
		name  string
		input string
		kind  object.ErrorKind
	}{
		{"outside unsafe", "(dbQuery db '(select 1))", object.PrivilegeDenied},
		{"unknown handle", "(unsafe (dbQuery 99 '(select 1)))", object.IOFailure},
		{"handle must be an integer", "(unsafe (dbQuery 'db '(select 1)))", object.TypeMismatch},
		{"bad sql", "(unsafe (dbExec db '(create nonsense)))", object.IOFailure},
		{"sql must be text", "(unsafe (dbQuery db 5))", object.TypeMismatch},
		{"unbindable parameter", "(unsafe (dbQuery db '(select ?) '(1 2)))", object.TypeMismatch},
		{"unsupported driver", "(unsafe (dbOpen 'oracle 'x))", object.TypeMismatch},
		{"missing sql", "(unsafe (dbQuery db))", object.ArityMismatch},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, env, tc.input)
			if !object.IsKind(err, tc.kind) {
				t.Errorf("expected %s, got %v", tc.kind, err)
			}
		})
	}
}

func TestDatabaseCallsAreNotReduced(t *testing.T) {
	host, root := newHostEnv(t, util.DefaultConfiguration())
	form, err := parser.ParseString("(unsafe (dbOpen 'sqlite3 ':memory:))")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err := evaluator.New(0).Reduce(form, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Inspect() != "(dbOpen (quote sqlite3) (quote :memory:))" {
		t.Errorf("expected the call form back, got %s", got.Inspect())
	}
	if len(host.conns) != 0 {
		t.Errorf("reduce opened a connection")
	}
}

func TestRenderSQL(t *testing.T) {
	form, _ := parser.ParseString("(select a, b from t where (a = ?) and b = ?)")
	got, err := renderSQL("dbQuery", form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "select a, b from t where (a = ?) and b = ?"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestResultValue(t *testing.T) {
	if got := resultValue("last insert id", "sqlite3", 7, nil); got.Inspect() != "7" {
		t.Errorf("expected 7, got %s", got.Inspect())
	}
	unsupported := errors.New("pq: LastInsertId is not supported by this driver")
	if got := resultValue("last insert id", "postgres", 0, unsupported); !object.IsNil(got) {
		t.Errorf("expected () for an unreported value, got %s", got.Inspect())
	}
}
