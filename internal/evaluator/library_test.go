package evaluator

import (
	"lxsp/internal/object"
	"lxsp/internal/parser"
	"os"
	"path/filepath"
	"testing"
)

func loadStd(t *testing.T) *object.Environment {
	t.Helper()
	env, err := New(0).LoadLibrary(newTestEnv(), testLibrary, "std")
	if err != nil {
		t.Fatalf("load std: %v", err)
	}
	return env
}

func TestStdLibrary(t *testing.T) {
	env := loadStd(t)

	testCases := []struct {
		input string
		want  string
	}{
		{"(id 37)", "37"},
		{"(car '(10 20 30))", "10"},
		{"(car (cdr '(10 20 30)))", "20"},
		{"(car (cdr (cdr '(10 20 30))))", "30"},
		{"(div 100 30)", "3"},
		{"(mul 100 30)", "3000"},
		{"(fib 10)", "55"},
		{"(nilP ())", "[true]"},
		{"(nilP '())", "[true]"},
		{"(nilP 't)", "[false]"},
		{"(nilP '(t))", "[false]"},
		{"(not false)", "[true]"},
		{"(not true)", "[false]"},
		{"(truthyP ())", "[false]"},
		{"(truthyP '())", "[false]"},
		{"(truthyP 't)", "[true]"},
		{"(truthyP '(t))", "[true]"},
		{"(firsts '((a 1) (b 2) (c 3)))", "(a b c)"},
		{"(seconds '((a 1) (b 2) (c 3)))", "(1 2 3)"},
		{"(longOr true '(x y z (quote ('a 'b c d)) 1 2 3 '4 '5))", "[true]"},
		{"(longOr () 7)", "7"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			form, err := parser.ParseString(tc.input)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			evaluated, err := New(0).Eval(form, env)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			reduced, err := New(0).Reduce(form, env)
			if err != nil {
				t.Fatalf("reduce: %v", err)
			}
			if evaluated.Inspect() != tc.want {
				t.Errorf("eval: expected %s, got %s", tc.want, evaluated.Inspect())
			}
			if reduced.Inspect() != tc.want {
				t.Errorf("reduce: expected %s, got %s", tc.want, reduced.Inspect())
			}
		})
	}
}

func TestLibraryPath(t *testing.T) {
	lib := Library{Dir: "lisb", Ext: "l"}
	testCases := []struct {
		parts []string
		want  string
	}{
		{[]string{"std"}, filepath.Join("lisb", "std.l")},
		{[]string{"std", "lisp"}, filepath.Join("lisb", "std.lisp")},
		{[]string{"other", "main", "l"}, filepath.Join("other", "main.l")},
	}
	for _, tc := range testCases {
		got, err := lib.Path(tc.parts...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Errorf("expected %s, got %s", tc.want, got)
		}
	}
	if _, err := lib.Path(); !object.IsKind(err, object.ArityMismatch) {
		t.Errorf("expected arity mismatch for no parts, got %v", err)
	}
}

func writeLibrary(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestReadfAndInclude(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, "consts.l", "((five 5) (six (add five 1)))")
	writeLibrary(t, dir, "pairs.lisp", "((seven 7))")
	writeLibrary(t, dir, "broken.l", "((x 1)")
	writeLibrary(t, dir, "shape.l", "(1 2)")

	lib := Library{Dir: dir, Ext: "l"}
	env := NewRootEnvironment(lib)

	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"readf returns the parsed form", "(unsafe (readf 'consts))", "((five 5) (six (add five 1)))"},
		{"readf with extension", "(unsafe (readf 'pairs 'lisp))", "((seven 7))"},
		{"include binds the pairs", "(unsafe (include 'pairs 'lisp (add seven 1)))", "8"},
		{"let over readf", "(unsafe (let (readf 'pairs 'lisp) seven))", "7"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := evalString(t, tc.input, env)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Inspect() != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got.Inspect())
			}
		})
	}

	t.Run("readf with a folder", func(t *testing.T) {
		src := "(unsafe (readf folder 'pairs 'lisp))"
		inner := object.NewEnclosedEnvironment(env, map[string]object.Value{"folder": object.NewSymbol(dir)})
		got, err := evalString(t, src, inner)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Inspect() != "((seven 7))" {
			t.Errorf("unexpected form %s", got.Inspect())
		}
	})

	errorCases := []struct {
		name  string
		input string
		kind  object.ErrorKind
	}{
		{"missing file", "(unsafe (readf 'nothing))", object.IOFailure},
		{"parse failure", "(unsafe (readf 'broken))", object.ParseFailure},
		{"non-symbol path", "(unsafe (readf 5))", object.TypeMismatch},
		{"too many parts", "(unsafe (readf 'a 'b 'c 'd))", object.ArityMismatch},
		{"include without body", "(unsafe (include 'consts))", object.ArityMismatch},
		{"include of a non-pairs file", "(unsafe (include 'shape 1))", object.MalformedForm},
		{"include outside unsafe", "(include 'consts five)", object.PrivilegeDenied},
		// pairs are evaluated in the including frame, not in each other
		{"pairs do not see each other", "(unsafe (include 'consts six))", object.UndeclaredSymbol},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := evalString(t, tc.input, env)
			if !object.IsKind(err, tc.kind) {
				t.Errorf("expected %s, got %v", tc.kind, err)
			}
		})
	}
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()
	writeLibrary(t, dir, "extra.l", "((double (fn (x) (add x x))))")
	lib := Library{Dir: dir, Ext: "l"}
	root := NewRootEnvironment(lib)
	e := New(0)

	env, err := e.LoadLibrary(root, lib, "extra")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Outer != root {
		t.Errorf("library frame should be a child of the given env")
	}
	got, err := evalString(t, "(double 21)", env)
	if err != nil || got.Inspect() != "42" {
		t.Errorf("expected 42, got %v (%v)", got, err)
	}

	if _, err := e.LoadLibrary(root, lib, "missing"); !object.IsKind(err, object.IOFailure) {
		t.Errorf("expected io failure for a missing library, got %v", err)
	}
	// the root is unchanged after a failed load
	if _, ok := root.Get("double"); ok {
		t.Errorf("root environment was modified")
	}
}
