package parser

import (
	"errors"
	"lxsp/internal/object"
	"strings"
	"testing"
)

func TestParseString(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"integer", "42", "42"},
		{"negative integer", "-17", "-17"},
		{"symbol", "add", "add"},
		{"minus is a symbol", "-", "-"},
		{"overflowing integer is a symbol", "9223372036854775808", "9223372036854775808"},
		{"list", "(add 1 2)", "(add 1 2)"},
		{"nested", "(let ((x 5)) (add x 1))", "(let ((x 5)) (add x 1))"},
		{"quote sugar", "'x", "(quote x)"},
		{"quoted list", "'(1 2)", "(quote (1 2))"},
		{"quote inside list", "(car '(a b))", "(car (quote (a b)))"},
		{"empty list", "()", "()"},
		{"empty source", "", "()"},
		{"only comments", "; nothing\n(* at all *)", "()"},
		{"comments around a form", "; lead\n(add (* two *) 1 1) ; trail", "(add 1 1)"},
		{"symbols with punctuation", "(dbOpen sqlite3 :memory:)", "(dbOpen sqlite3 :memory:)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseString(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Inspect() != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got.Inspect())
			}
		})
	}
}

func TestParseAtomTypes(t *testing.T) {
	v, _ := ParseString("7")
	if n, ok := object.GetInt(v); !ok || n != 7 {
		t.Errorf("expected integer 7, got %#v", v)
	}
	v, _ = ParseString("7a")
	if name, ok := object.GetSymbol(v); !ok || name != "7a" {
		t.Errorf("expected symbol 7a, got %#v", v)
	}
	v, _ = ParseString("()")
	if !object.IsNil(v) {
		t.Errorf("expected nil, got %#v", v)
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		message string
	}{
		{"unclosed list", "(add 1 2", "could not find closing `)`"},
		{"stray close", ")", "unexpected `)`"},
		{"trailing form", "(add 1 2) 3", "expected a single expression, found 2"},
		{"dangling quote", "'", "nothing to quote"},
		{"unterminated remark", "(add 1 (* 2)", "unterminated remark"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseString(tc.input)
			if err == nil {
				t.Fatalf("expected an error for %q", tc.input)
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *parser.Error, got %T", err)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Errorf("expected %q in %q", tc.message, err.Error())
			}
		})
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := ParseString("(add 1\n  2))")
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *parser.Error, got %v", err)
	}
	if perr.Position != 11 {
		t.Errorf("expected error at offset 11, got %d", perr.Position)
	}
	if !strings.HasPrefix(perr.Messages[0], "[  2: 5]") {
		t.Errorf("expected line and column prefix, got %q", perr.Messages[0])
	}
}

func TestParseAll(t *testing.T) {
	forms, err := ParseAll("(add 1 2)\n'x\n; done\n7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"(add 1 2)", "(quote x)", "7"}
	if len(forms) != len(want) {
		t.Fatalf("expected %d forms, got %d", len(want), len(forms))
	}
	for i, f := range forms {
		if f.Inspect() != want[i] {
			t.Errorf("form %d: expected %s, got %s", i, want[i], f.Inspect())
		}
	}

	forms, err = ParseAll("")
	if err != nil || len(forms) != 0 {
		t.Errorf("expected no forms, got %v (%v)", forms, err)
	}
}
