package object

import (
	"strconv"
	"strings"
)

const (
	BOOLEAN_OBJ = "BOOLEAN"
	INTEGER_OBJ = "INTEGER"
	SYMBOL_OBJ  = "SYMBOL"
	LIST_OBJ    = "LIST"
	BUILTIN_OBJ = "BUILTIN"
	LAMBDA_OBJ  = "LAMBDA"
	MACRO_OBJ   = "MACRO"
)

const (
	QUOTE_SYMBOL = "quote"
	EXIT_SYMBOL  = "exit"
)

var (
	NIL   = &List{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

type ObjectType string

// Value is the unified runtime and syntax tree representation. The set of
// implementations is closed to this package.
type Value interface {
	Type() ObjectType
	Inspect() string
	value()
}

// EvaluatorContext is handed to native builtins so they can evaluate their
// raw argument forms with whichever strategy (eval or reduce) invoked them.
type EvaluatorContext interface {
	Eval(form Value, env *Environment) (Value, error)
}

// BuiltinFunction receives its argument forms unevaluated.
type BuiltinFunction func(ctx EvaluatorContext, args []Value, env *Environment) (Value, error)

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string {
	if b.Value {
		return "[true]"
	}
	return "[false]"
}
func (b *Boolean) value() {}

type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }
func (i *Integer) value()           {}

type Symbol struct {
	Name string
}

func (s *Symbol) Type() ObjectType { return SYMBOL_OBJ }
func (s *Symbol) Inspect() string  { return s.Name }
func (s *Symbol) value()           {}

// List is persistent: Elements must never be written after construction so
// that tails can be shared between lists.
type List struct {
	Elements []Value
}

func (l *List) Type() ObjectType { return LIST_OBJ }
func (l *List) Inspect() string {
	var out strings.Builder
	out.WriteString("(")
	for i, el := range l.Elements {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(el.Inspect())
	}
	out.WriteString(")")
	return out.String()
}
func (l *List) value() {}

// Builtin is a native function. Unsafe builtins may only be applied from an
// environment with a positive unsafe level.
type Builtin struct {
	Name   string
	Fn     BuiltinFunction
	Unsafe bool
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string {
	if b.Unsafe {
		return "[Unsafe Function]"
	}
	return "[Function]"
}
func (b *Builtin) value() {}

// Lambda is a user defined closure. Closure is a flattened snapshot of the
// bindings visible where the lambda was created.
type Lambda struct {
	Params  *List
	Body    Value
	Closure map[string]Value
}

func (l *Lambda) Type() ObjectType { return LAMBDA_OBJ }
func (l *Lambda) Inspect() string  { return "[Lambda]" }
func (l *Lambda) value()           {}

type Macro struct {
	Params *List
	Body   Value
}

func (m *Macro) Type() ObjectType { return MACRO_OBJ }
func (m *Macro) Inspect() string  { return "[Macro]" }
func (m *Macro) value()           {}

func Nil() *List { return NIL }

func NativeBoolToBooleanObject(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

func NewSymbol(name string) *Symbol { return &Symbol{Name: name} }

func NewList(elements ...Value) *List {
	if len(elements) == 0 {
		return NIL
	}
	return &List{Elements: elements}
}

// Quoted wraps v as (quote v).
func Quoted(v Value) *List {
	return NewList(NewSymbol(QUOTE_SYMBOL), v)
}

// Cons prepends head onto tail. It reports false when tail is not a list.
func Cons(head, tail Value) (Value, bool) {
	rest, ok := GetList(tail)
	if !ok {
		return nil, false
	}
	elements := make([]Value, 0, len(rest)+1)
	elements = append(elements, head)
	elements = append(elements, rest...)
	return &List{Elements: elements}, true
}

// Head returns the first element of a list; nil for the empty list.
func Head(v Value) (Value, bool) {
	list, ok := GetList(v)
	if !ok {
		return nil, false
	}
	if len(list) == 0 {
		return NIL, true
	}
	return list[0], true
}

// Tail shares the backing array of v.
func Tail(v Value) (Value, bool) {
	list, ok := GetList(v)
	if !ok {
		return nil, false
	}
	if len(list) <= 1 {
		return NIL, true
	}
	return &List{Elements: list[1:]}, true
}

func GetList(v Value) ([]Value, bool) {
	if l, ok := v.(*List); ok {
		return l.Elements, true
	}
	return nil, false
}

func GetInt(v Value) (int64, bool) {
	if i, ok := v.(*Integer); ok {
		return i.Value, true
	}
	return 0, false
}

func GetBool(v Value) (bool, bool) {
	if b, ok := v.(*Boolean); ok {
		return b.Value, true
	}
	return false, false
}

func GetSymbol(v Value) (string, bool) {
	if s, ok := v.(*Symbol); ok {
		return s.Name, true
	}
	return "", false
}

func IsNil(v Value) bool {
	l, ok := v.(*List)
	return ok && len(l.Elements) == 0
}

func IsList(v Value) bool {
	_, ok := v.(*List)
	return ok
}

// IsAtom is true for anything but a non-empty list.
func IsAtom(v Value) bool {
	return !IsList(v) || IsNil(v)
}

func IsSymbol(v Value) bool {
	_, ok := v.(*Symbol)
	return ok
}

func IsListOfSymbols(v Value) bool {
	list, ok := GetList(v)
	if !ok {
		return false
	}
	for _, el := range list {
		if !IsSymbol(el) {
			return false
		}
	}
	return true
}

func IsExit(v Value) bool {
	name, ok := GetSymbol(v)
	return ok && name == EXIT_SYMBOL
}

// Equal compares booleans, integers, symbols and lists structurally. Any
// function kind compares unequal to everything, itself included, so Equal
// is not reflexive and must not back a hash or an ordering.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case *Boolean:
		b, ok := b.(*Boolean)
		return ok && a.Value == b.Value
	case *Integer:
		b, ok := b.(*Integer)
		return ok && a.Value == b.Value
	case *Symbol:
		b, ok := b.(*Symbol)
		return ok && a.Name == b.Name
	case *List:
		b, ok := b.(*List)
		if !ok || len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !Equal(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true
	case *Builtin, *Lambda, *Macro:
		return false
	default:
		return false
	}
}
