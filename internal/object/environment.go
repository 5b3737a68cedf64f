package object

import (
	"log/slog"
	"sort"
	"sync/atomic"
)

var nextID atomic.Uint64

// Environment is one frame of the lexical scope chain. A frame is never
// mutated after construction, so frames can be shared freely between
// lambdas, library environments and concurrent readers.
type Environment struct {
	ID          uint64
	Outer       *Environment
	UnsafeLevel int

	bindings map[string]Value
}

func nextEnvID() uint64 {
	return nextID.Add(1)
}

// NewRootEnvironment creates a parentless frame at unsafe level zero.
func NewRootEnvironment(bindings map[string]Value) *Environment {
	if bindings == nil {
		bindings = map[string]Value{}
	}
	slog.Debug("------ new root env ------",
		slog.Int("bindings", len(bindings)))
	return &Environment{
		ID:       nextEnvID(),
		bindings: bindings,
	}
}

// NewEnclosedEnvironment creates a child of outer holding bindings. The
// child inherits the unsafe level of outer.
func NewEnclosedEnvironment(outer *Environment, bindings map[string]Value) *Environment {
	if bindings == nil {
		bindings = map[string]Value{}
	}
	env := &Environment{
		ID:          nextEnvID(),
		Outer:       outer,
		UnsafeLevel: outer.UnsafeLevel,
		bindings:    bindings,
	}
	slog.Debug("------ new env ------",
		slog.Uint64("id", env.ID),
		slog.Uint64("outer", outer.ID),
		slog.Int("unsafe-level", env.UnsafeLevel))
	return env
}

func (e *Environment) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.Outer {
		if val, ok := env.bindings[name]; ok {
			return val, true
		}
	}
	return nil, false
}

// NewUnsaferEnv returns an empty child frame one privilege level up.
func (e *Environment) NewUnsaferEnv() *Environment {
	env := NewEnclosedEnvironment(e, nil)
	env.UnsafeLevel = e.UnsafeLevel + 1
	return env
}

// NewInnerEnv evaluates argForms in e, strictly left to right, and binds the
// results positionally to params in a new child frame.
func (e *Environment) NewInnerEnv(ctx EvaluatorContext, params Value, argForms []Value) (*Environment, error) {
	names, err := SymbolNames(params)
	if err != nil {
		return nil, err
	}
	if len(names) != len(argForms) {
		return nil, NewError(ArityMismatch, "expected %d arguments, got %d", len(names), len(argForms))
	}
	bindings := make(map[string]Value, len(names))
	for i, form := range argForms {
		val, err := ctx.Eval(form, e)
		if err != nil {
			return nil, err
		}
		bindings[names[i]] = val
	}
	return NewEnclosedEnvironment(e, bindings), nil
}

// Flatten materialises every binding visible from e; inner frames shadow
// outer ones.
func (e *Environment) Flatten() map[string]Value {
	var chain []*Environment
	for env := e; env != nil; env = env.Outer {
		chain = append(chain, env)
	}
	flat := map[string]Value{}
	for i := len(chain) - 1; i >= 0; i-- {
		for name, val := range chain[i].bindings {
			flat[name] = val
		}
	}
	return flat
}

// SortedNames lists the names bound in this frame.
func (e *Environment) SortedNames() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SymbolNames checks that params is a list of symbols and returns their names.
func SymbolNames(params Value) ([]string, error) {
	list, ok := GetList(params)
	if !ok {
		return nil, NewError(MalformedForm, "expected parameter form to be a list, got %s", params.Inspect())
	}
	names := make([]string, len(list))
	for i, p := range list {
		name, ok := GetSymbol(p)
		if !ok {
			return nil, NewError(MalformedForm, "expected symbols in the parameter list, got %s", p.Inspect())
		}
		names[i] = name
	}
	return names, nil
}
