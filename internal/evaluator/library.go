package evaluator

import (
	"log/slog"
	"lxsp/internal/object"
	"lxsp/internal/parser"
	"lxsp/internal/util"
	"os"
	"path/filepath"
)

// Library resolves library names to files:
//
//	(readf name)            Dir/name.Ext
//	(readf main ext)        Dir/main.ext
//	(readf folder main ext) folder/main.ext
type Library struct {
	Dir string
	Ext string
}

func NewLibrary(cfg util.Configuration) Library {
	return Library{Dir: cfg.LibDir, Ext: cfg.LibExt}
}

func (lib Library) Path(parts ...string) (string, error) {
	switch len(parts) {
	case 1:
		return filepath.Join(lib.Dir, parts[0]+"."+lib.Ext), nil
	case 2:
		return filepath.Join(lib.Dir, parts[0]+"."+parts[1]), nil
	case 3:
		return filepath.Join(parts[0], parts[1]+"."+parts[2]), nil
	default:
		return "", object.NewError(object.ArityMismatch, "library path expects 1 to 3 parts, got %d", len(parts))
	}
}

// Read parses, without evaluating, the library file named by parts.
func (lib Library) Read(parts ...string) (object.Value, error) {
	path, err := lib.Path(parts...)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, object.WrapError(object.IOFailure, err, "failed to read library %s", path)
	}
	form, err := parser.ParseString(string(src))
	if err != nil {
		return nil, object.WrapError(object.ParseFailure, err, "failed to parse library %s", path)
	}
	return form, nil
}

func (lib Library) builtins() []*object.Builtin {
	return []*object.Builtin{
		lib.funcReadf(),
		lib.funcInclude(),
	}
}

func evalPathParts(ctx object.EvaluatorContext, name string, forms []object.Value, env *object.Environment) ([]string, error) {
	parts := make([]string, len(forms))
	for i, form := range forms {
		val, err := ctx.Eval(form, env)
		if err != nil {
			return nil, err
		}
		s, ok := object.GetSymbol(val)
		if !ok {
			return nil, object.NewError(object.TypeMismatch, "argument to `%s` must be SYMBOL, got %s", name, val.Inspect())
		}
		parts[i] = s
	}
	return parts, nil
}

func (lib Library) funcReadf() *object.Builtin {
	return &object.Builtin{
		Name:   "readf",
		Unsafe: true,
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if len(args) < 1 || len(args) > 3 {
				return nil, object.NewError(object.ArityMismatch, "readf expects 1 to 3 arguments, got %d", len(args))
			}
			parts, err := evalPathParts(ctx, "readf", args, env)
			if err != nil {
				return nil, err
			}
			return lib.Read(parts...)
		},
	}
}

// funcInclude is (include p1 [p2 [p3]] body): the library named by the
// path parts is bound like let bindings and body runs in that frame.
func (lib Library) funcInclude() *object.Builtin {
	return &object.Builtin{
		Name:   "include",
		Unsafe: true,
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if len(args) < 2 || len(args) > 4 {
				return nil, object.NewError(object.ArityMismatch, "include expects 2 to 4 arguments, got %d", len(args))
			}
			parts, err := evalPathParts(ctx, "include", args[:len(args)-1], env)
			if err != nil {
				return nil, err
			}
			pairs, err := lib.Read(parts...)
			if err != nil {
				return nil, err
			}
			inner, err := bindPairs(ctx, pairs, env)
			if err != nil {
				return nil, err
			}
			return ctx.Eval(args[len(args)-1], inner)
		},
	}
}

// LoadLibrary evaluates the (name form) pairs of library name in env and
// returns a child frame holding them. No privilege is required.
func (e *Evaluator) LoadLibrary(env *object.Environment, lib Library, name string) (*object.Environment, error) {
	pairs, err := lib.Read(name)
	if err != nil {
		return nil, err
	}
	inner, err := bindPairs(pass{e: e}, pairs, env)
	if err != nil {
		return nil, err
	}
	slog.Info("library loaded",
		slog.String("name", name),
		slog.Int("bindings", len(inner.SortedNames())))
	return inner, nil
}
