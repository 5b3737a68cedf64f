package evaluator

import (
	"log/slog"
	"lxsp/internal/object"
	"lxsp/internal/util"
)

// Evaluator walks value trees. The same walker implements both strategies:
// Eval is strict and may run unsafe builtins, Reduce never does and leaves
// unresolved symbols in place.
//
// An Evaluator tracks recursion depth and must not be shared between
// goroutines.
type Evaluator struct {
	MaxDepth int

	depth int
}

func New(maxDepth int) *Evaluator {
	if maxDepth <= 0 {
		maxDepth = util.DefaultMaxDepth
	}
	return &Evaluator{MaxDepth: maxDepth}
}

// pass is the object.EvaluatorContext handed to builtins. It re-enters the
// walker with the strategy that invoked the builtin.
type pass struct {
	e        *Evaluator
	reducing bool
}

func (p pass) Eval(form object.Value, env *object.Environment) (object.Value, error) {
	return p.e.walk(form, env, p.reducing)
}

func (e *Evaluator) Eval(form object.Value, env *object.Environment) (object.Value, error) {
	return e.walk(form, env, false)
}

// Reduce partially evaluates form. Unknown symbols reduce to themselves and
// a call whose head is an unsafe builtin reduces to the original call form,
// arguments untouched.
func (e *Evaluator) Reduce(form object.Value, env *object.Environment) (object.Value, error) {
	return e.walk(form, env, true)
}

func (e *Evaluator) enter() error {
	if e.depth >= e.MaxDepth {
		return object.NewError(object.RecursionLimit, "maximum recursion depth of %d exceeded", e.MaxDepth)
	}
	e.depth++
	return nil
}

func (e *Evaluator) leave() {
	e.depth--
}

func (e *Evaluator) walk(form object.Value, env *object.Environment, reducing bool) (object.Value, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	switch node := form.(type) {
	case *object.Symbol:
		if val, ok := env.Get(node.Name); ok {
			return val, nil
		}
		if reducing {
			return node, nil
		}
		return nil, object.UndeclaredSymbolError(node.Name)

	case *object.List:
		if len(node.Elements) == 0 {
			return node, nil
		}
		callee, err := e.walk(node.Elements[0], env, reducing)
		if err != nil {
			return nil, err
		}
		args := node.Elements[1:]

		switch fn := callee.(type) {
		case *object.Macro:
			expanded, err := e.MacroExpand(fn, args, env)
			if err != nil {
				return nil, err
			}
			return e.walk(expanded, env, reducing)
		case *object.Builtin:
			if fn.Unsafe && reducing {
				return node, nil
			}
		}
		return e.apply(callee, args, env, reducing)

	default:
		// booleans, integers and every function kind are self-quoting
		return form, nil
	}
}

func (e *Evaluator) apply(callee object.Value, argForms []object.Value, env *object.Environment, reducing bool) (object.Value, error) {
	switch fn := callee.(type) {
	case *object.Builtin:
		if fn.Unsafe && env.UnsafeLevel <= 0 {
			slog.Warn("unsafe function called outside of an unsafe block",
				slog.String("function", fn.Name),
				slog.Uint64("env", env.ID))
			return nil, object.NewError(object.PrivilegeDenied, "%s may only be called inside an unsafe block", fn.Name)
		}
		return fn.Fn(pass{e: e, reducing: reducing}, argForms, env)

	case *object.Lambda:
		return e.applyLambda(fn, argForms, env, reducing)

	case *object.Macro:
		return nil, object.NewError(object.Unimplemented, "macro application outside of expansion is not supported")

	default:
		return nil, object.NewError(object.NotCallable, "value cannot be called: %s", callee.Inspect())
	}
}

// applyLambda binds the arguments, evaluated in the caller's env, in a
// parameter frame and runs the body in a child of it built from the closure
// snapshot. Captured names shadow parameters; the caller's privilege level
// applies throughout.
func (e *Evaluator) applyLambda(fn *object.Lambda, argForms []object.Value, env *object.Environment, reducing bool) (object.Value, error) {
	params, err := env.NewInnerEnv(pass{e: e, reducing: reducing}, fn.Params, argForms)
	if err != nil {
		return nil, err
	}
	callEnv := object.NewEnclosedEnvironment(params, fn.Closure)

	slog.Debug("applying lambda",
		slog.Int("arity", len(argForms)),
		slog.Uint64("env", callEnv.ID),
		slog.Bool("reducing", reducing))

	return e.walk(fn.Body, callEnv, reducing)
}
