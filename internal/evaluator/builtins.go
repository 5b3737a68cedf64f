package evaluator

import (
	"log/slog"
	"lxsp/internal/object"
)

// NewRootEnvironment builds the process-wide root frame from the safe
// builtins, the library primitives and any host-provided unsafe builtins.
// The result is never modified afterwards.
func NewRootEnvironment(lib Library, hosts ...map[string]*object.Builtin) *object.Environment {
	bindings := map[string]object.Value{
		"true":  object.TRUE,
		"false": object.FALSE,
		"exit":  object.NewSymbol(object.EXIT_SYMBOL),
	}

	for _, b := range builtins() {
		bindings[b.Name] = b
	}
	for _, b := range lib.builtins() {
		bindings[b.Name] = b
	}
	for _, host := range hosts {
		for name, b := range host {
			bindings[name] = b
		}
	}

	slog.Debug("root environment built", slog.Int("bindings", len(bindings)))
	return object.NewRootEnvironment(bindings)
}

func builtins() []*object.Builtin {
	return []*object.Builtin{
		funcQuote(),
		funcIf(),
		funcEq(),
		funcCompare("lt", func(a, b int64) bool { return a < b }),
		funcCompare("gt", func(a, b int64) bool { return a > b }),
		funcAdd(),
		funcSub(),
		funcAtom(),
		funcCons(),
		funcCar(),
		funcCdr(),
		funcList(),
		funcFn(),
		funcMacro(),
		funcLet(),
		funcEval(),
		funcUnsafe(),
		funcSpookyAdd(),
	}
}

func checkArity(name string, args []object.Value, want int) error {
	if len(args) != want {
		return object.NewError(object.ArityMismatch, "%s expects %d arguments, got %d", name, want, len(args))
	}
	return nil
}

func evalInt(ctx object.EvaluatorContext, name string, form object.Value, env *object.Environment) (int64, error) {
	val, err := ctx.Eval(form, env)
	if err != nil {
		return 0, err
	}
	i, ok := object.GetInt(val)
	if !ok {
		return 0, object.NewError(object.TypeMismatch, "argument to `%s` must be INTEGER, got %s", name, val.Inspect())
	}
	return i, nil
}

func evalIntPair(ctx object.EvaluatorContext, name string, args []object.Value, env *object.Environment) (int64, int64, error) {
	if err := checkArity(name, args, 2); err != nil {
		return 0, 0, err
	}
	a, err := evalInt(ctx, name, args[0], env)
	if err != nil {
		return 0, 0, err
	}
	b, err := evalInt(ctx, name, args[1], env)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func evalList(ctx object.EvaluatorContext, name string, form object.Value, env *object.Environment) (object.Value, error) {
	val, err := ctx.Eval(form, env)
	if err != nil {
		return nil, err
	}
	if !object.IsList(val) {
		return nil, object.NewError(object.TypeMismatch, "argument to `%s` must be LIST, got %s", name, val.Inspect())
	}
	return val, nil
}

func funcQuote() *object.Builtin {
	return &object.Builtin{
		Name: object.QUOTE_SYMBOL,
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArity("quote", args, 1); err != nil {
				return nil, err
			}
			return args[0], nil
		},
	}
}

func funcIf() *object.Builtin {
	return &object.Builtin{
		Name: "if",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArity("if", args, 3); err != nil {
				return nil, err
			}
			cond, err := ctx.Eval(args[0], env)
			if err != nil {
				return nil, err
			}
			b, ok := object.GetBool(cond)
			if !ok {
				return nil, object.NewError(object.TypeMismatch, "condition of `if` must be BOOLEAN, got %s", cond.Inspect())
			}
			if b {
				return ctx.Eval(args[1], env)
			}
			return ctx.Eval(args[2], env)
		},
	}
}

func funcEq() *object.Builtin {
	return &object.Builtin{
		Name: "eq",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArity("eq", args, 2); err != nil {
				return nil, err
			}
			a, err := ctx.Eval(args[0], env)
			if err != nil {
				return nil, err
			}
			b, err := ctx.Eval(args[1], env)
			if err != nil {
				return nil, err
			}
			return object.NativeBoolToBooleanObject(object.Equal(a, b)), nil
		},
	}
}

func funcCompare(name string, cmp func(a, b int64) bool) *object.Builtin {
	return &object.Builtin{
		Name: name,
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			a, b, err := evalIntPair(ctx, name, args, env)
			if err != nil {
				return nil, err
			}
			return object.NativeBoolToBooleanObject(cmp(a, b)), nil
		},
	}
}

// funcAdd sums any number of integers; overflow wraps.
func funcAdd() *object.Builtin {
	return &object.Builtin{
		Name: "add",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			var sum int64
			for _, arg := range args {
				i, err := evalInt(ctx, "add", arg, env)
				if err != nil {
					return nil, err
				}
				sum += i
			}
			return &object.Integer{Value: sum}, nil
		},
	}
}

func funcSub() *object.Builtin {
	return &object.Builtin{
		Name: "sub",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			a, b, err := evalIntPair(ctx, "sub", args, env)
			if err != nil {
				return nil, err
			}
			return &object.Integer{Value: a - b}, nil
		},
	}
}

func funcAtom() *object.Builtin {
	return &object.Builtin{
		Name: "atom",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArity("atom", args, 1); err != nil {
				return nil, err
			}
			val, err := ctx.Eval(args[0], env)
			if err != nil {
				return nil, err
			}
			return object.NativeBoolToBooleanObject(object.IsAtom(val)), nil
		},
	}
}

func funcCons() *object.Builtin {
	return &object.Builtin{
		Name: "cons",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArity("cons", args, 2); err != nil {
				return nil, err
			}
			head, err := ctx.Eval(args[0], env)
			if err != nil {
				return nil, err
			}
			tail, err := evalList(ctx, "cons", args[1], env)
			if err != nil {
				return nil, err
			}
			list, _ := object.Cons(head, tail)
			return list, nil
		},
	}
}

func funcCar() *object.Builtin {
	return &object.Builtin{
		Name: "car",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArity("car", args, 1); err != nil {
				return nil, err
			}
			list, err := evalList(ctx, "car", args[0], env)
			if err != nil {
				return nil, err
			}
			head, _ := object.Head(list)
			return head, nil
		},
	}
}

func funcCdr() *object.Builtin {
	return &object.Builtin{
		Name: "cdr",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArity("cdr", args, 1); err != nil {
				return nil, err
			}
			list, err := evalList(ctx, "cdr", args[0], env)
			if err != nil {
				return nil, err
			}
			tail, _ := object.Tail(list)
			return tail, nil
		},
	}
}

func funcList() *object.Builtin {
	return &object.Builtin{
		Name: "list",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			elements := make([]object.Value, len(args))
			for i, arg := range args {
				val, err := ctx.Eval(arg, env)
				if err != nil {
					return nil, err
				}
				elements[i] = val
			}
			return object.NewList(elements...), nil
		},
	}
}

func paramList(name string, form object.Value) (*object.List, error) {
	params, ok := form.(*object.List)
	if !ok || !object.IsListOfSymbols(params) {
		return nil, object.NewError(object.MalformedForm, "parameters of `%s` must be a list of symbols, got %s", name, form.Inspect())
	}
	return params, nil
}

func funcFn() *object.Builtin {
	return &object.Builtin{
		Name: "fn",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArity("fn", args, 2); err != nil {
				return nil, err
			}
			params, err := paramList("fn", args[0])
			if err != nil {
				return nil, err
			}
			return &object.Lambda{Params: params, Body: args[1], Closure: env.Flatten()}, nil
		},
	}
}

func funcMacro() *object.Builtin {
	return &object.Builtin{
		Name: "macro",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArity("macro", args, 2); err != nil {
				return nil, err
			}
			params, err := paramList("macro", args[0])
			if err != nil {
				return nil, err
			}
			return &object.Macro{Params: params, Body: args[1]}, nil
		},
	}
}

// funcLet accepts literal bindings, (let ((x 5)) ...), or any form that
// evaluates to such a list of pairs.
func funcLet() *object.Builtin {
	return &object.Builtin{
		Name: "let",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArity("let", args, 2); err != nil {
				return nil, err
			}
			pairs := args[0]
			if !isLiteralBindings(pairs) {
				val, err := ctx.Eval(pairs, env)
				if err != nil {
					return nil, err
				}
				pairs = val
			}
			inner, err := bindPairs(ctx, pairs, env)
			if err != nil {
				return nil, err
			}
			return ctx.Eval(args[1], inner)
		},
	}
}

func funcEval() *object.Builtin {
	return &object.Builtin{
		Name: "eval",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArity("eval", args, 1); err != nil {
				return nil, err
			}
			code, err := ctx.Eval(args[0], env)
			if err != nil {
				return nil, err
			}
			return ctx.Eval(code, env)
		},
	}
}

func funcUnsafe() *object.Builtin {
	return &object.Builtin{
		Name: "unsafe",
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			if err := checkArity("unsafe", args, 1); err != nil {
				return nil, err
			}
			return ctx.Eval(args[0], env.NewUnsaferEnv())
		},
	}
}

// funcSpookyAdd is integer addition behind the unsafe gate.
func funcSpookyAdd() *object.Builtin {
	return &object.Builtin{
		Name:   "spookyAdd",
		Unsafe: true,
		Fn: func(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) (object.Value, error) {
			a, b, err := evalIntPair(ctx, "spookyAdd", args, env)
			if err != nil {
				return nil, err
			}
			return &object.Integer{Value: a + b}, nil
		},
	}
}

// bindPairs evaluates each (name form) pair in env, left to right, and
// returns one child frame holding every name.
func bindPairs(ctx object.EvaluatorContext, pairs object.Value, env *object.Environment) (*object.Environment, error) {
	list, ok := object.GetList(pairs)
	if !ok {
		return nil, object.NewError(object.MalformedForm, "bindings must be a list of (name value) pairs, got %s", pairs.Inspect())
	}
	bindings := make(map[string]object.Value, len(list))
	for _, el := range list {
		pair, ok := object.GetList(el)
		if !ok || len(pair) != 2 {
			return nil, object.NewError(object.MalformedForm, "binding must be a (name value) pair, got %s", el.Inspect())
		}
		name, ok := object.GetSymbol(pair[0])
		if !ok {
			return nil, object.NewError(object.MalformedForm, "binding name must be a symbol, got %s", pair[0].Inspect())
		}
		val, err := ctx.Eval(pair[1], env)
		if err != nil {
			return nil, err
		}
		bindings[name] = val
	}
	return object.NewEnclosedEnvironment(env, bindings), nil
}

func isLiteralBindings(form object.Value) bool {
	list, ok := object.GetList(form)
	if !ok {
		return false
	}
	for _, el := range list {
		pair, ok := object.GetList(el)
		if !ok || len(pair) != 2 || !object.IsSymbol(pair[0]) {
			return false
		}
	}
	return true
}
