package foreign

import (
	"lxsp/internal/object"
)

func checkArgs(name string, args []object.Value, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		switch {
		case min == max:
			return object.NewError(object.ArityMismatch, "%s expects %d arguments, got %d", name, min, len(args))
		case max < 0:
			return object.NewError(object.ArityMismatch, "%s expects at least %d arguments, got %d", name, min, len(args))
		default:
			return object.NewError(object.ArityMismatch, "%s expects %d to %d arguments, got %d", name, min, max, len(args))
		}
	}
	return nil
}

func evalArgs(ctx object.EvaluatorContext, args []object.Value, env *object.Environment) ([]object.Value, error) {
	values := make([]object.Value, len(args))
	for i, arg := range args {
		val, err := ctx.Eval(arg, env)
		if err != nil {
			return nil, err
		}
		values[i] = val
	}
	return values, nil
}

func unpackSymbol(name string, v object.Value) (string, error) {
	s, ok := object.GetSymbol(v)
	if !ok {
		return "", object.NewError(object.TypeMismatch, "argument to `%s` must be SYMBOL, got %s", name, v.Inspect())
	}
	return s, nil
}

func unpackInt(name string, v object.Value) (int64, error) {
	i, ok := object.GetInt(v)
	if !ok {
		return 0, object.NewError(object.TypeMismatch, "argument to `%s` must be INTEGER, got %s", name, v.Inspect())
	}
	return i, nil
}
