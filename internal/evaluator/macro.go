package evaluator

import (
	"log/slog"
	"lxsp/internal/object"
)

// MacroEval rewrites form by expanding every macro call it can resolve
// without side effects. The result is an unevaluated tree.
func (e *Evaluator) MacroEval(form object.Value, env *object.Environment) (object.Value, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	list, ok := form.(*object.List)
	if !ok || len(list.Elements) == 0 || isQuote(list, env) {
		return form, nil
	}

	head := list.Elements[0]
	expandedHead, err := e.MacroEval(head, env)
	if err != nil {
		return nil, err
	}

	mac, err := e.resolveMacro(head, expandedHead, env)
	if err != nil {
		return nil, err
	}
	if mac != nil {
		return e.MacroExpand(mac, list.Elements[1:], env)
	}

	elements := make([]object.Value, len(list.Elements))
	elements[0] = expandedHead
	for i, el := range list.Elements[1:] {
		if keepRaw(expandedHead, i, env) {
			elements[i+1] = el
			continue
		}
		if i == 0 && isBuiltin(expandedHead, "let", env) && isLiteralBindings(el) {
			if elements[i+1], err = e.expandBindings(el.(*object.List), env); err != nil {
				return nil, err
			}
			continue
		}
		if elements[i+1], err = e.MacroEval(el, env); err != nil {
			return nil, err
		}
	}
	return &object.List{Elements: elements}, nil
}

// MacroExpand binds the macro parameters to the raw argument forms,
// substitutes them into the body and expands the result again.
func (e *Evaluator) MacroExpand(mac *object.Macro, argForms []object.Value, env *object.Environment) (object.Value, error) {
	names, err := object.SymbolNames(mac.Params)
	if err != nil {
		return nil, err
	}
	if len(names) != len(argForms) {
		return nil, object.NewError(object.ArityMismatch, "macro expected %d arguments, got %d", len(names), len(argForms))
	}
	bindings := make(map[string]object.Value, len(names))
	for i, name := range names {
		bindings[name] = argForms[i]
	}

	expanded := substitute(mac.Body, bindings)
	slog.Debug("macro expanded",
		slog.String("body", mac.Body.Inspect()),
		slog.String("expansion", expanded.Inspect()))

	return e.MacroEval(expanded, env)
}

// resolveMacro finds the Macro a call head denotes, if any. A symbol is
// looked up, a Macro value is used as is and a (macro ...) construction is
// reduced to its Macro.
func (e *Evaluator) resolveMacro(head, expandedHead object.Value, env *object.Environment) (*object.Macro, error) {
	switch h := expandedHead.(type) {
	case *object.Macro:
		return h, nil
	case *object.Symbol:
		if val, ok := env.Get(h.Name); ok {
			if mac, ok := val.(*object.Macro); ok {
				return mac, nil
			}
		}
		return nil, nil
	case *object.List:
		if !constructsMacro(h, env) {
			return nil, nil
		}
		if isMacroCall(head, env) {
			return nil, object.NewError(object.Unimplemented, "macro generating macros are not supported")
		}
		val, err := e.Reduce(h, env)
		if err != nil {
			return nil, err
		}
		mac, ok := val.(*object.Macro)
		if !ok {
			return nil, nil
		}
		return mac, nil
	}
	return nil, nil
}

func (e *Evaluator) expandBindings(bindings *object.List, env *object.Environment) (object.Value, error) {
	pairs := make([]object.Value, len(bindings.Elements))
	for i, el := range bindings.Elements {
		pair := el.(*object.List)
		value, err := e.MacroEval(pair.Elements[1], env)
		if err != nil {
			return nil, err
		}
		pairs[i] = object.NewList(pair.Elements[0], value)
	}
	return object.NewList(pairs...), nil
}

// substitute replaces every parameter symbol in form, quoted data
// included.
func substitute(form object.Value, bindings map[string]object.Value) object.Value {
	switch node := form.(type) {
	case *object.Symbol:
		if replacement, ok := bindings[node.Name]; ok {
			return replacement
		}
		return node
	case *object.List:
		if len(node.Elements) == 0 {
			return node
		}
		elements := make([]object.Value, len(node.Elements))
		for i, el := range node.Elements {
			elements[i] = substitute(el, bindings)
		}
		return &object.List{Elements: elements}
	default:
		return form
	}
}

func isBuiltin(head object.Value, name string, env *object.Environment) bool {
	switch h := head.(type) {
	case *object.Builtin:
		return h.Name == name
	case *object.Symbol:
		val, ok := env.Get(h.Name)
		if !ok {
			return false
		}
		b, ok := val.(*object.Builtin)
		return ok && b.Name == name
	}
	return false
}

func isQuote(list *object.List, env *object.Environment) bool {
	return isBuiltin(list.Elements[0], object.QUOTE_SYMBOL, env)
}

func constructsMacro(list *object.List, env *object.Environment) bool {
	return len(list.Elements) > 0 && isBuiltin(list.Elements[0], "macro", env)
}

// isMacroCall reports whether form is a call whose head denotes a Macro.
func isMacroCall(form object.Value, env *object.Environment) bool {
	list, ok := form.(*object.List)
	if !ok || len(list.Elements) == 0 {
		return false
	}
	switch h := list.Elements[0].(type) {
	case *object.Macro:
		return true
	case *object.Symbol:
		val, ok := env.Get(h.Name)
		if !ok {
			return false
		}
		_, ok = val.(*object.Macro)
		return ok
	}
	return false
}

// keepRaw reports whether argument i of a call to head stays unexpanded:
// the parameter list of fn and everything handed to macro.
func keepRaw(head object.Value, i int, env *object.Environment) bool {
	if isBuiltin(head, "macro", env) {
		return true
	}
	return i == 0 && isBuiltin(head, "fn", env)
}
