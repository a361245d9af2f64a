package expr

import (
	"errors"
	"fmt"
	"math"

	"docintake/internal/domain"
)

var (
	ErrSyntax          = errors.New("expr: syntax error")
	ErrUnknownFunction = errors.New("expr: unknown function")
	ErrArity           = errors.New("expr: wrong number of arguments")
	ErrUndefined       = errors.New("expr: undefined variable")
	ErrType            = errors.New("expr: type error")
	ErrDivisionByZero  = errors.New("expr: division by zero")
)

// Eval evaluates the expression with vars as the only visible names.
// Numeric variables of any Go integer or float type are read as float64.
func (e *Expression) Eval(vars map[string]interface{}) (interface{}, error) {
	return e.root.eval(vars)
}

// EvalBool evaluates the expression and reports its truthiness.
func (e *Expression) EvalBool(vars map[string]interface{}) (bool, error) {
	v, err := e.Eval(vars)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

type node interface {
	eval(vars map[string]interface{}) (interface{}, error)
}

type literalNode struct{ value interface{} }

func (n *literalNode) eval(map[string]interface{}) (interface{}, error) { return n.value, nil }

type varNode struct{ name string }

func (n *varNode) eval(vars map[string]interface{}) (interface{}, error) {
	v, ok := vars[n.name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefined, n.name)
	}
	if f, isNum := domain.AsNumber(v); isNum {
		return f, nil
	}
	return v, nil
}

type notNode struct{ operand node }

func (n *notNode) eval(vars map[string]interface{}) (interface{}, error) {
	v, err := n.operand.eval(vars)
	if err != nil {
		return nil, err
	}
	return !truthy(v), nil
}

// andNode and orNode short-circuit and yield an operand, not a coerced bool.
type andNode struct{ left, right node }

func (n *andNode) eval(vars map[string]interface{}) (interface{}, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return nil, err
	}
	if !truthy(l) {
		return l, nil
	}
	return n.right.eval(vars)
}

type orNode struct{ left, right node }

func (n *orNode) eval(vars map[string]interface{}) (interface{}, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return nil, err
	}
	if truthy(l) {
		return l, nil
	}
	return n.right.eval(vars)
}

type unaryNode struct {
	op      string
	operand node
}

func (n *unaryNode) eval(vars map[string]interface{}) (interface{}, error) {
	v, err := n.operand.eval(vars)
	if err != nil {
		return nil, err
	}
	f, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("%w: unary %s on %s", ErrType, n.op, typeName(v))
	}
	if n.op == "-" {
		return -f, nil
	}
	return f, nil
}

type binaryNode struct {
	op          string
	left, right node
}

func (n *binaryNode) eval(vars map[string]interface{}) (interface{}, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return nil, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return nil, err
	}
	if n.op == "+" {
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return ls + rs, nil
			}
		}
	}
	lf, lok := l.(float64)
	rf, rok := r.(float64)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: %s %s %s", ErrType, typeName(l), n.op, typeName(r))
	}
	switch n.op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, ErrDivisionByZero
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, ErrDivisionByZero
		}
		m := math.Mod(lf, rf)
		if m != 0 && (m < 0) != (rf < 0) {
			m += rf
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: unknown operator %s", ErrSyntax, n.op)
}

type compareNode struct {
	ops      []string
	operands []node
}

func (n *compareNode) eval(vars map[string]interface{}) (interface{}, error) {
	left, err := n.operands[0].eval(vars)
	if err != nil {
		return nil, err
	}
	for i, op := range n.ops {
		right, err := n.operands[i+1].eval(vars)
		if err != nil {
			return nil, err
		}
		ok, err := compare(op, left, right)
		if err != nil {
			return nil, err
		}
		if !ok {
			return false, nil
		}
		left = right
	}
	return true, nil
}

func compare(op string, l, r interface{}) (bool, error) {
	switch op {
	case "==":
		return equal(l, r), nil
	case "!=":
		return !equal(l, r), nil
	}
	var c int
	switch lv := l.(type) {
	case float64:
		rv, ok := r.(float64)
		if !ok {
			return false, fmt.Errorf("%w: %s %s %s", ErrType, typeName(l), op, typeName(r))
		}
		c = cmpOrdered(lv, rv)
	case string:
		rv, ok := r.(string)
		if !ok {
			return false, fmt.Errorf("%w: %s %s %s", ErrType, typeName(l), op, typeName(r))
		}
		c = cmpOrdered(lv, rv)
	default:
		return false, fmt.Errorf("%w: %s %s %s", ErrType, typeName(l), op, typeName(r))
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("%w: unknown comparison %s", ErrSyntax, op)
}

func cmpOrdered[T float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func equal(l, r interface{}) bool {
	switch lv := l.(type) {
	case nil:
		return r == nil
	case float64:
		rv, ok := r.(float64)
		return ok && lv == rv
	case string:
		rv, ok := r.(string)
		return ok && lv == rv
	case bool:
		rv, ok := r.(bool)
		return ok && lv == rv
	}
	return false
}

type callNode struct {
	name string
	fn   builtin
	args []node
}

func (n *callNode) eval(vars map[string]interface{}) (interface{}, error) {
	args := make([]interface{}, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(vars)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return n.fn.call(args)
}

type builtin struct {
	minArgs int
	maxArgs int // 0 means variadic
	call    func(args []interface{}) (interface{}, error)
}

func (b builtin) arity() string {
	switch {
	case b.maxArgs == 0:
		return fmt.Sprintf("at least %d argument(s)", b.minArgs)
	case b.minArgs == b.maxArgs:
		return fmt.Sprintf("exactly %d argument(s)", b.minArgs)
	}
	return fmt.Sprintf("%d to %d arguments", b.minArgs, b.maxArgs)
}

// builtins is the complete allow-list of callable functions.
var builtins = map[string]builtin{
	"abs": {minArgs: 1, maxArgs: 1, call: func(args []interface{}) (interface{}, error) {
		f, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("%w: abs of %s", ErrType, typeName(args[0]))
		}
		return math.Abs(f), nil
	}},
	"min": {minArgs: 1, call: func(args []interface{}) (interface{}, error) {
		return extreme("min", args, func(c int) bool { return c < 0 })
	}},
	"max": {minArgs: 1, call: func(args []interface{}) (interface{}, error) {
		return extreme("max", args, func(c int) bool { return c > 0 })
	}},
}

func extreme(name string, args []interface{}, better func(int) bool) (interface{}, error) {
	best := args[0]
	for _, a := range args[1:] {
		var c int
		switch bv := best.(type) {
		case float64:
			av, ok := a.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: %s of %s and %s", ErrType, name, typeName(best), typeName(a))
			}
			c = cmpOrdered(av, bv)
		case string:
			av, ok := a.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s of %s and %s", ErrType, name, typeName(best), typeName(a))
			}
			c = cmpOrdered(av, bv)
		default:
			return nil, fmt.Errorf("%w: %s of %s", ErrType, name, typeName(best))
		}
		if better(c) {
			best = a
		}
	}
	switch best.(type) {
	case float64, string:
		return best, nil
	}
	return nil, fmt.Errorf("%w: %s of %s", ErrType, name, typeName(best))
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	}
	return true
}

func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "list"
	case map[string]interface{}:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
