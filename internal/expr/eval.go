package expr

import (
	"fmt"
	"math"
)

// Env supplies values for the lowered symbol kinds during evaluation.
type Env interface {
	// Local returns the value bound to a named local.
	Local(name string) (float64, bool)
	// Slot returns the value at a flat array position.
	Slot(array string, index int) (float64, bool)
}

// MapEnv is an Env over plain maps, used by compiled kernels and tests.
type MapEnv struct {
	Locals map[string]float64
	Arrays map[string][]float64
}

func (m MapEnv) Local(name string) (float64, bool) {
	v, ok := m.Locals[name]
	return v, ok
}

func (m MapEnv) Slot(array string, index int) (float64, bool) {
	a, ok := m.Arrays[array]
	if !ok || index < 0 || index >= len(a) {
		return 0, false
	}
	return a[index], true
}

// Eval computes the numeric value of a lowered tree. Unlowered symbol kinds
// (Variable, Param, Derivative) are an internal error: lowering must replace
// them with Local or Slot references before evaluation.
func Eval(n Node, env Env) (float64, error) {
	switch e := n.(type) {
	case Constant:
		return e.Value, nil
	case Local:
		v, ok := env.Local(e.Name)
		if !ok {
			return 0, fmt.Errorf("expr: unbound local %q", e.Name)
		}
		return v, nil
	case Slot:
		v, ok := env.Slot(e.Array, e.Index)
		if !ok {
			return 0, fmt.Errorf("expr: slot %s[%d] out of range", e.Array, e.Index)
		}
		return v, nil
	case Variable:
		return 0, fmt.Errorf("expr: unlowered variable %q reached evaluation", e.Name)
	case Param:
		return 0, fmt.Errorf("expr: unlowered parameter %q reached evaluation", e.Name)
	case Derivative:
		return 0, fmt.Errorf("expr: derivative d%s reached evaluation", e.Of)
	case Call:
		return evalCall(e, env)
	default:
		return 0, fmt.Errorf("expr: unknown node kind %T", n)
	}
}

func evalCall(c Call, env Env) (float64, error) {
	args := make([]float64, len(c.Args))
	for i, a := range c.Args {
		v, err := Eval(a, env)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	return Apply(c.Op, args)
}

// Apply evaluates one operator application. The operator table covers the
// arithmetic and elementary functions the textual backends can also render.
func Apply(op string, args []float64) (float64, error) {
	switch {
	case op == "+" && len(args) == 2:
		return args[0] + args[1], nil
	case op == "-" && len(args) == 2:
		return args[0] - args[1], nil
	case op == "-" && len(args) == 1:
		return -args[0], nil
	case op == "*" && len(args) == 2:
		return args[0] * args[1], nil
	case op == "/" && len(args) == 2:
		return args[0] / args[1], nil
	case op == "^" && len(args) == 2:
		return math.Pow(args[0], args[1]), nil
	}

	if len(args) == 1 {
		if f, ok := unaryFns[op]; ok {
			return f(args[0]), nil
		}
	}
	if op == "pow" && len(args) == 2 {
		return math.Pow(args[0], args[1]), nil
	}
	if op == "min" && len(args) == 2 {
		return math.Min(args[0], args[1]), nil
	}
	if op == "max" && len(args) == 2 {
		return math.Max(args[0], args[1]), nil
	}
	return 0, fmt.Errorf("expr: unknown operator %q with arity %d", op, len(args))
}

var unaryFns = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"exp":  math.Exp,
	"log":  math.Log,
	"sqrt": math.Sqrt,
	"abs":  math.Abs,
	"atan": math.Atan,
	"asin": math.Asin,
	"acos": math.Acos,
	"sinh": math.Sinh,
	"cosh": math.Cosh,
	"tanh": math.Tanh,
}
