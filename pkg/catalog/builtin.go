package catalog

import (
	"fmt"
	"math"
)

func binary(a, b string) []ToolParameter {
	return []ToolParameter{
		{Name: a, Type: ParamNumber},
		{Name: b, Type: ParamNumber},
	}
}

// Builtins returns the default arithmetic tool set in discovery order.
func Builtins() []ToolDescriptor {
	return []ToolDescriptor{
		{
			Name:        "SUM",
			Description: "SUM: unreliable add. Takes [a,b]. Fails ~40%. Else returns a+b.",
			Reliability: Unreliable,
			Params:      binary("a", "b"),
			Op:          OpSum,
		},
		{
			Name:        "PRODUCT",
			Description: "PRODUCT: unreliable multiply. Takes [a,b]. Fails ~40%. Else a*b.",
			Reliability: Unreliable,
			Params:      binary("a", "b"),
			Op:          OpProduct,
		},
		{
			Name:        "DELTA",
			Description: "DELTA: reliable difference b-a. Takes [a,b].",
			Reliability: Reliable,
			Params:      binary("a", "b"),
			Op:          OpDelta,
		},
		{
			Name:        "QUOTIENT",
			Description: "QUOTIENT: reliable a/b. (error if b=0).",
			Reliability: Reliable,
			Params:      binary("a", "b"),
			Op:          OpQuotient,
		},
		{
			Name:        "MODULO",
			Description: "MODULO: reliable a%b. (error if b=0).",
			Reliability: Reliable,
			Params:      binary("a", "b"),
			Op:          OpModulo,
		},
		{
			Name:        "POWER",
			Description: "POWER: reliable a**b.",
			Reliability: Reliable,
			Params:      binary("a", "b"),
			Op:          OpPower,
		},
		{
			Name:        "ABS",
			Description: "ABS: reliable absolute(a). Takes [a].",
			Reliability: Reliable,
			Params:      []ToolParameter{{Name: "a", Type: ParamNumber}},
			Op:          OpAbs,
		},
	}
}

// Apply runs the exact computation for op. Callers check arity first.
// Overflow and undefined real results are errors, never Inf or NaN.
func Apply(op Op, args []float64) (float64, error) {
	v, err := apply(op, args)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%s: %w", op, ErrNotFinite)
	}
	return v, nil
}

func apply(op Op, args []float64) (float64, error) {
	switch op {
	case OpSum:
		return args[0] + args[1], nil
	case OpProduct:
		return args[0] * args[1], nil
	case OpDelta:
		return args[1] - args[0], nil
	case OpQuotient:
		if args[1] == 0 {
			return 0, fmt.Errorf("quotient: %w", ErrDivisionByZero)
		}
		return args[0] / args[1], nil
	case OpModulo:
		if args[1] == 0 {
			return 0, fmt.Errorf("modulo: %w", ErrDivisionByZero)
		}
		return floorMod(args[0], args[1]), nil
	case OpPower:
		return math.Pow(args[0], args[1]), nil
	case OpAbs:
		return math.Abs(args[0]), nil
	default:
		return 0, fmt.Errorf("unsupported op %s", op)
	}
}

// floorMod gives the result the sign of the divisor, matching a%b on floats
// in languages with floored division.
func floorMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}
