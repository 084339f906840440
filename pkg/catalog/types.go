package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTool is returned when a tool name is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// ErrDivisionByZero is returned by QUOTIENT and MODULO when the divisor is zero.
var ErrDivisionByZero = errors.New("division by zero")

// ErrNotFinite is returned when a computation overflows or has no real result.
var ErrNotFinite = errors.New("result is not a finite number")

// Reliability classifies whether a single invocation can be trusted.
type Reliability string

const (
	Reliable   Reliability = "RELIABLE"
	Unreliable Reliability = "UNRELIABLE"
)

// ParamType is a JSON schema primitive accepted as a tool argument.
type ParamType string

const (
	ParamNumber ParamType = "number"
)

// Op is the closed set of computations a tool can dispatch to.
type Op int

const (
	OpSum Op = iota + 1
	OpProduct
	OpDelta
	OpQuotient
	OpModulo
	OpPower
	OpAbs
)

func (o Op) String() string {
	switch o {
	case OpSum:
		return "sum"
	case OpProduct:
		return "product"
	case OpDelta:
		return "delta"
	case OpQuotient:
		return "quotient"
	case OpModulo:
		return "modulo"
	case OpPower:
		return "power"
	case OpAbs:
		return "abs"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// ToolParameter describes one positional argument.
type ToolParameter struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ParamType `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// ToolDescriptor is the immutable metadata for a registered tool.
type ToolDescriptor struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Reliability Reliability     `json:"reliability" yaml:"reliability"`
	Params      []ToolParameter `json:"parameters" yaml:"parameters"`
	Op          Op              `json:"-" yaml:"-"`
}

// Arity returns the number of positional arguments the tool expects.
func (d ToolDescriptor) Arity() int {
	return len(d.Params)
}

// IsUnreliable reports whether results need corroboration.
func (d ToolDescriptor) IsUnreliable() bool {
	return d.Reliability == Unreliable
}


// Text renders the descriptor as a discovery reply for the collaborator.
func (d ToolDescriptor) Text() string {
	var b strings.Builder
	b.WriteString(d.Description)
	b.WriteString(" Arguments: [")
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s:%s", p.Name, p.Type)
	}
	b.WriteString("]. Reliability: ")
	b.WriteString(string(d.Reliability))
	b.WriteString(".")
	return b.String()
}

func (d ToolDescriptor) clone() ToolDescriptor {
	out := d
	out.Params = append([]ToolParameter(nil), d.Params...)
	return out
}

// CanonicalName normalizes a tool name for lookup.
func CanonicalName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
