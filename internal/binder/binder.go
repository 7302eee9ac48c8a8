// Package binder maps call arguments to collision-free local bindings.
//
// Every scalar element of every call argument gets one fresh local name, so
// generated bodies reference plain locals instead of re-indexing containers.
// Freshness is scoped to a single Binder, which is created per build
// invocation; names use a reserved prefix no user-visible symbol may carry,
// so they cannot collide with variable or parameter names.
package binder

import (
	"fmt"
	"strings"

	"github.com/vk/kerngen/internal/expr"
)

// ReservedPrefix starts every generated binding name. Loader-side symbol
// validation rejects user symbols with this prefix.
const ReservedPrefix = "kg_"

// ErrEmptyArgument reports a container argument with no elements where at
// least one is required.
var ErrEmptyArgument = fmt.Errorf("binder: empty container argument")

// Binding associates one fresh local name with the access path of the scalar
// it stands in for. Source is the rendered path; Array and Index carry the
// same path structurally for native evaluation, with Index -1 for a scalar
// argument.
type Binding struct {
	Name   string
	Source string
	Array  string
	Index  int
}

// Argument is one call-parameter position: either a single symbol or an
// ordered container of symbols.
type Argument struct {
	// Name is the call-parameter name the access paths index into.
	Name string
	// Symbols lists the contained symbol names in order. Nil means the
	// argument is itself a single scalar symbol.
	Symbols []string
}

// Container builds a container argument.
func Container(name string, symbols ...string) Argument {
	if symbols == nil {
		symbols = []string{}
	}
	return Argument{Name: name, Symbols: symbols}
}

// Scalar builds a scalar argument.
func Scalar(name string) Argument {
	return Argument{Name: name}
}

// Binder issues fresh bindings for one build invocation. The zero value is
// not usable; call New.
type Binder struct {
	n        int
	bindings []Binding
	bySymbol map[string]string
}

// New returns an empty Binder whose counter starts at zero. Each build call
// creates its own Binder; the counter is never shared across invocations.
func New() *Binder {
	return &Binder{bySymbol: make(map[string]string)}
}

// fresh returns the next never-before-issued local name.
func (b *Binder) fresh() string {
	b.n++
	return fmt.Sprintf("%s%d", ReservedPrefix, b.n)
}

// Bind emits bindings for the given arguments in order. A container
// argument of length n yields n bindings kg_i ↦ name[i]; a scalar argument
// yields one binding kg_i ↦ name. An empty container is a precondition
// violation and no partial bindings are recorded.
func (b *Binder) Bind(args ...Argument) ([]Binding, error) {
	var staged []Binding
	for pos, arg := range args {
		if arg.Name == "" {
			return nil, fmt.Errorf("binder: argument %d has no name", pos)
		}
		if arg.Symbols == nil {
			staged = append(staged, Binding{Name: b.fresh(), Source: arg.Name, Array: arg.Name, Index: -1})
			continue
		}
		if len(arg.Symbols) == 0 {
			return nil, fmt.Errorf("%w: position %d (%s)", ErrEmptyArgument, pos, arg.Name)
		}
		for i := range arg.Symbols {
			staged = append(staged, Binding{
				Name:   b.fresh(),
				Source: fmt.Sprintf("%s[%d]", arg.Name, i),
				Array:  arg.Name,
				Index:  i,
			})
		}
	}

	// Record symbol lookups only once the whole argument list is validated.
	i := 0
	for _, arg := range args {
		if arg.Symbols == nil {
			b.bySymbol[arg.Name] = staged[i].Name
			i++
			continue
		}
		for _, sym := range arg.Symbols {
			b.bySymbol[sym] = staged[i].Name
			i++
		}
	}
	b.bindings = append(b.bindings, staged...)
	return staged, nil
}

// Lookup resolves a symbol name to its binding name.
func (b *Binder) Lookup(symbol string) (string, bool) {
	name, ok := b.bySymbol[symbol]
	return name, ok
}

// Bindings returns all bindings issued so far, in issue order.
func (b *Binder) Bindings() []Binding {
	return b.bindings
}

// Prologue renders the destructuring assignment that introduces every
// binding from the actual call parameters, one line per binding.
func (b *Binder) Prologue() []string {
	lines := make([]string, len(b.bindings))
	for i, bd := range b.bindings {
		lines[i] = bd.Name + " := " + bd.Source
	}
	return lines
}

// IsReserved reports whether a user-supplied symbol intrudes on the binding
// namespace.
func IsReserved(symbol string) bool {
	return strings.HasPrefix(symbol, ReservedPrefix)
}

// Lower rewrites every variable and parameter reference in n to the named
// local bound for it. Native lowering never receives a raw derivative
// reference as a call argument; encountering one is an error here.
func (b *Binder) Lower(n expr.Node) (expr.Node, error) {
	switch e := n.(type) {
	case expr.Constant, expr.Local, expr.Slot:
		return n, nil
	case expr.Variable:
		return b.lowerSymbol(e.Name)
	case expr.Param:
		return b.lowerSymbol(e.Name)
	case expr.Derivative:
		return nil, fmt.Errorf("binder: derivative d%s reached native lowering", e.Of)
	case expr.Call:
		args := make([]expr.Node, len(e.Args))
		for i, a := range e.Args {
			lowered, err := b.Lower(a)
			if err != nil {
				return nil, err
			}
			args[i] = lowered
		}
		return expr.Call{Op: e.Op, Args: args}, nil
	default:
		return nil, fmt.Errorf("binder: unknown node kind %T", n)
	}
}

func (b *Binder) lowerSymbol(name string) (expr.Node, error) {
	local, ok := b.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("binder: symbol %q has no binding", name)
	}
	return expr.Local{Name: local}, nil
}
