package distributed

import (
	"fmt"

	"github.com/vk/kerngen/internal/expr"
)

// wireNode is the JSON form of a lowered expression shipped to a remote
// worker. Only lowered kinds appear on the wire: by the time a chunk is
// shipped, every symbol is a local or a flat slot.
type wireNode struct {
	Kind  string     `json:"kind"`
	Value float64    `json:"value,omitempty"`
	Name  string     `json:"name,omitempty"`
	Array string     `json:"array,omitempty"`
	Index int        `json:"index,omitempty"`
	Op    string     `json:"op,omitempty"`
	Args  []wireNode `json:"args,omitempty"`
}

func encodeNode(n expr.Node) (wireNode, error) {
	switch e := n.(type) {
	case expr.Constant:
		return wireNode{Kind: "const", Value: e.Value}, nil
	case expr.Local:
		return wireNode{Kind: "local", Name: e.Name}, nil
	case expr.Slot:
		return wireNode{Kind: "slot", Array: e.Array, Index: e.Index}, nil
	case expr.Call:
		args := make([]wireNode, len(e.Args))
		for i, a := range e.Args {
			w, err := encodeNode(a)
			if err != nil {
				return wireNode{}, err
			}
			args[i] = w
		}
		return wireNode{Kind: "call", Op: e.Op, Args: args}, nil
	default:
		return wireNode{}, fmt.Errorf("distributed: unlowered node %T cannot be shipped", n)
	}
}

func decodeNode(w wireNode) (expr.Node, error) {
	switch w.Kind {
	case "const":
		return expr.Constant{Value: w.Value}, nil
	case "local":
		return expr.Local{Name: w.Name}, nil
	case "slot":
		return expr.Slot{Array: w.Array, Index: w.Index}, nil
	case "call":
		args := make([]expr.Node, len(w.Args))
		for i, a := range w.Args {
			n, err := decodeNode(a)
			if err != nil {
				return nil, err
			}
			args[i] = n
		}
		return expr.Call{Op: w.Op, Args: args}, nil
	}
	return nil, fmt.Errorf("distributed: unknown wire kind %q", w.Kind)
}

// chunkPayload is one remote-evaluation request.
type chunkPayload struct {
	Chunk  int                  `json:"chunk"`
	Exprs  []wireNode           `json:"exprs"`
	Locals map[string]float64   `json:"locals"`
	Arrays map[string][]float64 `json:"arrays"`
}

// chunkResult is the worker's response.
type chunkResult struct {
	Chunk  int       `json:"chunk"`
	Values []float64 `json:"values"`
	Error  string    `json:"error,omitempty"`
}

func encodeChunk(chunk int, exprs []expr.Node, env expr.MapEnv) (chunkPayload, error) {
	wires := make([]wireNode, len(exprs))
	for i, e := range exprs {
		w, err := encodeNode(e)
		if err != nil {
			return chunkPayload{}, err
		}
		wires[i] = w
	}
	return chunkPayload{Exprs: wires, Chunk: chunk, Locals: env.Locals, Arrays: env.Arrays}, nil
}

// evalPayload is the worker side of the protocol: decode every expression
// and evaluate it against the shipped environment. LocalPool runs this
// in-process; a remote fleet runs the same logic behind the socket events.
func evalPayload(p chunkPayload) ([]float64, error) {
	env := expr.MapEnv{Locals: p.Locals, Arrays: p.Arrays}
	values := make([]float64, len(p.Exprs))
	for i, w := range p.Exprs {
		n, err := decodeNode(w)
		if err != nil {
			return nil, err
		}
		v, err := expr.Eval(n, env)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}
