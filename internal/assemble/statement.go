// Package assemble turns a classified expression container into either an
// in-place statement list (one write per structural element) or a single
// out-of-place construction. Lowering of each right-hand side is delegated
// to the caller through a hook, so the same assembly walk serves both the
// binder-based native lowering and the indexed numbering pass.
package assemble

import (
	"github.com/vk/kerngen/internal/expr"
)

// Statement is one element write of an in-place kernel: the index path into
// the output container and the lowered right-hand side. The path form is
// dictated by the classified shape and always matches it exactly.
type Statement struct {
	Path []int
	RHS  expr.Node
}

// LowerFunc lowers one right-hand-side expression. It must be pure: the
// same input node always yields the same lowered form.
type LowerFunc func(expr.Node) (expr.Node, error)

// IdentityLower passes expressions through unchanged, for callers that
// lower ahead of assembly.
func IdentityLower(n expr.Node) (expr.Node, error) { return n, nil }
