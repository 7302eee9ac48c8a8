package assemble

import (
	"fmt"

	"github.com/vk/kerngen/internal/expr"
	"github.com/vk/kerngen/internal/shape"
)

// InPlaceOptions configure statement assembly.
type InPlaceOptions struct {
	Lower LowerFunc
	// SkipZero elides a statement whose lowered right-hand side is
	// syntactically the literal zero. The output slot then keeps whatever
	// value it held before the kernel ran; callers relying on this must
	// pre-seed the container.
	SkipZero bool
	// Remap, when set, rewrites each statement's index path. It implements
	// the optional output-index remapping; returning the path unchanged is
	// valid.
	Remap func(path []int) []int
}

// InPlace walks the classified container and emits one statement per
// structural element (per stored nonzero for sparse kinds), in element
// order. On any lowering failure no statements are returned.
func InPlace(v any, d shape.Descriptor, opts InPlaceOptions) ([]Statement, error) {
	lower := opts.Lower
	if lower == nil {
		lower = IdentityLower
	}

	elems, err := shape.Elements(v, d)
	if err != nil {
		return nil, err
	}

	out := make([]Statement, 0, len(elems))
	for _, el := range elems {
		rhs, err := lower(el.Expr)
		if err != nil {
			return nil, fmt.Errorf("assemble: lowering element %v: %w", el.Path, err)
		}
		// Pure literal check; symbolic zeros (x - x, 0 * y) are deliberately
		// not detected. Simplification is the expression library's job.
		if opts.SkipZero && expr.IsZeroLiteral(rhs) {
			continue
		}
		path := el.Path
		if opts.Remap != nil {
			path = opts.Remap(path)
		}
		out = append(out, Statement{Path: path, RHS: rhs})
	}
	return out, nil
}
