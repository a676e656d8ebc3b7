// Package resolver maps a product identity to its competitor URLs.
package resolver

import (
	"context"
	"fmt"
)

// Resolver maps a product identity to {competitor name → URL}.
//
// An empty map is a valid result (no known competitors), not an error. A
// returned error means the lookup itself failed and is fatal for the whole
// aggregation call.
type Resolver interface {
	Resolve(ctx context.Context, productID, brand, model string) (map[string]string, error)
}

// Error reports a failed competitor-URL lookup. It is the only error kind
// the aggregation engine propagates to its caller.
type Error struct {
	ProductID string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("resolver: product %s: %v", e.ProductID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a resolver failure for productID.
func NewError(productID string, err error) *Error {
	return &Error{ProductID: productID, Err: err}
}

// Func adapts a function to the Resolver interface.
type Func func(ctx context.Context, productID, brand, model string) (map[string]string, error)

// Resolve calls f.
func (f Func) Resolve(ctx context.Context, productID, brand, model string) (map[string]string, error) {
	return f(ctx, productID, brand, model)
}
