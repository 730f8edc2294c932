package recovery

import "context"

// Region is a bounded unit of functionality that can be rebuilt as a whole.
//
// Contract:
// - Construct builds the region from scratch; Teardown releases it. Both may
//   be called repeatedly over the supervisor's lifetime.
// - The supervisor never calls them concurrently.
// - Panics are recovered and treated as failures.
type Region interface {
	Name() string
	Construct(ctx context.Context) error
	Teardown(ctx context.Context) error
}

// FuncRegion adapts a pair of functions to the Region interface.
// Nil functions are no-ops.
type FuncRegion struct {
	RegionName  string
	ConstructFn func(ctx context.Context) error
	TeardownFn  func(ctx context.Context) error
}

// NewRegion creates a FuncRegion.
func NewRegion(name string, construct, teardown func(ctx context.Context) error) *FuncRegion {
	return &FuncRegion{RegionName: name, ConstructFn: construct, TeardownFn: teardown}
}

// Name implements Region.
func (r *FuncRegion) Name() string { return r.RegionName }

// Construct implements Region.
func (r *FuncRegion) Construct(ctx context.Context) error {
	if r.ConstructFn == nil {
		return nil
	}
	return r.ConstructFn(ctx)
}

// Teardown implements Region.
func (r *FuncRegion) Teardown(ctx context.Context) error {
	if r.TeardownFn == nil {
		return nil
	}
	return r.TeardownFn(ctx)
}

var _ Region = (*FuncRegion)(nil)
