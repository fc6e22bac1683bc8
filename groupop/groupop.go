// Package groupop implements the group-operation rendezvous engine of
// spec.md §4.3: the arrival protocol that lets every work-item (or
// sub-group lane) in a group execute a collective in lockstep without true
// parallelism. Every arriver contributes to a shared record; the *last*
// arriver freezes it and returns without yielding, and every other arriver
// suspends once and, on its next resume, extracts its own per-item result
// from the shared payload.
package groupop

import (
	"github.com/celerity-hpc/simsycl/device"
	"github.com/celerity-hpc/simsycl/diag"
)

// Yielder is satisfied by *fiber.Fiber; kept as a narrow interface here so
// groupop does not need to depend on concurrency details beyond "suspend
// the calling fiber".
type Yielder interface {
	Yield()
}

// Record is the tagged-variant group-operation record of spec.md §3. The
// payload field is intentionally untyped (any): its concrete shape varies
// per OpID and is established once, by the first arriver's Init callback;
// every subsequent access is mediated by the op-specific wrapper function
// that constructed the Spec, whose Reached/Complete closures downcast it,
// doubling as the divergence check spec.md §9 calls for.
type Record struct {
	OpID     OpID
	Expected int
	Arrivals int
	Valid    bool
	Params   any
	Payload  any
	frozen   bool
}

// Frozen reports whether the record has received its final arrival and
// must no longer be mutated.
func (r *Record) Frozen() bool { return r.frozen }

// Ops is the per-group (or per-sub-group) dense operation vector of
// spec.md §3, indexed by arrival order. One Ops instance backs one
// concurrent-group or concurrent-sub-group instance for its lifetime; Reset
// wipes it when a fiber slot advances to a fresh group instance.
type Ops struct {
	// Size is the expected participant count for every operation recorded
	// in this vector: the work-group size for a group's Ops, or the actual
	// (possibly narrower, trailing) lane count for a sub-group's Ops
	// (spec.md §4.3's "sub-group trailing lane" rule).
	Size    int
	records []*Record
}

// NewOps creates an operation vector expecting size participants per op.
func NewOps(size int) *Ops {
	return &Ops{Size: size}
}

// Reset wipes the operation vector for reuse by a fresh group instance.
func (o *Ops) Reset() {
	o.records = o.records[:0]
}

// Records returns the recorded operations in arrival order, for tests and
// diagnostics.
func (o *Ops) Records() []*Record {
	return o.records
}

// Counter is a per-item, per-container arrival counter (spec.md §3's
// "operation-arrival counter" / its sub-group mirror). One Counter tracks
// how many group ops (or, separately, sub-group ops) this item has entered
// in the current group instance.
type Counter struct {
	n int
}

// Get returns the current counter value.
func (c *Counter) Get() int { return c.n }

// Reset zeroes the counter; called when a fiber slot advances to a new
// group instance (spec.md §4.5).
func (c *Counter) Reset() { c.n = 0 }

func (c *Counter) inc() { c.n++ }

// Spec bundles everything one group-operation call needs beyond the
// container and counter: which op is being performed, its op-specific
// parameters for divergence cross-checking, and the three payload
// callables of spec.md §4.3. Any of Init/Reached/Complete may be nil for
// barrier-like operations with no per-item result.
type Spec struct {
	OpID     OpID
	Params   any
	Init     func() any
	Reached  func(payload any) any
	Complete func(payload any) any

	// Diag identifies the calling item and its group for divergence
	// reporting; both fields are free-form labels supplied by the fabric
	// layer (e.g. "item 3" / "group 1 (work-group)").
	ItemLabel  string
	GroupLabel string
}

// Perform executes the arrival protocol of spec.md §4.3 for one item
// entering op at container ops, tracked by counter. It returns the
// collective's per-item result (the return value of spec.Complete), or nil
// if Complete is nil. A detected divergence is routed through collector
// according to mode; under device.CheckThrow the returned error wraps
// *diag.Error and must be surfaced to the caller as a user exception.
func Perform(f Yielder, ops *Ops, counter *Counter, spec Spec, collector *diag.Collector, mode device.CheckMode) (any, error) {
	k := counter.Get()

	if k >= len(ops.records) {
		rec := &Record{
			OpID:     spec.OpID,
			Expected: ops.Size,
			Params:   spec.Params,
			Valid:    true,
			Arrivals: 1,
		}
		if spec.Init != nil {
			rec.Payload = spec.Init()
		}
		ops.records = append(ops.records, rec)
		counter.inc()
		return freezeOrYield(f, rec, spec)
	}

	rec := ops.records[k]

	if rec.frozen {
		var err error
		if collector != nil {
			err = collector.Handle(mode, diag.Divergence{
				ItemLabel:  spec.ItemLabel,
				GroupLabel: spec.GroupLabel,
				ExpectedOp: rec.OpID.String(),
				ActualOp:   spec.OpID.String(),
				Expected:   rec.Expected,
				Actual:     ops.Size,
				Reason:     "item entered an already-frozen operation slot",
			})
		}
		rec.Valid = false
		counter.inc()
		if spec.Complete != nil {
			return spec.Complete(rec.Payload), err
		}
		return nil, err
	}

	var divergeErr error
	if rec.OpID != spec.OpID || rec.Expected != ops.Size || !paramsEqual(rec.Params, spec.Params) {
		rec.Valid = false
		if collector != nil {
			divergeErr = collector.Handle(mode, diag.Divergence{
				ItemLabel:  spec.ItemLabel,
				GroupLabel: spec.GroupLabel,
				ExpectedOp: rec.OpID.String(),
				ActualOp:   spec.OpID.String(),
				Expected:   rec.Expected,
				Actual:     ops.Size,
				Reason:     "mismatched op id, participant count, or op-specific parameters",
			})
		}
	}

	if spec.Reached != nil {
		rec.Payload = spec.Reached(rec.Payload)
	}
	rec.Arrivals++
	counter.inc()

	result, err := freezeOrYield(f, rec, spec)
	if err == nil {
		err = divergeErr
	}
	return result, err
}

func freezeOrYield(f Yielder, rec *Record, spec Spec) (any, error) {
	if rec.Arrivals == rec.Expected {
		rec.frozen = true
		if spec.Complete != nil {
			return spec.Complete(rec.Payload), nil
		}
		return nil, nil
	}

	f.Yield()

	if spec.Complete != nil {
		return spec.Complete(rec.Payload), nil
	}
	return nil, nil
}

// paramsEqual compares op-specific parameters for divergence detection.
// Params are required to be comparable scalars (ints, the type tags used
// for shift deltas and permute masks, etc.); a panic here would indicate a
// fabric-layer bug passing an uncomparable Params value, not a user error.
func paramsEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a == b
}

// ExitSpec builds the implicit "exit" op every item performs after its
// kernel body returns (spec.md §4.3's "implicit exit op"), catching
// divergent last operations.
func ExitSpec(itemLabel, groupLabel string) Spec {
	return Spec{
		OpID:       OpExit,
		ItemLabel:  itemLabel,
		GroupLabel: groupLabel,
	}
}
