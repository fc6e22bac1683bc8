package dispatch

import (
	"github.com/celerity-hpc/simsycl/coord"
	"github.com/celerity-hpc/simsycl/device"
	"github.com/celerity-hpc/simsycl/fabric"
	"github.com/celerity-hpc/simsycl/schedule"
)

// chunkSize is the maximum number of global ids shuffled together per
// chunk, spec.md §4.6's "16 Ki" bound.
const chunkSize = 16 * 1024

// SimpleKernel is the callable the simple (range, offset) dispatch path
// invokes, taking the item view of spec.md §4.4.
type SimpleKernel func(item fabric.Item)

// DispatchSimple implements the simple-range dispatch path of spec.md
// §4.6: no fiber machinery, no groups. Global ids are enumerated in
// chunks of at most 16 Ki, each chunk permuted by policy before the
// kernel is invoked serially in the chosen order. Group operations
// attempted from a kernel dispatched this way have no Group or SubGroup
// view to call through (see fabric.Item), resolving spec.md §9's first
// open question by construction rather than a runtime check.
func DispatchSimple(caps device.Caps, globalRange, offset coord.Coord, policy schedule.Policy, kernel SimpleKernel) (*Result, error) {
	if globalRange.Dims() > caps.MaxWorkItemDimensions {
		return nil, &NdRangeError{Reason: "dimensionality exceeds device max_work_item_dimensions"}
	}

	result := newResult()
	total := int(globalRange.Product())

	for base := 0; base < total; base += chunkSize {
		n := chunkSize
		if base+n > total {
			n = total - base
		}

		order := make([]int, n)
		state := policy.Init(order)
		if !schedule.IsPermutation(order) {
			panic("dispatch: schedule policy produced a non-permutation chunk order")
		}
		_ = state

		for _, offsetInChunk := range order {
			linear := uint64(base + offsetInChunk)
			id := coord.Unlinear(linear, globalRange)
			globalID := addOffset(id, offset)
			runSimpleKernelBody(fabric.NewItem(globalID, globalRange), kernel, int(linear), result)
		}
	}

	result.finish()
	return result, nil
}

func addOffset(id, offset coord.Coord) coord.Coord {
	values := make([]uint64, id.Dims())
	for i := range values {
		values[i] = id.Get(i) + offset.Get(i)
	}
	return coord.New(values...)
}

func runSimpleKernelBody(item fabric.Item, kernel SimpleKernel, index int, result *Result) {
	defer func() {
		if r := recover(); r != nil {
			result.Errors = append(result.Errors, &UserError{Index: index, Err: asError(r)})
		}
	}()
	kernel(item)
}
