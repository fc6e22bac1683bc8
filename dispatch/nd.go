package dispatch

import (
	"sync"

	"github.com/celerity-hpc/simsycl/arena"
	"github.com/celerity-hpc/simsycl/coord"
	"github.com/celerity-hpc/simsycl/device"
	"github.com/celerity-hpc/simsycl/fabric"
	"github.com/celerity-hpc/simsycl/fiber"
	"github.com/celerity-hpc/simsycl/groupop"
	"github.com/celerity-hpc/simsycl/schedule"
)

// Kernel is the callable a group-dispatched nd_range submission provides,
// taking the nd_item view of spec.md §4.4.
type Kernel func(item fabric.NDItem)

// DispatchND is the group-dispatch entry point of spec.md §6:
// dispatch_nd(device_caps, nd_range, local_mem_reqs, kernel). It validates
// the nd-range against caps, sizes and runs the cooperative fiber
// scheduler of spec.md §4.5, and returns once every work-item has visited
// every group instance assigned to its concurrent slot exactly once.
func DispatchND(caps device.Caps, nd coord.NDRange, reqs []arena.Requirement, policy schedule.Policy, kernel Kernel) (*Result, error) {
	if err := validateND(caps, nd, reqs); err != nil {
		return nil, err
	}

	groupRange := nd.GroupRange()
	totalGroups := int(groupRange.Product())

	numConcurrentGroups := totalGroups
	if caps.MaxComputeUnits < numConcurrentGroups {
		numConcurrentGroups = caps.MaxComputeUnits
	}
	if numConcurrentGroups < 1 {
		numConcurrentGroups = 1
	}

	localSize := int(nd.Local.Product())
	numConcurrentItems := numConcurrentGroups * localSize
	subGroupWidth := caps.MaxSubGroupWidth()

	a, err := arena.New(reqs, numConcurrentGroups)
	if err != nil {
		return nil, err
	}

	result := newResult()

	groups := make([]*fabric.GroupRecord, numConcurrentGroups)
	for s := range groups {
		groups[s] = fabric.NewGroupRecord(s, localSize, subGroupWidth, a)
	}

	items := make([]*fabric.ItemRecord, numConcurrentItems)
	var errMu sync.Mutex

	for slot := 0; slot < numConcurrentItems; slot++ {
		concurrentGroupSlot := slot / localSize
		localLinear := slot % localSize
		itemRec := fabric.NewItemRecord(slot, localLinear)
		items[slot] = itemRec

		itemRec.Fiber = fiber.Spawn(runItemEntry(
			itemRec, groups[concurrentGroupSlot], concurrentGroupSlot, localLinear,
			numConcurrentGroups, totalGroups, localSize,
			nd, groupRange, kernel, result, &errMu,
		))
	}

	order := make([]int, numConcurrentItems)
	state := policy.Init(order)
	if !schedule.IsPermutation(order) {
		panic("dispatch: schedule policy produced a non-permutation initial order")
	}

	remaining := numConcurrentItems
	for remaining > 0 {
		traceSchedule("sweep", "order", order)
		remaining = 0
		for _, slot := range order {
			itemRec := items[slot]
			if itemRec.Fiber.Terminated() {
				continue
			}
			concurrentGroupSlot := slot / localSize
			a.Patch(concurrentGroupSlot)
			if err := itemRec.Fiber.Resume(); err != nil {
				panic(err)
			}
			if !itemRec.Fiber.Terminated() {
				remaining++
			}
		}
		state = policy.Update(state, order)
		if !schedule.IsPermutation(order) {
			panic("dispatch: schedule policy produced a non-permutation order after update")
		}
	}

	result.finish()
	return result, nil
}

// runItemEntry builds the fiber entry point for one concurrent work-item
// slot: an immediate yield (so the scheduler can patch local-memory
// pointers before any user code runs, spec.md §4.5 step 5), followed by
// the group-iteration loop of spec.md §4.5's "Group iteration" subsection.
func runItemEntry(
	itemRec *fabric.ItemRecord,
	group *fabric.GroupRecord,
	concurrentGroupSlot int,
	localLinear int,
	numConcurrentGroups int,
	totalGroups int,
	localSize int,
	nd coord.NDRange,
	groupRange coord.Coord,
	kernel Kernel,
	result *Result,
	errMu *sync.Mutex,
) fiber.Entry {
	return func(self *fiber.Fiber) {
		self.Yield()

		localRange := nd.Local
		localID := coord.Unlinear(uint64(localLinear), localRange)

		for k := 0; concurrentGroupSlot+k*numConcurrentGroups < totalGroups; k++ {
			groupLinear := uint64(concurrentGroupSlot + k*numConcurrentGroups)
			groupID := coord.Unlinear(groupLinear, groupRange)

			if !group.Valid() || group.GroupLinear != groupLinear {
				group.Rebind(groupLinear, groupID)
			}
			itemRec.EnterGroup(group)

			globalID := computeGlobalID(groupID, localID, localRange, nd.Offset)
			ndItem := fabric.NewNDItem(
				itemRec, globalID, localID, groupID,
				nd.Global, localRange, groupRange, nd.Offset,
				result.Diagnostics, device.ActiveCheckMode(),
			)

			runKernelBody(ndItem, kernel, int(ndItem.GlobalLinear), result, errMu)
			runExitOps(self, itemRec, group, int(ndItem.GlobalLinear), result, errMu)

			group.ExitCount++

			for group.ExitCount != group.Ops.Size && group.GroupLinear == groupLinear {
				self.Yield()
			}
		}
	}
}

// runKernelBody invokes kernel, recovering a user panic into a UserError
// captured in result.Errors (spec.md §7's per-fiber try-catch).
func runKernelBody(ndItem fabric.NDItem, kernel Kernel, index int, result *Result, errMu *sync.Mutex) {
	defer func() {
		if r := recover(); r != nil {
			errMu.Lock()
			result.Errors = append(result.Errors, &UserError{Index: index, Err: asError(r)})
			errMu.Unlock()
		}
	}()
	kernel(ndItem)
}

// runExitOps performs the implicit exit op (spec.md §4.3) against both the
// group and, if assigned, the sub-group. A divergence surfaced under
// device.CheckThrow is treated exactly like a user exception: it is
// recovered and captured as a UserError rather than unwinding the fiber's
// goroutine, per spec.md §7's "raises a user-visible exception at the
// offending item".
func runExitOps(self *fiber.Fiber, itemRec *fabric.ItemRecord, group *fabric.GroupRecord, index int, result *Result, errMu *sync.Mutex) {
	defer func() {
		if r := recover(); r != nil {
			errMu.Lock()
			result.Errors = append(result.Errors, &UserError{Index: index, Err: asError(r)})
			errMu.Unlock()
		}
	}()

	mode := device.ActiveCheckMode()
	if _, err := groupop.Perform(self, group.Ops, itemRec.GroupCounter,
		groupop.ExitSpec("item", "group"), result.Diagnostics, mode); err != nil && mode == device.CheckThrow {
		panic(err)
	}
	if itemRec.SubGroup != nil {
		if _, err := groupop.Perform(self, itemRec.SubGroup.Ops, itemRec.SubGroupCounter,
			groupop.ExitSpec("item", "group sub-group"), result.Diagnostics, mode); err != nil && mode == device.CheckThrow {
			panic(err)
		}
	}
}

// computeGlobalID derives global_id = group_id*local_range + local_id +
// offset, component-wise.
func computeGlobalID(groupID, localID, localRange, offset coord.Coord) coord.Coord {
	values := make([]uint64, groupID.Dims())
	for i := range values {
		values[i] = groupID.Get(i)*localRange.Get(i) + localID.Get(i) + offset.Get(i)
	}
	return coord.New(values...)
}
