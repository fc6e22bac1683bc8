package dispatch

import (
	"fmt"

	"github.com/celerity-hpc/simsycl/arena"
	"github.com/celerity-hpc/simsycl/coord"
	"github.com/celerity-hpc/simsycl/device"
)

// validateND checks nd against caps's advertised limits, per spec.md
// §4.5 step 1: dimensionality, work-group size, per-dimension work-item
// size, sub-groups-per-group, and total local-memory size.
func validateND(caps device.Caps, nd coord.NDRange, reqs []arena.Requirement) error {
	if nd.Dims() > caps.MaxWorkItemDimensions {
		return &NdRangeError{Reason: fmt.Sprintf(
			"dimensionality %d exceeds device max_work_item_dimensions %d", nd.Dims(), caps.MaxWorkItemDimensions)}
	}

	groupSize := int(nd.Local.Product())
	if groupSize > caps.MaxWorkGroupSize {
		return &NdRangeError{Reason: fmt.Sprintf(
			"work-group size %d exceeds device max_work_group_size %d", groupSize, caps.MaxWorkGroupSize)}
	}

	for i := 0; i < nd.Dims(); i++ {
		if int(nd.Local.Get(i)) > caps.MaxWorkItemSizes[i] {
			return &NdRangeError{Reason: fmt.Sprintf(
				"local range component %d (%d) exceeds device max_work_item_sizes[%d] %d",
				i, nd.Local.Get(i), i, caps.MaxWorkItemSizes[i])}
		}
	}

	width := caps.MaxSubGroupWidth()
	numSubGroups := (groupSize + width - 1) / width
	if numSubGroups > caps.MaxNumSubGroups {
		return &NdRangeError{Reason: fmt.Sprintf(
			"work-group requires %d sub-groups, exceeding device max_num_sub_groups %d", numSubGroups, caps.MaxNumSubGroups)}
	}

	total := 0
	for _, r := range reqs {
		total += r.Size
	}
	if total > caps.LocalMemSize {
		return &AccessorError{Reason: fmt.Sprintf(
			"total local-memory requirement %d bytes exceeds device local_mem_size %d bytes", total, caps.LocalMemSize)}
	}

	return nil
}
