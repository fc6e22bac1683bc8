// Package fabric implements the work-item view layer of spec.md §4.4: the
// concurrent-group, concurrent-sub-group and concurrent-work-item records
// the dispatcher owns, and the lightweight item/nd_item/group/sub_group/
// h_item views user kernels actually consume. Views are purely functional
// projections over borrowed references to the underlying records; they
// carry no owned state of their own.
package fabric

import (
	"github.com/celerity-hpc/simsycl/arena"
	"github.com/celerity-hpc/simsycl/coord"
	"github.com/celerity-hpc/simsycl/fiber"
	"github.com/celerity-hpc/simsycl/groupop"
)

// SubGroupRecord is the concurrent-sub-group record of spec.md §3: a
// contiguous slice of a work-group with its own narrower operation vector,
// sized to the actual (possibly trailing) lane count rather than the
// device's maximum sub-group width.
type SubGroupRecord struct {
	Index      int
	LaneOffset int
	LaneCount  int
	Ops        *groupop.Ops
}

// GroupRecord is the concurrent-group record of spec.md §3: shared state
// across every item currently occupying one work-group *instance*. One
// GroupRecord backs one concurrent-group slot for the lifetime of a
// dispatch; Rebind assigns it to a fresh group instance as fibers advance.
type GroupRecord struct {
	Slot int

	GroupLinear uint64
	GroupID     coord.Coord
	valid       bool

	Ops       *groupop.Ops
	ExitCount int
	Arena     *arena.Arena

	SubGroups []*SubGroupRecord
}

// NewGroupRecord allocates a concurrent-group slot expecting groupSize
// participants per group op, partitioned into sub-groups of at most
// subGroupWidth lanes each.
func NewGroupRecord(slot int, groupSize int, subGroupWidth int, a *arena.Arena) *GroupRecord {
	spans := PartitionSubGroups(groupSize, subGroupWidth)
	subGroups := make([]*SubGroupRecord, len(spans))
	for i, span := range spans {
		subGroups[i] = &SubGroupRecord{
			Index:      i,
			LaneOffset: span.Offset,
			LaneCount:  span.Count,
			Ops:        groupop.NewOps(span.Count),
		}
	}
	return &GroupRecord{
		Slot:      slot,
		Ops:       groupop.NewOps(groupSize),
		Arena:     a,
		SubGroups: subGroups,
	}
}

// Valid reports whether this slot currently holds a live group instance
// (false only before the first group is ever assigned to the slot).
func (g *GroupRecord) Valid() bool { return g.valid }

// Rebind assigns this slot to a fresh group instance, wiping its operation
// vector, exit counter, and every sub-group's operation vector, matching
// spec.md §4.5's "first arriving item creates a fresh group instance
// record (wiping the operation vector)".
func (g *GroupRecord) Rebind(groupLinear uint64, groupID coord.Coord) {
	g.valid = true
	g.GroupLinear = groupLinear
	g.GroupID = groupID
	g.Ops.Reset()
	g.ExitCount = 0
	g.Arena.Reset(g.Slot)
	for _, sg := range g.SubGroups {
		sg.Ops.Reset()
	}
}

// SubGroupFor returns the sub-group record owning localLinear, the item's
// local-linear id within the work-group.
func (g *GroupRecord) SubGroupFor(localLinear int) *SubGroupRecord {
	for _, sg := range g.SubGroups {
		if localLinear >= sg.LaneOffset && localLinear < sg.LaneOffset+sg.LaneCount {
			return sg
		}
	}
	return nil
}

// ItemRecord is the concurrent work-item record of spec.md §3: the
// per-fiber mutable state threaded through group iterations. One record
// per fiber slot backs the fiber for the entire dispatch; Group and
// SubGroup are rebound as the fiber advances between group instances.
type ItemRecord struct {
	Slot  int
	Fiber *fiber.Fiber

	GroupCounter    *groupop.Counter
	SubGroupCounter *groupop.Counter

	Group    *GroupRecord
	SubGroup *SubGroupRecord

	LocalLinear int
}

// NewItemRecord allocates the per-fiber-slot bookkeeping state.
func NewItemRecord(slot int, localLinear int) *ItemRecord {
	return &ItemRecord{
		Slot:            slot,
		GroupCounter:    &groupop.Counter{},
		SubGroupCounter: &groupop.Counter{},
		LocalLinear:     localLinear,
	}
}

// EnterGroup rebinds the item to group, resetting its per-op counters, as
// required whenever a fiber advances to a new group instance (spec.md
// §4.5).
func (it *ItemRecord) EnterGroup(group *GroupRecord) {
	it.Group = group
	it.SubGroup = group.SubGroupFor(it.LocalLinear)
	it.GroupCounter.Reset()
	it.SubGroupCounter.Reset()
}
