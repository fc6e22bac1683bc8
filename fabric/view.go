package fabric

import (
	"fmt"

	"github.com/celerity-hpc/simsycl/coord"
	"github.com/celerity-hpc/simsycl/device"
	"github.com/celerity-hpc/simsycl/diag"
	"github.com/celerity-hpc/simsycl/groupop"
)

// Item is the simple-path view over a single global id (spec.md §4.6):
// it carries no group or fiber machinery, since the simple dispatch path
// never simulates concurrency.
type Item struct {
	id     coord.Coord
	rang   coord.Coord
	linear uint64
}

// NewItem builds an Item view from its static coordinate geometry.
func NewItem(id, rang coord.Coord) Item {
	return Item{id: id, rang: rang, linear: coord.Linear(id, rang)}
}

func (it Item) ID() coord.Coord      { return it.id }
func (it Item) Range() coord.Coord   { return it.rang }
func (it Item) LinearID() uint64     { return it.linear }
func (it Item) String() string       { return fmt.Sprintf("item%s@%d", it.id, it.linear) }

// Group is the user-facing view over a concurrent-group record, exposing
// the collective operations of spec.md §4.3 scoped to the calling item's
// lane within the work-group.
type Group struct {
	record *GroupRecord

	f         groupop.Yielder
	counter   *groupop.Counter
	laneIndex int

	id    coord.Coord
	rang  coord.Coord

	collector *diag.Collector
	mode      device.CheckMode

	itemLabel  string
	groupLabel string
}

// ID returns the group's multi-dimensional id.
func (g Group) ID() coord.Coord { return g.id }

// Range returns the group range (number of work-groups per dimension).
func (g Group) Range() coord.Coord { return g.rang }

// LinearID returns the group's linear id within the iteration space.
func (g Group) LinearID() uint64 { return g.record.GroupLinear }

// LocalLinearID returns the calling item's linear lane index within this
// group, i.e. local_linear_id.
func (g Group) LocalLinearID() int { return g.laneIndex }

// Size returns the work-group's participant count.
func (g Group) Size() int { return g.record.Ops.Size }

func (g Group) args() groupop.CallArgs {
	return groupop.NewCallArgs(g.f, g.record.Ops, g.counter, g.collector, g.mode, g.itemLabel, g.groupLabel)
}

// Barrier implements group_barrier.
func (g Group) Barrier(fenceScopeTag string) error {
	return groupop.Barrier(g.args(), fenceScopeTag)
}

// AnyOf implements any_of_group.
func (g Group) AnyOf(pred bool) (bool, error) {
	return groupop.AnyOf(g.args(), g.laneIndex, pred)
}

// AllOf implements all_of_group.
func (g Group) AllOf(pred bool) (bool, error) {
	return groupop.AllOf(g.args(), g.laneIndex, pred)
}

// NoneOf implements none_of_group.
func (g Group) NoneOf(pred bool) (bool, error) {
	return groupop.NoneOf(g.args(), g.laneIndex, pred)
}

// SubGroup is the user-facing view over a concurrent-sub-group record; its
// collective operations are identical in shape to Group's, but scoped to
// the sub-group's (possibly trailing, narrower) lane count.
type SubGroup struct {
	record *SubGroupRecord

	f         groupop.Yielder
	counter   *groupop.Counter
	laneIndex int

	collector *diag.Collector
	mode      device.CheckMode

	itemLabel  string
	groupLabel string
}

// Index returns this sub-group's index within its owning work-group.
func (sg SubGroup) Index() int { return sg.record.Index }

// LocalLinearID returns the calling item's linear lane index within this
// sub-group.
func (sg SubGroup) LocalLinearID() int { return sg.laneIndex }

// Size returns the sub-group's actual (possibly trailing-narrowed)
// participant count.
func (sg SubGroup) Size() int { return sg.record.Ops.Size }

func (sg SubGroup) args() groupop.CallArgs {
	return groupop.NewCallArgs(sg.f, sg.record.Ops, sg.counter, sg.collector, sg.mode, sg.itemLabel, sg.groupLabel)
}

// Barrier implements group_barrier scoped to the sub-group.
func (sg SubGroup) Barrier(fenceScopeTag string) error {
	return groupop.Barrier(sg.args(), fenceScopeTag)
}

// AnyOf implements any_of_group scoped to the sub-group.
func (sg SubGroup) AnyOf(pred bool) (bool, error) {
	return groupop.AnyOf(sg.args(), sg.laneIndex, pred)
}

// AllOf implements all_of_group scoped to the sub-group.
func (sg SubGroup) AllOf(pred bool) (bool, error) {
	return groupop.AllOf(sg.args(), sg.laneIndex, pred)
}

// NoneOf implements none_of_group scoped to the sub-group.
func (sg SubGroup) NoneOf(pred bool) (bool, error) {
	return groupop.NoneOf(sg.args(), sg.laneIndex, pred)
}

// NDItem is the full nd-range view a group-dispatched kernel receives
// (spec.md §4.4): the static coordinate geometry plus borrowed access to
// the calling item's concurrent records, sufficient to synthesize Group
// and SubGroup on demand.
type NDItem struct {
	record *ItemRecord

	GlobalID, LocalID, GroupID          coord.Coord
	GlobalRange, LocalRange, GroupRange coord.Coord
	Offset                              coord.Coord

	GlobalLinear, LocalLinear, GroupLinear uint64

	Collector *diag.Collector
	Mode      device.CheckMode
}

// NewNDItem constructs the nd_item view for one work-item, computing the
// three linear identities spec.md §4.4 requires:
// global_linear = linear(global_id, global_range),
// local_linear = linear(local_id, local_range),
// group_linear = linear(group_id, group_range).
func NewNDItem(record *ItemRecord, globalID, localID, groupID, globalRange, localRange, groupRange, offset coord.Coord, collector *diag.Collector, mode device.CheckMode) NDItem {
	return NDItem{
		record:       record,
		GlobalID:     globalID,
		LocalID:      localID,
		GroupID:      groupID,
		GlobalRange:  globalRange,
		LocalRange:   localRange,
		GroupRange:   groupRange,
		Offset:       offset,
		GlobalLinear: coord.Linear(globalID, globalRange),
		LocalLinear:  coord.Linear(localID, localRange),
		GroupLinear:  coord.Linear(groupID, groupRange),
		Collector:    collector,
		Mode:         mode,
	}
}

// Group synthesizes the Group view for this item's current group
// instance.
func (it NDItem) Group() Group {
	return Group{
		record:     it.record.Group,
		f:          it.record.Fiber,
		counter:    it.record.GroupCounter,
		laneIndex:  int(it.LocalLinear),
		id:         it.GroupID,
		rang:       it.GroupRange,
		collector:  it.Collector,
		mode:       it.Mode,
		itemLabel:  fmt.Sprintf("item %d", it.GlobalLinear),
		groupLabel: fmt.Sprintf("group %d", it.GroupLinear),
	}
}

// SubGroup synthesizes the SubGroup view for this item's current
// sub-group slice.
func (it NDItem) SubGroup() SubGroup {
	sg := it.record.SubGroup
	return SubGroup{
		record:     sg,
		f:          it.record.Fiber,
		counter:    it.record.SubGroupCounter,
		laneIndex:  int(it.LocalLinear) - sg.LaneOffset,
		collector:  it.Collector,
		mode:       it.Mode,
		itemLabel:  fmt.Sprintf("item %d", it.GlobalLinear),
		groupLabel: fmt.Sprintf("group %d sub-group %d", it.GroupLinear, sg.Index),
	}
}

// HItem is the hierarchical-parallel-for view (spec.md §4.4's h_item): a
// physical work-item nested inside a running work-group body, sharing the
// enclosing NDItem's group and coordinate geometry while exposing its own
// local id as the "logical" id of the innermost loop.
type HItem struct {
	NDItem
	LogicalID coord.Coord
}

// NewHItem builds an HItem that shares enclosing's group-scoped state,
// scoped to logicalID's position within the inner loop.
func NewHItem(enclosing NDItem, logicalID coord.Coord) HItem {
	return HItem{NDItem: enclosing, LogicalID: logicalID}
}

// Broadcast implements group_broadcast for a Group view. It is a free
// function, not a method, because Go methods cannot carry their own type
// parameters.
func Broadcast[T any](g Group, value T, srcLane int) (T, error) {
	return groupop.Broadcast(g.args(), g.laneIndex, srcLane, value)
}

// SubGroupBroadcast implements group_broadcast for a SubGroup view,
// range-checking srcLane against the sub-group's actual lane count
// (resolving spec.md §9's sub-group broadcast open question).
func SubGroupBroadcast[T any](sg SubGroup, value T, srcLane int) (T, error) {
	if srcLane < 0 || srcLane >= sg.Size() {
		var divergeErr error
		if sg.collector != nil {
			divergeErr = sg.collector.Handle(sg.mode, diag.Divergence{
				ItemLabel:  sg.itemLabel,
				GroupLabel: sg.groupLabel,
				ExpectedOp: "broadcast",
				ActualOp:   "broadcast",
				Expected:   sg.Size(),
				Actual:     srcLane,
				Reason:     "broadcast source lane is outside the sub-group's actual lane count",
			})
		}
		return groupop.Unspecified[T](), divergeErr
	}
	return groupop.Broadcast(sg.args(), sg.laneIndex, srcLane, value)
}

// ShiftLeft implements shift_group_left.
func ShiftLeft[T any](g Group, value T, delta int) (T, error) {
	return groupop.ShiftLeft(g.args(), g.laneIndex, value, delta)
}

// ShiftRight implements shift_group_right.
func ShiftRight[T any](g Group, value T, delta int) (T, error) {
	return groupop.ShiftRight(g.args(), g.laneIndex, value, delta)
}

// PermuteByXor implements permute_group_by_xor.
func PermuteByXor[T any](g Group, value T, mask int) (T, error) {
	return groupop.PermuteByXor(g.args(), g.laneIndex, value, mask)
}

// Select implements select_from_group.
func Select[T any](g Group, value T, targetLane int) (T, error) {
	return groupop.Select(g.args(), g.laneIndex, value, targetLane)
}

// Reduce implements reduce_over_group.
func Reduce[T any](g Group, value T, op groupop.BinaryOp[T]) (T, error) {
	return groupop.Reduce(g.args(), g.laneIndex, value, op)
}

// ExclusiveScan implements exclusive_scan_over_group.
func ExclusiveScan[T any](g Group, value T, op groupop.BinaryOp[T]) (T, error) {
	return groupop.ExclusiveScan(g.args(), g.laneIndex, value, op)
}

// InclusiveScan implements inclusive_scan_over_group.
func InclusiveScan[T any](g Group, value T, op groupop.BinaryOp[T]) (T, error) {
	return groupop.InclusiveScan(g.args(), g.laneIndex, value, op)
}

// JointAnyOf implements joint_any_of_group over a range every participant
// passes identically.
func JointAnyOf[T any](g Group, rangeTag any, data []T, pred func(T) bool) (bool, error) {
	return groupop.JointAnyOf(g.args(), rangeTag, data, pred)
}

// JointAllOf implements joint_all_of_group.
func JointAllOf[T any](g Group, rangeTag any, data []T, pred func(T) bool) (bool, error) {
	return groupop.JointAllOf(g.args(), rangeTag, data, pred)
}

// JointNoneOf implements joint_none_of_group.
func JointNoneOf[T any](g Group, rangeTag any, data []T, pred func(T) bool) (bool, error) {
	return groupop.JointNoneOf(g.args(), rangeTag, data, pred)
}

// JointReduce implements joint_reduce_over_group.
func JointReduce[T any](g Group, rangeTag any, data []T, op groupop.BinaryOp[T]) (T, error) {
	return groupop.JointReduce(g.args(), rangeTag, data, op)
}

// JointExclusiveScan implements joint_exclusive_scan_over_group.
func JointExclusiveScan[T any](g Group, rangeTag any, data []T, op groupop.BinaryOp[T]) ([]T, error) {
	return groupop.JointExclusiveScan(g.args(), rangeTag, data, op)
}

// JointInclusiveScan implements joint_inclusive_scan_over_group.
func JointInclusiveScan[T any](g Group, rangeTag any, data []T, op groupop.BinaryOp[T]) ([]T, error) {
	return groupop.JointInclusiveScan(g.args(), rangeTag, data, op)
}
