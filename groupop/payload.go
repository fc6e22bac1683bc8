package groupop

import (
	"github.com/celerity-hpc/simsycl/device"
	"github.com/celerity-hpc/simsycl/diag"
)

// CallArgs bundles the parameters every per-op wrapper below needs to
// drive Perform, so each function signature stays readable. Fabric-layer
// callers assemble one CallArgs per collective call via NewCallArgs.
type CallArgs struct {
	F          Yielder
	Ops        *Ops
	Counter    *Counter
	Collector  *diag.Collector
	Mode       device.CheckMode
	ItemLabel  string
	GroupLabel string
}

// NewCallArgs builds the shared argument bundle every op wrapper below
// takes.
func NewCallArgs(f Yielder, ops *Ops, counter *Counter, collector *diag.Collector, mode device.CheckMode, itemLabel, groupLabel string) CallArgs {
	return CallArgs{
		F: f, Ops: ops, Counter: counter,
		Collector: collector, Mode: mode,
		ItemLabel: itemLabel, GroupLabel: groupLabel,
	}
}

func asT[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// Broadcast implements group_broadcast: every participant receives the
// value the item at local_linear_id == srcLane contributed.
func Broadcast[T any](a CallArgs, laneIndex, srcLane int, value T) (T, error) {
	spec := Spec{
		OpID:       OpBroadcast,
		Params:     srcLane,
		ItemLabel:  a.ItemLabel,
		GroupLabel: a.GroupLabel,
		Init: func() any {
			vec := make([]T, a.Ops.Size)
			vec[laneIndex] = value
			return vec
		},
		Reached: func(p any) any {
			vec := p.([]T)
			vec[laneIndex] = value
			return vec
		},
		Complete: func(p any) any {
			vec := p.([]T)
			if srcLane < 0 || srcLane >= len(vec) {
				return Unspecified[T]()
			}
			return vec[srcLane]
		},
	}
	res, err := Perform(a.F, a.Ops, a.Counter, spec, a.Collector, a.Mode)
	return asT[T](res), err
}

// Barrier implements group_barrier: a pure rendezvous with no per-item
// result, cross-checking the fence-scope tag across all arrivals.
func Barrier(a CallArgs, fenceScopeTag string) error {
	spec := Spec{
		OpID:       OpBarrier,
		Params:     fenceScopeTag,
		ItemLabel:  a.ItemLabel,
		GroupLabel: a.GroupLabel,
	}
	_, err := Perform(a.F, a.Ops, a.Counter, spec, a.Collector, a.Mode)
	return err
}

// AnyOf implements any_of_group over a per-lane predicate.
func AnyOf(a CallArgs, laneIndex int, pred bool) (bool, error) {
	return boolGroupOp(a, OpAnyOf, laneIndex, pred, func(vec []bool) bool {
		for _, v := range vec {
			if v {
				return true
			}
		}
		return false
	})
}

// AllOf implements all_of_group over a per-lane predicate.
func AllOf(a CallArgs, laneIndex int, pred bool) (bool, error) {
	return boolGroupOp(a, OpAllOf, laneIndex, pred, func(vec []bool) bool {
		for _, v := range vec {
			if !v {
				return false
			}
		}
		return true
	})
}

// NoneOf implements none_of_group over a per-lane predicate.
func NoneOf(a CallArgs, laneIndex int, pred bool) (bool, error) {
	return boolGroupOp(a, OpNoneOf, laneIndex, pred, func(vec []bool) bool {
		for _, v := range vec {
			if v {
				return false
			}
		}
		return true
	})
}

func boolGroupOp(a CallArgs, opID OpID, laneIndex int, pred bool, aggregate func([]bool) bool) (bool, error) {
	spec := Spec{
		OpID:       opID,
		ItemLabel:  a.ItemLabel,
		GroupLabel: a.GroupLabel,
		Init: func() any {
			vec := make([]bool, a.Ops.Size)
			vec[laneIndex] = pred
			return vec
		},
		Reached: func(p any) any {
			vec := p.([]bool)
			vec[laneIndex] = pred
			return vec
		},
		Complete: func(p any) any {
			return aggregate(p.([]bool))
		},
	}
	res, err := Perform(a.F, a.Ops, a.Counter, spec, a.Collector, a.Mode)
	return asT[bool](res), err
}

// jointBoolOp evaluates a reduction over a shared range that every
// participant is required to pass identically (the "iterator pair" of
// spec.md §4.3), used by JointAnyOf/JointAllOf/JointNoneOf. Because the
// range is the same for every participant, the aggregate is computed once
// by the first arriver and simply read back by everyone else — the
// rendezvous still performs the divergence check on rangeTag and the
// lockstep synchronization.
func jointBoolOp(a CallArgs, opID OpID, rangeTag any, compute func() bool) (bool, error) {
	spec := Spec{
		OpID:       opID,
		Params:     rangeTag,
		ItemLabel:  a.ItemLabel,
		GroupLabel: a.GroupLabel,
		Init:       func() any { return compute() },
		Complete:   func(p any) any { return p },
	}
	res, err := Perform(a.F, a.Ops, a.Counter, spec, a.Collector, a.Mode)
	return asT[bool](res), err
}

// JointAnyOf implements joint_any_of_group.
func JointAnyOf[T any](a CallArgs, rangeTag any, data []T, pred func(T) bool) (bool, error) {
	return jointBoolOp(a, OpJointAnyOf, rangeTag, func() bool {
		for _, v := range data {
			if pred(v) {
				return true
			}
		}
		return false
	})
}

// JointAllOf implements joint_all_of_group.
func JointAllOf[T any](a CallArgs, rangeTag any, data []T, pred func(T) bool) (bool, error) {
	return jointBoolOp(a, OpJointAllOf, rangeTag, func() bool {
		for _, v := range data {
			if !pred(v) {
				return false
			}
		}
		return true
	})
}

// JointNoneOf implements joint_none_of_group.
func JointNoneOf[T any](a CallArgs, rangeTag any, data []T, pred func(T) bool) (bool, error) {
	return jointBoolOp(a, OpJointNoneOf, rangeTag, func() bool {
		for _, v := range data {
			if pred(v) {
				return false
			}
		}
		return true
	})
}

// ShiftLeft implements shift_group_left: lane i receives the value lane
// i+delta contributed, or the Unspecified sentinel if i+delta is out of
// range.
func ShiftLeft[T any](a CallArgs, laneIndex int, value T, delta int) (T, error) {
	return shiftLike(a, OpShiftLeft, laneIndex, value, delta, func(i int) int { return i + delta })
}

// ShiftRight implements shift_group_right: lane i receives the value lane
// i-delta contributed, or the Unspecified sentinel if i-delta is out of
// range.
func ShiftRight[T any](a CallArgs, laneIndex int, value T, delta int) (T, error) {
	return shiftLike(a, OpShiftRight, laneIndex, value, delta, func(i int) int { return i - delta })
}

func shiftLike[T any](a CallArgs, opID OpID, laneIndex int, value T, delta int, target func(int) int) (T, error) {
	spec := Spec{
		OpID:       opID,
		Params:     delta,
		ItemLabel:  a.ItemLabel,
		GroupLabel: a.GroupLabel,
		Init: func() any {
			vec := make([]T, a.Ops.Size)
			vec[laneIndex] = value
			return vec
		},
		Reached: func(p any) any {
			vec := p.([]T)
			vec[laneIndex] = value
			return vec
		},
		Complete: func(p any) any {
			vec := p.([]T)
			t := target(laneIndex)
			if t < 0 || t >= len(vec) {
				return Unspecified[T]()
			}
			return vec[t]
		},
	}
	res, err := Perform(a.F, a.Ops, a.Counter, spec, a.Collector, a.Mode)
	return asT[T](res), err
}

// PermuteByXor implements permute_group_by_xor: lane i receives the value
// lane (i XOR mask) contributed, or the Unspecified sentinel if that lane
// does not exist.
func PermuteByXor[T any](a CallArgs, laneIndex int, value T, mask int) (T, error) {
	spec := Spec{
		OpID:       OpPermuteByXor,
		Params:     mask,
		ItemLabel:  a.ItemLabel,
		GroupLabel: a.GroupLabel,
		Init: func() any {
			vec := make([]T, a.Ops.Size)
			vec[laneIndex] = value
			return vec
		},
		Reached: func(p any) any {
			vec := p.([]T)
			vec[laneIndex] = value
			return vec
		},
		Complete: func(p any) any {
			vec := p.([]T)
			t := laneIndex ^ mask
			if t < 0 || t >= len(vec) {
				return Unspecified[T]()
			}
			return vec[t]
		},
	}
	res, err := Perform(a.F, a.Ops, a.Counter, spec, a.Collector, a.Mode)
	return asT[T](res), err
}

// Select implements select_from_group: lane i receives the value lane
// targetLane contributed; targetLane may legitimately differ per item (the
// design table lists no cross-checked parameter for select), so
// out-of-range targets fall back to Unspecified without being treated as a
// divergence.
func Select[T any](a CallArgs, laneIndex int, value T, targetLane int) (T, error) {
	spec := Spec{
		OpID:       OpSelect,
		ItemLabel:  a.ItemLabel,
		GroupLabel: a.GroupLabel,
		Init: func() any {
			vec := make([]T, a.Ops.Size)
			vec[laneIndex] = value
			return vec
		},
		Reached: func(p any) any {
			vec := p.([]T)
			vec[laneIndex] = value
			return vec
		},
		Complete: func(p any) any {
			vec := p.([]T)
			if targetLane < 0 || targetLane >= len(vec) {
				return Unspecified[T]()
			}
			return vec[targetLane]
		},
	}
	res, err := Perform(a.F, a.Ops, a.Counter, spec, a.Collector, a.Mode)
	return asT[T](res), err
}

// Reduce implements reduce_over_group: every participant receives the fold
// of every lane's contribution with op, starting from op.Identity.
func Reduce[T any](a CallArgs, laneIndex int, value T, op BinaryOp[T]) (T, error) {
	spec := Spec{
		OpID:       OpReduce,
		Params:     op.Tag,
		ItemLabel:  a.ItemLabel,
		GroupLabel: a.GroupLabel,
		Init: func() any {
			vec := make([]T, a.Ops.Size)
			vec[laneIndex] = value
			return vec
		},
		Reached: func(p any) any {
			vec := p.([]T)
			vec[laneIndex] = value
			return vec
		},
		Complete: func(p any) any {
			vec := p.([]T)
			acc := op.Identity
			for _, v := range vec {
				acc = op.Apply(acc, v)
			}
			return acc
		},
	}
	res, err := Perform(a.F, a.Ops, a.Counter, spec, a.Collector, a.Mode)
	return asT[T](res), err
}

// JointReduce implements joint_reduce_over_group over a shared range every
// participant passes identically; like the joint boolean ops, the fold is
// computed once by the first arriver and read back by everyone else.
func JointReduce[T any](a CallArgs, rangeTag any, data []T, op BinaryOp[T]) (T, error) {
	spec := Spec{
		OpID:       OpJointReduce,
		Params:     [2]any{rangeTag, op.Tag},
		ItemLabel:  a.ItemLabel,
		GroupLabel: a.GroupLabel,
		Init: func() any {
			acc := op.Identity
			for _, v := range data {
				acc = op.Apply(acc, v)
			}
			return acc
		},
		Complete: func(p any) any { return p },
	}
	res, err := Perform(a.F, a.Ops, a.Counter, spec, a.Collector, a.Mode)
	return asT[T](res), err
}

// ExclusiveScan implements exclusive_scan_over_group: lane i receives the
// fold of lanes [0, i) with op, starting from op.Identity.
func ExclusiveScan[T any](a CallArgs, laneIndex int, value T, op BinaryOp[T]) (T, error) {
	return scanOverGroup(a, OpExclusiveScan, laneIndex, value, op, false)
}

// InclusiveScan implements inclusive_scan_over_group: lane i receives the
// fold of lanes [0, i] with op, starting from op.Identity.
func InclusiveScan[T any](a CallArgs, laneIndex int, value T, op BinaryOp[T]) (T, error) {
	return scanOverGroup(a, OpInclusiveScan, laneIndex, value, op, true)
}

func scanOverGroup[T any](a CallArgs, opID OpID, laneIndex int, value T, op BinaryOp[T], inclusive bool) (T, error) {
	spec := Spec{
		OpID:       opID,
		Params:     op.Tag,
		ItemLabel:  a.ItemLabel,
		GroupLabel: a.GroupLabel,
		Init: func() any {
			vec := make([]T, a.Ops.Size)
			for i := range vec {
				vec[i] = op.Identity
			}
			vec[laneIndex] = value
			return vec
		},
		Reached: func(p any) any {
			vec := p.([]T)
			vec[laneIndex] = value
			return vec
		},
		Complete: func(p any) any {
			vec := p.([]T)
			limit := laneIndex
			if inclusive {
				limit++
			}
			acc := op.Identity
			for i := 0; i < limit; i++ {
				acc = op.Apply(acc, vec[i])
			}
			return acc
		},
	}
	res, err := Perform(a.F, a.Ops, a.Counter, spec, a.Collector, a.Mode)
	return asT[T](res), err
}

// JointExclusiveScan implements joint_exclusive_scan_over_group over a
// shared range every participant passes identically: every participant
// receives the same output slice, computed once by the first arriver.
func JointExclusiveScan[T any](a CallArgs, rangeTag any, data []T, op BinaryOp[T]) ([]T, error) {
	return jointScan(a, OpJointExclusiveScan, rangeTag, data, op, false)
}

// JointInclusiveScan implements joint_inclusive_scan_over_group.
func JointInclusiveScan[T any](a CallArgs, rangeTag any, data []T, op BinaryOp[T]) ([]T, error) {
	return jointScan(a, OpJointInclusiveScan, rangeTag, data, op, true)
}

func jointScan[T any](a CallArgs, opID OpID, rangeTag any, data []T, op BinaryOp[T], inclusive bool) ([]T, error) {
	spec := Spec{
		OpID:       opID,
		Params:     [2]any{rangeTag, op.Tag},
		ItemLabel:  a.ItemLabel,
		GroupLabel: a.GroupLabel,
		Init: func() any {
			out := make([]T, len(data))
			acc := op.Identity
			for i, v := range data {
				if inclusive {
					acc = op.Apply(acc, v)
					out[i] = acc
				} else {
					out[i] = acc
					acc = op.Apply(acc, v)
				}
			}
			return out
		},
		Complete: func(p any) any { return p },
	}
	res, err := Perform(a.F, a.Ops, a.Counter, spec, a.Collector, a.Mode)
	if res == nil {
		return nil, err
	}
	return res.([]T), err
}
