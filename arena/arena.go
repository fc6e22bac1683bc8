// Package arena implements the per-group local-memory scratch allocator of
// spec.md §4.2: one contiguous, correctly aligned allocation per
// local-memory requirement, for each concurrent-group slot the scheduler
// keeps live, reused across the (potentially much larger) number of actual
// work-group instances that slot services over the lifetime of a dispatch.
package arena

import (
	"fmt"
	"unsafe"
)

// sentinelByte is written across every freshly allocated (or reset) local
// memory region before user code runs. Interpreted as IEEE-754 float32 or
// float64 the all-0xFF pattern decodes to a quiet NaN, and as an integer it
// is a conspicuously out-of-range value — both aid in spotting
// uninitialized reads, matching spec.md §4.2.
const sentinelByte = 0xFF

// Requirement describes one local-memory accessor the submitter needs
// backed by arena storage, and how to hand that storage to the captured
// user-kernel variable once it is known. Bind is invoked by the scheduler
// immediately before each resume of a fiber belonging to the owning group
// slot (spec.md §4.2's "writes the addresses ... into the submitter
// provided pointer slots").
type Requirement struct {
	Size  int
	Align int
	Bind  func(mem []byte)
}

// Arena owns one allocation per Requirement for each of a fixed number of
// concurrent-group slots. It is created once per dispatch and lives for
// the dispatch's duration, per spec.md §3's ownership summary.
type Arena struct {
	reqs  []Requirement
	slots [][][]byte // [groupSlot][reqIndex] -> backing storage
	raw   [][][]byte // not populated; each aligned sub-slice in slots keeps its backing buffer alive
}

// New validates alignments (must be a power of two) and allocates storage
// for numSlots concurrent-group slots, each carrying one region per
// requirement.
func New(reqs []Requirement, numSlots int) (*Arena, error) {
	for i, r := range reqs {
		if r.Align <= 0 || (r.Align&(r.Align-1)) != 0 {
			return nil, fmt.Errorf("arena: requirement %d has non-power-of-two alignment %d", i, r.Align)
		}
		if r.Size < 0 {
			return nil, fmt.Errorf("arena: requirement %d has negative size %d", i, r.Size)
		}
	}

	a := &Arena{
		reqs:  reqs,
		slots: make([][][]byte, numSlots),
	}
	for s := 0; s < numSlots; s++ {
		a.slots[s] = make([][]byte, len(reqs))
		for i, r := range reqs {
			a.slots[s][i] = allocAligned(r.Size, r.Align)
		}
	}
	return a, nil
}

// allocAligned returns a size-byte slice whose first element is aligned to
// align bytes, sentinel-filled. Go's allocator does not expose alignment
// guarantees beyond pointer-size for arbitrary byte slices, so a
// size+align-1 buffer is over-allocated and a correctly aligned sub-slice
// is carved out of it with unsafe.Pointer arithmetic.
func allocAligned(size, align int) []byte {
	if size == 0 {
		return []byte{}
	}
	buf := make([]byte, size+align-1)
	for i := range buf {
		buf[i] = sentinelByte
	}
	start := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (start + uintptr(align-1)) &^ uintptr(align-1)
	offset := aligned - start
	return buf[offset : offset+uintptr(size) : offset+uintptr(size)]
}

// Allocations returns the per-requirement storage for the given
// concurrent-group slot, in requirement order.
func (a *Arena) Allocations(groupSlot int) [][]byte {
	return a.slots[groupSlot]
}

// Patch invokes each requirement's Bind callback with this group slot's
// storage. The scheduler calls this immediately before every fiber resume
// so that user code, which captured the pointer slots by reference, always
// observes the arena belonging to its fiber's *current* group, even as the
// fiber advances between successive group instances (spec.md §4.2, §4.5).
func (a *Arena) Patch(groupSlot int) {
	allocs := a.slots[groupSlot]
	for i, r := range a.reqs {
		if r.Bind != nil {
			r.Bind(allocs[i])
		}
	}
}

// Reset re-fills a group slot's storage with the sentinel pattern. The
// scheduler calls this when a fiber slot advances to a new group instance,
// so uninitialized-read bugs in the new group's kernel body are not masked
// by the previous group's leftover values.
func (a *Arena) Reset(groupSlot int) {
	for _, mem := range a.slots[groupSlot] {
		for i := range mem {
			mem[i] = sentinelByte
		}
	}
}

// NumRequirements returns the number of local-memory requirements this
// arena was constructed with.
func (a *Arena) NumRequirements() int { return len(a.reqs) }
