package dispatch_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/celerity-hpc/simsycl/arena"
	"github.com/celerity-hpc/simsycl/coord"
	"github.com/celerity-hpc/simsycl/device"
	"github.com/celerity-hpc/simsycl/dispatch"
	"github.com/celerity-hpc/simsycl/fabric"
	"github.com/celerity-hpc/simsycl/groupop"
	"github.com/celerity-hpc/simsycl/schedule"
)

func mustNDRange(global, local coord.Coord) coord.NDRange {
	nd, err := coord.NewNDRange(global, local, coord.New(make([]uint64, global.Dims())...))
	Expect(err).NotTo(HaveOccurred())
	return nd
}

var _ = Describe("DispatchND", func() {
	It("visits every global linear id in the iteration space exactly once (spec.md scenario 1)", func() {
		caps := device.NewCapsBuilder().Build()
		nd := mustNDRange(coord.New(4, 4), coord.New(2, 2))

		var mu sync.Mutex
		seen := make(map[uint64]int)

		_, err := dispatch.DispatchND(caps, nd, nil, schedule.RoundRobin{}, func(item fabric.NDItem) {
			mu.Lock()
			seen[item.GlobalLinear]++
			mu.Unlock()

			expected := coord.Linear(coord.New(
				item.GroupID.Get(0)*item.LocalRange.Get(0)+item.LocalID.Get(0),
				item.GroupID.Get(1)*item.LocalRange.Get(1)+item.LocalID.Get(1),
			), nd.Global)
			Expect(item.GlobalLinear).To(Equal(expected))
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(seen).To(HaveLen(int(nd.Global.Product())))
		for id := uint64(0); id < nd.Global.Product(); id++ {
			Expect(seen[id]).To(Equal(1))
		}
	})

	It("orders all pre-barrier checkpoints before any post-barrier checkpoint in the same group (spec.md scenario 2)", func() {
		caps := device.NewCapsBuilder().Build()
		nd := mustNDRange(coord.New(4), coord.New(2))

		var mu sync.Mutex
		var aRecords, cRecords []int
		step := 0
		lastA := make(map[uint64]int)
		firstC := make(map[uint64]int)

		_, err := dispatch.DispatchND(caps, nd, nil, schedule.RoundRobin{}, func(item fabric.NDItem) {
			g := item.Group()

			mu.Lock()
			aRecords = append(aRecords, int(item.GlobalLinear))
			step++
			lastA[item.GroupLinear] = step
			mu.Unlock()

			Expect(g.Barrier("work_group")).To(Succeed())

			mu.Lock()
			// checkpoint B omitted; only A and C matter for the ordering law
			mu.Unlock()

			Expect(g.Barrier("work_group")).To(Succeed())

			mu.Lock()
			cRecords = append(cRecords, int(item.GlobalLinear))
			step++
			if _, ok := firstC[item.GroupLinear]; !ok {
				firstC[item.GroupLinear] = step
			}
			mu.Unlock()
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(aRecords).To(HaveLen(4))
		Expect(cRecords).To(HaveLen(4))
		for group, a := range lastA {
			Expect(a).To(BeNumerically("<", firstC[group]))
		}
	})

	It("broadcasts the source lane's value to every lane in its group (spec.md scenario 3)", func() {
		caps := device.NewCapsBuilder().Build()
		nd := mustNDRange(coord.New(8), coord.New(4))

		var mu sync.Mutex
		results := make(map[uint64]int)

		_, err := dispatch.DispatchND(caps, nd, nil, schedule.RoundRobin{}, func(item fabric.NDItem) {
			v, err := fabric.Broadcast(item.Group(), 40+int(item.GlobalLinear), 2)
			Expect(err).NotTo(HaveOccurred())

			mu.Lock()
			results[item.GlobalLinear] = v
			mu.Unlock()
		})
		Expect(err).NotTo(HaveOccurred())

		for id := uint64(0); id < 4; id++ {
			Expect(results[id]).To(Equal(42))
		}
		for id := uint64(4); id < 8; id++ {
			Expect(results[id]).To(Equal(46))
		}
	})

	It("computes exclusive/inclusive scans with plus and max identities (spec.md scenario 4)", func() {
		caps := device.NewCapsBuilder().Build()
		nd := mustNDRange(coord.New(4), coord.New(4))
		values := []int{1, 2, 3, 4}

		var mu sync.Mutex
		exclPlus := make([]int, 4)
		inclPlus := make([]int, 4)
		exclMax := make([]int, 4)

		_, err := dispatch.DispatchND(caps, nd, nil, schedule.RoundRobin{}, func(item fabric.NDItem) {
			lane := int(item.LocalLinear)
			g := item.Group()

			e, err := fabric.ExclusiveScan(g, values[lane], groupop.Plus[int]())
			Expect(err).NotTo(HaveOccurred())
			i, err := fabric.InclusiveScan(g, values[lane], groupop.Plus[int]())
			Expect(err).NotTo(HaveOccurred())
			m, err := fabric.ExclusiveScan(g, values[lane], groupop.Max(-1<<31))
			Expect(err).NotTo(HaveOccurred())

			mu.Lock()
			exclPlus[lane] = e
			inclPlus[lane] = i
			exclMax[lane] = m
			mu.Unlock()
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(exclPlus).To(Equal([]int{0, 1, 3, 6}))
		Expect(inclPlus).To(Equal([]int{1, 3, 6, 10}))
		Expect(exclMax).To(Equal([]int{-1 << 31, 1, 2, 3}))
	})

	It("reuses a bounded fiber pool across more groups than it has slots, without inter-group aliasing (spec.md scenario 5)", func() {
		caps := device.NewCapsBuilder().WithMaxComputeUnits(2).Build()
		nd := mustNDRange(coord.New(256), coord.New(16))

		var local []byte
		req := arena.Requirement{Size: 4, Align: 4, Bind: func(mem []byte) { local = mem }}

		var mu sync.Mutex
		seen := make(map[uint64]bool)
		var observedZero bool
		var aliased bool

		_, err := dispatch.DispatchND(caps, nd, []arena.Requirement{req}, schedule.RoundRobin{}, func(item fabric.NDItem) {
			// Every group instance's arena starts sentinel-filled (0xFF), never
			// leftover from a prior group that shared this fiber's slot; a stray
			// non-0xFF byte here would indicate aliasing between group instances.
			mu.Lock()
			seen[item.GlobalLinear] = true
			if item.LocalLinear == 0 {
				observedZero = true
			}
			if local[0] != 0xFF {
				aliased = true
			}
			mu.Unlock()

			Expect(item.Group().Barrier("work_group")).To(Succeed())
			local[0] = byte(item.GroupLinear)
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(HaveLen(256))
		Expect(observedZero).To(BeTrue())
		Expect(aliased).To(BeFalse())
	})

	It("raises a divergence diagnostic naming the mismatched ops under CheckThrow (spec.md scenario 6)", func() {
		caps := device.NewCapsBuilder().Build()
		nd := mustNDRange(coord.New(4), coord.New(4))

		device.WithCheckMode(device.CheckThrow, func() {
			result, err := dispatch.DispatchND(caps, nd, nil, schedule.RoundRobin{}, func(item fabric.NDItem) {
				g := item.Group()
				lane := int(item.LocalLinear)
				var divergeErr error
				if lane < 2 {
					_, divergeErr = g.AnyOf(true)
				} else {
					_, divergeErr = g.AllOf(true)
				}
				if divergeErr != nil {
					panic(divergeErr)
				}
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Errors).NotTo(BeEmpty())
			Expect(result.Diagnostics.Entries()).NotTo(BeEmpty())

			found := false
			for _, d := range result.Diagnostics.Entries() {
				if d.ExpectedOp != d.ActualOp {
					found = true
				}
			}
			Expect(found).To(BeTrue())
		})
	})

	It("validates nd-range dimensionality and work-group size against device limits", func() {
		caps := device.NewCapsBuilder().WithMaxWorkGroupSize(2).Build()
		nd := mustNDRange(coord.New(4), coord.New(4))

		_, err := dispatch.DispatchND(caps, nd, nil, schedule.RoundRobin{}, func(item fabric.NDItem) {})
		Expect(err).To(HaveOccurred())

		var ndErr *dispatch.NdRangeError
		Expect(err).To(BeAssignableToTypeOf(ndErr))
	})

	It("rejects local-memory requirements exceeding the device limit", func() {
		caps := device.NewCapsBuilder().WithLocalMemSize(8).Build()
		nd := mustNDRange(coord.New(4), coord.New(4))
		reqs := []arena.Requirement{{Size: 1024, Align: 4}}

		_, err := dispatch.DispatchND(caps, nd, reqs, schedule.RoundRobin{}, func(item fabric.NDItem) {})
		Expect(err).To(HaveOccurred())

		var accErr *dispatch.AccessorError
		Expect(err).To(BeAssignableToTypeOf(accErr))
	})
})

var _ = Describe("DispatchSimple", func() {
	It("enumerates every global id exactly once in chunked, policy-permuted order", func() {
		caps := device.NewCapsBuilder().Build()

		var mu sync.Mutex
		seen := make(map[uint64]bool)

		_, err := dispatch.DispatchSimple(caps, coord.New(100), coord.New(0), schedule.Shuffle{Seed: 7}, func(item fabric.Item) {
			mu.Lock()
			seen[item.LinearID()] = true
			mu.Unlock()
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(HaveLen(100))
	})
})
