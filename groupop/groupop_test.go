package groupop_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/celerity-hpc/simsycl/device"
	"github.com/celerity-hpc/simsycl/diag"
	"github.com/celerity-hpc/simsycl/fiber"
	"github.com/celerity-hpc/simsycl/groupop"
)

// runLockstep drives n fibers to completion in strict round-robin order,
// the simplest possible schedule policy. A panic inside a fiber is
// re-raised by Resume and fails the calling spec.
func runLockstep(n int, body func(laneIndex int, f *fiber.Fiber)) {
	fibers := make([]*fiber.Fiber, n)
	for i := 0; i < n; i++ {
		idx := i
		fibers[i] = fiber.Spawn(func(self *fiber.Fiber) {
			body(idx, self)
		})
	}
	remaining := n
	for remaining > 0 {
		remaining = 0
		for _, f := range fibers {
			if !f.Terminated() {
				Expect(f.Resume()).To(Succeed())
				if !f.Terminated() {
					remaining++
				}
			}
		}
	}
}

var _ = Describe("Perform", func() {
	var (
		ops       *groupop.Ops
		collector *diag.Collector
	)

	BeforeEach(func() {
		collector = diag.NewCollector()
	})

	Context("Broadcast", func() {
		It("delivers the source lane's value to every lane", func() {
			const n = 4
			ops = groupop.NewOps(n)
			results := make([]int, n)

			runLockstep(n, func(lane int, f *fiber.Fiber) {
				counter := &groupop.Counter{}
				args := groupop.NewCallArgs(f, ops, counter, collector, device.CheckThrow, fmt.Sprintf("item %d", lane), "group 0")
				v, err := groupop.Broadcast(args, lane, 2, lane*10)
				Expect(err).NotTo(HaveOccurred())
				results[lane] = v
			})

			for _, r := range results {
				Expect(r).To(Equal(20))
			}
		})
	})

	Context("Reduce", func() {
		It("folds every lane's contribution with the given operator", func() {
			const n = 5
			ops = groupop.NewOps(n)
			results := make([]int, n)

			runLockstep(n, func(lane int, f *fiber.Fiber) {
				counter := &groupop.Counter{}
				args := groupop.NewCallArgs(f, ops, counter, collector, device.CheckThrow, fmt.Sprintf("item %d", lane), "group 0")
				v, err := groupop.Reduce(args, lane, lane+1, groupop.Plus[int]())
				Expect(err).NotTo(HaveOccurred())
				results[lane] = v
			})

			for _, r := range results {
				Expect(r).To(Equal(1 + 2 + 3 + 4 + 5))
			}
		})
	})

	Context("ExclusiveScan and InclusiveScan", func() {
		It("satisfies inclusive(i) == exclusive(i) + value(i)", func() {
			const n = 4
			ops = groupop.NewOps(n)
			excl := make([]int, n)
			incl := make([]int, n)
			values := []int{3, 1, 4, 1}

			runLockstep(n, func(lane int, f *fiber.Fiber) {
				counter := &groupop.Counter{}
				args := groupop.NewCallArgs(f, ops, counter, collector, device.CheckThrow, fmt.Sprintf("item %d", lane), "group 0")
				e, err := groupop.ExclusiveScan(args, lane, values[lane], groupop.Plus[int]())
				Expect(err).NotTo(HaveOccurred())
				excl[lane] = e

				i, err := groupop.InclusiveScan(args, lane, values[lane], groupop.Plus[int]())
				Expect(err).NotTo(HaveOccurred())
				incl[lane] = i
			})

			for i := range values {
				Expect(incl[i]).To(Equal(excl[i] + values[i]))
			}
			Expect(excl[0]).To(Equal(0))
			Expect(incl[n-1]).To(Equal(3 + 1 + 4 + 1))
		})
	})

	Context("ShiftLeft and PermuteByXor", func() {
		It("returns the Unspecified sentinel for an out-of-range target lane", func() {
			const n = 4
			ops = groupop.NewOps(n)
			results := make([]int, n)

			runLockstep(n, func(lane int, f *fiber.Fiber) {
				counter := &groupop.Counter{}
				args := groupop.NewCallArgs(f, ops, counter, collector, device.CheckThrow, fmt.Sprintf("item %d", lane), "group 0")
				v, err := groupop.ShiftLeft(args, lane, lane, 1)
				Expect(err).NotTo(HaveOccurred())
				results[lane] = v
			})

			for i := 0; i < n-1; i++ {
				Expect(results[i]).To(Equal(i + 1))
			}
			Expect(results[n-1]).To(Equal(groupop.Unspecified[int]()))
		})

		It("permutes lane values symmetrically under xor", func() {
			const n = 4
			ops = groupop.NewOps(n)
			results := make([]int, n)

			runLockstep(n, func(lane int, f *fiber.Fiber) {
				counter := &groupop.Counter{}
				args := groupop.NewCallArgs(f, ops, counter, collector, device.CheckThrow, fmt.Sprintf("item %d", lane), "group 0")
				v, err := groupop.PermuteByXor(args, lane, lane, 1)
				Expect(err).NotTo(HaveOccurred())
				results[lane] = v
			})

			Expect(results[0]).To(Equal(1))
			Expect(results[1]).To(Equal(0))
			Expect(results[2]).To(Equal(3))
			Expect(results[3]).To(Equal(2))
		})
	})

	Context("AnyOf/AllOf/NoneOf", func() {
		It("aggregates per-lane predicates", func() {
			const n = 4
			ops = groupop.NewOps(n)
			preds := []bool{false, false, true, false}
			var anyResult, allResult, noneResult bool

			runLockstep(n, func(lane int, f *fiber.Fiber) {
				counter := &groupop.Counter{}
				args := groupop.NewCallArgs(f, ops, counter, collector, device.CheckThrow, fmt.Sprintf("item %d", lane), "group 0")

				a, err := groupop.AnyOf(args, lane, preds[lane])
				Expect(err).NotTo(HaveOccurred())
				anyResult = a

				all, err := groupop.AllOf(args, lane, preds[lane])
				Expect(err).NotTo(HaveOccurred())
				allResult = all

				none, err := groupop.NoneOf(args, lane, preds[lane])
				Expect(err).NotTo(HaveOccurred())
				noneResult = none
			})

			Expect(anyResult).To(BeTrue())
			Expect(allResult).To(BeFalse())
			Expect(noneResult).To(BeFalse())
		})
	})

	Context("JointReduce", func() {
		It("folds a shared range identically passed by every participant", func() {
			const n = 3
			ops = groupop.NewOps(n)
			data := []int{1, 2, 3, 4, 5}
			results := make([]int, n)

			runLockstep(n, func(lane int, f *fiber.Fiber) {
				counter := &groupop.Counter{}
				args := groupop.NewCallArgs(f, ops, counter, collector, device.CheckThrow, fmt.Sprintf("item %d", lane), "group 0")
				v, err := groupop.JointReduce(args, "range-0", data, groupop.Plus[int]())
				Expect(err).NotTo(HaveOccurred())
				results[lane] = v
			})

			for _, r := range results {
				Expect(r).To(Equal(15))
			}
		})
	})

	Context("Barrier", func() {
		It("rendezvouses without producing a per-item result", func() {
			const n = 3
			ops = groupop.NewOps(n)
			order := make(chan int, n)

			runLockstep(n, func(lane int, f *fiber.Fiber) {
				counter := &groupop.Counter{}
				args := groupop.NewCallArgs(f, ops, counter, collector, device.CheckThrow, fmt.Sprintf("item %d", lane), "group 0")
				Expect(groupop.Barrier(args, "fence")).To(Succeed())
				order <- lane
			})

			close(order)
			count := 0
			for range order {
				count++
			}
			Expect(count).To(Equal(n))
		})
	})

	Context("divergence detection", func() {
		It("reports a mismatched participant calling a different op on the same slot", func() {
			const n = 2
			ops = groupop.NewOps(n)

			runLockstep(n, func(lane int, f *fiber.Fiber) {
				counter := &groupop.Counter{}
				args := groupop.NewCallArgs(f, ops, counter, collector, device.CheckLog, fmt.Sprintf("item %d", lane), "group 0")
				if lane == 0 {
					_, _ = groupop.Broadcast(args, lane, 0, 42)
				} else {
					_ = groupop.Barrier(args, "fence")
				}
			})

			Expect(collector.Entries()).To(HaveLen(1))
			Expect(collector.Entries()[0].ExpectedOp).To(Equal("broadcast"))
			Expect(collector.Entries()[0].ActualOp).To(Equal("barrier"))
		})

		It("returns a *diag.Error under CheckThrow", func() {
			const n = 2
			ops = groupop.NewOps(n)
			errs := make([]error, n)

			runLockstep(n, func(lane int, f *fiber.Fiber) {
				counter := &groupop.Counter{}
				args := groupop.NewCallArgs(f, ops, counter, collector, device.CheckThrow, fmt.Sprintf("item %d", lane), "group 0")
				if lane == 0 {
					_, err := groupop.Broadcast(args, lane, 0, 42)
					errs[lane] = err
				} else {
					errs[lane] = groupop.Barrier(args, "fence")
				}
			})

			var diagErr *diag.Error
			found := false
			for _, e := range errs {
				if e != nil {
					found = true
					Expect(e).To(BeAssignableToTypeOf(diagErr))
				}
			}
			Expect(found).To(BeTrue())
		})
	})
})
