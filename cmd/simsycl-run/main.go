// Command simsycl-run drives a toy nd-range reduction kernel through the
// cooperative execution engine and prints a divergence report, mirroring
// every samples/*/main.go in the teacher: build a device, submit work,
// collect and print the result.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tebeka/atexit"

	"github.com/celerity-hpc/simsycl/coord"
	"github.com/celerity-hpc/simsycl/device"
	"github.com/celerity-hpc/simsycl/dispatch"
	"github.com/celerity-hpc/simsycl/fabric"
	"github.com/celerity-hpc/simsycl/groupop"
	"github.com/celerity-hpc/simsycl/schedule"
)

func main() {
	caps, err := device.FromEnv()
	if err != nil {
		slog.Error("loading device configuration", "err", err)
		atexit.Exit(1)
		return
	}

	policy, err := schedule.FromEnv()
	if err != nil {
		slog.Error("parsing SIMSYCL_SCHEDULE", "err", err)
		atexit.Exit(1)
		return
	}

	var report strings.Builder
	atexit.Register(func() {
		if report.Len() > 0 {
			fmt.Fprintln(os.Stderr, report.String())
		}
	})

	result, err := reduceDemo(caps, policy)
	if err != nil {
		slog.Error("dispatch failed", "err", err)
		atexit.Exit(1)
		return
	}
	result.Diagnostics.WriteTable(&report)

	for _, e := range result.Errors {
		fmt.Fprintln(os.Stderr, e)
	}

	atexit.Exit(0)
}

// reduceDemo dispatches an nd_range(global=64, local=16) kernel that sums
// each work-group's lane indices with reduce_over_group, printing nothing
// itself — the interesting output is the divergence report, a table that
// has a header and no rows on a clean run and demonstrates the diagnostic
// pipeline otherwise.
func reduceDemo(caps device.Caps, policy schedule.Policy) (*dispatch.Result, error) {
	nd, err := coord.NewNDRange(coord.New(64), coord.New(16), coord.New(0))
	if err != nil {
		return nil, err
	}

	return dispatch.DispatchND(caps, nd, nil, policy, func(item fabric.NDItem) {
		g := item.Group()
		_, _ = fabric.Reduce(g, int(item.LocalLinear), groupop.Plus[int]())
	})
}
