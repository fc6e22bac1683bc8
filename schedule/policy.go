// Package schedule implements the pluggable resume-order policy of
// spec.md §4.7: the component that decides, on every sweep of the
// cooperative scheduler, which order live fibers are resumed in.
package schedule

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// Policy is the schedule-policy interface of spec.md §6. Init must
// populate order with a permutation of 0..len(order)-1 and return opaque
// state threaded into the next Update call; Update must preserve the
// permutation property.
//
//go:generate mockgen -write_package_comment=false -package=schedule_test -destination=mock_policy_test.go github.com/celerity-hpc/simsycl/schedule Policy
type Policy interface {
	Init(order []int) State
	Update(state State, order []int) State
}

// State is the opaque, policy-owned counter threaded through Init/Update
// calls (spec.md §3's "Schedule state").
type State any

// RoundRobin preserves SPMD "natural" order: Init fills an identity
// permutation and Update is a no-op, so fibers are always resumed
// 0, 1, 2, ... in the same order every sweep.
type RoundRobin struct{}

// Init fills order with the identity permutation.
func (RoundRobin) Init(order []int) State {
	for i := range order {
		order[i] = i
	}
	return nil
}

// Update is a no-op for RoundRobin: the order never changes.
func (RoundRobin) Update(state State, order []int) State {
	return state
}

// Shuffle is a seeded pseudo-random permutation, re-shuffled on every
// Update call, used to surface schedule-dependent races (spec.md §4.7).
type Shuffle struct {
	Seed int64
}

type shuffleState struct {
	rng *rand.Rand
}

// Init fills order with the identity permutation, then performs the first
// Fisher-Yates shuffle using a freshly seeded source.
func (s Shuffle) Init(order []int) State {
	for i := range order {
		order[i] = i
	}
	st := &shuffleState{rng: rand.New(rand.NewSource(s.Seed))}
	fisherYates(st.rng, order)
	return st
}

// Update re-shuffles order in place using the policy's seeded source,
// so successive sweeps see different, but still seed-reproducible, orders.
func (s Shuffle) Update(state State, order []int) State {
	st, ok := state.(*shuffleState)
	if !ok || st == nil {
		st = &shuffleState{rng: rand.New(rand.NewSource(s.Seed))}
	}
	fisherYates(st.rng, order)
	return st
}

func fisherYates(rng *rand.Rand, order []int) {
	for i := len(order) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
}

// IsPermutation reports whether order is a permutation of 0..len(order)-1,
// the invariant every Policy call must uphold (spec.md §8).
func IsPermutation(order []int) bool {
	seen := make([]bool, len(order))
	for _, v := range order {
		if v < 0 || v >= len(order) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// FromEnv resolves the default schedule policy from SIMSYCL_SCHEDULE,
// formatted as "round_robin" or "shuffle[:seed]" (spec.md §6). An absent
// value selects RoundRobin; an unrecognized value or a malformed seed is
// returned as an error, following the teacher's config.go pattern of
// validating a mode string.
func FromEnv() (Policy, error) {
	return FromString(os.Getenv("SIMSYCL_SCHEDULE"))
}

// FromString parses a policy specification string directly, used by
// FromEnv and by tests that want to exercise parsing without touching the
// process environment.
func FromString(spec string) (Policy, error) {
	if spec == "" {
		return RoundRobin{}, nil
	}
	parts := strings.SplitN(spec, ":", 2)
	switch parts[0] {
	case "round_robin":
		return RoundRobin{}, nil
	case "shuffle":
		seed := int64(0)
		if len(parts) == 2 {
			n, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("schedule: invalid shuffle seed %q: %w", parts[1], err)
			}
			seed = n
		}
		return Shuffle{Seed: seed}, nil
	default:
		return nil, fmt.Errorf("schedule: unrecognized SIMSYCL_SCHEDULE value %q", spec)
	}
}
