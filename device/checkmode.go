package device

import "os"

// CheckMode controls how the group-operation engine reacts to a detected
// protocol violation (spec.md §7): divergent op id, mismatched participant
// count, mismatched op-specific parameters, or re-entering a frozen op.
type CheckMode int

const (
	// CheckNone ignores the violation entirely; the record is still marked
	// invalid for test inspection, but no diagnostic is emitted and no
	// exception is raised.
	CheckNone CheckMode = iota
	// CheckLog writes a diagnostic to stderr and continues.
	CheckLog
	// CheckThrow raises a user-visible error at the offending item.
	CheckThrow
	// CheckAbort terminates the simulator process.
	CheckAbort
)

func (m CheckMode) String() string {
	switch m {
	case CheckNone:
		return "none"
	case CheckLog:
		return "log"
	case CheckThrow:
		return "throw"
	case CheckAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// defaultCheckMode is the build-time default check mode, overridable via
// SIMSYCL_CHECK_MODE for development builds.
var defaultCheckMode = CheckThrow

func init() {
	switch os.Getenv("SIMSYCL_CHECK_MODE") {
	case "none":
		defaultCheckMode = CheckNone
	case "log":
		defaultCheckMode = CheckLog
	case "abort":
		defaultCheckMode = CheckAbort
	case "throw", "":
		// keep default
	}
	activeCheckMode = defaultCheckMode
}

// activeCheckMode is mutated only by the single cooperative-scheduler
// goroutine (or, in tests, by the single goroutine running the test body),
// never concurrently — matching spec.md §9's "avoid hidden singletons,
// prefer explicit context with thread-local overrides for tests" guidance
// applied to Go's single-threaded cooperative model.
var activeCheckMode = defaultCheckMode

// ActiveCheckMode returns the check mode currently in effect.
func ActiveCheckMode() CheckMode {
	return activeCheckMode
}

// WithCheckMode runs fn with the active check mode temporarily overridden,
// restoring the previous mode afterward. This is the "thread-local scope
// guard" spec.md §7 calls for, used by tests that assert on specific
// divergence diagnostics without mutating global defaults permanently.
func WithCheckMode(mode CheckMode, fn func()) {
	prev := activeCheckMode
	activeCheckMode = mode
	defer func() { activeCheckMode = prev }()
	fn()
}
