package dispatch

import "github.com/celerity-hpc/simsycl/diag"

// Result is returned by DispatchND and DispatchSimple once every fiber (or,
// for the simple path, every enumerated id) has run to completion.
type Result struct {
	// Errors holds captured user exceptions in first-caught order
	// (spec.md §7's "rethrown in first-caught order").
	Errors []*UserError

	// Diagnostics accumulates group-operation protocol divergences
	// observed over the course of the dispatch (spec.md §7).
	Diagnostics *diag.Collector

	// AsyncHandler, if set when finish runs, is invoked once with the
	// captured user errors. DispatchND and DispatchSimple create the Result
	// themselves and call finish before returning it, and take no handler
	// argument, so through those entry points the handler is never invoked;
	// a handler assigned to the returned Result is not called.
	AsyncHandler func(errs []error)
}

func newResult() *Result {
	return &Result{Diagnostics: diag.NewCollector()}
}

// finish runs the async handler, if any, over the captured user errors.
func (r *Result) finish() {
	if r.AsyncHandler == nil {
		return
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	r.AsyncHandler(errs)
}
