// Package diag implements the divergence-diagnostic machinery spec.md §7
// describes: a classification of protocol violations detected by the
// group-operation engine, routed through one of four check modes (none,
// log, throw, abort), and a collector that accumulates them for reporting.
//
// The report renderer is adapted from the teacher's
// verify.VerificationReport.WriteReport banner-and-section text report,
// upgraded to a proper table via the pack's go-pretty dependency.
package diag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/celerity-hpc/simsycl/device"
)

var titleCaser = cases.Title(language.English)

// LevelDivergence is the structured-logging level used when CheckMode is
// device.CheckLog, one step above slog.LevelInfo, mirroring the teacher's
// core.LevelTrace/core.LevelWaveform custom-level pattern.
const LevelDivergence = slog.LevelInfo + 1

// Divergence describes one detected group-operation protocol violation.
type Divergence struct {
	ItemLabel  string // e.g. "item 3 of group 1"
	GroupLabel string
	ExpectedOp string
	ActualOp   string
	Expected   int
	Actual     int
	Reason     string
}

func (d Divergence) String() string {
	return fmt.Sprintf("divergence in %s (%s): expected op %q (%d participants), got %q (%d participants): %s",
		d.GroupLabel, d.ItemLabel, d.ExpectedOp, d.Expected, d.ActualOp, d.Actual, d.Reason)
}

// Error wraps a Divergence so it can be raised as a user-visible exception
// under device.CheckThrow.
type Error struct {
	Divergence Divergence
}

func (e *Error) Error() string { return e.Divergence.String() }

// Collector accumulates divergences observed over the course of one
// dispatch, for later rendering via WriteTable. It is not safe for
// concurrent use, matching this module's single-OS-thread cooperative
// execution model (spec.md §5).
type Collector struct {
	entries []Divergence
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector { return &Collector{} }

// Record appends d and, for CheckLog and CheckThrow/CheckAbort modes that
// continue (log) or need the entry retained for a later report, keeps it
// for WriteTable. Dispatch behavior for throw/abort is driven by Handle,
// not Record; Record is purely bookkeeping.
func (c *Collector) Record(d Divergence) {
	c.entries = append(c.entries, d)
}

// Entries returns all recorded divergences in detection order.
func (c *Collector) Entries() []Divergence {
	return c.entries
}

// Handle applies mode's policy to d: CheckNone records silently, CheckLog
// records and logs to stderr via slog, CheckThrow records and returns an
// *Error for the caller to panic/propagate as a UserError, CheckAbort
// records, logs, and terminates the process.
func (c *Collector) Handle(mode device.CheckMode, d Divergence) error {
	c.Record(d)
	switch mode {
	case device.CheckNone:
		return nil
	case device.CheckLog:
		slog.Log(context.Background(), LevelDivergence, "group operation divergence", "detail", d.String())
		return nil
	case device.CheckThrow:
		return &Error{Divergence: d}
	case device.CheckAbort:
		slog.Log(context.Background(), LevelDivergence, "group operation divergence (aborting)", "detail", d.String())
		os.Exit(1)
		return nil
	default:
		return &Error{Divergence: d}
	}
}

// WriteTable renders all collected divergences as an ASCII table using
// go-pretty, mirroring the teacher's VerificationReport.WriteReport
// section-by-section text report but with a proper tabular renderer.
func (c *Collector) WriteTable(w *strings.Builder) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Group", "Item", "Expected Op", "Expected N", "Actual Op", "Actual N", "Reason"})
	for _, d := range c.entries {
		t.AppendRow(table.Row{
			d.GroupLabel,
			d.ItemLabel,
			titleCaser.String(d.ExpectedOp),
			d.Expected,
			titleCaser.String(d.ActualOp),
			d.Actual,
			d.Reason,
		})
	}
	w.WriteString(t.Render())
	w.WriteString("\n")
}
