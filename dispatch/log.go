package dispatch

import (
	"context"
	"log/slog"
)

// LevelSchedule is the structured-logging level used for verbose
// resume-order tracing, one step above diag.LevelDivergence, mirroring
// the teacher's core.LevelTrace/core.LevelWaveform layering.
const LevelSchedule slog.Level = slog.LevelInfo + 2

// EnableScheduleLog gates resume-order tracing so a production dispatch
// pays zero logging overhead by default, matching the teacher's
// EnableWaveformLog toggle in core/util.go.
var EnableScheduleLog = false

func traceSchedule(msg string, args ...any) {
	if !EnableScheduleLog {
		return
	}
	slog.Log(context.Background(), LevelSchedule, msg, args...)
}
