// Package sinks provides progress.Sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/shelfscope/shelfscope/internal/progress"
)

// LogSink reports progress through structured logs. This is the batch's
// primary user-visible status stream.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(ctx context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields := []zap.Field{
			zap.String("stage", string(evt.Stage)),
			zap.Time("ts", evt.TS),
		}
		if evt.TaskID != [16]byte{} {
			fields = append(fields,
				zap.String("task_id", evt.TaskUUID().String()),
				zap.String("category", evt.Category),
				zap.String("location", evt.Location),
			)
		}
		if evt.Step != "" {
			fields = append(fields, zap.String("step", evt.Step), zap.String("outcome", evt.Outcome))
		}
		if evt.Stage == progress.StageTaskDone {
			fields = append(fields,
				zap.Int64("records", evt.Records),
				zap.Int64("scroll_cycles", evt.ScrollCycles),
				zap.Duration("dur", evt.Dur),
			)
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}

		switch evt.Stage {
		case progress.StageTaskError:
			s.logger.Warn("scrape progress", fields...)
		default:
			s.logger.Info("scrape progress", fields...)
		}
	}
	return nil
}

// Close flushes the logger.
func (s *LogSink) Close(_ context.Context) error {
	_ = s.logger.Sync() // best-effort flush
	return nil
}
