package notify

import (
	"context"
	"log/slog"
)

// LogSink writes notifications to a structured logger.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.Severity == SeverityError {
		level = slog.LevelWarn
	}
	s.log.Log(ctx, level, "user notification",
		"notification_id", n.ID,
		"op", n.Op,
		"product_id", n.ProductID,
		"message", n.Message,
	)
}
