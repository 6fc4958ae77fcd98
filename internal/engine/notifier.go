package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/campushq/lesson-engine/internal/model"
)

// Notifier receives the engine's outward-facing events. Actual dispatch
// (email, push, portal inbox) belongs to an external collaborator.
type Notifier interface {
	CancellationDecided(ctx context.Context, event model.DecisionEvent)
	SweepCompleted(ctx context.Context, report model.SweepReport)
}

// LogNotifier writes events to the structured log. It is the default
// Notifier and a reasonable one for development deployments.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) CancellationDecided(ctx context.Context, event model.DecisionEvent) {
	n.logger.Info("Cancellation decided",
		zap.String("request_id", event.RequestID.String()),
		zap.String("lesson_id", event.LessonID.String()),
		zap.String("student_id", event.StudentID.String()),
		zap.Bool("approved", event.Approved),
		zap.String("decided_by", event.DecidedBy),
	)
}

func (n *LogNotifier) SweepCompleted(ctx context.Context, report model.SweepReport) {
	n.logger.Info("Makeup sweep completed",
		zap.Time("run_at", report.RunAt),
		zap.Int("expired", len(report.Expired)),
		zap.Int("expiring_soon", len(report.ExpiringSoon)),
		zap.Int("skipped", report.Skipped),
	)
}
