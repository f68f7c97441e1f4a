// Package delivery sends episode payloads to users and schedules the
// optional auto-deletion of what it sent.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/core/metrics"
	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/transport"
)

const deleteTimeout = 10 * time.Second

// Options configures a Scheduler.
type Options struct {
	// AutoDelete removes delivered messages after this delay; 0 disables it.
	AutoDelete time.Duration
	Deferrer   Deferrer
	Metrics    *metrics.Metrics
}

// Scheduler delivers episodes through an Outbox.
type Scheduler struct {
	out  transport.Outbox
	opts Options
}

// New builds a scheduler. A nil Deferrer falls back to runtime timers.
func New(out transport.Outbox, opts Options) *Scheduler {
	if opts.Deferrer == nil {
		opts.Deferrer = TimerDeferrer{}
	}
	return &Scheduler{out: out, opts: opts}
}

// Deliver sends ep to chatID: the file as media when one is stored,
// otherwise the link as text.
func (s *Scheduler) Deliver(ctx context.Context, chatID int64, story catalog.Story, ep catalog.Episode) (transport.MessageRef, error) {
	caption := Caption(story, ep)
	var (
		ref  transport.MessageRef
		err  error
		kind string
	)
	if ep.FileRef != "" {
		mk := transport.ParseMediaKind(ep.FileType)
		kind = string(mk)
		ref, err = s.out.SendMedia(ctx, chatID, mk, ep.FileRef, caption)
	} else {
		kind = "link"
		ref, err = s.out.SendText(ctx, chatID, caption+"\n"+ep.Link, nil)
	}
	s.opts.Metrics.Delivery(kind, err)
	if err != nil {
		logger.SVCDelivery.ErrorContext(ctx, "episode delivery failed",
			slog.String("event", "delivery.send"),
			slog.String("status", "fail"),
			slog.String("vision_id", story.VisionID),
			slog.String("episode", ep.Bounds().String()),
			logger.Err(err),
		)
		return transport.MessageRef{}, fmt.Errorf("delivery: send %s %s: %w", story.VisionID, ep.Bounds(), err)
	}
	logger.SVCDelivery.InfoContext(ctx, "episode delivered",
		slog.String("event", "delivery.send"),
		slog.String("status", "ok"),
		slog.String("vision_id", story.VisionID),
		slog.String("episode", ep.Bounds().String()),
		slog.String("kind", kind),
	)
	s.scheduleDelete(ctx, ref)
	return ref, nil
}

// scheduleDelete hands ref to the deferrer. Deletion errors are swallowed.
func (s *Scheduler) scheduleDelete(ctx context.Context, ref transport.MessageRef) {
	if s.opts.AutoDelete <= 0 || ref.IsZero() {
		return
	}
	taskID := uuid.NewString()
	base := context.WithoutCancel(ctx)
	logger.SVCDelivery.DebugContext(ctx, "deletion scheduled",
		slog.String("event", "delivery.delete_scheduled"),
		slog.String("task_id", taskID),
		slog.Duration("delay", s.opts.AutoDelete),
	)
	s.opts.Deferrer.After(s.opts.AutoDelete, func() {
		dctx, cancel := context.WithTimeout(base, deleteTimeout)
		defer cancel()
		err := s.out.Delete(dctx, ref)
		s.opts.Metrics.Deletion(err)
		if err != nil {
			logger.SVCDelivery.DebugContext(dctx, "deferred deletion failed",
				slog.String("event", "delivery.delete"),
				slog.String("status", "fail"),
				slog.String("task_id", taskID),
				logger.Err(err),
			)
		}
	})
}

// Caption is the stored caption, or "<vid> - <title> · Ep<n>".
func Caption(story catalog.Story, ep catalog.Episode) string {
	if ep.Caption != "" {
		return ep.Caption
	}
	return fmt.Sprintf("%s - %s · %s", story.VisionID, story.Title, ep.Bounds())
}
