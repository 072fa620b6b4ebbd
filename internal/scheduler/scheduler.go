// Package scheduler drives the periodic poll of the media server.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Makar-aka/jellysay/internal/model"
	"github.com/Makar-aka/jellysay/internal/notifier"
)

// Source lists and resolves media items on the Jellyfin server.
type Source interface {
	LatestItems(ctx context.Context, libraryIDs []string, limit int) ([]model.MediaItem, error)
	ItemByID(ctx context.Context, id string) (*model.MediaItem, error)
}

// Processor runs one notification cycle over a batch of candidates.
type Processor interface {
	Process(ctx context.Context, items []model.MediaItem) notifier.Report
}

// Libraries exposes the operator's persisted library restriction.
type Libraries interface {
	SelectedLibraries(ctx context.Context) ([]string, error)
}

// Scheduler periodically pulls the latest items and hands them to the
// notification pipeline.
type Scheduler struct {
	source Source
	proc   Processor
	libs   Libraries
	log    *slog.Logger
	tick   time.Duration
	limit  int
}

// New creates a Scheduler with the given poll interval.
func New(source Source, proc Processor, libs Libraries, log *slog.Logger, tick time.Duration) *Scheduler {
	return &Scheduler{
		source: source,
		proc:   proc,
		libs:   libs,
		log:    log,
		tick:   tick,
		limit:  50,
	}
}

// SetTickInterval overrides the poll interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the poll loop, blocking until ctx is cancelled. The interval is
// fixed: a slow cycle delays the next tick but cycles never overlap from
// this driver.
func (s *Scheduler) Run(ctx context.Context) {
	s.CheckNow(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckNow(ctx)
		}
	}
}

// CheckNow runs one poll cycle immediately and returns its report. Also
// invoked by the operator's /check command.
func (s *Scheduler) CheckNow(ctx context.Context) notifier.Report {
	libs, err := s.libs.SelectedLibraries(ctx)
	if err != nil {
		s.log.Error("load selected libraries", "error", err)
		libs = nil
	}

	listed, err := s.source.LatestItems(ctx, libs, s.limit)
	if err != nil {
		s.log.Error("list latest items", "error", err)
		return notifier.Report{}
	}

	// The listing is shallow; refetch each item for full detail fields. A
	// failed refetch keeps the listed record rather than dropping the item.
	items := make([]model.MediaItem, 0, len(listed))
	for _, item := range listed {
		if ctx.Err() != nil {
			return notifier.Report{}
		}
		if item.ID == "" {
			items = append(items, item)
			continue
		}
		detail, err := s.source.ItemByID(ctx, item.ID)
		if err != nil {
			s.log.Warn("item detail fetch failed, using listing", "item_id", item.ID, "error", err)
			items = append(items, item)
			continue
		}
		items = append(items, *detail)
	}

	report := s.proc.Process(ctx, items)
	if report.Sent > 0 {
		s.log.Info("poll cycle complete", "processed", report.Processed, "sent", report.Sent)
	} else {
		s.log.Debug("poll cycle complete", "processed", report.Processed)
	}
	return report
}
