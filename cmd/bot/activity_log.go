package main

import (
	"context"
	"sync"
	"time"

	"github.com/benjamonnguyen/clockin-go"
	"github.com/charmbracelet/log"
)

// ActivityLogger appends activity entries without blocking the caller.
type ActivityLogger interface {
	Log(context.Context, clockin.ActivityRecord)
}

type activityLog struct {
	repo clockin.ActivityRepo
	l    log.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewActivityLog(repo clockin.ActivityRepo, logger log.Logger) *activityLog {
	return &activityLog{
		repo: repo,
		l:    logger,
	}
}

func (a *activityLog) Log(ctx context.Context, r clockin.ActivityRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		a.l.Warn("dropped activity after close", "uid", r.UserID, "kind", r.Kind)
		return
	}

	// outlive the request context
	ctx = context.WithoutCancel(ctx)
	a.wg.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, err := a.repo.InsertActivity(ctx, r); err != nil {
			a.l.Error("failed to log activity", "uid", r.UserID, "kind", r.Kind, "err", err)
			return
		}
		a.l.Debug("logged activity", "uid", r.UserID, "kind", r.Kind, "detail", r.Detail)
	})
}

func (a *activityLog) Recent(ctx context.Context, limit int) ([]clockin.ExistingActivityRecord, error) {
	return a.repo.ListActivity(ctx, limit)
}

// Close waits for pending writes or until ctx is done.
func (a *activityLog) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
