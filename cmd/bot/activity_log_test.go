package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamonnguyen/clockin-go"
)

// mockActivityRepo is a mock implementation of clockin.ActivityRepo
type mockActivityRepo struct {
	insertActivityFunc func(context.Context, clockin.ActivityRecord) (clockin.ExistingActivityRecord, error)
	listActivityFunc   func(context.Context, int) ([]clockin.ExistingActivityRecord, error)
}

func (m *mockActivityRepo) InsertActivity(ctx context.Context, r clockin.ActivityRecord) (clockin.ExistingActivityRecord, error) {
	return m.insertActivityFunc(ctx, r)
}

func (m *mockActivityRepo) ListActivity(ctx context.Context, limit int) ([]clockin.ExistingActivityRecord, error) {
	return m.listActivityFunc(ctx, limit)
}

func TestActivityLog(t *testing.T) {
	t.Parallel()

	t.Run("writes in background", func(t *testing.T) {
		t.Parallel()
		var mu sync.Mutex
		var inserted []clockin.ActivityRecord
		release := make(chan struct{})
		repo := &mockActivityRepo{
			insertActivityFunc: func(ctx context.Context, r clockin.ActivityRecord) (clockin.ExistingActivityRecord, error) {
				<-release
				assert.NoError(t, ctx.Err())
				mu.Lock()
				inserted = append(inserted, r)
				mu.Unlock()
				return clockin.ExistingActivityRecord{ActivityRecord: r}, nil
			},
		}
		a := NewActivityLog(repo, *log.Default())

		// a cancelled request must not drop the entry
		ctx, cancel := context.WithCancel(context.Background())
		a.Log(ctx, clockin.ActivityRecord{UserID: "42", Kind: clockin.ActivityStartWork})
		a.Log(ctx, clockin.ActivityRecord{UserID: "42", Kind: clockin.ActivityOffWork})
		cancel()
		close(release)

		require.NoError(t, a.Close(context.Background()))
		mu.Lock()
		assert.Len(t, inserted, 2)
		mu.Unlock()

		// closed log drops new entries
		a.Log(context.Background(), clockin.ActivityRecord{UserID: "42", Kind: clockin.ActivityStartWork})
		mu.Lock()
		assert.Len(t, inserted, 2)
		mu.Unlock()
	})

	t.Run("insert failure is dropped", func(t *testing.T) {
		t.Parallel()
		repo := &mockActivityRepo{
			insertActivityFunc: func(context.Context, clockin.ActivityRecord) (clockin.ExistingActivityRecord, error) {
				return clockin.ExistingActivityRecord{}, errors.New("disk full")
			},
		}
		a := NewActivityLog(repo, *log.Default())
		a.Log(context.Background(), clockin.ActivityRecord{UserID: "42"})
		assert.NoError(t, a.Close(context.Background()))
	})

	t.Run("close times out", func(t *testing.T) {
		t.Parallel()
		block := make(chan struct{})
		t.Cleanup(func() { close(block) })
		repo := &mockActivityRepo{
			insertActivityFunc: func(context.Context, clockin.ActivityRecord) (clockin.ExistingActivityRecord, error) {
				<-block
				return clockin.ExistingActivityRecord{}, nil
			},
		}
		a := NewActivityLog(repo, *log.Default())
		a.Log(context.Background(), clockin.ActivityRecord{UserID: "42"})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, a.Close(ctx), context.DeadlineExceeded)
	})

	t.Run("recent", func(t *testing.T) {
		t.Parallel()
		repo := &mockActivityRepo{
			listActivityFunc: func(_ context.Context, limit int) ([]clockin.ExistingActivityRecord, error) {
				assert.Equal(t, 500, limit)
				return []clockin.ExistingActivityRecord{{ActivityRecord: clockin.ActivityRecord{UserID: "42"}}}, nil
			},
		}
		got, err := NewActivityLog(repo, *log.Default()).Recent(context.Background(), 500)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}
