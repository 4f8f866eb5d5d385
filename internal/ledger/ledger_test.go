package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func sampleEntry() Entry {
	return Entry{
		Signature:    "sig-1",
		Completed:    true,
		CompletedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		SuccessCount: 2,
		FailureCount: 1,
		CampaignIDs:  []string{"a", "b", "c"},
	}
}

func TestSQLiteLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips an entry", func(t *testing.T) {
		l := openTestLedger(t)
		require.NoError(t, l.Put(ctx, sampleEntry()))

		got, err := l.Get(ctx, "sig-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Completed)
		assert.Equal(t, 2, got.SuccessCount)
		assert.Equal(t, 1, got.FailureCount)
		assert.Equal(t, []string{"a", "b", "c"}, got.CampaignIDs)
		assert.Equal(t, sampleEntry().CompletedAt, got.CompletedAt)
	})

	t.Run("unknown signature returns nil", func(t *testing.T) {
		l := openTestLedger(t)
		got, err := l.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("first completion wins", func(t *testing.T) {
		l := openTestLedger(t)
		require.NoError(t, l.Put(ctx, sampleEntry()))

		second := sampleEntry()
		second.SuccessCount = 99
		require.NoError(t, l.Put(ctx, second))

		got, err := l.Get(ctx, "sig-1")
		require.NoError(t, err)
		assert.Equal(t, 2, got.SuccessCount)
	})

	t.Run("delete clears an entry", func(t *testing.T) {
		l := openTestLedger(t)
		require.NoError(t, l.Put(ctx, sampleEntry()))
		require.NoError(t, l.Delete(ctx, "sig-1"))

		got, err := l.Get(ctx, "sig-1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("appends and reads run events in order", func(t *testing.T) {
		l := openTestLedger(t)
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		for i, msg := range []string{"one", "two", "three"} {
			require.NoError(t, l.AppendEvent(ctx, Event{
				RunID:     "run-1",
				Timestamp: base.Add(time.Duration(i) * time.Second),
				Level:     "info",
				Message:   msg,
			}))
		}
		require.NoError(t, l.AppendEvent(ctx, Event{RunID: "run-2", Timestamp: base, Level: "info", Message: "other"}))

		events, err := l.Events(ctx, "run-1")
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "one", events[0].Message)
		assert.Equal(t, "three", events[2].Message)
	})
}

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("first completion wins", func(t *testing.T) {
		l := NewMemoryLedger()
		require.NoError(t, l.Put(ctx, sampleEntry()))

		second := sampleEntry()
		second.SuccessCount = 99
		require.NoError(t, l.Put(ctx, second))

		got, err := l.Get(ctx, "sig-1")
		require.NoError(t, err)
		assert.Equal(t, 2, got.SuccessCount)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		l := NewMemoryLedger()
		require.NoError(t, l.Put(ctx, sampleEntry()))

		got, err := l.Get(ctx, "sig-1")
		require.NoError(t, err)
		got.SuccessCount = 42

		again, err := l.Get(ctx, "sig-1")
		require.NoError(t, err)
		assert.Equal(t, 2, again.SuccessCount)
	})
}
