package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/pacsim/internal/event"
	"github.com/gyaneshwarpardhi/pacsim/internal/store"
	"github.com/gyaneshwarpardhi/pacsim/internal/store/memory"
)

func dataset(id string, n int) *store.Dataset {
	evs := make([]event.Event, n)
	for i := range evs {
		evs[i] = event.Event{
			ID:        event.FormatID(i + 1),
			Timestamp: time.Date(2024, 7, 1, 9, 0, i, 0, time.UTC),
			EventType: "door_opened",
			DoorID:    "D-1",
			Detail:    event.Door{Details: "Door opened"},
		}
	}
	return &store.Dataset{ID: id, StartDate: "2024-07-01", EndDate: "2024-07-01", TargetCount: n, Events: evs}
}

func TestStore_LoadEmpty(t *testing.T) {
	s := memory.New()
	_, err := s.Load(context.Background())
	require.ErrorIs(t, err, store.ErrNotFound)

	used, err := s.UsedBytes(context.Background())
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.Save(ctx, dataset("first", 10)))
	small, err := s.UsedBytes(ctx)
	require.NoError(t, err)
	assert.Positive(t, small)

	require.NoError(t, s.Save(ctx, dataset("second", 3)))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got.ID)
	assert.Len(t, got.Events, 3)
	assert.Equal(t, event.CategoryDoor, got.Events[0].Category())

	used, err := s.UsedBytes(ctx)
	require.NoError(t, err)
	assert.Less(t, used, small)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Save(ctx, dataset("x", 1)))
	require.NoError(t, s.Clear(ctx))

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)
}
