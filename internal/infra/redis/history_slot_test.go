package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

func TestHistorySlotRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	slots := NewHistorySlots(newClient(mr), time.Hour)
	store := app.NewHistoryStore(slots.Slot("client-1"), nil)
	ctx := context.Background()

	empty, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	topic := "Science"
	r := domain.QuizResult{ID: "1", Topic: &topic, Score: 80, Difficulty: "Hard", TotalQuestions: 5, TimeSpent: 42, Date: "2025-03-01T10:00:00.000Z"}
	require.NoError(t, store.Append(ctx, r))

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, r, all[0])
	assert.True(t, mr.Exists("quiz:history:client-1"))
	assert.Equal(t, time.Hour, mr.TTL("quiz:history:client-1"))

	// other clients stay isolated
	other, _ := app.NewHistoryStore(slots.Slot("client-2"), nil).LoadAll(ctx)
	assert.Empty(t, other)
}

func TestHistorySlotCorruptValue(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	require.NoError(t, mr.Set("quiz:history:client-1", "not json"))
	store := app.NewHistoryStore(NewHistorySlots(newClient(mr), 0).Slot("client-1"), nil)

	all, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestHistorySlotUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := newClient(mr)
	mr.Close()

	store := app.NewHistoryStore(NewHistorySlots(client, 0).Slot("client-1"), nil)
	all, err := store.LoadAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Empty(t, all)
	assert.ErrorIs(t, store.Append(context.Background(), domain.QuizResult{ID: "1"}), domain.ErrPersistence)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
}
