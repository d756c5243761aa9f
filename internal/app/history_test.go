package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
)

func ptr(s string) *string { return &s }

type unreadableSlot struct{}

func (unreadableSlot) Load(context.Context) ([]byte, error) { return nil, errors.New("storage disabled") }
func (unreadableSlot) Save(context.Context, []byte) error   { return nil }

func TestHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := app.NewHistoryStore(memory.NewSlot(), nil)

	r := domain.QuizResult{
		ID:             "1740823200000",
		Topic:          ptr("Science"),
		Score:          60,
		Difficulty:     "Easy",
		TotalQuestions: 5,
		TimeSpent:      120,
		Date:           "2025-03-01T10:00:00.000Z",
	}
	require.NoError(t, store.Append(ctx, r))

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, r, all[0])
}

func TestHistorySlotLayout(t *testing.T) {
	ctx := context.Background()
	slot := memory.NewSlot()
	store := app.NewHistoryStore(slot, nil)
	require.NoError(t, store.Append(ctx, domain.QuizResult{ID: "1", Score: 0, Difficulty: "Hard", Date: "2025-03-01T10:00:00.000Z"}))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(slot.Raw(), &raw))
	require.Len(t, raw, 1)
	for _, field := range []string{"id", "topic", "score", "difficulty", "totalQuestions", "timeSpent", "date"} {
		assert.Contains(t, raw[0], field)
	}
	assert.Nil(t, raw[0]["topic"])
}

func TestHistoryToleratesCorruption(t *testing.T) {
	ctx := context.Background()
	for _, content := range []string{"not json", "{}", "null", `"text"`, "42"} {
		t.Run(content, func(t *testing.T) {
			slot := memory.NewSlot()
			slot.Set([]byte(content))
			store := app.NewHistoryStore(slot, nil)

			all, err := store.LoadAll(ctx)
			require.NoError(t, err)
			assert.NotNil(t, all)
			assert.Empty(t, all)

			// appending over corrupt content starts a fresh array
			require.NoError(t, store.Append(ctx, domain.QuizResult{ID: "1"}))
			all, _ = store.LoadAll(ctx)
			assert.Len(t, all, 1)
		})
	}
}

func TestHistoryAbsentSlotIsEmpty(t *testing.T) {
	all, err := app.NewHistoryStore(memory.NewSlot(), nil).LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestHistoryReadFailureIsReportedNotFatal(t *testing.T) {
	store := app.NewHistoryStore(unreadableSlot{}, nil)
	all, err := store.LoadAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Empty(t, all)
}

// flakySlot fails the next failLoads reads and otherwise delegates to a memory slot.
type flakySlot struct {
	*memory.Slot
	failLoads int
	saves     int
}

func (s *flakySlot) Load(ctx context.Context) ([]byte, error) {
	if s.failLoads > 0 {
		s.failLoads--
		return nil, errors.New("connection reset")
	}
	return s.Slot.Load(ctx)
}

func (s *flakySlot) Save(ctx context.Context, data []byte) error {
	s.saves++
	return s.Slot.Save(ctx, data)
}

func TestHistoryAppendKeepsEarlierResultsOnReadFailure(t *testing.T) {
	ctx := context.Background()
	slot := &flakySlot{Slot: memory.NewSlot()}
	store := app.NewHistoryStore(slot, nil)

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, store.Append(ctx, domain.QuizResult{ID: id, Difficulty: "Easy"}))
	}

	slot.failLoads = 1
	err := store.Append(ctx, domain.QuizResult{ID: "4", Difficulty: "Easy"})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 3, slot.saves)

	all, err := store.LoadAll(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	require.NoError(t, store.Append(ctx, domain.QuizResult{ID: "4", Difficulty: "Easy"}))
	all, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestHistoryFilterAndSort(t *testing.T) {
	ctx := context.Background()
	store := app.NewHistoryStore(memory.NewSlot(), nil)
	for _, r := range []domain.QuizResult{
		{ID: "1", Topic: ptr("Science"), Date: "2025-03-01T10:00:00.000Z"},
		{ID: "2", Topic: ptr("History"), Date: "2025-03-03T10:00:00.000Z"},
		{ID: "3", Topic: ptr("Science"), Date: "2025-03-02T10:00:00.000Z"},
		{ID: "4", Topic: nil, Date: "2025-03-04T10:00:00.000Z"},
	} {
		require.NoError(t, store.Append(ctx, r))
	}

	science, err := store.FilterByTopic(ctx, ptr("Science"))
	require.NoError(t, err)
	require.Len(t, science, 2)
	assert.Equal(t, "1", science[0].ID)
	assert.Equal(t, "3", science[1].ID)

	all, _ := store.FilterByTopic(ctx, nil)
	assert.Len(t, all, 4)

	app.SortByDateDesc(all)
	ids := []string{all[0].ID, all[1].ID, all[2].ID, all[3].ID}
	assert.Equal(t, []string{"4", "2", "3", "1"}, ids)
	assert.Equal(t, []string{"History", "Science"}, app.Topics(all))
}
