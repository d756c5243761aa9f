package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"timed-quiz-service/internal/domain"
)

// Slot is a single named durable value scoped to one client (browser storage,
// a Redis key, a map entry). Load returns nil, nil when the slot is absent.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// HistoryStore is the append-only list of completed quiz results kept in a Slot
// as a JSON array.
type HistoryStore struct {
	slot Slot
	log  *slog.Logger
	mu   sync.Mutex
}

func NewHistoryStore(slot Slot, log *slog.Logger) *HistoryStore {
	if log == nil {
		log = slog.Default()
	}
	return &HistoryStore{slot: slot, log: log.With("component", "history")}
}

// Append adds result at the end of the history. A read or write failure is
// returned wrapped in domain.ErrPersistence for reporting; callers must not
// abort their flow on it.
func (h *HistoryStore) Append(ctx context.Context, result domain.QuizResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Corrupt content reads as empty and is replaced; an unreadable slot is
	// left untouched so earlier results survive.
	history, err := h.read(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "history read failed, result not saved", "error", err, "result_id", result.ID)
		return err
	}
	history = append(history, result)

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrPersistence, err)
	}
	if err := h.slot.Save(ctx, data); err != nil {
		h.log.ErrorContext(ctx, "history write failed", "error", err, "result_id", result.ID)
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	h.log.DebugContext(ctx, "quiz result saved", "result_id", result.ID, "entries", len(history))
	return nil
}

// LoadAll returns every stored result in insertion order. Corrupt or non-array
// content yields an empty history with no error; a slot read failure yields an
// empty history together with the error, to be shown as a notice.
func (h *HistoryStore) LoadAll(ctx context.Context) ([]domain.QuizResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	history, err := h.read(ctx)
	if err != nil {
		return []domain.QuizResult{}, err
	}
	return history, nil
}

// FilterByTopic returns the results for topic, or all results when topic is nil.
func (h *HistoryStore) FilterByTopic(ctx context.Context, topic *string) ([]domain.QuizResult, error) {
	all, err := h.LoadAll(ctx)
	if topic == nil {
		return all, err
	}
	out := make([]domain.QuizResult, 0, len(all))
	for _, r := range all {
		if r.Topic != nil && *r.Topic == *topic {
			out = append(out, r)
		}
	}
	return out, err
}

func (h *HistoryStore) read(ctx context.Context) ([]domain.QuizResult, error) {
	raw, err := h.slot.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if len(raw) == 0 {
		return []domain.QuizResult{}, nil
	}
	var history []domain.QuizResult
	if err := json.Unmarshal(raw, &history); err != nil {
		h.log.WarnContext(ctx, "invalid history data found, resetting", "error", err)
		return []domain.QuizResult{}, nil
	}
	if history == nil {
		// a JSON null decodes without error
		return []domain.QuizResult{}, nil
	}
	return history, nil
}

// SortByDateDesc orders results newest first. Unparseable dates sort last.
func SortByDateDesc(results []domain.QuizResult) {
	parse := func(s string) time.Time {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	sort.SliceStable(results, func(i, j int) bool {
		return parse(results[i].Date).After(parse(results[j].Date))
	})
}

// Topics lists the distinct topics present in results, in first-seen order.
func Topics(results []domain.QuizResult) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range results {
		if r.Topic == nil {
			continue
		}
		if _, ok := seen[*r.Topic]; ok {
			continue
		}
		seen[*r.Topic] = struct{}{}
		out = append(out, *r.Topic)
	}
	return out
}
