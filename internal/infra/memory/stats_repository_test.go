package memory

import (
	"context"
	"testing"

	"timed-quiz-service/internal/domain"
)

func TestStatsRepositoryUpsertsPerTopic(t *testing.T) {
	ctx := context.Background()
	repo := NewStatsRepository()

	if _, ok, _ := repo.Find(ctx, "user123", "Science"); ok {
		t.Fatalf("expected empty repository")
	}

	_ = repo.Save(ctx, domain.TopicStats{Username: "user123", Topic: "Science", Difficulty: "easy"})
	_ = repo.Save(ctx, domain.TopicStats{Username: "user123", Topic: "History", Difficulty: "medium"})
	_ = repo.Save(ctx, domain.TopicStats{Username: "user123", Topic: "Science", Difficulty: "medium"})

	got, ok, err := repo.Find(ctx, "user123", "Science")
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if got.Difficulty != "medium" {
		t.Fatalf("expected overwritten difficulty, got %q", got.Difficulty)
	}

	all, _ := repo.ListByUser(ctx, "user123")
	if len(all) != 2 || all[0].Topic != "History" || all[1].Topic != "Science" {
		t.Fatalf("expected two topics sorted, got %+v", all)
	}
}
