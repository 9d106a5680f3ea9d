package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/openpodium/podium/internal/debate/domain"
	"github.com/openpodium/podium/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSession(t *testing.T, id string, createdAt time.Time) domain.Session {
	t.Helper()
	next := 0
	session, err := domain.CreateSession(domain.CreateSessionInput{Title: "round " + id}, func() time.Time { return createdAt }, func() (string, error) {
		next++
		if next == 1 {
			return id, nil
		}
		return fmt.Sprintf("%s-sp%d", id, next), nil
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func TestStoreRoundTripsFullSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createdAt := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

	session := testSession(t, "s1", createdAt)
	session.Motion = "This house would ban targeted advertising"
	session.MotionContext = &domain.MotionContext{
		Language:   "en",
		Criteria:   []string{"harm analysis", "feasibility", "principled clash"},
		Background: "Regulatory context.",
	}
	session.Phase = domain.PhaseResults
	session.PrepSecondsLeft = 0
	session.Speakers[0].Completed = true
	session.Speakers[0].Score = 18.5
	session.Speakers[0].Transcription = "Opening speech."
	session.Speakers[0].Feedback = "Clear framing."
	session.FinalRankings = []domain.TeamResult{
		{Team: domain.TeamOpeningGovernment, Rank: 1, TotalScore: 18.5, Reasoning: "strongest case"},
		{Team: domain.TeamOpeningOpposition, Rank: 2},
		{Team: domain.TeamClosingGovernment, Rank: 3},
		{Team: domain.TeamClosingOpposition, Rank: 4},
	}
	session.Adjudication = "OG carried the debate."

	if err := store.PutSession(ctx, session); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.CreatedAt.Equal(createdAt) {
		t.Fatalf("created at = %v, want %v", got.CreatedAt, createdAt)
	}
	if got.Phase != domain.PhaseResults {
		t.Fatalf("phase = %s, want %s", got.Phase, domain.PhaseResults)
	}
	if got.MotionContext == nil || len(got.MotionContext.Criteria) != 3 {
		t.Fatalf("motion context = %+v", got.MotionContext)
	}
	if len(got.Speakers) != 8 || got.Speakers[0].Score != 18.5 {
		t.Fatalf("speakers = %+v", got.Speakers[0])
	}
	if len(got.FinalRankings) != 4 || got.FinalRankings[0].Reasoning != "strongest case" {
		t.Fatalf("rankings = %+v", got.FinalRankings)
	}
	if got.Adjudication != "OG carried the debate." {
		t.Fatalf("adjudication = %q", got.Adjudication)
	}
}

func TestStorePutSessionUpserts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	session := testSession(t, "s1", time.Now())

	if err := store.PutSession(ctx, session); err != nil {
		t.Fatalf("put: %v", err)
	}
	session.Phase = domain.PhaseDebate
	session.PrepSecondsLeft = 0
	if err := store.PutSession(ctx, session); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Phase != domain.PhaseDebate {
		t.Fatalf("phase = %s, want %s", got.Phase, domain.PhaseDebate)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("len = %d, want 1", len(sessions))
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetSession(context.Background(), "missing"); err != storage.ErrNotFound {
		t.Fatalf("err = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestStoreListOrdersByCreation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"late", "early", "middle"} {
		session := testSession(t, id, base.Add(time.Duration(2-i)*time.Hour))
		if err := store.PutSession(ctx, session); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"early", "middle", "late"}
	for i, id := range want {
		if sessions[i].ID != id {
			t.Fatalf("sessions[%d] = %s, want %s", i, sessions[i].ID, id)
		}
	}
}

func TestStoreDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	session := testSession(t, "s1", time.Now())
	if err := store.PutSession(ctx, session); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := store.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteSession(ctx, "s1"); err != storage.ErrNotFound {
		t.Fatalf("second delete err = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestStoreOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
