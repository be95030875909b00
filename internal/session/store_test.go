package session

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

func TestHistoryUnknownSessionIsEmpty(t *testing.T) {
	store, err := OpenMemory(10)
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer store.Close()

	turns, err := store.History(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("unknown session has %d turns, want 0", len(turns))
	}
}

func TestAppendAndHistoryOrder(t *testing.T) {
	ctx := context.Background()
	store, err := OpenMemory(10)
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer store.Close()

	if err := store.Append(ctx, "s1", Turn{Role: RoleUser, Content: "Where did you work?"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, "s1", Turn{Role: RoleAssistant, Content: "I worked at Acme."}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, "s1", Turn{Role: RoleUser, Content: "For how long?"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	turns, err := store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}
	wantRoles := []string{RoleUser, RoleAssistant, RoleUser}
	for i, want := range wantRoles {
		if turns[i].Role != want {
			t.Errorf("turn %d role = %q, want %q", i, turns[i].Role, want)
		}
	}
	if turns[2].Content != "For how long?" {
		t.Errorf("last turn = %q", turns[2].Content)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store, err := OpenMemory(10)
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer store.Close()

	if err := store.Append(ctx, "a", Turn{Role: RoleUser, Content: "question in a"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, "b", Turn{Role: RoleUser, Content: "question in b"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	turns, err := store.History(ctx, "a")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "question in a" {
		t.Errorf("session a history = %+v", turns)
	}
}

func TestAppendEvictsOldestBeyondLimit(t *testing.T) {
	ctx := context.Background()
	const maxTurns = 4
	store, err := OpenMemory(maxTurns)
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer store.Close()

	for i := 0; i < maxTurns+3; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if err := store.Append(ctx, "s", Turn{Role: role, Content: fmt.Sprintf("turn %d", i)}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	turns, err := store.History(ctx, "s")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(turns) != maxTurns {
		t.Fatalf("got %d turns, want %d", len(turns), maxTurns)
	}
	// The oldest turns are gone; the newest survive in order.
	for i, turn := range turns {
		want := fmt.Sprintf("turn %d", i+3)
		if turn.Content != want {
			t.Errorf("turn %d = %q, want %q", i, turn.Content, want)
		}
	}
}

func TestAppendRejectsUnknownRole(t *testing.T) {
	store, err := OpenMemory(10)
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer store.Close()

	if err := store.Append(context.Background(), "s", Turn{Role: "system", Content: "nope"}); err == nil {
		t.Error("expected error for non-conversation role")
	}
}

func TestOpenPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := Open(path, 10)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Append(ctx, "s", Turn{Role: RoleUser, Content: "persisted?"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	store.Close()

	reopened, err := Open(path, 10)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	turns, err := reopened.History(ctx, "s")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "persisted?" {
		t.Errorf("history after reopen = %+v", turns)
	}
}
