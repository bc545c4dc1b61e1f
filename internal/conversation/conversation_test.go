package conversation_test

import (
	"fmt"
	"testing"

	"github.com/diyorbek/relaybot/internal/conversation"
)

func TestContextForUnknownUserIsEmpty(t *testing.T) {
	t.Parallel()

	s := conversation.NewStore(20)

	turns := s.ContextFor(123)
	if len(turns) != 0 {
		t.Errorf("ContextFor(unknown) returned %d turns, want 0", len(turns))
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	t.Parallel()

	s := conversation.NewStore(20)
	const user = int64(1)

	s.AppendUserTurn(user, "hello")
	s.AppendAssistantTurn(user, "hi there")
	s.AppendUserTurn(user, "how are you?")

	turns := s.ContextFor(user)
	want := []conversation.Turn{
		{Role: conversation.RoleUser, Content: "hello"},
		{Role: conversation.RoleAssistant, Content: "hi there"},
		{Role: conversation.RoleUser, Content: "how are you?"},
	}

	if len(turns) != len(want) {
		t.Fatalf("got %d turns, want %d", len(turns), len(want))
	}
	for i := range want {
		if turns[i] != want[i] {
			t.Errorf("turn %d = %+v, want %+v", i, turns[i], want[i])
		}
	}
}

func TestWindowSlidesDroppingOldest(t *testing.T) {
	t.Parallel()

	s := conversation.NewStore(20)
	const user = int64(1)

	for i := 1; i <= 21; i++ {
		s.AppendUserTurn(user, fmt.Sprintf("turn %d", i))
	}

	turns := s.ContextFor(user)
	if len(turns) != 20 {
		t.Fatalf("transcript length = %d, want 20", len(turns))
	}
	if turns[0].Content != "turn 2" {
		t.Errorf("first turn = %q, want %q", turns[0].Content, "turn 2")
	}
	if turns[19].Content != "turn 21" {
		t.Errorf("last turn = %q, want %q", turns[19].Content, "turn 21")
	}
}

func TestClearEmptiesTranscript(t *testing.T) {
	t.Parallel()

	s := conversation.NewStore(20)
	const user = int64(1)

	s.AppendUserTurn(user, "hello")
	s.AppendAssistantTurn(user, "hi")
	s.Clear(user)

	if turns := s.ContextFor(user); len(turns) != 0 {
		t.Errorf("ContextFor after Clear returned %d turns, want 0", len(turns))
	}
}

func TestClearOnlyAffectsOneUser(t *testing.T) {
	t.Parallel()

	s := conversation.NewStore(20)

	s.AppendUserTurn(1, "a")
	s.AppendUserTurn(2, "b")
	s.Clear(1)

	if turns := s.ContextFor(2); len(turns) != 1 {
		t.Errorf("other user's transcript length = %d, want 1", len(turns))
	}
}

func TestContextForReturnsSnapshot(t *testing.T) {
	t.Parallel()

	s := conversation.NewStore(20)
	const user = int64(1)

	s.AppendUserTurn(user, "original")

	snapshot := s.ContextFor(user)
	snapshot[0].Content = "mutated"

	if got := s.ContextFor(user)[0].Content; got != "original" {
		t.Errorf("store content = %q after snapshot mutation, want %q", got, "original")
	}
}
