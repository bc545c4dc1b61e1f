// Package conversation maintains a bounded, ordered transcript per user.
// The transcript is the sole memory of prior exchanges; it is not persisted
// beyond the process lifetime.
package conversation

import "sync"

// Role tags who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a transcript.
type Turn struct {
	Role    Role
	Content string
}

// Store holds per-user transcripts capped at a sliding window. Once the cap
// is exceeded the oldest turns are dropped, preserving the order of the
// remainder. Safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	window      int
	transcripts map[int64][]Turn
}

// NewStore creates a store with the given window cap.
func NewStore(window int) *Store {
	return &Store{
		window:      window,
		transcripts: make(map[int64][]Turn),
	}
}

// AppendUserTurn appends a user turn, trimming the front if over the cap.
func (s *Store) AppendUserTurn(userID int64, text string) {
	s.append(userID, Turn{Role: RoleUser, Content: text})
}

// AppendAssistantTurn appends an assistant turn, trimming the front if over
// the cap.
func (s *Store) AppendAssistantTurn(userID int64, text string) {
	s.append(userID, Turn{Role: RoleAssistant, Content: text})
}

func (s *Store) append(userID int64, t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := append(s.transcripts[userID], t)
	if over := len(transcript) - s.window; over > 0 {
		transcript = transcript[over:]
	}
	s.transcripts[userID] = transcript
}

// ContextFor returns a snapshot copy of the user's transcript. A user with
// no transcript yet gets an empty slice, not an error. Callers may not
// mutate the store through the returned slice.
func (s *Store) ContextFor(userID int64) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := s.transcripts[userID]
	snapshot := make([]Turn, len(transcript))
	copy(snapshot, transcript)
	return snapshot
}

// Clear empties the user's transcript. Invoked on provider switch and on
// explicit reset.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcripts, userID)
}
