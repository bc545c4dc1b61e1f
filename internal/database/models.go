package database

import "time"

// Exchange is one completed request/reply pair archived after a successful
// provider call. The archive is an audit trail; the in-memory conversation
// and quota state never read from it.
type Exchange struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	ChatID   int64  `db:"chat_id"`
	UserID   int64  `db:"user_id"`
	Provider string `db:"provider"`
	Modality string `db:"modality"`
	Prompt   string `db:"prompt"`
	Reply    string `db:"reply"`
}
