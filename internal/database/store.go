package database

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for exchange archive operations. Methods
// accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveExchange inserts a completed exchange record.
	SaveExchange(ctx context.Context, exchange *Exchange) error

	// CountExchanges returns total archived exchanges and a per-provider
	// breakdown.
	CountExchanges(ctx context.Context) (int64, map[string]int64, error)

	// DeleteExchangesBefore removes exchanges created before the cutoff and
	// returns how many were deleted.
	DeleteExchangesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteAllExchanges deletes all archived exchanges (admin reset).
	DeleteAllExchanges(ctx context.Context) error

	// RunSQLMaintenance performs maintenance tasks like VACUUM and ANALYZE.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store implementation backed by sqlx. It requires a
// connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveExchange(ctx context.Context, exchange *Exchange) error {
	if exchange == nil {
		return fmt.Errorf("cannot save nil exchange")
	}
	if exchange.UserID == 0 {
		return fmt.Errorf("exchange must have a non-zero user_id")
	}
	if exchange.Provider == "" || exchange.Modality == "" {
		return fmt.Errorf("exchange must have provider and modality")
	}

	exchange.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO exchanges (chat_id, user_id, provider, modality, prompt, reply, created_at)
        VALUES (:chat_id, :user_id, :provider, :modality, :prompt, :reply, :created_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, exchange)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving exchange",
			"user_id", exchange.UserID, "provider", exchange.Provider, "error", err)
		return fmt.Errorf("failed to save exchange (user %d): %w", exchange.UserID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		exchange.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving exchange",
			"user_id", exchange.UserID, "error", err)
	}

	return nil
}

func (s *sqlxStore) CountExchanges(ctx context.Context) (int64, map[string]int64, error) {
	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM exchanges;`); err != nil {
		return 0, nil, fmt.Errorf("failed to count exchanges: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, `SELECT provider, COUNT(*) FROM exchanges GROUP BY provider;`)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to count exchanges by provider: %w", err)
	}
	defer rows.Close()

	byProvider := make(map[string]int64)
	for rows.Next() {
		var provider string
		var count int64
		if err := rows.Scan(&provider, &count); err != nil {
			return 0, nil, fmt.Errorf("failed to scan provider count: %w", err)
		}
		byProvider[provider] = count
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("failed reading provider counts: %w", err)
	}

	return total, byProvider, nil
}

func (s *sqlxStore) DeleteExchangesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM exchanges WHERE created_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old exchanges: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not determine rows affected by retention delete", "error", err)
		return 0, nil
	}
	return deleted, nil
}

func (s *sqlxStore) DeleteAllExchanges(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM exchanges;`); err != nil {
		return fmt.Errorf("failed to delete exchanges: %w", err)
	}
	return nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	start := time.Now()
	s.logger.InfoContext(ctx, "Starting SQL maintenance")

	if _, err := s.db.ExecContext(ctx, `VACUUM;`); err != nil {
		return fmt.Errorf("vacuum failed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `ANALYZE;`); err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	s.logger.InfoContext(ctx, "SQL maintenance finished", "duration", time.Since(start))
	return nil
}
