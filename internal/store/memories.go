package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nidhogg/xo-memory/internal/memory"
)

// Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// InsertMemory stores one fact for a user. A duplicate (user_id, fact) pair
// returns a *memory.ConflictError carrying the existing row's id; the stored
// row is never overwritten.
func (s *Store) InsertMemory(ctx context.Context, p memory.InsertParams) (*memory.Memory, error) {
	m := &memory.Memory{Fact: p.Fact, Category: p.Category, Confidence: p.Confidence}
	err := s.db.QueryRow(ctx, `
		INSERT INTO user_memories (user_id, fact, category, session_id, confidence, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, expires_at`,
		p.UserID, p.Fact, p.Category, p.SessionID, p.Confidence, p.ExpiresAt,
	).Scan(&m.ID, &m.CreatedAt, &m.ExpiresAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		var existingID int64
		if lookupErr := s.db.QueryRow(ctx,
			`SELECT id FROM user_memories WHERE user_id = $1 AND fact = $2`,
			p.UserID, p.Fact,
		).Scan(&existingID); lookupErr != nil {
			return nil, fmt.Errorf("lookup existing memory: %w", lookupErr)
		}
		return nil, &memory.ConflictError{ExistingID: existingID}
	}
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}
	return m, nil
}

// ListMemories returns a user's memories that have not expired, newest
// first, optionally filtered by category (exact match) and creation time
// (strictly after since).
func (s *Store) ListMemories(ctx context.Context, userID, category string, since *time.Time, limit int) ([]memory.Memory, error) {
	query := `
		SELECT id, fact, category, confidence, created_at, expires_at
		FROM user_memories
		WHERE user_id = $1
		  AND (expires_at IS NULL OR expires_at > NOW())`
	args := []any{userID}

	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND created_at > $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	memories := []memory.Memory{}
	for rows.Next() {
		var m memory.Memory
		if err := rows.Scan(&m.ID, &m.Fact, &m.Category, &m.Confidence, &m.CreatedAt, &m.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// DeleteMemory removes a memory by id, reporting whether a row existed.
func (s *Store) DeleteMemory(ctx context.Context, id int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM user_memories WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete memory %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteUserMemories removes every memory owned by a user and returns the
// number of rows deleted.
func (s *Store) DeleteUserMemories(ctx context.Context, userID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM user_memories WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete memories for user %s: %w", userID, err)
	}
	return tag.RowsAffected(), nil
}
