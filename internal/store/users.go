package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/nidhogg/xo-memory/internal/memory"
)

// FindUser returns the user for (channel, peer), or nil when no such user
// exists. The match is exact and case-sensitive.
func (s *Store) FindUser(ctx context.Context, channel, peer string) (*memory.User, error) {
	u := &memory.User{Channel: channel, Peer: peer}
	err := s.db.QueryRow(ctx,
		`SELECT id, xo_user_id FROM users WHERE channel = $1 AND channel_peer = $2`,
		channel, peer,
	).Scan(&u.ID, &u.XoUserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s/%s: %w", channel, peer, err)
	}
	return u, nil
}

// ResolveOrCreateUser returns the user for (channel, peer), creating one with
// label = peer and status 'active' if none exists. A lookup hit has no side
// effects. Two callers racing to create the same pair both end up with the
// single surviving row: the insert uses ON CONFLICT DO NOTHING, and a loser
// re-reads the winner's row.
func (s *Store) ResolveOrCreateUser(ctx context.Context, channel, peer string) (*memory.User, error) {
	u, err := s.FindUser(ctx, channel, peer)
	if err != nil || u != nil {
		return u, err
	}

	u = &memory.User{Channel: channel, Peer: peer}
	err = s.db.QueryRow(ctx, `
		INSERT INTO users (id, channel, channel_peer, label, status, created_at, updated_at)
		VALUES ($1, $2, $3, $3, 'active', NOW(), NOW())
		ON CONFLICT (channel, channel_peer) DO NOTHING
		RETURNING id`,
		uuid.NewString(), channel, peer,
	).Scan(&u.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the create race; read the row the winner inserted.
		existing, findErr := s.FindUser(ctx, channel, peer)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, fmt.Errorf("create user %s/%s: conflicting row disappeared", channel, peer)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create user %s/%s: %w", channel, peer, err)
	}
	s.logger.Debug("user created", zap.String("channel", channel), zap.String("peer", peer))
	return u, nil
}
