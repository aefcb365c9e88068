package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultLimit is applied when a listing does not specify a limit.
	DefaultLimit = 50
	// MaxLimit is the hard listing ceiling; larger requests are rejected.
	MaxLimit = 200
	// DefaultCategory is assigned to memories created without a category.
	DefaultCategory = "general"

	defaultConfidence = 1.0
)

// Store is the persistence surface the service depends on.
type Store interface {
	// ResolveOrCreateUser returns the user for (channel, peer), creating it
	// if absent. Safe under concurrent calls for the same pair.
	ResolveOrCreateUser(ctx context.Context, channel, peer string) (*User, error)
	// FindUser returns the user for (channel, peer), or nil if none exists.
	// It never creates.
	FindUser(ctx context.Context, channel, peer string) (*User, error)
	// InsertMemory stores one fact. A duplicate (user, fact) pair yields a
	// *ConflictError carrying the existing row's id.
	InsertMemory(ctx context.Context, p InsertParams) (*Memory, error)
	// ListMemories returns non-expired memories for a user, newest first.
	ListMemories(ctx context.Context, userID, category string, since *time.Time, limit int) ([]Memory, error)
	// DeleteMemory removes a row by id, reporting whether it existed.
	DeleteMemory(ctx context.Context, id int64) (bool, error)
	// DeleteUserMemories removes all rows for a user and returns the count.
	DeleteUserMemories(ctx context.Context, userID string) (int64, error)
}

// Service implements the memory lifecycle over a Store.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a Service.
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create stores one memory, creating the owning user if needed.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Memory, error) {
	if err := validatePair(p.Channel, p.Peer); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Fact) == "" {
		return nil, &ValidationError{Field: "fact", Reason: "must not be empty"}
	}
	confidence := defaultConfidence
	if p.Confidence != nil {
		confidence = *p.Confidence
	}
	if confidence < 0 || confidence > 1 {
		return nil, &ValidationError{Field: "confidence", Reason: "must be between 0 and 1"}
	}
	category := p.Category
	if category == "" {
		category = DefaultCategory
	}

	user, err := s.store.ResolveOrCreateUser(ctx, p.Channel, p.Peer)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	return s.store.InsertMemory(ctx, InsertParams{
		UserID:     user.ID,
		Fact:       p.Fact,
		Category:   category,
		SessionID:  p.SessionID,
		Confidence: confidence,
		ExpiresAt:  p.ExpiresAt,
	})
}

// List returns non-expired memories for (channel, peer). An unknown pair
// yields an empty result without creating a user.
func (s *Service) List(ctx context.Context, p ListParams) (*ListResult, error) {
	if err := validatePair(p.Channel, p.Peer); err != nil {
		return nil, err
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		return nil, &ValidationError{Field: "limit", Reason: fmt.Sprintf("must not exceed %d", MaxLimit)}
	}

	user, err := s.store.FindUser(ctx, p.Channel, p.Peer)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return &ListResult{Memories: []Memory{}}, nil
	}

	memories, err := s.store.ListMemories(ctx, user.ID, p.Category, p.Since, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	return &ListResult{
		UserID:   &user.ID,
		XoUserID: user.XoUserID,
		Memories: memories,
		Total:    len(memories),
	}, nil
}

// BulkCreate stores a batch of memories, resolving the user once. Entries
// are applied independently: duplicates are counted and skipped, malformed
// entries are logged and skipped, and neither aborts the batch.
func (s *Service) BulkCreate(ctx context.Context, p BulkParams) (*BulkResult, error) {
	if err := validatePair(p.Channel, p.Peer); err != nil {
		return nil, err
	}

	user, err := s.store.ResolveOrCreateUser(ctx, p.Channel, p.Peer)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	result := &BulkResult{}
	for i, entry := range p.Entries {
		if strings.TrimSpace(entry.Fact) == "" {
			s.logger.Warn("skipping bulk entry with empty fact", zap.Int("index", i))
			continue
		}
		confidence := defaultConfidence
		if entry.Confidence != nil {
			confidence = *entry.Confidence
		}
		if confidence < 0 || confidence > 1 {
			s.logger.Warn("skipping bulk entry with invalid confidence",
				zap.Int("index", i), zap.Float64("confidence", confidence))
			continue
		}
		category := entry.Category
		if category == "" {
			category = DefaultCategory
		}

		_, err := s.store.InsertMemory(ctx, InsertParams{
			UserID:     user.ID,
			Fact:       entry.Fact,
			Category:   category,
			SessionID:  p.SessionID,
			Confidence: confidence,
		})
		var conflict *ConflictError
		switch {
		case errors.As(err, &conflict):
			result.DuplicatesSkipped++
		case err != nil:
			s.logger.Warn("bulk entry failed", zap.Int("index", i), zap.Error(err))
		default:
			result.Created++
		}
	}
	return result, nil
}

// DeleteOne removes a memory by id. No ownership check is performed; any
// caller can delete any id. Known authorization gap carried over from the
// original API contract.
func (s *Service) DeleteOne(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteMemory(ctx, id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every memory owned by (channel, peer) and returns the
// count. An unknown pair yields zero without error.
func (s *Service) DeleteAll(ctx context.Context, channel, peer string) (int64, error) {
	if err := validatePair(channel, peer); err != nil {
		return 0, err
	}
	user, err := s.store.FindUser(ctx, channel, peer)
	if err != nil {
		return 0, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return 0, nil
	}
	count, err := s.store.DeleteUserMemories(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("delete memories: %w", err)
	}
	return count, nil
}

func validatePair(channel, peer string) error {
	if channel == "" {
		return &ValidationError{Field: "channel", Reason: "is required"}
	}
	if peer == "" {
		return &ValidationError{Field: "peer", Reason: "is required"}
	}
	return nil
}
