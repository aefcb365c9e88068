// Package memory implements the user memory domain: facts stored per
// messaging user, identified by a (channel, peer) pair.
package memory

import "time"

// User is a messaging identity resolved from a (channel, peer) pair.
// XoUserID is an external cross-system identifier; it is read back if a
// linker set it elsewhere but is never written by this service.
type User struct {
	ID       string
	Channel  string
	Peer     string
	XoUserID *string
}

// Memory is a single remembered fact belonging to a user.
type Memory struct {
	ID         int64      `json:"id"`
	Fact       string     `json:"fact"`
	Category   string     `json:"category"`
	Confidence float64    `json:"confidence"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

// CreateParams holds the input for storing one memory.
type CreateParams struct {
	Channel    string
	Peer       string
	Fact       string
	Category   string
	SessionID  *string
	Confidence *float64
	ExpiresAt  *time.Time
}

// InsertParams is the resolved, validated record handed to the store.
type InsertParams struct {
	UserID     string
	Fact       string
	Category   string
	SessionID  *string
	Confidence float64
	ExpiresAt  *time.Time
}

// ListParams holds the filters for a memory listing.
type ListParams struct {
	Channel  string
	Peer     string
	Category string
	Limit    int
	Since    *time.Time
}

// ListResult is the outcome of a listing. UserID and XoUserID are nil when
// no user exists for the requested pair.
type ListResult struct {
	UserID   *string
	XoUserID *string
	Memories []Memory
	// Total is the number of rows returned after the limit was applied,
	// NOT the full match count. Long-standing API contract; callers must
	// not infer the true number of matches from it.
	Total int
}

// BulkEntry is one memory inside a bulk request. Category and Confidence
// fall back to the usual defaults when omitted.
type BulkEntry struct {
	Fact       string   `json:"fact"`
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
}

// BulkParams holds the input for a bulk insert. SessionID applies to every
// entry in the batch.
type BulkParams struct {
	Channel   string
	Peer      string
	SessionID *string
	Entries   []BulkEntry
}

// BulkResult reports per-batch outcome counts.
type BulkResult struct {
	Created           int
	DuplicatesSkipped int
}
