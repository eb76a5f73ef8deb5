// Package audit records who changed what.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"
)

// Actions written by the API.
const (
	ActionProfileCreated       = "profile.created"
	ActionBookingStatusChanged = "booking.status_changed"
	ActionOrderStatusChanged   = "order.status_changed"
)

type Entry struct {
	ID        int            `json:"id"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entityId"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

type PostgresRecorder struct {
	db *sql.DB
}

func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

const insertAuditQuery = `
	INSERT INTO audit_logs (actor, action, entity, entity_id, metadata)
	VALUES ($1, $2, $3, $4, $5)
`

func (r *PostgresRecorder) Record(ctx context.Context, e Entry) error {
	meta := []byte("{}")
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		meta = b
	}
	_, err := r.db.ExecContext(ctx, insertAuditQuery, e.Actor, e.Action, e.Entity, e.EntityID, meta)
	return err
}

// MemoryRecorder keeps entries in memory; handy in tests and local runs.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
	// Err, when set, is returned by Record instead of storing.
	Err error
}

func (m *MemoryRecorder) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	e.ID = len(m.entries) + 1
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryRecorder) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
