// Package session tracks pipeline runs as explicit state objects.
//
// Every run of the design pipeline gets its own Session: which template it
// works on, the data accumulated so far, the per-stage statuses, and an
// append-only history. All state lives on the session object threaded
// through the pipeline; nothing is process-global, so any number of runs
// can coexist (CLI one-shots, queued server jobs, tests).
//
// Two store backends exist:
//   - memory: for tests and single-process servers
//   - file: for CLI applications resuming runs across invocations
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the default lifetime of a stored run session.
const DefaultTTL = 24 * time.Hour

// Event is one history entry. History survives a Reset so a caller can
// audit what happened across restarts of the same run.
type Event struct {
	Time  time.Time `json:"time" bson:"time"`
	Stage string    `json:"stage,omitempty" bson:"stage,omitempty"`
	Note  string    `json:"note" bson:"note"`
}

// Session is the state of one pipeline run.
type Session struct {
	ID         string `json:"id" bson:"id"`
	TemplateID string `json:"template_id,omitempty" bson:"template_id,omitempty"`

	// Status mirrors the pipeline's current snapshot.
	Status       string            `json:"status" bson:"status"`
	CurrentStage string            `json:"current_stage,omitempty" bson:"current_stage,omitempty"`
	Stages       map[string]string `json:"stages,omitempty" bson:"stages,omitempty"`

	// Data holds accumulated inputs and artifact references keyed by kind
	// (user data hash, zones cache key, generation output, artifact key).
	Data map[string]string `json:"data,omitempty" bson:"data,omitempty"`

	History []Event `json:"history,omitempty" bson:"history,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// New creates a session for a template run.
func New(templateID string, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		Status:     "idle",
		Stages:     make(map[string]string),
		Data:       make(map[string]string),
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

// IsExpired returns true if the session has exceeded its TTL.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Record appends a history event and bumps the update time.
func (s *Session) Record(stage, note string) {
	s.History = append(s.History, Event{Time: time.Now(), Stage: stage, Note: note})
	s.UpdatedAt = time.Now()
}

// ClearData drops accumulated data but keeps the history.
func (s *Session) ClearData() {
	s.Data = make(map[string]string)
	s.Stages = make(map[string]string)
	s.UpdatedAt = time.Now()
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, sess *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error
}
