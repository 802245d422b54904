// Package repository defines the record store and score ledger
// contracts plus their in-memory and SQLite implementations.
package repository

import (
	"context"

	"github.com/rxnight/tally/internal/domain/model"
)

// EventStore holds event records and their control flags.
type EventStore interface {
	// CreateEvent persists a new event, assigning ID and CreatedAt
	// when unset.
	CreateEvent(ctx context.Context, ev model.Event) (model.Event, error)

	// GetEvent returns an event by id. Returns ErrNotFound for
	// unknown ids.
	GetEvent(ctx context.Context, id string) (model.Event, error)

	// ListEvents returns all events, newest first.
	ListEvents(ctx context.Context) ([]model.Event, error)

	// UpdateEvent replaces an event record. Returns ErrNotFound for
	// unknown ids.
	UpdateEvent(ctx context.Context, ev model.Event) (model.Event, error)

	// DeleteEvent removes an event and everything owned by it.
	DeleteEvent(ctx context.Context, id string) error
}

// ContestantStore holds contestant records.
type ContestantStore interface {
	// CreateContestant persists a new contestant, assigning ID and
	// CreatedAt when unset.
	CreateContestant(ctx context.Context, c model.Contestant) (model.Contestant, error)

	// GetContestant returns a contestant by id.
	GetContestant(ctx context.Context, id string) (model.Contestant, error)

	// ListContestants returns the contestants of an event ordered by
	// number ascending. The ranking calculator depends on this order
	// for its tie-break.
	ListContestants(ctx context.Context, eventID string) ([]model.Contestant, error)

	// UpdateContestant replaces a contestant record. EventID is
	// immutable; the stored value wins.
	UpdateContestant(ctx context.Context, c model.Contestant) (model.Contestant, error)

	// DeleteContestant removes a contestant and its scores.
	DeleteContestant(ctx context.Context, id string) error
}

// ScoreFilter narrows score listings. Zero values mean "any".
type ScoreFilter struct {
	EventID      string
	ContestantID string
}

// ScoreLedger is the authoritative one-score-per-judge-per-contestant
// record set. Implementations must enforce (contestant, judge)
// uniqueness at the storage layer so bulk paths cannot create
// duplicates.
type ScoreLedger interface {
	// UpsertScore commits a score, replacing any prior value for the
	// same (ContestantID, JudgeNumber) pair. Out-of-range judge
	// numbers or totals fail with model.ErrValidation before the
	// ledger is touched. Retries with the same inputs are idempotent.
	UpsertScore(ctx context.Context, s model.Score) (model.Score, error)

	// GetScore returns a committed score by id.
	GetScore(ctx context.Context, id string) (model.Score, error)

	// DeleteScore removes one score by id and returns the removed
	// record so callers can rebroadcast the owning event.
	DeleteScore(ctx context.Context, id string) (model.Score, error)

	// ClearEventScores removes every score of an event and reports
	// how many were removed.
	ClearEventScores(ctx context.Context, eventID string) (int, error)

	// SnapshotScores returns all scores of an event. Within an
	// event's serialized channel the snapshot reflects every commit
	// ordered before it.
	SnapshotScores(ctx context.Context, eventID string) ([]model.Score, error)

	// ListScores returns scores matching the filter, ordered by
	// judge number ascending.
	ListScores(ctx context.Context, f ScoreFilter) ([]model.Score, error)
}

// Store bundles the full persistence surface consumed by the service.
type Store interface {
	EventStore
	ContestantStore
	ScoreLedger

	// Close releases the underlying storage.
	Close() error
}
