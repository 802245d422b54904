package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rxnight/tally/internal/domain/model"
	"github.com/rxnight/tally/pkg/metrics"
)

// scorePair is the storage-level uniqueness key of the ledger. Using it
// as a map key makes duplicates structurally impossible, the in-memory
// equivalent of the SQLite UNIQUE index.
type scorePair struct {
	contestantID string
	judgeNumber  int
}

// MemoryStore implements Store with mutex-guarded maps. It backs tests
// and single-process development runs; production setups use the
// SQLite store.
type MemoryStore struct {
	mu     sync.RWMutex
	closed bool

	events      map[string]model.Event
	contestants map[string]model.Contestant
	scores      map[string]model.Score
	pairIndex   map[scorePair]string // (contestant, judge) -> score id

	now func() time.Time
}

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, used by tests for stable
// SubmittedAt/CreatedAt values.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		events:      make(map[string]model.Event),
		contestants: make(map[string]model.Contestant),
		scores:      make(map[string]model.Score),
		pairIndex:   make(map[scorePair]string),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close marks the store closed. Subsequent calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) checkOpen() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

// CreateEvent persists a new event.
func (s *MemoryStore) CreateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return model.Event{}, err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	if ev.Criteria == nil {
		ev.Criteria = []model.Criterion{}
	}
	s.events[ev.ID] = ev
	metrics.UpdateEventsTracked(len(s.events))
	return ev, nil
}

// GetEvent returns an event by id.
func (s *MemoryStore) GetEvent(ctx context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return ev, nil
}

// ListEvents returns all events, newest first.
func (s *MemoryStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateEvent replaces an event record.
func (s *MemoryStore) UpdateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return model.Event{}, err
	}
	prev, ok := s.events[ev.ID]
	if !ok {
		return model.Event{}, fmt.Errorf("event %s: %w", ev.ID, ErrNotFound)
	}
	ev.CreatedAt = prev.CreatedAt
	s.events[ev.ID] = ev
	return ev, nil
}

// DeleteEvent removes an event, its contestants, and their scores.
func (s *MemoryStore) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	delete(s.events, id)
	for cid, c := range s.contestants {
		if c.EventID == id {
			delete(s.contestants, cid)
		}
	}
	s.dropScores(func(sc model.Score) bool { return sc.EventID == id })
	metrics.UpdateEventsTracked(len(s.events))
	return nil
}

// CreateContestant persists a new contestant.
func (s *MemoryStore) CreateContestant(ctx context.Context, c model.Contestant) (model.Contestant, error) {
	if err := c.Validate(); err != nil {
		return model.Contestant{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return model.Contestant{}, err
	}
	if _, ok := s.events[c.EventID]; !ok {
		return model.Contestant{}, fmt.Errorf("event %s: %w", c.EventID, ErrNotFound)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.contestants[c.ID] = c
	return c, nil
}

// GetContestant returns a contestant by id.
func (s *MemoryStore) GetContestant(ctx context.Context, id string) (model.Contestant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contestants[id]
	if !ok {
		return model.Contestant{}, fmt.Errorf("contestant %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// ListContestants returns an event's contestants by number ascending.
func (s *MemoryStore) ListContestants(ctx context.Context, eventID string) ([]model.Contestant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Contestant, 0)
	for _, c := range s.contestants {
		if c.EventID == eventID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Number == out[j].Number {
			return out[i].ID < out[j].ID
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

// UpdateContestant replaces a contestant record. EventID is immutable.
func (s *MemoryStore) UpdateContestant(ctx context.Context, c model.Contestant) (model.Contestant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return model.Contestant{}, err
	}
	prev, ok := s.contestants[c.ID]
	if !ok {
		return model.Contestant{}, fmt.Errorf("contestant %s: %w", c.ID, ErrNotFound)
	}
	c.EventID = prev.EventID
	c.CreatedAt = prev.CreatedAt
	if err := c.Validate(); err != nil {
		return model.Contestant{}, err
	}
	s.contestants[c.ID] = c
	return c, nil
}

// DeleteContestant removes a contestant and its scores.
func (s *MemoryStore) DeleteContestant(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, ok := s.contestants[id]; !ok {
		return fmt.Errorf("contestant %s: %w", id, ErrNotFound)
	}
	delete(s.contestants, id)
	s.dropScores(func(sc model.Score) bool { return sc.ContestantID == id })
	return nil
}

// UpsertScore commits a score, replacing the prior value for the same
// (contestant, judge) pair.
func (s *MemoryStore) UpsertScore(ctx context.Context, sc model.Score) (model.Score, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := model.ValidateJudgeNumber(sc.JudgeNumber); err != nil {
		return model.Score{}, err
	}
	if err := model.ValidateTotalScore(sc.TotalScore); err != nil {
		return model.Score{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return model.Score{}, err
	}
	c, ok := s.contestants[sc.ContestantID]
	if !ok {
		return model.Score{}, fmt.Errorf("contestant %s: %w", sc.ContestantID, ErrNotFound)
	}
	sc.EventID = c.EventID
	sc.SubmittedAt = s.now()

	key := scorePair{contestantID: sc.ContestantID, judgeNumber: sc.JudgeNumber}
	if existingID, ok := s.pairIndex[key]; ok {
		// Replace in place; the pair keeps its identity across retries.
		sc.ID = existingID
	} else if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	s.pairIndex[key] = sc.ID
	s.scores[sc.ID] = sc
	metrics.RecordScoreUpserted()
	metrics.UpdateScoresTracked(len(s.scores))
	return sc, nil
}

// GetScore returns a committed score by id.
func (s *MemoryStore) GetScore(ctx context.Context, id string) (model.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scores[id]
	if !ok {
		return model.Score{}, fmt.Errorf("score %s: %w", id, ErrNotFound)
	}
	return sc, nil
}

// DeleteScore removes one score and returns the removed record.
func (s *MemoryStore) DeleteScore(ctx context.Context, id string) (model.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return model.Score{}, err
	}
	sc, ok := s.scores[id]
	if !ok {
		return model.Score{}, fmt.Errorf("score %s: %w", id, ErrNotFound)
	}
	delete(s.scores, id)
	delete(s.pairIndex, scorePair{contestantID: sc.ContestantID, judgeNumber: sc.JudgeNumber})
	metrics.RecordScoreDeleted()
	metrics.UpdateScoresTracked(len(s.scores))
	return sc, nil
}

// ClearEventScores removes every score of an event.
func (s *MemoryStore) ClearEventScores(ctx context.Context, eventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	n := s.dropScores(func(sc model.Score) bool { return sc.EventID == eventID })
	metrics.UpdateScoresTracked(len(s.scores))
	return n, nil
}

// SnapshotScores returns all scores of an event.
func (s *MemoryStore) SnapshotScores(ctx context.Context, eventID string) ([]model.Score, error) {
	return s.ListScores(ctx, ScoreFilter{EventID: eventID})
}

// ListScores returns scores matching the filter, judge number ascending.
func (s *MemoryStore) ListScores(ctx context.Context, f ScoreFilter) ([]model.Score, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Score, 0)
	for _, sc := range s.scores {
		if f.EventID != "" && sc.EventID != f.EventID {
			continue
		}
		if f.ContestantID != "" && sc.ContestantID != f.ContestantID {
			continue
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JudgeNumber == out[j].JudgeNumber {
			return out[i].ContestantID < out[j].ContestantID
		}
		return out[i].JudgeNumber < out[j].JudgeNumber
	})
	return out, nil
}

// dropScores removes all scores matching the predicate while the write
// lock is held, keeping the pair index in sync.
func (s *MemoryStore) dropScores(match func(model.Score) bool) int {
	n := 0
	for id, sc := range s.scores {
		if match(sc) {
			delete(s.scores, id)
			delete(s.pairIndex, scorePair{contestantID: sc.ContestantID, judgeNumber: sc.JudgeNumber})
			n++
		}
	}
	return n
}
