// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the live display feed.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rxnight/tally/internal/adapters/broadcast"
	repository "github.com/rxnight/tally/internal/adapters/repository"
	"github.com/rxnight/tally/internal/domain/model"
	"github.com/rxnight/tally/internal/domain/ranking"
	"github.com/rxnight/tally/internal/domain/visibility"
	"github.com/rxnight/tally/pkg/logger"
	"github.com/rxnight/tally/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultMailboxSize     = 256
	defaultSendTimeout     = 2 * time.Second
	defaultMaxSendFailures = 3
)

// Service implements the tabulation pipeline: every write to an event
// goes through that event's broadcast channel, so recompute and publish
// happen in the same order the writes were accepted.
type Service struct {
	mu sync.RWMutex

	// Core components
	store repository.Store
	hub   *broadcast.Hub

	// Configuration
	dbPath          string
	mailboxSize     int
	sendTimeout     time.Duration
	maxSendFailures int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a pre-built store, bypassing the SQLite default.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDBPath sets the SQLite database path.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithMailboxSize sets the per-event mutation mailbox capacity.
func WithMailboxSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.mailboxSize = size
		}
	}
}

// WithSendTimeout sets the per-subscriber delivery timeout.
func WithSendTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.sendTimeout = timeout
		}
	}
}

// WithMaxSendFailures sets the subscriber eviction threshold.
func WithMaxSendFailures(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSendFailures = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:          "tally.db",
		mailboxSize:     defaultMailboxSize,
		sendTimeout:     defaultSendTimeout,
		maxSendFailures: defaultMaxSendFailures,
		logger:          nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting tabulation service...")

	if s.store == nil {
		store, err := repository.OpenSQLite(s.dbPath)
		if err != nil {
			return fmt.Errorf("opening score store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}

	s.hub = broadcast.NewHub(
		broadcast.WithMailboxSize(s.mailboxSize),
		broadcast.WithSendTimeout(s.sendTimeout),
		broadcast.WithMaxSendFailures(s.maxSendFailures),
		broadcast.WithLogger(s.logger.Named("broadcast")),
	)

	s.started = true
	s.logger.Info(ctx, "tabulation service started",
		logger.Int("mailboxSize", s.mailboxSize),
		logger.Duration("sendTimeout", s.sendTimeout),
		logger.Int("maxSendFailures", s.maxSendFailures),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping tabulation service...")

	if s.hub != nil {
		_ = s.hub.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "tabulation service stopped")
}

// SubmitScore commits one judge's score for a contestant and returns the
// committed score together with the event's projected rankings. The
// rankings reflect this submission.
func (s *Service) SubmitScore(ctx context.Context, contestantID string, judgeNumber int, totalScore float64) (model.Score, []model.RankingRow, error) {
	if err := model.ValidateJudgeNumber(judgeNumber); err != nil {
		return model.Score{}, nil, err
	}
	if err := model.ValidateTotalScore(totalScore); err != nil {
		return model.Score{}, nil, err
	}

	contestant, err := s.store.GetContestant(ctx, contestantID)
	if err != nil {
		return model.Score{}, nil, fmt.Errorf("resolving contestant %s: %w", contestantID, err)
	}

	var (
		saved model.Score
		rows  []model.RankingRow
	)
	err = s.hub.Do(ctx, contestant.EventID, func(ctx context.Context) (*broadcast.Message, error) {
		committed, err := s.store.UpsertScore(ctx, model.Score{
			ContestantID: contestantID,
			EventID:      contestant.EventID,
			JudgeNumber:  judgeNumber,
			TotalScore:   totalScore,
		})
		if err != nil {
			return nil, err
		}
		saved = committed

		event, projected, err := s.projectEvent(ctx, contestant.EventID)
		if err != nil {
			return nil, err
		}
		rows = projected

		return &broadcast.Message{
			EventID:  event.ID,
			Kind:     broadcast.KindScoreUpdated,
			Event:    &event,
			Rankings: projected,
		}, nil
	})
	if err != nil {
		return model.Score{}, nil, err
	}
	return saved, rows, nil
}

// DeleteScore removes one committed score and rebroadcasts the owning
// event's rankings.
func (s *Service) DeleteScore(ctx context.Context, scoreID string) ([]model.RankingRow, error) {
	// Resolve the owning event outside the channel; the delete inside it
	// re-checks existence.
	existing, err := s.store.GetScore(ctx, scoreID)
	if err != nil {
		return nil, err
	}

	var rows []model.RankingRow
	err = s.hub.Do(ctx, existing.EventID, func(ctx context.Context) (*broadcast.Message, error) {
		removed, err := s.store.DeleteScore(ctx, scoreID)
		if err != nil {
			return nil, err
		}

		event, projected, err := s.projectEvent(ctx, removed.EventID)
		if err != nil {
			return nil, err
		}
		rows = projected

		return &broadcast.Message{
			EventID:  event.ID,
			Kind:     broadcast.KindScoreDeleted,
			Event:    &event,
			Rankings: projected,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ClearEventScores wipes every score of an event and returns how many
// were removed.
func (s *Service) ClearEventScores(ctx context.Context, eventID string) (int, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return 0, err
	}

	var removed int
	err := s.hub.Do(ctx, eventID, func(ctx context.Context) (*broadcast.Message, error) {
		n, err := s.store.ClearEventScores(ctx, eventID)
		if err != nil {
			return nil, err
		}
		removed = n

		event, projected, err := s.projectEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}

		return &broadcast.Message{
			EventID:  event.ID,
			Kind:     broadcast.KindScoresCleared,
			Event:    &event,
			Rankings: projected,
		}, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// GetScore returns one committed score by id.
func (s *Service) GetScore(ctx context.Context, id string) (model.Score, error) {
	return s.store.GetScore(ctx, id)
}

// ListScores returns committed scores matching the filter.
func (s *Service) ListScores(ctx context.Context, f repository.ScoreFilter) ([]model.Score, error) {
	return s.store.ListScores(ctx, f)
}

// EventRankings returns the projected rankings of an event as a plain
// read, without touching the event's channel.
func (s *Service) EventRankings(ctx context.Context, eventID string) ([]model.RankingRow, error) {
	_, rows, err := s.projectEvent(ctx, eventID)
	return rows, err
}

// CreateEvent persists a new event.
func (s *Service) CreateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	return s.store.CreateEvent(ctx, ev)
}

// GetEvent returns an event by id.
func (s *Service) GetEvent(ctx context.Context, id string) (model.Event, error) {
	return s.store.GetEvent(ctx, id)
}

// ListEvents returns all events.
func (s *Service) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.store.ListEvents(ctx)
}

// UpdateEvent replaces an event's fields and notifies its subscribers.
func (s *Service) UpdateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}

	var updated model.Event
	err := s.hub.Do(ctx, ev.ID, func(ctx context.Context) (*broadcast.Message, error) {
		stored, err := s.store.UpdateEvent(ctx, ev)
		if err != nil {
			return nil, err
		}
		updated = stored

		_, projected, err := s.projectEvent(ctx, stored.ID)
		if err != nil {
			return nil, err
		}

		return &broadcast.Message{
			EventID:  stored.ID,
			Kind:     broadcast.KindEventUpdated,
			Event:    &stored,
			Rankings: projected,
		}, nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return updated, nil
}

// DeleteEvent removes an event, everything it owns, and its channel.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.hub.DropChannel(id)
	return nil
}

// ToggleLive flips an event's live flag.
func (s *Service) ToggleLive(ctx context.Context, eventID string) (model.Event, error) {
	return s.toggleEvent(ctx, eventID, broadcast.KindEventLiveToggled, func(ev *model.Event) error {
		ev.IsLive = !ev.IsLive
		return nil
	})
}

// ToggleRankings flips whether an event's rankings are visible to the
// audience. The broadcast that follows carries the re-projected rows.
func (s *Service) ToggleRankings(ctx context.Context, eventID string) (model.Event, error) {
	return s.toggleEvent(ctx, eventID, broadcast.KindRankingsToggled, func(ev *model.Event) error {
		ev.ShowRankings = !ev.ShowRankings
		return nil
	})
}

// SetRevealTop limits how many leading rows are revealed. Zero reveals
// all rows when rankings are shown.
func (s *Service) SetRevealTop(ctx context.Context, eventID string, n int) (model.Event, error) {
	return s.toggleEvent(ctx, eventID, broadcast.KindRevealTopUpdated, func(ev *model.Event) error {
		if err := model.ValidateRevealTop(n); err != nil {
			return err
		}
		ev.RevealTop = n
		return nil
	})
}

// toggleEvent applies a control-flag change inside the event's channel
// and broadcasts the resulting projection.
func (s *Service) toggleEvent(ctx context.Context, eventID string, kind broadcast.Kind, change func(*model.Event) error) (model.Event, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return model.Event{}, err
	}

	var updated model.Event
	err := s.hub.Do(ctx, eventID, func(ctx context.Context) (*broadcast.Message, error) {
		ev, err := s.store.GetEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if err := change(&ev); err != nil {
			return nil, err
		}

		stored, err := s.store.UpdateEvent(ctx, ev)
		if err != nil {
			return nil, err
		}
		updated = stored

		_, projected, err := s.projectEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}

		return &broadcast.Message{
			EventID:  eventID,
			Kind:     kind,
			Event:    &stored,
			Rankings: projected,
		}, nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return updated, nil
}

// CreateContestant registers a contestant and notifies the event's
// subscribers.
func (s *Service) CreateContestant(ctx context.Context, c model.Contestant) (model.Contestant, error) {
	if err := c.Validate(); err != nil {
		return model.Contestant{}, err
	}
	if _, err := s.store.GetEvent(ctx, c.EventID); err != nil {
		return model.Contestant{}, fmt.Errorf("resolving event %s: %w", c.EventID, err)
	}

	var created model.Contestant
	err := s.hub.Do(ctx, c.EventID, func(ctx context.Context) (*broadcast.Message, error) {
		stored, err := s.store.CreateContestant(ctx, c)
		if err != nil {
			return nil, err
		}
		created = stored

		event, projected, err := s.projectEvent(ctx, c.EventID)
		if err != nil {
			return nil, err
		}

		return &broadcast.Message{
			EventID:  c.EventID,
			Kind:     broadcast.KindContestantAdded,
			Event:    &event,
			Rankings: projected,
		}, nil
	})
	if err != nil {
		return model.Contestant{}, err
	}
	return created, nil
}

// GetContestant returns a contestant by id.
func (s *Service) GetContestant(ctx context.Context, id string) (model.Contestant, error) {
	return s.store.GetContestant(ctx, id)
}

// ListContestants returns an event's contestants ordered by number.
func (s *Service) ListContestants(ctx context.Context, eventID string) ([]model.Contestant, error) {
	return s.store.ListContestants(ctx, eventID)
}

// UpdateContestant replaces a contestant's fields and notifies the
// event's subscribers.
func (s *Service) UpdateContestant(ctx context.Context, c model.Contestant) (model.Contestant, error) {
	existing, err := s.store.GetContestant(ctx, c.ID)
	if err != nil {
		return model.Contestant{}, err
	}
	if c.EventID == "" {
		c.EventID = existing.EventID
	}
	if err := c.Validate(); err != nil {
		return model.Contestant{}, err
	}

	var updated model.Contestant
	err = s.hub.Do(ctx, existing.EventID, func(ctx context.Context) (*broadcast.Message, error) {
		stored, err := s.store.UpdateContestant(ctx, c)
		if err != nil {
			return nil, err
		}
		updated = stored

		event, projected, err := s.projectEvent(ctx, existing.EventID)
		if err != nil {
			return nil, err
		}

		return &broadcast.Message{
			EventID:  existing.EventID,
			Kind:     broadcast.KindContestantUpdated,
			Event:    &event,
			Rankings: projected,
		}, nil
	})
	if err != nil {
		return model.Contestant{}, err
	}
	return updated, nil
}

// DeleteContestant removes a contestant and its scores, then
// rebroadcasts the event's rankings.
func (s *Service) DeleteContestant(ctx context.Context, id string) error {
	existing, err := s.store.GetContestant(ctx, id)
	if err != nil {
		return err
	}

	return s.hub.Do(ctx, existing.EventID, func(ctx context.Context) (*broadcast.Message, error) {
		if err := s.store.DeleteContestant(ctx, id); err != nil {
			return nil, err
		}

		event, projected, err := s.projectEvent(ctx, existing.EventID)
		if err != nil {
			return nil, err
		}

		return &broadcast.Message{
			EventID:  existing.EventID,
			Kind:     broadcast.KindContestantRemoved,
			Event:    &event,
			Rankings: projected,
		}, nil
	})
}

// Subscribe attaches a subscriber to an event's broadcast channel.
// Unknown events are rejected so displays cannot join a dead room.
func (s *Service) Subscribe(ctx context.Context, eventID string, sub broadcast.Subscriber) error {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return err
	}
	return s.hub.Subscribe(eventID, sub)
}

// Unsubscribe detaches a subscriber from an event's channel.
func (s *Service) Unsubscribe(eventID, subID string) {
	s.hub.Unsubscribe(eventID, subID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"mailboxSize":     s.mailboxSize,
		"maxSendFailures": s.maxSendFailures,
	}

	if s.started {
		stats["channelCount"] = s.hub.ChannelCount()

		events, err := s.store.ListEvents(ctx)
		if err == nil {
			stats["eventCount"] = len(events)
			subscribers := 0
			scores := 0
			for _, ev := range events {
				subscribers += s.hub.SubscriberCount(ev.ID)
				if snap, err := s.store.SnapshotScores(ctx, ev.ID); err == nil {
					scores += len(snap)
				}
			}
			stats["subscriberCount"] = subscribers
			stats["scoreCount"] = scores

			metrics.UpdateEventsTracked(len(events))
			metrics.UpdateScoresTracked(scores)
		}
	}

	return stats
}

// projectEvent loads an event and computes its projected rankings.
func (s *Service) projectEvent(ctx context.Context, eventID string) (model.Event, []model.RankingRow, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return model.Event{}, nil, err
	}

	contestants, err := s.store.ListContestants(ctx, eventID)
	if err != nil {
		return model.Event{}, nil, err
	}
	scores, err := s.store.SnapshotScores(ctx, eventID)
	if err != nil {
		return model.Event{}, nil, err
	}

	rows := ranking.Compute(contestants, scores)
	projected := visibility.Project(rows, visibility.Controls{
		ShowRankings: event.ShowRankings,
		RevealTop:    event.RevealTop,
	})
	return event, projected, nil
}
