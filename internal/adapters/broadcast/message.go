package broadcast

import (
	"context"

	"github.com/rxnight/tally/internal/domain/model"
)

// Kind identifies the type of change carried by a Message.
type Kind string

// Message kinds emitted by the hub.
const (
	KindScoreUpdated      Kind = "score-updated"
	KindScoreDeleted      Kind = "score-deleted"
	KindScoresCleared     Kind = "scores-cleared"
	KindEventUpdated      Kind = "event-updated"
	KindEventLiveToggled  Kind = "event-live-toggled"
	KindRankingsToggled   Kind = "rankings-toggled"
	KindRevealTopUpdated  Kind = "reveal-top-updated"
	KindContestantAdded   Kind = "contestant-added"
	KindContestantUpdated Kind = "contestant-updated"
	KindContestantRemoved Kind = "contestant-removed"
)

// Message is the payload delivered to subscribers of an event channel.
// Rankings carry the projected (visibility-applied) rows, never raw totals.
type Message struct {
	EventID  string             `json:"eventId"`
	Kind     Kind               `json:"kind"`
	Event    *model.Event       `json:"event,omitempty"`
	Rankings []model.RankingRow `json:"rankings,omitempty"`
}

// Subscriber receives messages published on an event channel.
//
// Send must not block longer than the context allows. Implementations
// that fall behind repeatedly are evicted from the channel.
type Subscriber interface {
	ID() string
	Send(ctx context.Context, msg Message) error
}
