package service

import (
	"context"

	"github.com/rxnight/tally/internal/domain/model"
)

// defaultEvents returns the stock competition pair used to bootstrap a
// fresh installation.
func defaultEvents() []model.Event {
	return []model.Event{
		{
			Name: "Retro Dance Contest",
			Type: model.EventTypeDance,
			Criteria: []model.Criterion{
				{Name: "Retro Outfit Style", Percentage: 30, Description: "Accuracy and creativity of retro-inspired fashion"},
				{Name: "Dance Performance", Percentage: 40, Description: "Execution, cleanliness, and synchronization"},
				{Name: "Audience Impact", Percentage: 20, Description: "Connection with the crowd"},
				{Name: "Overall Presentation", Percentage: 10, Description: "Flow, confidence, and completeness"},
			},
			IsActive: true,
		},
		{
			Name: "Retro Outfit Competition",
			Type: model.EventTypeOutfit,
			Criteria: []model.Criterion{
				{Name: "Retro Theme Accuracy", Percentage: 50, Description: "How well the outfit represents the retro era (70s-90s)"},
				{Name: "Creativity & Originality", Percentage: 30, Description: "How uniquely the participant styled their retro look"},
				{Name: "Overall Impact", Percentage: 20, Description: "Overall impression of the entire look"},
			},
			IsActive: true,
		},
	}
}

// defaultContestants returns the stock roster for an event type.
func defaultContestants(t model.EventType, eventID string) []model.Contestant {
	switch t {
	case model.EventTypeDance:
		return []model.Contestant{
			{Name: "HAPPY FEET MOVERS", Number: 1, EventID: eventID, GroupName: "RX DANCE TROUPE"},
			{Name: "B.E DANCERS", Number: 2, EventID: eventID, GroupName: "RX DANCE TROUPE"},
			{Name: "SNEAKER RIDERS", Number: 3, EventID: eventID, GroupName: "RX DANCE TROUPE"},
			{Name: "D GOLDEN STEPS REVOLUTION", Number: 4, EventID: eventID, GroupName: "RX DANCE TROUPE"},
			{Name: "THE VINTAGE VIBES", Number: 5, EventID: eventID, GroupName: "RX DANCE TROUPE"},
		}
	case model.EventTypeOutfit:
		return []model.Contestant{
			{Name: "BLACK EAGLES", Number: 1, EventID: eventID, GroupName: "RX GRAND MENTORS"},
			{Name: "ELITE FALCONS", Number: 2, EventID: eventID, GroupName: "RX GRAND MENTORS"},
			{Name: "WOLFGANG", Number: 3, EventID: eventID, GroupName: "RX GRAND MENTORS"},
			{Name: "BLACK PANTHERS", Number: 4, EventID: eventID, GroupName: "RX GRAND MENTORS"},
			{Name: "DOMINATORS", Number: 5, EventID: eventID, GroupName: "RX GRAND MENTORS"},
		}
	default:
		return nil
	}
}

// SeedContestants fills an event with its stock roster. The roster is
// picked from the event's own type. Returns ErrRosterExists when the
// event already has contestants.
func (s *Service) SeedContestants(ctx context.Context, eventID string) ([]model.Contestant, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ListContestants(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrRosterExists
	}

	roster := defaultContestants(ev.Type, eventID)
	seeded := make([]model.Contestant, 0, len(roster))
	for _, c := range roster {
		created, err := s.store.CreateContestant(ctx, c)
		if err != nil {
			return nil, err
		}
		seeded = append(seeded, created)
	}
	return seeded, nil
}

// SeedEvents creates the default events on an empty installation.
// Returns ErrAlreadySeeded when any event exists.
func (s *Service) SeedEvents(ctx context.Context) ([]model.Event, error) {
	existing, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrAlreadySeeded
	}

	seeded := make([]model.Event, 0, 2)
	for _, ev := range defaultEvents() {
		created, err := s.store.CreateEvent(ctx, ev)
		if err != nil {
			return nil, err
		}
		seeded = append(seeded, created)
	}
	return seeded, nil
}
