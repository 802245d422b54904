package service_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rxnight/tally/internal/adapters/broadcast"
	"github.com/rxnight/tally/internal/adapters/repository"
	service "github.com/rxnight/tally/internal/app"
	"github.com/rxnight/tally/internal/domain/model"
	"github.com/rxnight/tally/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type captureSubscriber struct {
	id string

	mu   sync.Mutex
	msgs []broadcast.Message
}

func (s *captureSubscriber) ID() string { return s.id }

func (s *captureSubscriber) Send(_ context.Context, msg broadcast.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *captureSubscriber) received() []broadcast.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]broadcast.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// startService builds a service on an in-memory store with one event and
// two contestants.
func startService(ctx context.Context) (*service.Service, model.Event, []model.Contestant, func()) {
	svc := service.New(service.WithStore(repository.NewMemoryStore()))
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}

	ev, err := svc.CreateEvent(ctx, model.Event{
		Name: "Retro Dance Contest",
		Type: model.EventTypeDance,
	})
	if err != nil {
		panic(err)
	}

	var contestants []model.Contestant
	for i, name := range []string{"The Originals", "Neon Steps"} {
		c, err := svc.CreateContestant(ctx, model.Contestant{
			EventID: ev.ID,
			Number:  i + 1,
			Name:    name,
		})
		if err != nil {
			panic(err)
		}
		contestants = append(contestants, c)
	}

	return svc, ev, contestants, svc.Stop
}

func TestServiceScoreSubmission(t *testing.T) {
	convey.Convey("Given a started service with an event and contestants", t, func() {
		ctx := context.Background()
		svc, ev, contestants, stop := startService(ctx)
		defer stop()

		convey.Convey("When a judge submits a score", func() {
			score, rankings, err := svc.SubmitScore(ctx, contestants[0].ID, 1, 87.5)

			convey.Convey("Then the score is committed and rankings returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(score.ID, convey.ShouldNotBeEmpty)
				convey.So(score.EventID, convey.ShouldEqual, ev.ID)
				convey.So(score.TotalScore, convey.ShouldEqual, 87.5)
				convey.So(rankings, convey.ShouldHaveLength, 2)
			})

			convey.Convey("And rankings stay hidden while showRankings is off", func() {
				convey.So(err, convey.ShouldBeNil)
				for _, row := range rankings {
					convey.So(row.Hidden, convey.ShouldBeTrue)
					convey.So(row.GrandTotal, convey.ShouldEqual, 0)
				}
			})
		})

		convey.Convey("When the same judge rescores the same contestant", func() {
			first, _, err := svc.SubmitScore(ctx, contestants[0].ID, 2, 40)
			convey.So(err, convey.ShouldBeNil)
			second, _, err := svc.SubmitScore(ctx, contestants[0].ID, 2, 95)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the score is replaced, not duplicated", func() {
				convey.So(second.ID, convey.ShouldEqual, first.ID)
				scores, err := svc.ListScores(ctx, repository.ScoreFilter{ContestantID: contestants[0].ID})
				convey.So(err, convey.ShouldBeNil)
				convey.So(scores, convey.ShouldHaveLength, 1)
				convey.So(scores[0].TotalScore, convey.ShouldEqual, 95)
			})
		})

		convey.Convey("When the submission is invalid", func() {
			_, _, judgeErr := svc.SubmitScore(ctx, contestants[0].ID, 5, 50)
			_, _, scoreErr := svc.SubmitScore(ctx, contestants[0].ID, 1, 101)
			_, _, unknownErr := svc.SubmitScore(ctx, "no-such-contestant", 1, 50)

			convey.Convey("Then validation and lookup errors are distinguishable", func() {
				convey.So(judgeErr, convey.ShouldWrap, model.ErrValidation)
				convey.So(scoreErr, convey.ShouldWrap, model.ErrValidation)
				convey.So(unknownErr, convey.ShouldWrap, repository.ErrNotFound)
			})
		})

		convey.Convey("When four judges score concurrently", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 4)
			for judge := 1; judge <= 4; judge++ {
				wg.Add(1)
				go func(judge int) {
					defer wg.Done()
					_, _, err := svc.SubmitScore(ctx, contestants[0].ID, judge, float64(judge*20))
					errs <- err
				}(judge)
			}
			wg.Wait()
			close(errs)

			convey.Convey("Then every submission persists", func() {
				for err := range errs {
					convey.So(err, convey.ShouldBeNil)
				}
				scores, err := svc.ListScores(ctx, repository.ScoreFilter{ContestantID: contestants[0].ID})
				convey.So(err, convey.ShouldBeNil)
				convey.So(scores, convey.ShouldHaveLength, 4)
			})
		})

		convey.Convey("When a score is deleted", func() {
			score, _, err := svc.SubmitScore(ctx, contestants[0].ID, 1, 80)
			convey.So(err, convey.ShouldBeNil)

			rankings, err := svc.DeleteScore(ctx, score.ID)

			convey.Convey("Then the ledger no longer holds it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(rankings, convey.ShouldHaveLength, 2)
				_, err := svc.GetScore(ctx, score.ID)
				convey.So(err, convey.ShouldWrap, repository.ErrNotFound)
			})
		})

		convey.Convey("When an event's scores are cleared", func() {
			for judge := 1; judge <= 3; judge++ {
				_, _, err := svc.SubmitScore(ctx, contestants[1].ID, judge, 60)
				convey.So(err, convey.ShouldBeNil)
			}

			removed, err := svc.ClearEventScores(ctx, ev.ID)

			convey.Convey("Then the removal count is reported", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(removed, convey.ShouldEqual, 3)
				scores, err := svc.ListScores(ctx, repository.ScoreFilter{EventID: ev.ID})
				convey.So(err, convey.ShouldBeNil)
				convey.So(scores, convey.ShouldBeEmpty)
			})
		})
	})
}

func TestServiceVisibilityControls(t *testing.T) {
	convey.Convey("Given a started service with committed scores", t, func() {
		ctx := context.Background()
		svc, ev, contestants, stop := startService(ctx)
		defer stop()

		for judge := 1; judge <= 4; judge++ {
			_, _, err := svc.SubmitScore(ctx, contestants[0].ID, judge, 90)
			convey.So(err, convey.ShouldBeNil)
			_, _, err = svc.SubmitScore(ctx, contestants[1].ID, judge, 70)
			convey.So(err, convey.ShouldBeNil)
		}

		convey.Convey("When rankings are toggled on", func() {
			updated, err := svc.ToggleRankings(ctx, ev.ID)

			convey.Convey("Then projections carry real totals", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(updated.ShowRankings, convey.ShouldBeTrue)

				rows, err := svc.EventRankings(ctx, ev.ID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(rows, convey.ShouldHaveLength, 2)
				convey.So(rows[0].GrandTotal, convey.ShouldEqual, 360)
				convey.So(rows[0].Rank, convey.ShouldEqual, 1)
				convey.So(rows[0].Contestant.ID, convey.ShouldEqual, contestants[0].ID)
				convey.So(rows[1].GrandTotal, convey.ShouldEqual, 280)
			})
		})

		convey.Convey("When only the leader is revealed", func() {
			_, err := svc.ToggleRankings(ctx, ev.ID)
			convey.So(err, convey.ShouldBeNil)
			_, err = svc.SetRevealTop(ctx, ev.ID, 1)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then trailing rows are blanked", func() {
				rows, err := svc.EventRankings(ctx, ev.ID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(rows[0].Hidden, convey.ShouldBeFalse)
				convey.So(rows[1].Hidden, convey.ShouldBeTrue)
				convey.So(rows[1].GrandTotal, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When a negative reveal-top is requested", func() {
			_, err := svc.SetRevealTop(ctx, ev.ID, -1)

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldWrap, model.ErrValidation)
			})
		})

		convey.Convey("When the live flag is toggled twice", func() {
			once, err := svc.ToggleLive(ctx, ev.ID)
			convey.So(err, convey.ShouldBeNil)
			twice, err := svc.ToggleLive(ctx, ev.ID)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then it returns to its original state", func() {
				convey.So(once.IsLive, convey.ShouldBeTrue)
				convey.So(twice.IsLive, convey.ShouldBeFalse)
			})
		})
	})
}

func TestServiceBroadcast(t *testing.T) {
	convey.Convey("Given a started service with a subscriber", t, func() {
		ctx := context.Background()
		svc, ev, contestants, stop := startService(ctx)
		defer stop()

		sub := &captureSubscriber{id: "display-1"}
		convey.So(svc.Subscribe(ctx, ev.ID, sub), convey.ShouldBeNil)

		convey.Convey("When a score is submitted", func() {
			_, _, err := svc.SubmitScore(ctx, contestants[0].ID, 1, 88)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the subscriber receives the update", func() {
				var msgs []broadcast.Message
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					if msgs = sub.received(); len(msgs) > 0 {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}

				convey.So(msgs, convey.ShouldNotBeEmpty)
				convey.So(msgs[0].Kind, convey.ShouldEqual, broadcast.KindScoreUpdated)
				convey.So(msgs[0].EventID, convey.ShouldEqual, ev.ID)
				convey.So(msgs[0].Rankings, convey.ShouldHaveLength, 2)
			})
		})

		convey.Convey("When subscribing to an unknown event", func() {
			err := svc.Subscribe(ctx, "no-such-event", &captureSubscriber{id: "display-2"})

			convey.Convey("Then the subscription is rejected", func() {
				convey.So(err, convey.ShouldWrap, repository.ErrNotFound)
			})
		})
	})
}

func TestServiceSeed(t *testing.T) {
	convey.Convey("Given a fresh service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithStore(repository.NewMemoryStore()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		convey.Convey("When seeding default events", func() {
			events, err := svc.SeedEvents(ctx)

			convey.Convey("Then both stock events are created", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(events, convey.ShouldHaveLength, 2)
				convey.So(events[0].Name, convey.ShouldEqual, "Retro Dance Contest")
				convey.So(events[1].Name, convey.ShouldEqual, "Retro Outfit Competition")
				convey.So(events[1].Criteria, convey.ShouldHaveLength, 3)
			})

			convey.Convey("And a second seed is rejected", func() {
				convey.So(err, convey.ShouldBeNil)
				_, err := svc.SeedEvents(ctx)
				convey.So(err, convey.ShouldWrap, service.ErrAlreadySeeded)
			})
		})
	})
}
