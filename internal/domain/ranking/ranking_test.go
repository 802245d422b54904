package ranking_test

import (
	"testing"

	"github.com/rxnight/tally/internal/domain/model"
	"github.com/rxnight/tally/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func contestant(id string, number int, name string) model.Contestant {
	return model.Contestant{ID: id, EventID: "ev1", Number: number, Name: name}
}

func score(contestantID string, judge int, total float64) model.Score {
	return model.Score{ContestantID: contestantID, EventID: "ev1", JudgeNumber: judge, TotalScore: total}
}

func TestCompute(t *testing.T) {
	Convey("Given three contestants with partial judging", t, func() {
		contestants := []model.Contestant{
			contestant("c1", 1, "Disco Inferno"),
			contestant("c2", 2, "Velvet Groove"),
			contestant("c3", 3, "Neon Steps"),
		}
		scores := []model.Score{
			score("c1", 1, 80), score("c1", 2, 70), score("c1", 3, 60), score("c1", 4, 50),
			score("c2", 1, 90), score("c2", 2, 85),
		}

		Convey("When the ranking is computed", func() {
			rows := ranking.Compute(contestants, scores)

			Convey("Then grand totals treat missing judge scores as zero", func() {
				So(rows, ShouldHaveLength, 3)
				So(rows[0].GrandTotal, ShouldEqual, 260)
				So(rows[1].GrandTotal, ShouldEqual, 175)
				So(rows[2].GrandTotal, ShouldEqual, 0)
			})

			Convey("Then ranks are strictly increasing 1-based positions", func() {
				So(rows[0].Rank, ShouldEqual, 1)
				So(rows[1].Rank, ShouldEqual, 2)
				So(rows[2].Rank, ShouldEqual, 3)
			})

			Convey("Then each row carries the per-judge breakdown", func() {
				So(rows[0].Contestant.ID, ShouldEqual, "c1")
				So(rows[0].Scores, ShouldResemble, model.JudgeScores{Judge1: 80, Judge2: 70, Judge3: 60, Judge4: 50})
				So(rows[1].Scores, ShouldResemble, model.JudgeScores{Judge1: 90, Judge2: 85})
			})

			Convey("Then repeated invocation yields an identical ranking", func() {
				again := ranking.Compute(contestants, scores)
				So(again, ShouldResemble, rows)
			})
		})
	})

	Convey("Given two contestants with equal grand totals", t, func() {
		contestants := []model.Contestant{
			contestant("c1", 1, "Disco Inferno"),
			contestant("c2", 2, "Velvet Groove"),
			contestant("c3", 3, "Neon Steps"),
		}
		scores := []model.Score{
			score("c1", 1, 50), score("c1", 2, 50),
			score("c2", 3, 60), score("c2", 4, 40),
			score("c3", 1, 99),
		}

		Convey("When the ranking is computed", func() {
			rows := ranking.Compute(contestants, scores)

			Convey("Then the tie is broken by contestant number ascending", func() {
				So(rows[0].Contestant.ID, ShouldEqual, "c1")
				So(rows[0].Rank, ShouldEqual, 1)
				So(rows[1].Contestant.ID, ShouldEqual, "c2")
				So(rows[1].Rank, ShouldEqual, 2)
				So(rows[2].Contestant.ID, ShouldEqual, "c3")
				So(rows[2].Rank, ShouldEqual, 3)
			})
		})
	})

	Convey("Given a replaced score for the same judge slot", t, func() {
		contestants := []model.Contestant{
			contestant("c1", 1, "Disco Inferno"),
			contestant("c2", 2, "Velvet Groove"),
		}

		Convey("When the snapshot holds the latest committed value", func() {
			rows := ranking.Compute(contestants, []model.Score{
				score("c1", 1, 40),
				score("c2", 1, 95),
			})

			Convey("Then the board reflects the replacement, not a duplicate", func() {
				So(rows[0].Contestant.ID, ShouldEqual, "c2")
				So(rows[0].GrandTotal, ShouldEqual, 95)
				So(rows[1].GrandTotal, ShouldEqual, 40)
			})
		})
	})

	Convey("Given no contestants", t, func() {
		Convey("Then the ranking is empty, not nil-panicking", func() {
			rows := ranking.Compute(nil, nil)
			So(rows, ShouldBeEmpty)
		})
	})
}
