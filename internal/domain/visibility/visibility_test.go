package visibility_test

import (
	"testing"

	"github.com/rxnight/tally/internal/domain/model"
	"github.com/rxnight/tally/internal/domain/visibility"
	. "github.com/smartystreets/goconvey/convey"
)

func board() []model.RankingRow {
	names := []string{"Disco Inferno", "Velvet Groove", "Neon Steps", "Funk Machine", "Moonwalkers"}
	rows := make([]model.RankingRow, len(names))
	for i, name := range names {
		rows[i] = model.RankingRow{
			Contestant: model.ContestantSummary{ID: name, Name: name, Number: i + 1},
			GrandTotal: float64(300 - i*10),
			Rank:       i + 1,
		}
	}
	return rows
}

func TestProject(t *testing.T) {
	Convey("Given a five-row ranking", t, func() {
		rows := board()

		Convey("When rankings are not shown", func() {
			out := visibility.Project(rows, visibility.Controls{ShowRankings: false, RevealTop: 3})

			Convey("Then every row is hidden regardless of revealTop", func() {
				So(out, ShouldHaveLength, 5)
				for _, row := range out {
					So(row.Hidden, ShouldBeTrue)
					So(row.Rank, ShouldEqual, 0)
					So(row.GrandTotal, ShouldEqual, 0)
					So(row.Contestant.Name, ShouldBeBlank)
				}
			})
		})

		Convey("When rankings are shown with revealTop=0", func() {
			out := visibility.Project(rows, visibility.Controls{ShowRankings: true})

			Convey("Then all rows are disclosed", func() {
				for i, row := range out {
					So(row.Hidden, ShouldBeFalse)
					So(row.Rank, ShouldEqual, i+1)
				}
			})
		})

		Convey("When rankings are shown with revealTop=3", func() {
			out := visibility.Project(rows, visibility.Controls{ShowRankings: true, RevealTop: 3})

			Convey("Then exactly the three highest-ranked rows are disclosed", func() {
				So(out[0].Hidden, ShouldBeFalse)
				So(out[1].Hidden, ShouldBeFalse)
				So(out[2].Hidden, ShouldBeFalse)
				So(out[3].Hidden, ShouldBeTrue)
				So(out[4].Hidden, ShouldBeTrue)
			})

			Convey("Then hidden rows still occupy their positions", func() {
				So(out, ShouldHaveLength, 5)
			})
		})

		Convey("When revealTop exceeds the row count", func() {
			out := visibility.Project(rows, visibility.Controls{ShowRankings: true, RevealTop: 50})

			Convey("Then every row is disclosed", func() {
				for _, row := range out {
					So(row.Hidden, ShouldBeFalse)
				}
			})
		})

		Convey("Then the input ranking is never mutated", func() {
			_ = visibility.Project(rows, visibility.Controls{ShowRankings: false})
			So(rows[0].Hidden, ShouldBeFalse)
			So(rows[0].Contestant.Name, ShouldEqual, "Disco Inferno")
		})
	})
}
