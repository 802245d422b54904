// Package ranking computes event rankings from a score snapshot.
package ranking

import (
	"sort"

	"github.com/rxnight/tally/internal/domain/model"
)

// Compute builds the ordered ranking for one event. It is a pure
// function of the contestant list and the score snapshot: calling it
// twice with the same inputs yields the same output.
//
// Contestants must be ordered by number ascending; the sort is stable,
// so equal grand totals keep that order as the tie-break. Ranks are the
// 1-based positions after sorting; ties never share a rank.
func Compute(contestants []model.Contestant, scores []model.Score) []model.RankingRow {
	byContestant := make(map[string]model.JudgeScores, len(contestants))
	for _, s := range scores {
		js := byContestant[s.ContestantID]
		if err := js.Set(s.JudgeNumber, s.TotalScore); err != nil {
			// Out-of-range judge slots cannot come from the ledger;
			// skip rather than poison the whole board.
			continue
		}
		byContestant[s.ContestantID] = js
	}

	rows := make([]model.RankingRow, 0, len(contestants))
	for _, c := range contestants {
		js := byContestant[c.ID]
		rows = append(rows, model.RankingRow{
			Contestant: c.Summary(),
			Scores:     js,
			GrandTotal: js.Total(),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].GrandTotal > rows[j].GrandTotal
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}
