// Package visibility projects rankings through the live operator controls.
package visibility

import "github.com/rxnight/tally/internal/domain/model"

// Controls are the operator flags that gate what spectators see.
// IsLive is deliberately absent: it drives a badge, not the gate.
type Controls struct {
	ShowRankings bool
	RevealTop    int
}

// Project applies the controls to a computed ranking and returns the
// projection pushed to displays. The input is never mutated.
//
// showRankings=false hides every row. Otherwise revealTop=0 discloses
// all rows, and revealTop=N discloses the N highest-ranked rows ("top"
// means rank 1 first, not contestant number order).
func Project(rows []model.RankingRow, c Controls) []model.RankingRow {
	out := make([]model.RankingRow, len(rows))
	for i, row := range rows {
		switch {
		case !c.ShowRankings:
			out[i] = row.Redacted()
		case c.RevealTop > 0 && row.Rank > c.RevealTop:
			out[i] = row.Redacted()
		default:
			out[i] = row
		}
	}
	return out
}
