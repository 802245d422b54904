package judgesim

import (
	"fmt"
	"log"
	"math"
)

// Tolerance for floating point comparison of grand totals.
const totalEpsilon = 0.001

// verifyResults checks the rankings projection against totals computed
// locally from the submitted scores.
func verifyResults(config *Config, contestants []contestant, submissions []Submission, rows []rankingRow) error {
	log.Println("🔍 Verifying results...")

	if len(rows) == 0 {
		return fmt.Errorf("no ranking rows to verify")
	}
	if len(rows) != len(contestants) {
		return fmt.Errorf("rankings hold %d rows, expected one per contestant (%d)", len(rows), len(contestants))
	}

	// Rebuild expected grand totals: one score per (contestant, judge),
	// resubmissions keep the latest value.
	expected := make(map[string]float64, len(contestants))
	perJudge := make(map[string]map[int]float64, len(contestants))
	for _, sub := range submissions {
		if perJudge[sub.ContestantID] == nil {
			perJudge[sub.ContestantID] = make(map[int]float64, JudgeCount)
		}
		perJudge[sub.ContestantID][sub.JudgeNumber] = sub.TotalScore
	}
	for id, judges := range perJudge {
		total := 0.0
		for _, score := range judges {
			total += score
		}
		expected[id] = total
	}

	mismatches := 0
	for _, row := range rows {
		if row.Hidden {
			return fmt.Errorf("row for contestant %d came back hidden; rankings visibility is off", row.Contestant.Number)
		}
		want, ok := expected[row.Contestant.ID]
		if !ok {
			return fmt.Errorf("rankings contain unknown contestant %s", row.Contestant.ID)
		}
		if math.Abs(row.GrandTotal-want) > totalEpsilon {
			mismatches++
			log.Printf("⚠️  Total mismatch for #%d %s: got %.3f, want %.3f",
				row.Contestant.Number, row.Contestant.Name, row.GrandTotal, want)
		}
	}
	if mismatches > 0 {
		return fmt.Errorf("%d of %d ranking rows disagree with locally computed totals", mismatches, len(rows))
	}

	if err := verifyOrdering(rows); err != nil {
		return err
	}

	displayTopRows(rows, config.TopN, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyOrdering checks descending totals with ties broken by ascending
// contestant number.
func verifyOrdering(rows []rankingRow) error {
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if cur.GrandTotal > prev.GrandTotal+totalEpsilon {
			return fmt.Errorf("rankings not sorted: row %d outscores row %d", i+1, i)
		}
		if math.Abs(cur.GrandTotal-prev.GrandTotal) <= totalEpsilon &&
			cur.Contestant.Number < prev.Contestant.Number {
			return fmt.Errorf("tie between rows %d and %d not broken by contestant number", i, i+1)
		}
		if cur.Rank < prev.Rank {
			return fmt.Errorf("rank values not monotonic at row %d", i+1)
		}
	}
	return nil
}

// displayTopRows shows the leading rows of the verified projection.
func displayTopRows(rows []rankingRow, topN int, verbose bool) {
	if topN > len(rows) {
		topN = len(rows)
	}

	log.Printf("🏆 Top %d contestants:", topN)
	for i := 0; i < topN; i++ {
		row := rows[i]
		log.Printf("   %d. #%d %s - Total: %.3f",
			row.Rank, row.Contestant.Number, row.Contestant.Name, row.GrandTotal)
	}

	if verbose && len(rows) > 0 {
		sum := 0.0
		for _, row := range rows {
			sum += row.GrandTotal
		}
		log.Printf(`📊 Total statistics:
   Average: %.3f
   Maximum: %.3f
   Minimum: %.3f
`, sum/float64(len(rows)), rows[0].GrandTotal, rows[len(rows)-1].GrandTotal)
	}
}
