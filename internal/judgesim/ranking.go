package judgesim

import (
	"context"
	"fmt"
	"log"
)

// fetchRankings retrieves the full rankings projection for the event.
func fetchRankings(ctx context.Context, config *Config, ev event, stats *Stats) ([]rankingRow, error) {
	log.Printf("🏆 Fetching rankings for event %s...", ev.ID)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/api/scores/event/%s/rankings", config.BaseURL, ev.ID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var rows []rankingRow
	if err := unmarshalJSON(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.RankingRows = len(rows)
	log.Printf("✅ Retrieved %d ranking rows", len(rows))

	return rows, nil
}
