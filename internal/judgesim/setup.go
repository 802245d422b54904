package judgesim

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rxnight/tally/pkg/logger"
)

// Criteria percentages for the simulated event.
const (
	techniquePct    = 40.0
	choreographyPct = 35.0
	stagePct        = 25.0
)

// createEvent registers a fresh event for the run and returns it.
func createEvent(ctx context.Context, config *Config) (event, error) {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/events"

	payload := map[string]interface{}{
		"name": "Judge Simulation " + time.Now().Format("20060102_150405"),
		"type": "dance",
		"criteria": []map[string]interface{}{
			{"name": "Technique", "percentage": techniquePct},
			{"name": "Choreography", "percentage": choreographyPct},
			{"name": "Stage Presence", "percentage": stagePct},
		},
	}

	resp, err := client.Post(ctx, url, payload)
	if err != nil {
		return event{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return event{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusCreated {
		return event{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var ev event
	if err := unmarshalJSON(body, &ev); err != nil {
		return event{}, fmt.Errorf("failed to parse response: %w", err)
	}

	logger.Get().Info(ctx, "created simulation event",
		logger.String("eventId", ev.ID),
		logger.String("name", ev.Name))
	return ev, nil
}

// registerContestants creates the roster for the run.
func registerContestants(ctx context.Context, config *Config, ev event, stats *Stats) ([]contestant, error) {
	log.Printf("🎽 Registering %d contestants...", config.Contestants)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/contestants"

	contestants := make([]contestant, 0, config.Contestants)
	for i := 1; i <= config.Contestants; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during registration: %w", ctx.Err())
		default:
		}

		payload := map[string]interface{}{
			"eventId":   ev.ID,
			"number":    i,
			"name":      fmt.Sprintf("Sim Crew %03d", i),
			"groupName": "SIMULATED ROSTER",
		}

		resp, err := client.Post(ctx, url, payload)
		if err != nil {
			return nil, fmt.Errorf("failed to register contestant %d: %w", i, err)
		}

		body, err := readResponseBody(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to read response for contestant %d: %w", i, err)
		}
		if resp.StatusCode != StatusCreated {
			return nil, fmt.Errorf("contestant %d: HTTP %d: %s", i, resp.StatusCode, string(body))
		}

		var c contestant
		if err := unmarshalJSON(body, &c); err != nil {
			return nil, fmt.Errorf("failed to parse contestant %d: %w", i, err)
		}
		contestants = append(contestants, c)
	}

	stats.ContestantsCreated = len(contestants)
	log.Printf("✅ Registered %d contestants", len(contestants))
	return contestants, nil
}

// enableRankings flips the visibility switch so the rankings projection
// comes back with real totals instead of redacted rows.
func enableRankings(ctx context.Context, config *Config, ev event) error {
	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/api/events/%s/toggle-rankings", config.BaseURL, ev.ID)

	resp, err := client.Put(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var updated event
	if err := unmarshalJSON(body, &updated); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !updated.ShowRankings {
		return fmt.Errorf("rankings still hidden for event %s after toggle", ev.ID)
	}

	logger.Get().Info(ctx, "rankings visibility enabled", logger.String("eventId", ev.ID))
	return nil
}
