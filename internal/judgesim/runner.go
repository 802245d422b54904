package judgesim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rxnight/tally/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes a complete simulated judging session.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting judge simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("contestants", config.Contestants),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Create the event and roster
	ev, err := createEvent(ctx, config)
	if err != nil {
		return fmt.Errorf("event creation failed: %w", err)
	}
	contestants, err := registerContestants(ctx, config, ev, stats)
	if err != nil {
		return fmt.Errorf("contestant registration failed: %w", err)
	}

	// Step 3: Turn on rankings visibility so totals come back unredacted
	if err := enableRankings(ctx, config, ev); err != nil {
		return fmt.Errorf("enabling rankings failed: %w", err)
	}

	// Step 4: Generate judge submissions
	submissions, err := generateSubmissions(ctx, contestants, stats)
	if err != nil {
		return fmt.Errorf("score generation failed: %w", err)
	}

	// Step 5: Submit scores concurrently
	if err := submitScores(ctx, config, submissions, stats); err != nil {
		return fmt.Errorf("score submission failed: %w", err)
	}

	// Step 6: Give the broadcast pipeline a moment to drain
	logger.Get().Info(ctx, "waiting for the pipeline to settle")
	time.Sleep(SettleDelay)

	// Step 7: Fetch the rankings projection
	rows, err := fetchRankings(ctx, config, ev, stats)
	if err != nil {
		return fmt.Errorf("ranking retrieval failed: %w", err)
	}

	// Step 8: Verify results
	if err := verifyResults(config, contestants, submissions, rows); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 9: Save submissions to file
	if err := saveSubmissionsToFile(ctx, config, submissions); err != nil {
		logger.Get().Warn(ctx, "failed to save submissions to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveSubmissionsToFile saves the generated submissions to a JSON file.
func saveSubmissionsToFile(ctx context.Context, config *Config, submissions []Submission) error {
	if len(submissions) == 0 {
		return fmt.Errorf("no submissions to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "judgesim_scores_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write submissions to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, sub := range submissions {
		jsonData, err := marshalJSON(sub)
		if err != nil {
			return fmt.Errorf("failed to marshal submission %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write submission %d: %w", i, err)
		}

		// Add comma except for last submission
		if i < len(submissions)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "submissions saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, scoresPerSecond float64

	if stats.ScoresSubmitted > 0 {
		successRate = float64(stats.ScoresAccepted) / float64(stats.ScoresSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		scoresPerSecond = float64(stats.ScoresSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("contestantsCreated", stats.ContestantsCreated),
		logger.Int("scoresGenerated", stats.ScoresGenerated),
		logger.Int("scoresSubmitted", stats.ScoresSubmitted),
		logger.Int("scoresAccepted", stats.ScoresAccepted),
		logger.Int("scoresRejected", stats.ScoresRejected),
		logger.Int("scoresFailed", stats.ScoresFailed),
		logger.Int("rankingRows", stats.RankingRows),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("scoresPerSecond", scoresPerSecond))
}
