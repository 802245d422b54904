package judgesim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// Put performs a PUT request with an optional JSON body
func (c *HTTPClient) Put(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	var buf io.Reader
	if body != nil {
		jsonData, err := marshalJSON(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		buf = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitScores submits judge scores concurrently using worker pools
func submitScores(ctx context.Context, config *Config, submissions []Submission, stats *Stats) error {
	log.Printf("📤 Submitting %d scores with %d workers...", len(submissions), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/scores"

	// Counters for statistics
	var (
		accepted  int64
		rejected  int64
		failed    int64
		submitted int64
	)

	// Progress reporting
	var lastReport atomic.Int64
	reportInterval := 1 * time.Second

	// Create worker pool
	subChan := make(chan Submission, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for sub := range subChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleScore(ctx, client, url, sub)

					// Update counters
					atomic.AddInt64(&submitted, 1)
					switch result {
					case "accepted":
						atomic.AddInt64(&accepted, 1)
					case "rejected":
						atomic.AddInt64(&rejected, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					now := time.Now()
					if last := lastReport.Load(); now.UnixNano()-last >= int64(reportInterval) &&
						lastReport.CompareAndSwap(last, now.UnixNano()) {
						total := atomic.LoadInt64(&submitted)
						acc := atomic.LoadInt64(&accepted)
						rej := atomic.LoadInt64(&rejected)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d submitted (accepted: %d, rejected: %d, failed: %d)",
								total, len(submissions), acc, rej, fail)
						} else {
							fmt.Printf("\r📤 Submitted: %d/%d (accepted: %d, rejected: %d, failed: %d)",
								total, len(submissions), acc, rej, fail)
						}
					}
				}
			}
		}(i)
	}

	// Send submissions to workers
	go func() {
		defer close(subChan)
		for _, sub := range submissions {
			select {
			case <-ctx.Done():
				return
			case subChan <- sub:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.ScoresSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ScoresAccepted = int(atomic.LoadInt64(&accepted))
	stats.ScoresRejected = int(atomic.LoadInt64(&rejected))
	stats.ScoresFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Score submission completed:
   Accepted: %d
   Rejected: %d
   Failed: %d
`, stats.ScoresAccepted, stats.ScoresRejected, stats.ScoresFailed)

	return nil
}

// submitSingleScore submits a single score and returns the result
func submitSingleScore(ctx context.Context, client *HTTPClient, url string, sub Submission) string {
	resp, err := client.Post(ctx, url, sub)
	if err != nil {
		return "failed"
	}

	// Read response body
	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusCreated:
		// Created - the score was committed (insert or replace)
		var ack submitAck
		if err := unmarshalJSON(body, &ack); err == nil && ack.Score.ID != "" {
			return "accepted"
		}
		return "accepted" // Assume success for 201 even if parsing fails
	case http.StatusBadRequest:
		// Validation failure
		return "rejected"
	default:
		// Error
		return "failed"
	}
}
