package judgesim

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/rxnight/tally/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "judgesim_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the judge simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Tally Judge Simulator
=====================

A concurrent tool that drives the tally scoring pipeline end to end:
it registers an event and a roster, submits scores from all four judge
seats, then fetches the rankings projection and verifies the totals.

Usage:
  go run cmd/judge-sim/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -contestants int
        Number of contestants to register (default 50)
  -top int
        Number of top rows to display after verification (default 10)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated submissions (default: judgesim_scores_TIMESTAMP.json)
  -log string
        Log file for run output (default: judgesim_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Run with default settings
  go run cmd/judge-sim/main.go

  # Stress a remote instance with a large roster
  go run cmd/judge-sim/main.go -contestants 500 -workers 16 -url http://localhost:8080

  # Run with verbose output and a custom log file
  go run cmd/judge-sim/main.go -verbose -log my_run.log
`)
}
