package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/rxnight/tally/internal/judgesim"
)

// Default configuration constants.
const (
	defaultContestants = 50
	defaultTopN        = 10
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		contestants = flag.Int("contestants", defaultContestants, "Number of contestants to register")
		topN        = flag.Int("top", defaultTopN, "Number of top rows to display after verification")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for generated submissions (default: judgesim_scores_TIMESTAMP.json)")
		logFile     = flag.String("log", "", "Log file for run output (default: judgesim_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		judgesim.ShowHelp()
		return
	}

	// Setup logging
	if err := judgesim.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	// Create run configuration
	config := &judgesim.Config{
		BaseURL:     *baseURL,
		Contestants: *contestants,
		TopN:        *topN,
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	// Run the simulation
	if err := judgesim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
