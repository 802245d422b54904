package judgesim

import "time"

// Config holds configuration for a simulated judging run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Contestants int           // Number of contestants to register
	TopN        int           // Number of top rows to display after verification
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for generated submissions
	LogFile     string        // Log file for run output
	Verbose     bool          // Enable verbose logging
}

// Submission is a single judge score heading for the scores endpoint.
type Submission struct {
	ContestantID string  `json:"contestantId"`
	JudgeNumber  int     `json:"judgeNumber"`
	TotalScore   float64 `json:"totalScore"`
}

// contestant mirrors the contestant resource returned by the API.
type contestant struct {
	ID      string `json:"id"`
	EventID string `json:"eventId"`
	Number  int    `json:"number"`
	Name    string `json:"name"`
}

// event mirrors the event resource returned by the API.
type event struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	ShowRankings bool   `json:"showRankings"`
}

// rankingRow mirrors one row of the rankings projection.
type rankingRow struct {
	Contestant struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Number int    `json:"number"`
	} `json:"contestant"`
	Scores struct {
		Judge1 float64 `json:"judge1"`
		Judge2 float64 `json:"judge2"`
		Judge3 float64 `json:"judge3"`
		Judge4 float64 `json:"judge4"`
	} `json:"scores"`
	GrandTotal float64 `json:"grandTotal"`
	Rank       int     `json:"rank"`
	Hidden     bool    `json:"hidden"`
}

// submitAck is the response body of a score submission.
type submitAck struct {
	Score struct {
		ID           string  `json:"id"`
		ContestantID string  `json:"contestantId"`
		JudgeNumber  int     `json:"judgeNumber"`
		TotalScore   float64 `json:"totalScore"`
	} `json:"score"`
}

// Stats holds run statistics.
type Stats struct {
	ContestantsCreated int
	ScoresGenerated    int
	ScoresSubmitted    int
	ScoresAccepted     int
	ScoresRejected     int
	ScoresFailed       int
	RankingRows        int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
