// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Judging bounds. Every event is scored by exactly four judges on a
// 0-100 scale.
const (
	JudgeMin = 1
	JudgeMax = 4

	ScoreMin = 0.0
	ScoreMax = 100.0
)

// EventType classifies a competition event.
type EventType string

// Supported event types.
const (
	EventTypeDance  EventType = "dance"
	EventTypeOutfit EventType = "outfit"
)

// Valid reports whether the event type is one of the supported kinds.
func (t EventType) Valid() bool {
	return t == EventTypeDance || t == EventTypeOutfit
}

// Criterion is one judging criterion of an event. Percentages are not
// validated to sum to 100; that is a data-entry concern.
type Criterion struct {
	Name        string  `json:"name"`
	Percentage  float64 `json:"percentage"`
	Description string  `json:"description,omitempty"`
}

// Event is one judged competition with its own contestants, scores,
// and live control flags.
type Event struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     EventType   `json:"type"`
	Criteria []Criterion `json:"criteria"`

	// Live operator controls. IsLive drives the "LIVE" badge only;
	// ShowRankings and RevealTop gate what spectators see.
	IsActive     bool `json:"isActive"`
	IsLive       bool `json:"isLive"`
	ShowRankings bool `json:"showRankings"`
	RevealTop    int  `json:"revealTop"`

	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the fields an operator can get wrong on create/update.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: event name must not be empty", ErrValidation)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrValidation, e.Type)
	}
	return ValidateRevealTop(e.RevealTop)
}

// Contestant is one entry in an event. EventID is immutable after
// creation; Number is the display order within the event.
type Contestant struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	Number    int       `json:"number"`
	Name      string    `json:"name"`
	GroupName string    `json:"groupName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks contestant fields on create/update.
func (c *Contestant) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: contestant name must not be empty", ErrValidation)
	}
	if c.EventID == "" {
		return fmt.Errorf("%w: contestant must reference an event", ErrValidation)
	}
	return nil
}

// Score is one judge's score for one contestant. At most one Score
// exists per (ContestantID, JudgeNumber); a later submission for the
// same pair replaces the prior value.
type Score struct {
	ID           string    `json:"id"`
	ContestantID string    `json:"contestantId"`
	EventID      string    `json:"eventId"`
	JudgeNumber  int       `json:"judgeNumber"`
	TotalScore   float64   `json:"totalScore"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// ValidateJudgeNumber rejects judge slots outside 1..4.
func ValidateJudgeNumber(n int) error {
	if n < JudgeMin || n > JudgeMax {
		return fmt.Errorf("%w: judge number %d outside [%d,%d]", ErrValidation, n, JudgeMin, JudgeMax)
	}
	return nil
}

// ValidateTotalScore rejects scores outside 0..100.
func ValidateTotalScore(v float64) error {
	if v < ScoreMin || v > ScoreMax {
		return fmt.Errorf("%w: total score %g outside [%g,%g]", ErrValidation, v, ScoreMin, ScoreMax)
	}
	return nil
}

// ValidateRevealTop rejects negative reveal-top values. Zero means
// reveal all rows.
func ValidateRevealTop(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: revealTop %d must be >= 0", ErrValidation, n)
	}
	return nil
}

// JudgeScores holds the four judge slots of one contestant. A judge
// that has not scored yet contributes zero.
type JudgeScores struct {
	Judge1 float64 `json:"judge1"`
	Judge2 float64 `json:"judge2"`
	Judge3 float64 `json:"judge3"`
	Judge4 float64 `json:"judge4"`
}

// Set assigns the score for a judge slot.
func (j *JudgeScores) Set(judge int, score float64) error {
	switch judge {
	case 1:
		j.Judge1 = score
	case 2:
		j.Judge2 = score
	case 3:
		j.Judge3 = score
	case 4:
		j.Judge4 = score
	default:
		return ValidateJudgeNumber(judge)
	}
	return nil
}

// Total sums all four judge slots.
func (j JudgeScores) Total() float64 {
	return j.Judge1 + j.Judge2 + j.Judge3 + j.Judge4
}

// ContestantSummary is the contestant shape embedded in ranking rows.
type ContestantSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Number    int    `json:"number"`
	GroupName string `json:"groupName,omitempty"`
}

// Summary reduces a contestant to the fields displays render.
func (c *Contestant) Summary() ContestantSummary {
	return ContestantSummary{
		ID:        c.ID,
		Name:      c.Name,
		Number:    c.Number,
		GroupName: c.GroupName,
	}
}

// RankingRow is one row of a computed ranking. Rows are derived on
// every mutation and never stored between mutations.
type RankingRow struct {
	Contestant ContestantSummary `json:"contestant"`
	Scores     JudgeScores       `json:"scores"`
	GrandTotal float64           `json:"grandTotal"`
	Rank       int               `json:"rank"`
	Hidden     bool              `json:"hidden"`
}

// Redacted returns a copy of the row with everything blanked except
// the fact that the row exists. A hidden row must not disclose rank,
// identity, scores, or total.
func (r RankingRow) Redacted() RankingRow {
	return RankingRow{Hidden: true}
}
