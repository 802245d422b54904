package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rxnight/tally/internal/domain/model"
	"github.com/rxnight/tally/pkg/metrics"
)

const timeFormat = time.RFC3339Nano

// Schema for the SQLite store. The UNIQUE(contestant_id, judge_number)
// index is the storage-level uniqueness guarantee of the ledger: any
// bypass path (bulk import, manual correction) hits the same
// constraint the upsert does.
const schema = `
CREATE TABLE IF NOT EXISTS event (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('dance', 'outfit')),
    criteria TEXT NOT NULL DEFAULT '[]',
    is_active INTEGER NOT NULL DEFAULT 0,
    is_live INTEGER NOT NULL DEFAULT 0,
    show_rankings INTEGER NOT NULL DEFAULT 0,
    reveal_top INTEGER NOT NULL DEFAULT 0 CHECK (reveal_top >= 0),
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contestant (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL REFERENCES event(id) ON DELETE CASCADE,
    number INTEGER NOT NULL,
    name TEXT NOT NULL,
    group_name TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contestant_event ON contestant(event_id, number);

CREATE TABLE IF NOT EXISTS score (
    id TEXT PRIMARY KEY,
    contestant_id TEXT NOT NULL REFERENCES contestant(id) ON DELETE CASCADE,
    event_id TEXT NOT NULL REFERENCES event(id) ON DELETE CASCADE,
    judge_number INTEGER NOT NULL CHECK (judge_number BETWEEN 1 AND 4),
    total_score REAL NOT NULL CHECK (total_score BETWEEN 0 AND 100),
    submitted_at TEXT NOT NULL,
    UNIQUE (contestant_id, judge_number)
);

CREATE INDEX IF NOT EXISTS idx_score_event ON score(event_id);
`

// SQLiteStore implements Store on modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// SQLiteOption applies a configuration option to the SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteClock overrides the time source for tests.
func WithSQLiteClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// OpenSQLite opens (creating if needed) a SQLite store at path.
// ":memory:" yields an ephemeral store.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path must not be empty")
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer connection keeps SQLITE_BUSY out of the mutation path.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func marshalCriteria(criteria []model.Criterion) (string, error) {
	if criteria == nil {
		criteria = []model.Criterion{}
	}
	raw, err := json.Marshal(criteria)
	if err != nil {
		return "", fmt.Errorf("marshal criteria: %w", err)
	}
	return string(raw), nil
}

func unmarshalCriteria(raw string) ([]model.Criterion, error) {
	criteria := []model.Criterion{}
	if raw == "" {
		return criteria, nil
	}
	if err := json.Unmarshal([]byte(raw), &criteria); err != nil {
		return nil, fmt.Errorf("unmarshal criteria: %w", err)
	}
	return criteria, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeFormat, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateEvent persists a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	if ev.Criteria == nil {
		ev.Criteria = []model.Criterion{}
	}
	criteria, err := marshalCriteria(ev.Criteria)
	if err != nil {
		return model.Event{}, err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO event (id, name, type, criteria, is_active, is_live, show_rankings, reveal_top, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Name, string(ev.Type), criteria,
		ev.IsActive, ev.IsLive, ev.ShowRankings, ev.RevealTop,
		ev.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return ev, nil
}

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var (
		ev        model.Event
		evType    string
		criteria  string
		createdAt string
	)
	if err := row.Scan(&ev.ID, &ev.Name, &evType, &criteria, &ev.IsActive, &ev.IsLive, &ev.ShowRankings, &ev.RevealTop, &createdAt); err != nil {
		return model.Event{}, err
	}
	ev.Type = model.EventType(evType)
	parsed, err := unmarshalCriteria(criteria)
	if err != nil {
		return model.Event{}, err
	}
	ev.Criteria = parsed
	ev.CreatedAt = parseTime(createdAt)
	return ev, nil
}

const eventColumns = `id, name, type, criteria, is_active, is_live, show_rankings, reveal_top, created_at`

// GetEvent returns an event by id.
func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (model.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM event WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// ListEvents returns all events, newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM event ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// UpdateEvent replaces an event record.
func (s *SQLiteStore) UpdateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	criteria, err := marshalCriteria(ev.Criteria)
	if err != nil {
		return model.Event{}, err
	}
	res, err := s.db.ExecContext(ctx, `
        UPDATE event SET name = ?, type = ?, criteria = ?, is_active = ?, is_live = ?, show_rankings = ?, reveal_top = ?
        WHERE id = ?`,
		ev.Name, string(ev.Type), criteria, ev.IsActive, ev.IsLive, ev.ShowRankings, ev.RevealTop, ev.ID,
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Event{}, fmt.Errorf("event %s: %w", ev.ID, ErrNotFound)
	}
	return s.GetEvent(ctx, ev.ID)
}

// DeleteEvent removes an event; contestants and scores cascade.
func (s *SQLiteStore) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM event WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return nil
}

const contestantColumns = `id, event_id, number, name, group_name, created_at`

func scanContestant(row interface{ Scan(...any) error }) (model.Contestant, error) {
	var (
		c         model.Contestant
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.EventID, &c.Number, &c.Name, &c.GroupName, &createdAt); err != nil {
		return model.Contestant{}, err
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// CreateContestant persists a new contestant.
func (s *SQLiteStore) CreateContestant(ctx context.Context, c model.Contestant) (model.Contestant, error) {
	if err := c.Validate(); err != nil {
		return model.Contestant{}, err
	}
	if _, err := s.GetEvent(ctx, c.EventID); err != nil {
		return model.Contestant{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO contestant (id, event_id, number, name, group_name, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.EventID, c.Number, c.Name, c.GroupName, c.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return model.Contestant{}, fmt.Errorf("insert contestant: %w", err)
	}
	return c, nil
}

// GetContestant returns a contestant by id.
func (s *SQLiteStore) GetContestant(ctx context.Context, id string) (model.Contestant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contestantColumns+` FROM contestant WHERE id = ?`, id)
	c, err := scanContestant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contestant{}, fmt.Errorf("contestant %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Contestant{}, fmt.Errorf("get contestant: %w", err)
	}
	return c, nil
}

// ListContestants returns an event's contestants by number ascending.
func (s *SQLiteStore) ListContestants(ctx context.Context, eventID string) ([]model.Contestant, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+contestantColumns+` FROM contestant WHERE event_id = ? ORDER BY number, id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list contestants: %w", err)
	}
	defer rows.Close()

	out := make([]model.Contestant, 0)
	for rows.Next() {
		c, err := scanContestant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contestant: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contestants: %w", err)
	}
	return out, nil
}

// UpdateContestant replaces a contestant record. EventID is immutable.
func (s *SQLiteStore) UpdateContestant(ctx context.Context, c model.Contestant) (model.Contestant, error) {
	prev, err := s.GetContestant(ctx, c.ID)
	if err != nil {
		return model.Contestant{}, err
	}
	c.EventID = prev.EventID
	c.CreatedAt = prev.CreatedAt
	if err := c.Validate(); err != nil {
		return model.Contestant{}, err
	}
	_, err = s.db.ExecContext(ctx, `
        UPDATE contestant SET number = ?, name = ?, group_name = ? WHERE id = ?`,
		c.Number, c.Name, c.GroupName, c.ID,
	)
	if err != nil {
		return model.Contestant{}, fmt.Errorf("update contestant: %w", err)
	}
	return c, nil
}

// DeleteContestant removes a contestant; its scores cascade.
func (s *SQLiteStore) DeleteContestant(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contestant WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contestant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("contestant %s: %w", id, ErrNotFound)
	}
	return nil
}

const scoreColumns = `id, contestant_id, event_id, judge_number, total_score, submitted_at`

func scanScore(row interface{ Scan(...any) error }) (model.Score, error) {
	var (
		sc          model.Score
		submittedAt string
	)
	if err := row.Scan(&sc.ID, &sc.ContestantID, &sc.EventID, &sc.JudgeNumber, &sc.TotalScore, &submittedAt); err != nil {
		return model.Score{}, err
	}
	sc.SubmittedAt = parseTime(submittedAt)
	return sc, nil
}

// UpsertScore commits a score via an atomic conditional write on the
// (contestant_id, judge_number) unique index.
func (s *SQLiteStore) UpsertScore(ctx context.Context, sc model.Score) (model.Score, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := model.ValidateJudgeNumber(sc.JudgeNumber); err != nil {
		return model.Score{}, err
	}
	if err := model.ValidateTotalScore(sc.TotalScore); err != nil {
		return model.Score{}, err
	}
	c, err := s.GetContestant(ctx, sc.ContestantID)
	if err != nil {
		return model.Score{}, err
	}

	id := sc.ID
	if id == "" {
		id = uuid.NewString()
	}
	submittedAt := s.now().UTC()
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO score (id, contestant_id, event_id, judge_number, total_score, submitted_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (contestant_id, judge_number)
        DO UPDATE SET total_score = excluded.total_score, submitted_at = excluded.submitted_at`,
		id, sc.ContestantID, c.EventID, sc.JudgeNumber, sc.TotalScore, submittedAt.Format(timeFormat),
	)
	if err != nil {
		return model.Score{}, fmt.Errorf("upsert score: %w", err)
	}
	metrics.RecordScoreUpserted()

	// Read back the committed row: on replace the original id survives.
	row := s.db.QueryRowContext(ctx, `
        SELECT `+scoreColumns+` FROM score WHERE contestant_id = ? AND judge_number = ?`,
		sc.ContestantID, sc.JudgeNumber,
	)
	committed, err := scanScore(row)
	if err != nil {
		return model.Score{}, fmt.Errorf("read back score: %w", err)
	}
	return committed, nil
}

// GetScore returns a committed score by id.
func (s *SQLiteStore) GetScore(ctx context.Context, id string) (model.Score, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scoreColumns+` FROM score WHERE id = ?`, id)
	sc, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Score{}, fmt.Errorf("score %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Score{}, fmt.Errorf("get score: %w", err)
	}
	return sc, nil
}

// DeleteScore removes one score and returns the removed record.
func (s *SQLiteStore) DeleteScore(ctx context.Context, id string) (model.Score, error) {
	sc, err := s.GetScore(ctx, id)
	if err != nil {
		return model.Score{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM score WHERE id = ?`, id); err != nil {
		return model.Score{}, fmt.Errorf("delete score: %w", err)
	}
	metrics.RecordScoreDeleted()
	return sc, nil
}

// ClearEventScores removes every score of an event.
func (s *SQLiteStore) ClearEventScores(ctx context.Context, eventID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM score WHERE event_id = ?`, eventID)
	if err != nil {
		return 0, fmt.Errorf("clear scores: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SnapshotScores returns all scores of an event.
func (s *SQLiteStore) SnapshotScores(ctx context.Context, eventID string) ([]model.Score, error) {
	return s.ListScores(ctx, ScoreFilter{EventID: eventID})
}

// ListScores returns scores matching the filter, judge number ascending.
func (s *SQLiteStore) ListScores(ctx context.Context, f ScoreFilter) ([]model.Score, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	query := `SELECT ` + scoreColumns + ` FROM score WHERE 1=1`
	args := make([]any, 0, 2)
	if f.EventID != "" {
		query += ` AND event_id = ?`
		args = append(args, f.EventID)
	}
	if f.ContestantID != "" {
		query += ` AND contestant_id = ?`
		args = append(args, f.ContestantID)
	}
	query += ` ORDER BY judge_number, contestant_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	out := make([]model.Score, 0)
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return out, nil
}
