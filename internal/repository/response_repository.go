package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/godilite/survey-insights/internal/repository/models"
	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateResponse is returned when a response id is already stored.
var ErrDuplicateResponse = errors.New("response already stored")

// timeLayout sorts lexicographically, so window filters can compare text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Schema creates the response tables. Responses are append-only.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS responses (
		id TEXT PRIMARY KEY,
		submitted_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_responses_submitted_at ON responses (submitted_at)`,
	`CREATE TABLE IF NOT EXISTS response_demographics (
		response_id TEXT NOT NULL REFERENCES responses (id),
		attribute TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (response_id, attribute)
	)`,
	`CREATE TABLE IF NOT EXISTS response_ratings (
		response_id TEXT NOT NULL REFERENCES responses (id),
		kind TEXT NOT NULL,
		section TEXT NOT NULL,
		category TEXT NOT NULL,
		question_index INTEGER NOT NULL,
		score INTEGER NOT NULL,
		PRIMARY KEY (response_id, kind, section, category, question_index)
	)`,
	`CREATE TABLE IF NOT EXISTS response_comments (
		response_id TEXT NOT NULL REFERENCES responses (id),
		section TEXT NOT NULL,
		category TEXT NOT NULL,
		question_index INTEGER NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (response_id, section, category, question_index)
	)`,
}

type ResponseRepository struct {
	db *sql.DB
}

func NewResponseRepository(db *sql.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *ResponseRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Append stores one response in a single transaction.
func (s *ResponseRepository) Append(ctx context.Context, resp models.Response) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin Append: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO responses (id, submitted_at) VALUES (?, ?)`,
		resp.ID, formatTime(resp.SubmittedAt))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: %s", ErrDuplicateResponse, resp.ID)
		}
		return fmt.Errorf("insert response: %w", err)
	}

	attrs := make([]string, 0, len(resp.Demographics))
	for a := range resp.Demographics {
		attrs = append(attrs, a)
	}
	sort.Strings(attrs)
	for _, a := range attrs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO response_demographics (response_id, attribute, value) VALUES (?, ?, ?)`,
			resp.ID, a, resp.Demographics[a]); err != nil {
			return fmt.Errorf("insert demographic %q: %w", a, err)
		}
	}

	for _, r := range resp.Ratings {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO response_ratings (response_id, kind, section, category, question_index, score) VALUES (?, ?, ?, ?, ?, ?)`,
			resp.ID, r.Kind, r.Section, r.Category, r.Index, r.Score); err != nil {
			return fmt.Errorf("insert rating: %w", err)
		}
	}

	for _, c := range resp.Comments {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO response_comments (response_id, section, category, question_index, body) VALUES (?, ?, ?, ?, ?)`,
			resp.ID, c.Section, c.Category, c.Index, c.Text); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit Append: %w", err)
	}
	return nil
}

// LoadAll returns every stored response ordered by submission time.
func (s *ResponseRepository) LoadAll(ctx context.Context) ([]models.Response, error) {
	return s.load(ctx, "", nil)
}

// LoadBetween returns the responses submitted within [start, end].
// Responses stored without a submission time never match a window.
func (s *ResponseRepository) LoadBetween(ctx context.Context, start, end time.Time) ([]models.Response, error) {
	return s.load(ctx,
		"WHERE r.submitted_at > ? AND r.submitted_at >= ? AND r.submitted_at <= ?",
		[]any{formatTime(time.Time{}), formatTime(start), formatTime(end)})
}

// Count returns the number of stored responses.
func (s *ResponseRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("query Count: %w", err)
	}
	return n, nil
}

func (s *ResponseRepository) load(ctx context.Context, where string, args []any) ([]models.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.submitted_at FROM responses AS r `+where+` ORDER BY r.submitted_at, r.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}

	var out []*models.Response
	byID := make(map[string]*models.Response)
	for rows.Next() {
		var id, ts string
		if err := rows.Scan(&id, &ts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan response row: %w", err)
		}
		submitted, err := time.Parse(timeLayout, ts)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("parse submitted_at of %s: %w", id, err)
		}
		resp := &models.Response{ID: id, SubmittedAt: submitted, Demographics: make(map[string]string)}
		out = append(out, resp)
		byID[id] = resp
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	rows.Close()

	if len(out) == 0 {
		return []models.Response{}, nil
	}

	if err := s.eachRow(ctx,
		`SELECT d.response_id, d.attribute, d.value FROM response_demographics AS d
		 JOIN responses AS r ON r.id = d.response_id `+where+` ORDER BY d.response_id, d.attribute`,
		args,
		func(sc func(...any) error) error {
			var id, attr, value string
			if err := sc(&id, &attr, &value); err != nil {
				return err
			}
			if resp, ok := byID[id]; ok {
				resp.Demographics[attr] = value
			}
			return nil
		}); err != nil {
		return nil, fmt.Errorf("load demographics: %w", err)
	}

	if err := s.eachRow(ctx,
		`SELECT g.response_id, g.kind, g.section, g.category, g.question_index, g.score FROM response_ratings AS g
		 JOIN responses AS r ON r.id = g.response_id `+where+` ORDER BY g.response_id, g.kind, g.section, g.category, g.question_index`,
		args,
		func(sc func(...any) error) error {
			var id string
			var rt models.Rating
			if err := sc(&id, &rt.Kind, &rt.Section, &rt.Category, &rt.Index, &rt.Score); err != nil {
				return err
			}
			if resp, ok := byID[id]; ok {
				resp.Ratings = append(resp.Ratings, rt)
			}
			return nil
		}); err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}

	if err := s.eachRow(ctx,
		`SELECT c.response_id, c.section, c.category, c.question_index, c.body FROM response_comments AS c
		 JOIN responses AS r ON r.id = c.response_id `+where+` ORDER BY c.response_id, c.section, c.category, c.question_index`,
		args,
		func(sc func(...any) error) error {
			var id string
			var cm models.Comment
			if err := sc(&id, &cm.Section, &cm.Category, &cm.Index, &cm.Text); err != nil {
				return err
			}
			if resp, ok := byID[id]; ok {
				resp.Comments = append(resp.Comments, cm)
			}
			return nil
		}); err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}

	result := make([]models.Response, len(out))
	for i, r := range out {
		result[i] = *r
	}
	return result, nil
}

func (s *ResponseRepository) eachRow(ctx context.Context, query string, args []any, fn func(scan func(...any) error) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows.Scan); err != nil {
			return err
		}
	}
	return rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
