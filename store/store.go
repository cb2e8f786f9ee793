// Package store keeps the history of completed meal analyses in a SQL
// database, sqlite or postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/bububa/meal-agents/meal"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrNotFound no record with the requested id
var ErrNotFound = errors.New("meal record not found")

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS meals (
		id TEXT PRIMARY KEY,
		food_name TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		calories DOUBLE PRECISION NOT NULL,
		carbs DOUBLE PRECISION NOT NULL,
		protein DOUBLE PRECISION NOT NULL,
		fat DOUBLE PRECISION NOT NULL,
		description TEXT NOT NULL,
		items TEXT NOT NULL,
		hint TEXT NOT NULL DEFAULT '',
		image_key TEXT NOT NULL DEFAULT '',
		lookup_errors INTEGER NOT NULL DEFAULT 0,
		input_tokens BIGINT NOT NULL DEFAULT 0,
		output_tokens BIGINT NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meals_created_at ON meals(created_at)`,
}

const selectColumns = `id, food_name, confidence, calories, carbs, protein, fat, description, items, hint, image_key, lookup_errors, input_tokens, output_tokens, created_at`

// Record is one stored analysis
type Record struct {
	ID           string          `json:"id"`
	Report       meal.MealReport `json:"report"`
	Hint         string          `json:"hint,omitempty"`
	ImageKey     string          `json:"imageKey,omitempty"`
	LookupErrors int             `json:"lookupErrors"`
	InputTokens  int64           `json:"inputTokens"`
	OutputTokens int64           `json:"outputTokens"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NewRecord builds the record of a completed run
func NewRecord(run *meal.Run, hint string) (*Record, error) {
	if run == nil || run.Report == nil {
		return nil, errors.New("run has no report")
	}
	createdAt := run.FinishedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &Record{
		ID:           run.ID,
		Report:       *run.Report,
		Hint:         hint,
		LookupErrors: len(run.LookupErrors),
		InputTokens:  run.Usage.InputTokens,
		OutputTokens: run.Usage.OutputTokens,
		CreatedAt:    createdAt,
	}, nil
}

// SQLStore stores records through database/sql
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates the schema when missing
func Open(ctx context.Context, driver string, dsn string) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	s := &SQLStore{db: db, driver: driver}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save inserts a record
func (s *SQLStore) Save(ctx context.Context, r *Record) error {
	items := r.Report.Items
	if items == nil {
		items = []meal.FoodItem{}
	}
	bs, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	query := s.rebind(`INSERT INTO meals (` + selectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Report.FoodName, r.Report.Confidence,
		r.Report.Calories, r.Report.Carbs, r.Report.Protein, r.Report.Fat,
		r.Report.Description, string(bs), r.Hint, r.ImageKey,
		r.LookupErrors, r.InputTokens, r.OutputTokens, r.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}
	return nil
}

// Get returns the record with id or ErrNotFound
func (s *SQLStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+selectColumns+` FROM meals WHERE id = ?`), id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal: %w", err)
	}
	return r, nil
}

// List returns records newest first
func (s *SQLStore) List(ctx context.Context, limit int, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	offset = max(offset, 0)
	query := s.rebind(`SELECT ` + selectColumns + ` FROM meals ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()
	ret := make([]Record, 0, limit)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		ret = append(ret, *r)
	}
	return ret, rows.Err()
}

// Delete removes the record with id, ErrNotFound when there is none
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM meals WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored records
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meals`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count meals: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r         Record
		items     string
		createdAt int64
	)
	err := row.Scan(&r.ID, &r.Report.FoodName, &r.Report.Confidence,
		&r.Report.Calories, &r.Report.Carbs, &r.Report.Protein, &r.Report.Fat,
		&r.Report.Description, &items, &r.Hint, &r.ImageKey,
		&r.LookupErrors, &r.InputTokens, &r.OutputTokens, &createdAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &r.Report.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &r, nil
}

// rebind turns ? placeholders into $n for postgres
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 16)
	for _, c := range query {
		if c != '?' {
			b.WriteRune(c)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}
