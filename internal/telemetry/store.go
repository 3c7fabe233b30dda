package telemetry

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ZeroResultRetention is how many zero-result queries the store keeps.
const ZeroResultRetention = 100

// SQLMetricsStore implements QueryMetricsStore on the record store's
// database. It works on both SQLite and Postgres.
type SQLMetricsStore struct {
	db *sqlx.DB
}

// Verify interface implementation at compile time
var _ QueryMetricsStore = (*SQLMetricsStore)(nil)

// NewSQLMetricsStore creates the telemetry tables if needed and returns a
// store over db. The caller keeps ownership of db.
func NewSQLMetricsStore(db *sqlx.DB) (*SQLMetricsStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := initSchema(db); err != nil {
		return nil, err
	}
	return &SQLMetricsStore{db: db}, nil
}

func initSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS query_operation_stats (
			date TEXT NOT NULL,
			operation TEXT NOT NULL,
			count BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (date, operation)
		)`,
		`CREATE TABLE IF NOT EXISTS query_terms (
			term TEXT PRIMARY KEY,
			count BIGINT NOT NULL DEFAULT 1,
			last_seen BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC)`,
		`CREATE TABLE IF NOT EXISTS zero_result_queries (
			id ` + serial + `,
			query TEXT NOT NULL,
			seen_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS query_latency_stats (
			date TEXT NOT NULL,
			bucket TEXT NOT NULL,
			count BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (date, bucket)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create telemetry schema: %w", err)
		}
	}
	return nil
}

// SaveOperationCounts implements QueryMetricsStore.
func (s *SQLMetricsStore) SaveOperationCounts(date string, counts map[Operation]int64) error {
	return s.addDaily(`
		INSERT INTO query_operation_stats (date, operation, count)
		VALUES (?, ?, ?)
		ON CONFLICT (date, operation) DO UPDATE SET count = query_operation_stats.count + excluded.count
	`, date, toStringKeys(counts))
}

// GetOperationCounts implements QueryMetricsStore.
func (s *SQLMetricsStore) GetOperationCounts(from, to string) (map[Operation]int64, error) {
	raw, err := s.sumDaily(`
		SELECT operation AS name, SUM(count) AS total
		FROM query_operation_stats
		WHERE date >= ? AND date <= ?
		GROUP BY operation
	`, from, to)
	if err != nil {
		return nil, err
	}
	return fromStringKeys[Operation](raw), nil
}

// UpsertTermCounts implements QueryMetricsStore.
func (s *SQLMetricsStore) UpsertTermCounts(terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Preparex(tx.Rebind(`
		INSERT INTO query_terms (term, count, last_seen)
		VALUES (?, ?, ?)
		ON CONFLICT (term) DO UPDATE SET
			count = query_terms.count + excluded.count,
			last_seen = excluded.last_seen
	`))
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for term, count := range terms {
		if _, err := stmt.Exec(term, count, now); err != nil {
			return fmt.Errorf("upsert term count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetTopTerms implements QueryMetricsStore.
func (s *SQLMetricsStore) GetTopTerms(limit int) ([]TermCount, error) {
	var terms []TermCount
	err := s.db.Select(&terms, s.db.Rebind(`
		SELECT term, count
		FROM query_terms
		ORDER BY count DESC, term ASC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	return terms, nil
}

// AddZeroResultQuery implements QueryMetricsStore. Only the newest
// ZeroResultRetention entries are kept.
func (s *SQLMetricsStore) AddZeroResultQuery(query string, timestamp time.Time) error {
	_, err := s.db.Exec(s.db.Rebind(`
		INSERT INTO zero_result_queries (query, seen_at)
		VALUES (?, ?)
	`), query, timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert zero-result query: %w", err)
	}

	_, err = s.db.Exec(s.db.Rebind(`
		DELETE FROM zero_result_queries
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id FROM zero_result_queries ORDER BY id DESC LIMIT ?
			) AS keep
		)
	`), ZeroResultRetention)
	if err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}
	return nil
}

// GetZeroResultQueries implements QueryMetricsStore.
func (s *SQLMetricsStore) GetZeroResultQueries(limit int) ([]string, error) {
	var queries []string
	err := s.db.Select(&queries, s.db.Rebind(`
		SELECT query
		FROM zero_result_queries
		ORDER BY id DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	return queries, nil
}

// SaveLatencyCounts implements QueryMetricsStore.
func (s *SQLMetricsStore) SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	return s.addDaily(`
		INSERT INTO query_latency_stats (date, bucket, count)
		VALUES (?, ?, ?)
		ON CONFLICT (date, bucket) DO UPDATE SET count = query_latency_stats.count + excluded.count
	`, date, toStringKeys(counts))
}

// GetLatencyCounts implements QueryMetricsStore.
func (s *SQLMetricsStore) GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error) {
	raw, err := s.sumDaily(`
		SELECT bucket AS name, SUM(count) AS total
		FROM query_latency_stats
		WHERE date >= ? AND date <= ?
		GROUP BY bucket
	`, from, to)
	if err != nil {
		return nil, err
	}
	return fromStringKeys[LatencyBucket](raw), nil
}

func (s *SQLMetricsStore) addDaily(query, date string, counts map[string]int64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Preparex(tx.Rebind(query))
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for name, count := range counts {
		if _, err := stmt.Exec(date, name, count); err != nil {
			return fmt.Errorf("insert daily count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLMetricsStore) sumDaily(query, from, to string) (map[string]int64, error) {
	var rows []struct {
		Name  string `db:"name"`
		Total int64  `db:"total"`
	}
	if err := s.db.Select(&rows, s.db.Rebind(query), from, to); err != nil {
		return nil, fmt.Errorf("query daily counts: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Total
	}
	return out, nil
}

func toStringKeys[K ~string](m map[K]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func fromStringKeys[K ~string](m map[string]int64) map[K]int64 {
	out := make(map[K]int64, len(m))
	for k, v := range m {
		out[K(k)] = v
	}
	return out
}
