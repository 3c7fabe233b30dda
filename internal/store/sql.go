package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// columns are the record attributes stored as real columns. Clauses on any
// other name apply to the JSON fields.
var columns = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"deleted_at": true,
}

// SQLStore implements Store on SQLite or Postgres through sqlx.
// Safe for concurrent use.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

// Verify interface implementation at compile time
var _ Store = (*SQLStore)(nil)

// recordRow is the table layout. Timestamps are unix milliseconds so the
// schema is identical on both drivers.
type recordRow struct {
	ID        string        `db:"id"`
	Type      string        `db:"type"`
	Fields    string        `db:"fields"`
	CreatedAt int64         `db:"created_at"`
	UpdatedAt int64         `db:"updated_at"`
	DeletedAt sql.NullInt64 `db:"deleted_at"`
}

// Open connects to the store. For sqlite an empty dsn opens an in-memory
// database and a file path gets its directory created and WAL enabled.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, "":
		return openSQLite(ctx, dsn)
	case DriverPostgres:
		db, err := sqlx.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, openError(driver, err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, openError(driver, err)
		}
		return &SQLStore{db: db, driver: DriverPostgres, now: time.Now}, nil
	default:
		return nil, scouterrors.New(scouterrors.ErrCodeStoreOpen, fmt.Sprintf("unsupported store driver %q", driver), nil).
			WithSuggestion("use store.driver: sqlite or postgres")
	}
}

func openSQLite(ctx context.Context, path string) (*SQLStore, error) {
	dsn := path
	if path == "" || path == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, openError(DriverSQLite, fmt.Errorf("failed to create directory: %w", err))
		}
	}

	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, openError(DriverSQLite, err)
	}

	// Single connection: required for :memory: and avoids writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if dsn != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, openError(DriverSQLite, fmt.Errorf("failed to set pragma: %w", err))
		}
	}

	return &SQLStore{db: db, driver: DriverSQLite, now: time.Now}, nil
}

func openError(driver string, err error) error {
	return scouterrors.New(scouterrors.ErrCodeStoreOpen, "failed to open "+driver+" store", err).
		WithSuggestion("check store.driver and store.dsn")
}

// Migrate implements Store.
func (s *SQLStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id         TEXT NOT NULL,
		type       TEXT NOT NULL,
		fields     TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		deleted_at BIGINT,
		PRIMARY KEY (type, id)
	)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return scouterrors.StoreError("failed to create records table", err)
	}
	return nil
}

// Upsert implements Store. CreatedAt and UpdatedAt default to now.
func (s *SQLStore) Upsert(ctx context.Context, records ...*Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return scouterrors.StoreError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := s.db.Rebind(`
		INSERT INTO records (id, type, fields, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (type, id) DO UPDATE SET
			fields = excluded.fields,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at`)

	now := s.now()
	for _, r := range records {
		row, err := toRow(r, now)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query,
			row.ID, row.Type, row.Fields, row.CreatedAt, row.UpdatedAt, row.DeletedAt); err != nil {
			return scouterrors.StoreError("failed to upsert record "+r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return scouterrors.StoreError("failed to commit records", err)
	}
	return nil
}

// SoftDelete implements Store.
func (s *SQLStore) SoftDelete(ctx context.Context, typ, id string) error {
	return s.setDeleted(ctx, typ, id, sql.NullInt64{Int64: s.now().UnixMilli(), Valid: true})
}

// Restore implements Store.
func (s *SQLStore) Restore(ctx context.Context, typ, id string) error {
	return s.setDeleted(ctx, typ, id, sql.NullInt64{})
}

func (s *SQLStore) setDeleted(ctx context.Context, typ, id string, deletedAt sql.NullInt64) error {
	query := s.db.Rebind(`UPDATE records SET deleted_at = ?, updated_at = ? WHERE type = ? AND id = ?`)
	if _, err := s.db.ExecContext(ctx, query, deletedAt, s.now().UnixMilli(), typ, id); err != nil {
		return scouterrors.StoreError("failed to update record "+id, err)
	}
	return nil
}

// FindByIDs implements Store. Clauses on real columns are applied in SQL;
// clauses on JSON fields are applied to the decoded rows.
func (s *SQLStore) FindByIDs(ctx context.Context, typ string, ids []string, rq *scout.RecordQuery) (map[string]Record, error) {
	found := make(map[string]Record, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	where := []string{"type = ?", "id IN (?)"}
	args := []any{typ, ids}
	var fieldClauses []scout.Clause

	if rq != nil {
		for _, c := range rq.Clauses {
			if !columns[c.Column] {
				fieldClauses = append(fieldClauses, c)
				continue
			}
			sqlClause, sqlArgs, err := columnClause(c)
			if err != nil {
				return nil, err
			}
			where = append(where, sqlClause)
			args = append(args, sqlArgs...)
		}
	}

	query, args, err := sqlx.In(
		"SELECT id, type, fields, created_at, updated_at, deleted_at FROM records WHERE "+strings.Join(where, " AND "),
		args...)
	if err != nil {
		return nil, scouterrors.StoreError("failed to build record query", err)
	}

	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, scouterrors.StoreError("failed to load records", err)
	}

	for _, row := range rows {
		r, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		if matchesFields(r, fieldClauses) {
			found[r.ID] = r
		}
	}

	slog.Debug("records_loaded",
		slog.String("type", typ),
		slog.Int("requested", len(ids)),
		slog.Int("found", len(found)))

	return found, nil
}

// Count implements Store.
func (s *SQLStore) Count(ctx context.Context, typ string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM records WHERE type = ?`), typ); err != nil {
		return 0, scouterrors.StoreError("failed to count records", err)
	}
	return n, nil
}

// Driver returns the driver name.
func (s *SQLStore) Driver() string {
	return s.driver
}

// DB returns the underlying connection so other tables can share it.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func columnClause(c scout.Clause) (string, []any, error) {
	switch c.Op {
	case scout.OpEq:
		if len(c.Values) != 1 {
			return "", nil, invalidClause(c)
		}
		return c.Column + " = ?", []any{columnValue(c.Values[0])}, nil
	case scout.OpIn:
		if len(c.Values) == 0 {
			// Empty IN matches nothing.
			return "1 = 0", nil, nil
		}
		vals := make([]any, len(c.Values))
		for i, v := range c.Values {
			vals[i] = columnValue(v)
		}
		return c.Column + " IN (?)", []any{vals}, nil
	case scout.OpNull:
		return c.Column + " IS NULL", nil, nil
	case scout.OpNotNull:
		return c.Column + " IS NOT NULL", nil, nil
	default:
		return "", nil, invalidClause(c)
	}
}

func columnValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UnixMilli()
	}
	return v
}

func invalidClause(c scout.Clause) error {
	return scouterrors.New(scouterrors.ErrCodeInvalidFilter,
		fmt.Sprintf("invalid %s clause on %s", c.Op, c.Column), nil)
}

// matchesFields applies clauses to JSON fields. Values compare by their
// formatted text so 42 matches "42".
func matchesFields(r Record, clauses []scout.Clause) bool {
	for _, c := range clauses {
		v, ok := r.Fields[c.Column]
		set := ok && v != nil
		switch c.Op {
		case scout.OpNull:
			if set {
				return false
			}
		case scout.OpNotNull:
			if !set {
				return false
			}
		case scout.OpEq, scout.OpIn:
			if !set || !containsText(c.Values, v) {
				return false
			}
		}
	}
	return true
}

func containsText(values []any, v any) bool {
	want := fmt.Sprint(v)
	for _, candidate := range values {
		if fmt.Sprint(candidate) == want {
			return true
		}
	}
	return false
}

func toRow(r *Record, now time.Time) (recordRow, error) {
	if r.ID == "" || r.Type == "" {
		return recordRow{}, scouterrors.ValidationError("record id and type are required", nil)
	}
	fields := r.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return recordRow{}, scouterrors.ValidationError("record fields are not JSON encodable", err)
	}

	created := r.CreatedAt
	if created.IsZero() {
		created = now
	}
	updated := r.UpdatedAt
	if updated.IsZero() {
		updated = now
	}

	row := recordRow{
		ID:        r.ID,
		Type:      r.Type,
		Fields:    string(data),
		CreatedAt: created.UnixMilli(),
		UpdatedAt: updated.UnixMilli(),
	}
	if r.DeletedAt != nil {
		row.DeletedAt = sql.NullInt64{Int64: r.DeletedAt.UnixMilli(), Valid: true}
	}
	return row, nil
}

func fromRow(row recordRow) (Record, error) {
	r := Record{
		ID:        row.ID,
		Type:      row.Type,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(row.UpdatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(row.Fields), &r.Fields); err != nil {
		return Record{}, scouterrors.StoreError("record "+row.ID+" has corrupt fields", err)
	}
	if row.DeletedAt.Valid {
		deleted := time.UnixMilli(row.DeletedAt.Int64).UTC()
		r.DeletedAt = &deleted
	}
	return r, nil
}
