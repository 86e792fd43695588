package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"airease-backend/pkg/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLStore implements WatchStore on SQLite or PostgreSQL through sqlx.
// Queries are written with '?' placeholders and rebound per driver.
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

// watchRow mirrors the watches table, with nullable columns.
type watchRow struct {
	ID                string        `db:"id"`
	From              string        `db:"from_code"`
	To                string        `db:"to_code"`
	DepartDate        string        `db:"depart_date"`
	TargetPrice       float64       `db:"target_price"`
	Email             string        `db:"email"`
	Active            bool          `db:"active"`
	CreatedAt         time.Time     `db:"created_at"`
	LastCheck         sql.NullTime  `db:"last_check"`
	LastMatch         sql.NullTime  `db:"last_match"`
	MatchedPrice      sql.NullInt64 `db:"matched_price"`
	NotificationCount int           `db:"notification_count"`
	LastNotification  sql.NullTime  `db:"last_notification"`
	DispatchFailures  int           `db:"dispatch_failures"`
}

func (r watchRow) toModel() models.Watch {
	w := models.Watch{
		ID:                r.ID,
		From:              r.From,
		To:                r.To,
		DepartDate:        r.DepartDate,
		TargetPrice:       r.TargetPrice,
		Email:             r.Email,
		Active:            r.Active,
		CreatedAt:         r.CreatedAt.UTC(),
		NotificationCount: r.NotificationCount,
		DispatchFailures:  r.DispatchFailures,
	}
	w.LastCheck = nullTime(r.LastCheck)
	w.LastMatch = nullTime(r.LastMatch)
	w.LastNotification = nullTime(r.LastNotification)
	if r.MatchedPrice.Valid {
		p := int(r.MatchedPrice.Int64)
		w.MatchedPrice = &p
	}
	return w
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

const watchColumns = `id, from_code, to_code, depart_date, target_price, email, active,
	created_at, last_check, last_match, matched_price, notification_count,
	last_notification, dispatch_failures`

// OpenSQLite opens (or creates) a SQLite database at path,
// enables WAL mode, and runs any pending schema migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	return newSQLStore(ctx, db, "sqlite")
}

// OpenPostgres connects to PostgreSQL and runs any pending schema migrations.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("opening postgres db: empty DSN")
	}

	strategies := []string{
		addConnectionParams(dsn, "connect_timeout=10"),
		dsn, // 最后尝试原始DSN
	}

	var lastErr error
	for i, strategy := range strategies {
		db, err := sqlx.Open("postgres", strategy)
		if err != nil {
			lastErr = err
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			slog.Warn("postgres connection strategy failed", "strategy", i+1, "error", err)
			db.Close()
			lastErr = err
			continue
		}

		return newSQLStore(ctx, db, "postgres")
	}

	return nil, fmt.Errorf("connecting to postgres: %w", lastErr)
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" || strings.Contains(dsn, params) {
		return dsn
	}
	// key=value 形式的 DSN
	if !strings.Contains(dsn, "://") {
		return dsn + " " + strings.ReplaceAll(params, "&", " ")
	}

	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + params
}

func newSQLStore(ctx context.Context, db *sqlx.DB, driver string) (*SQLStore, error) {
	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// migrate checks the current schema version and applies any
// outstanding migrations in order, each inside its own transaction.
func (s *SQLStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSchemaVersion); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	currentVersion := 0
	if err := s.db.GetContext(ctx, &currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

func (s *SQLStore) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO schema_version (version) VALUES (?)"), m.version); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration version.
func (s *SQLStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	return v, err
}

// Driver returns the SQL driver name.
func (s *SQLStore) Driver() string { return s.driver }

func (s *SQLStore) selectWatches(ctx context.Context, where string, args ...interface{}) ([]models.Watch, error) {
	query := "SELECT " + watchColumns + " FROM watches"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY created_at, id"

	var rows []watchRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying watches: %w", err)
	}

	watches := make([]models.Watch, 0, len(rows))
	for _, r := range rows {
		watches = append(watches, r.toModel())
	}
	return watches, nil
}

// ListActive returns active watches in store order.
func (s *SQLStore) ListActive(ctx context.Context) ([]models.Watch, error) {
	return s.selectWatches(ctx, "active = ?", true)
}

// List returns all watches in store order.
func (s *SQLStore) List(ctx context.Context) ([]models.Watch, error) {
	return s.selectWatches(ctx, "")
}

// Get retrieves a single watch by ID.
func (s *SQLStore) Get(ctx context.Context, id string) (*models.Watch, error) {
	var r watchRow
	query := s.db.Rebind("SELECT " + watchColumns + " FROM watches WHERE id = ?")
	if err := s.db.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("getting watch %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting watch %s: %w", id, err)
	}
	w := r.toModel()
	return &w, nil
}

// Insert stores a new watch. Generates a UUID if ID is empty.
func (s *SQLStore) Insert(ctx context.Context, w *models.Watch) error {
	newWatchDefaults(w, uuid.NewString)

	query := s.db.Rebind(`INSERT INTO watches (` + watchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		w.ID, w.From, w.To, w.DepartDate, w.TargetPrice, w.Email, w.Active,
		w.CreatedAt, utcPtr(w.LastCheck), utcPtr(w.LastMatch), w.MatchedPrice, w.NotificationCount,
		utcPtr(w.LastNotification), w.DispatchFailures,
	)
	if err != nil {
		return fmt.Errorf("inserting watch: %w", err)
	}
	return nil
}

// RecordCheck sets lastCheck only.
func (s *SQLStore) RecordCheck(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, "recording check", id,
		"UPDATE watches SET last_check = ? WHERE id = ?", at.UTC(), id)
}

// RecordNoMatch sets lastCheck and clears matched_price.
func (s *SQLStore) RecordNoMatch(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, "recording check", id,
		"UPDATE watches SET last_check = ?, matched_price = NULL WHERE id = ?", at.UTC(), id)
}

// RecordMatch records a dispatched notification for the watch.
func (s *SQLStore) RecordMatch(ctx context.Context, id string, matchedPrice int, at time.Time) error {
	at = at.UTC()
	return s.execOne(ctx, "recording match", id, `
		UPDATE watches SET
			last_match = ?, last_notification = ?, last_check = ?, matched_price = ?,
			notification_count = notification_count + 1,
			dispatch_failures = 0
		WHERE id = ?`,
		at, at, at, matchedPrice, id)
}

// RecordDispatchFailure increments dispatch_failures and deactivates the
// watch in the same statement once maxAttempts is reached.
func (s *SQLStore) RecordDispatchFailure(ctx context.Context, id string, maxAttempts int) (bool, error) {
	var out struct {
		Failures int  `db:"dispatch_failures"`
		Active   bool `db:"active"`
	}
	query := s.db.Rebind(`
		UPDATE watches SET
			dispatch_failures = dispatch_failures + 1,
			active = CASE WHEN ? > 0 AND dispatch_failures + 1 >= ? THEN FALSE ELSE active END
		WHERE id = ?
		RETURNING dispatch_failures, active`)
	if err := s.db.GetContext(ctx, &out, query, maxAttempts, maxAttempts, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("recording dispatch failure %s: %w", id, ErrNotFound)
		}
		return false, fmt.Errorf("recording dispatch failure %s: %w", id, err)
	}
	return !out.Active && maxAttempts > 0 && out.Failures >= maxAttempts, nil
}

// SetActive toggles a watch.
func (s *SQLStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.execOne(ctx, "updating watch", id,
		"UPDATE watches SET active = ? WHERE id = ?", active, id)
}

// Delete removes a watch by ID.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	return s.execOne(ctx, "deleting watch", id, "DELETE FROM watches WHERE id = ?", id)
}

func (s *SQLStore) execOne(ctx context.Context, op, id, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}

// Ping 健康检查
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
