package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

const schema = `CREATE TABLE IF NOT EXISTS libctl_session (
	id INTEGER PRIMARY KEY,
	token TEXT NOT NULL,
	user_id TEXT NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	student_code TEXT NOT NULL DEFAULT '',
	saved_at TIMESTAMP NOT NULL
)`

// SQLStore keeps the credentials in a single row (id = 1).
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore wraps an open database. Call Migrate once before use.
func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d}
}

// Open connects to dsn: postgres:// or postgresql:// goes through pgx,
// anything else is a sqlite file path.
func Open(ctx context.Context, dsn string) (*SQLStore, error) {
	driver, d := "sqlite3", SQLite
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver, d = "pgx", Postgres
	} else if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("session: create dir: %w", err)
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("session: open: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: ping: %w", err)
	}
	if d == SQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(2)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	s := NewSQLStore(db, d)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("session: migrate: %w", err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context) (Credentials, bool, error) {
	var c Credentials
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, username, student_code, saved_at FROM libctl_session WHERE id = 1`,
	).Scan(&c.Token, &c.UserID, &c.Username, &c.StudentCode, &c.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, fmt.Errorf("session: load: %w", err)
	}
	return c, true, nil
}

func (s *SQLStore) Save(ctx context.Context, c Credentials) error {
	if c.SavedAt.IsZero() {
		c.SavedAt = time.Now().UTC()
	}
	q := s.rebind(`INSERT INTO libctl_session (id, token, user_id, username, student_code, saved_at)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET token = excluded.token, user_id = excluded.user_id,
username = excluded.username, student_code = excluded.student_code, saved_at = excluded.saved_at`)
	if _, err := s.db.ExecContext(ctx, q, c.Token, c.UserID, c.Username, c.StudentCode, c.SavedAt); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM libctl_session WHERE id = 1`); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQLStore) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
