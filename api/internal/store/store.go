// Package store keeps OCR output keyed by image fingerprint so a repeated image
// does not cost another engine call. It holds no session data.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "modernc.org/sqlite"             // sqlite driver

	"quiz-ocr/api/internal/ocr"
)

const schema = `
create table if not exists ocr_results (
  fingerprint  text   not null,
  engine       text   not null,
  model        text   not null,
  result_text  text   not null,
  created_unix bigint not null,
  primary key (fingerprint, engine, model)
)`

type RecognitionRepo struct {
	DB     *sql.DB
	driver string
	now    func() time.Time
}

// Open connects to Postgres (postgres:// or postgresql://) or SQLite
// (sqlite:<path>, file:..., :memory:) and creates the table if needed.
func Open(ctx context.Context, dsn string) (*RecognitionRepo, error) {
	driver, source, err := resolveDriver(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(time.Hour)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	r := NewRecognitionRepo(db, driver)
	if err := r.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func NewRecognitionRepo(db *sql.DB, driver string) *RecognitionRepo {
	return &RecognitionRepo{DB: db, driver: driver, now: time.Now}
}

func resolveDriver(dsn string) (driver, source string, err error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", dsn, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite:"), nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return "sqlite", dsn, nil
	}
	return "", "", fmt.Errorf("unsupported DATABASE_URL %q: use postgres://, sqlite: or file:", Summary(dsn))
}

func (r *RecognitionRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// rebind turns ? placeholders into $n for Postgres.
func (r *RecognitionRepo) rebind(q string) string {
	if r.driver != "pgx" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Find returns the stored text for (fingerprint, engine, model). If maxAge > 0
// and the row is older, ocr.ErrNoResult is returned so the engine runs again.
func (r *RecognitionRepo) Find(ctx context.Context, fingerprint, engine, model string, maxAge time.Duration) (string, error) {
	q := r.rebind(`select result_text, created_unix
	               from ocr_results
	               where fingerprint=? and engine=? and model=?`)
	var (
		text string
		ts   int64
	)
	err := r.DB.QueryRowContext(ctx, q, fingerprint, engine, model).Scan(&text, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ocr.ErrNoResult
	}
	if err != nil {
		return "", err
	}
	if maxAge > 0 && r.now().Sub(time.Unix(ts, 0)) > maxAge {
		return "", ocr.ErrNoResult
	}
	return text, nil
}

// Upsert stores or refreshes a result.
func (r *RecognitionRepo) Upsert(ctx context.Context, fingerprint, engine, model, text string) error {
	q := r.rebind(`
insert into ocr_results (fingerprint, engine, model, result_text, created_unix)
values (?, ?, ?, ?, ?)
on conflict (fingerprint, engine, model) do update
set result_text = excluded.result_text,
    created_unix = excluded.created_unix`)
	_, err := r.DB.ExecContext(ctx, q, fingerprint, engine, model, text, r.now().Unix())
	return err
}

// PurgeOlderThan deletes rows older than the given age.
func (r *RecognitionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := r.now().Add(-olderThan).Unix()
	res, err := r.DB.ExecContext(ctx, r.rebind(`delete from ocr_results where created_unix < ?`), cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

func (r *RecognitionRepo) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }

func (r *RecognitionRepo) Close() error { return r.DB.Close() }

// Summary describes a DSN without its password.
func Summary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		if strings.HasPrefix(dsn, "sqlite:") || strings.HasPrefix(dsn, "file:") {
			return dsn
		}
		return "dsn: unparsed"
	}
	host, port := u.Host, ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, u.User.Username())
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, u.User.Username())
}
