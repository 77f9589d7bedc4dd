package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scores (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	player_name  TEXT    NOT NULL,
	player_score INTEGER NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scores_rank ON scores (player_score DESC, id ASC);
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL
);`

const (
	queryTopScores = `SELECT player_name, player_score FROM scores
ORDER BY player_score DESC, id ASC LIMIT ?`
	queryBoardStats = `SELECT COUNT(*), COALESCE(MIN(player_score), 0) FROM
(SELECT player_score FROM scores ORDER BY player_score DESC, id ASC LIMIT ?)`
	queryInsertScore = `INSERT INTO scores (player_name, player_score, created_at) VALUES (?, ?, ?)`
	queryTrimScores  = `DELETE FROM scores WHERE id NOT IN
(SELECT id FROM scores ORDER BY player_score DESC, id ASC LIMIT ?)`
	queryFlushScores = `DELETE FROM scores`
	queryFindUser    = `SELECT username, password_hash, role FROM users WHERE username = ?`
	queryUpsertUser  = `INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)
ON CONFLICT(username) DO UPDATE SET password_hash = excluded.password_hash, role = excluded.role`
)

// SQLite is the SQLite backend.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at dsn and applies the
// schema.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrap("open", err)
	}
	// SQLite allows one writer; a single connection serializes access
	// instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, wrap("migrate", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Ping implements Store.
func (s *SQLite) Ping(ctx context.Context) error {
	var one int
	return wrap("ping", s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one))
}

// TopScores implements Store.
func (s *SQLite) TopScores(ctx context.Context) ([]Score, error) {
	rows, err := s.db.QueryContext(ctx, queryTopScores, TopN)
	if err != nil {
		return nil, wrap("top scores", err)
	}
	defer rows.Close()

	scores := make([]Score, 0, TopN)
	for rows.Next() {
		var sc Score
		if err := rows.Scan(&sc.PlayerName, &sc.PlayerScore); err != nil {
			return nil, wrap("top scores", err)
		}
		scores = append(scores, sc)
	}
	return scores, wrap("top scores", rows.Err())
}

// SubmitScore implements Store.
func (s *SQLite) SubmitScore(ctx context.Context, sc Score) (stored bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, wrap("submit score", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	var lowest int64
	if err = tx.QueryRowContext(ctx, queryBoardStats, TopN).Scan(&count, &lowest); err != nil {
		return false, wrap("submit score", err)
	}
	if count >= TopN && sc.PlayerScore < lowest {
		return false, wrap("submit score", tx.Commit())
	}

	if _, err = tx.ExecContext(ctx, queryInsertScore, sc.PlayerName, sc.PlayerScore, s.now().Unix()); err != nil {
		return false, wrap("submit score", err)
	}
	if _, err = tx.ExecContext(ctx, queryTrimScores, TopN); err != nil {
		return false, wrap("submit score", err)
	}
	if err = tx.Commit(); err != nil {
		return false, wrap("submit score", err)
	}
	return true, nil
}

// Flush implements Store.
func (s *SQLite) Flush(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, queryFlushScores)
	return wrap("flush", err)
}

// FindUser implements Store.
func (s *SQLite) FindUser(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, queryFindUser, username).Scan(&u.Username, &u.PasswordHash, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return u, wrap("find user", err)
}

// UpsertUser implements Store.
func (s *SQLite) UpsertUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, queryUpsertUser, u.Username, u.PasswordHash, u.Role)
	return wrap("upsert user", err)
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}
