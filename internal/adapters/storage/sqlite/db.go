// Package sqlite persists messages and profiles in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dkeye/Chatline/internal/core"
	"github.com/dkeye/Chatline/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

type DB struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc serialises writers per connection; one is enough here.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL DEFAULT '',
			profile_image TEXT NOT NULL DEFAULT '',
			about         TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS messages (
			id           TEXT PRIMARY KEY,
			sender_id    TEXT NOT NULL,
			recipient_id TEXT NOT NULL,
			type         TEXT NOT NULL,
			content      TEXT NOT NULL,
			status       TEXT NOT NULL,
			created_at   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS messages_pair ON messages (sender_id, recipient_id, created_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	log.Info().Str("module", "storage.sqlite").Str("path", path).Msg("database ready")
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) CreateMessage(ctx context.Context, msg domain.StoredMessage) (domain.StoredMessage, error) {
	if err := msg.Validate(); err != nil {
		return domain.StoredMessage{}, err
	}
	msg.ID = domain.MessageID(uuid.NewString())
	msg.CreatedAt = time.Now().UTC()
	if msg.Status == "" {
		msg.Status = domain.StatusSent
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO messages (id, sender_id, recipient_id, type, content, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(msg.ID), string(msg.SenderID), string(msg.RecipientID), msg.Type, msg.Content, msg.Status,
		msg.CreatedAt.UnixNano(),
	)
	if err != nil {
		return domain.StoredMessage{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

func (d *DB) Conversation(ctx context.Context, a, b domain.UserID) ([]domain.StoredMessage, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, sender_id, recipient_id, type, content, status, created_at
		 FROM messages
		 WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
		 ORDER BY created_at, rowid`,
		string(a), string(b), string(b), string(a),
	)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StoredMessage, 0)
	for rows.Next() {
		var (
			m       domain.StoredMessage
			created int64
		)
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Type, &m.Content, &m.Status, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *DB) UpsertProfile(ctx context.Context, p domain.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, email, profile_image, about) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			profile_image = excluded.profile_image,
			about = excluded.about`,
		string(p.ID), p.Name, p.Email, p.ProfileImage, p.About,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (d *DB) Profile(ctx context.Context, id domain.UserID) (domain.Profile, error) {
	var p domain.Profile
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, email, profile_image, about FROM profiles WHERE id = ?`, string(id),
	).Scan(&p.ID, &p.Name, &p.Email, &p.ProfileImage, &p.About)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, fmt.Errorf("profile %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("query profile: %w", err)
	}
	return p, nil
}

var (
	_ core.MessageStore     = (*DB)(nil)
	_ core.ProfileDirectory = (*DB)(nil)
)
