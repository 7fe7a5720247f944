package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vvoice/signaling/internal/domain"
)

// SQLiteStore backs the catalog, chat history, and user profiles with a
// single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		role TEXT NOT NULL DEFAULT 'member',
		avatar_url TEXT,
		bio TEXT DEFAULT '',
		is_banned INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		protected INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		user_name TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_channel_time ON messages(channel_id, created_at);

	-- Seed the protected default channel
	INSERT OR IGNORE INTO channels (id, name, description, position, protected)
	VALUES ('1', 'General', 'General voice channel', 0, 1);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, position FROM channels ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Description, &ch.Position); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateChannel(ctx context.Context, name, description string) (domain.Channel, error) {
	var maxPos, maxID sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(position), MAX(CAST(id AS INTEGER)) FROM channels`).
		Scan(&maxPos, &maxID); err != nil {
		return domain.Channel{}, err
	}

	ch := domain.Channel{
		ID:          domain.ChannelID(strconv.FormatInt(maxID.Int64+1, 10)),
		Name:        name,
		Description: description,
		Position:    int(maxPos.Int64) + 1,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (id, name, description, position) VALUES (?, ?, ?, ?)
	`, ch.ID, ch.Name, ch.Description, ch.Position)
	if err != nil {
		return domain.Channel{}, err
	}
	return ch, nil
}

func (s *SQLiteStore) RenameChannel(ctx context.Context, id domain.ChannelID, name string) (domain.Channel, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE channels SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return domain.Channel{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Channel{}, sql.ErrNoRows
	}

	var ch domain.Channel
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, description, position FROM channels WHERE id = ?
	`, id).Scan(&ch.ID, &ch.Name, &ch.Description, &ch.Position)
	return ch, err
}

func (s *SQLiteStore) DeleteChannel(ctx context.Context, id domain.ChannelID) (bool, error) {
	var protected int
	err := s.db.QueryRowContext(ctx, `SELECT protected FROM channels WHERE id = ?`, id).Scan(&protected)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if protected == 1 {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, rec domain.ChatRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (channel_id, user_id, user_name, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.RoomID, rec.SenderID, rec.UserName, rec.Content, rec.CreatedAt)
	return err
}

func (s *SQLiteStore) RecentMessages(ctx context.Context, roomID domain.RoomID, limit int) ([]domain.ChatRecord, error) {
	// Last N messages, replayed oldest first.
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, user_id, user_name, content, created_at FROM (
			SELECT * FROM messages
			WHERE channel_id = ?
			ORDER BY created_at DESC
			LIMIT ?
		) ORDER BY created_at ASC
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ChatRecord
	for rows.Next() {
		var rec domain.ChatRecord
		if err := rows.Scan(&rec.RoomID, &rec.SenderID, &rec.UserName, &rec.Content, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FindUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	u := &domain.User{}
	var avatar sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, role, avatar_url, bio, is_banned FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Username, &u.Role, &avatar, &u.Bio, &u.IsBanned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.AvatarURL = avatar.String
	return u, nil
}
