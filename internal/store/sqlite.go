package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"onboarding/api/internal/profile"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'member',
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS refresh_sessions (
	token_hash TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	expires_at TEXT NOT NULL,
	revoked_at TEXT
);

CREATE TABLE IF NOT EXISTS revoked_access_tokens (
	jti        TEXT PRIMARY KEY,
	expires_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	user_id        TEXT PRIMARY KEY,
	document       TEXT NOT NULL,
	schema_version TEXT NOT NULL DEFAULT '',
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS profile_documents (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	name         TEXT NOT NULL,
	url          TEXT NOT NULL,
	object_key   TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	size         INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_profile_documents_user ON profile_documents(user_id, created_at);
`

// SQLiteStore is the single-file backend used for local development.
// It offers the same operations as PostgresStore.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := openSQLiteDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) stamp() string {
	return formatTime(s.now())
}

// sqliteTime is fixed width so stored timestamps compare correctly as text.
const sqliteTime = "2006-01-02 15:04:05.000000000"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTime)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(sqliteTime, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user User) error {
	now := s.stamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, LOWER(?), ?, ?, ?, ?)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Role, now, now)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanSQLiteUser(s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role, created_at, updated_at
		FROM users WHERE email = LOWER(?)
	`, strings.TrimSpace(email)))
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return scanSQLiteUser(s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role, created_at, updated_at
		FROM users WHERE id = ?
	`, userID))
}

func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) UpdateUserRole(ctx context.Context, userID, role string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role=?, updated_at=? WHERE id=?`, role, s.stamp(), userID)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return requireRow(res)
}

func scanSQLiteUser(row *sql.Row) (User, error) {
	var (
		user              User
		created, modified string
	)
	err := row.Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role, &created, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("read user: %w", err)
	}
	user.CreatedAt = parseTime(created)
	user.UpdatedAt = parseTime(modified)
	return user, nil
}

func (s *SQLiteStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=excluded.user_id, expires_at=excluded.expires_at, revoked_at=NULL
	`, tokenHash, userID, formatTime(expiresAt))
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=? WHERE token_hash=?`, s.stamp(), tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	return scanSQLiteUser(s.db.QueryRowContext(ctx, `
		SELECT u.id, u.display_name, u.email, u.password_hash, u.role, u.created_at, u.updated_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = ?
			AND rs.revoked_at IS NULL
			AND rs.expires_at > ?
	`, tokenHash, s.stamp()))
}

func (s *SQLiteStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at) VALUES (?, ?)
		ON CONFLICT (jti) DO NOTHING
	`, jti, formatTime(exp))
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *SQLiteStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=? AND expires_at > ?)`, jti, s.stamp()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return exists, nil
}

// Load implements profile.Repository; key is the user id.
func (s *SQLiteStore) Load(ctx context.Context, key string) (*profile.Document, error) {
	var raw, version, updated string
	err := s.db.QueryRowContext(ctx, `SELECT document, schema_version, updated_at FROM profiles WHERE user_id=?`, key).Scan(&raw, &version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return decodeProfile([]byte(raw), version, parseTime(updated))
}

func (s *SQLiteStore) Save(ctx context.Context, key string, doc *profile.Document) error {
	raw, err := encodeProfile(doc)
	if err != nil {
		return err
	}
	version := ""
	if doc != nil {
		version = doc.SchemaVersion
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, document, schema_version, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET document=excluded.document, schema_version=excluded.schema_version, updated_at=excluded.updated_at
	`, key, string(raw), version, s.stamp())
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id=?`, key); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListProfileDocuments(ctx context.Context, userID string) ([]ProfileDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, url, object_key, content_type, size, created_at
		FROM profile_documents
		WHERE user_id=?
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list profile documents: %w", err)
	}
	defer rows.Close()

	items := make([]ProfileDocument, 0)
	for rows.Next() {
		var (
			item    ProfileDocument
			created string
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.URL, &item.ObjectKey, &item.ContentType, &item.Size, &created); err != nil {
			return nil, fmt.Errorf("scan profile document: %w", err)
		}
		item.CreatedAt = parseTime(created)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) GetProfileDocument(ctx context.Context, userID, documentID string) (ProfileDocument, error) {
	var (
		item    ProfileDocument
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, url, object_key, content_type, size, created_at
		FROM profile_documents WHERE user_id=? AND id=?
	`, userID, documentID).Scan(&item.ID, &item.UserID, &item.Name, &item.URL, &item.ObjectKey, &item.ContentType, &item.Size, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return ProfileDocument{}, ErrNotFound
	}
	if err != nil {
		return ProfileDocument{}, fmt.Errorf("get profile document: %w", err)
	}
	item.CreatedAt = parseTime(created)
	return item, nil
}

func (s *SQLiteStore) InsertProfileDocument(ctx context.Context, item ProfileDocument) error {
	created := item.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_documents (id, user_id, name, url, object_key, content_type, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.UserID, item.Name, item.URL, item.ObjectKey, item.ContentType, item.Size, formatTime(created))
	if err != nil {
		return fmt.Errorf("insert profile document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteProfileDocument(ctx context.Context, userID, documentID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profile_documents WHERE user_id=? AND id=?`, userID, documentID)
	if err != nil {
		return fmt.Errorf("delete profile document: %w", err)
	}
	return requireRow(res)
}
