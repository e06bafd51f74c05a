package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"onboarding/api/internal/profile"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, role)
		VALUES ($1, $2, LOWER($3), $4, $5)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Role)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role, created_at, updated_at
		FROM users WHERE email = LOWER($1)
	`, strings.TrimSpace(email)))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role, created_at, updated_at
		FROM users WHERE id = $1
	`, userID))
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) UpdateUserRole(ctx context.Context, userID, role string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role=$2, updated_at=NOW() WHERE id=$1`, userID, role)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("read user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT u.id, u.display_name, u.email, u.password_hash, u.role, u.created_at, u.updated_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`, tokenHash))
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1 AND expires_at > NOW())`, jti).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return exists, nil
}

// Load implements profile.Repository; key is the user id.
func (s *PostgresStore) Load(ctx context.Context, key string) (*profile.Document, error) {
	var (
		raw       []byte
		version   string
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT document, schema_version, updated_at FROM profiles WHERE user_id=$1
	`, key).Scan(&raw, &version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return decodeProfile(raw, version, updatedAt)
}

func (s *PostgresStore) Save(ctx context.Context, key string, doc *profile.Document) error {
	raw, err := encodeProfile(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, document, schema_version, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET document=EXCLUDED.document, schema_version=EXCLUDED.schema_version, updated_at=NOW()
	`, key, raw, doc.SchemaVersion)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id=$1`, key); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListProfileDocuments(ctx context.Context, userID string) ([]ProfileDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, url, object_key, content_type, size, created_at
		FROM profile_documents
		WHERE user_id=$1
		ORDER BY created_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list profile documents: %w", err)
	}
	defer rows.Close()

	items := make([]ProfileDocument, 0)
	for rows.Next() {
		var item ProfileDocument
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.URL, &item.ObjectKey, &item.ContentType, &item.Size, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan profile document: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetProfileDocument(ctx context.Context, userID, documentID string) (ProfileDocument, error) {
	var item ProfileDocument
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, url, object_key, content_type, size, created_at
		FROM profile_documents WHERE user_id=$1 AND id=$2
	`, userID, documentID).Scan(&item.ID, &item.UserID, &item.Name, &item.URL, &item.ObjectKey, &item.ContentType, &item.Size, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ProfileDocument{}, ErrNotFound
	}
	if err != nil {
		return ProfileDocument{}, fmt.Errorf("get profile document: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertProfileDocument(ctx context.Context, item ProfileDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_documents (id, user_id, name, url, object_key, content_type, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.UserID, item.Name, item.URL, item.ObjectKey, item.ContentType, item.Size)
	if err != nil {
		return fmt.Errorf("insert profile document: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteProfileDocument(ctx context.Context, userID, documentID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profile_documents WHERE user_id=$1 AND id=$2`, userID, documentID)
	if err != nil {
		return fmt.Errorf("delete profile document: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
