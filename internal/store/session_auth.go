package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/examdesk/examdesk/internal/model"
)

// Login sessions carry opaque 256-bit tokens with a fixed lifetime, no
// sliding renewal.
const sessionLifetime = 24 * time.Hour

// CreateAuthSession issues a fresh login token for the user.
func (s *Store) CreateAuthSession(userID int64) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := time.Now()
	if _, err := s.db.Exec(
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(sessionLifetime),
	); err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthSession resolves a token to its session. Unknown and expired
// tokens both yield nil; expired rows linger until CleanupExpiredSessions.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT id, user_id, created_at, expires_at
		 FROM auth_sessions WHERE id = ? AND expires_at > ?`,
		token, time.Now(),
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteAuthSession invalidates a token, typically on logout.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// CleanupExpiredSessions purges sessions past their expiry. Called once at
// server startup.
func (s *Store) CleanupExpiredSessions() error {
	res, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("purged expired sessions", "count", n)
	}
	return nil
}
