package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// CredentialRepo handles session-scoped credential rows.
type CredentialRepo struct {
	db *sql.DB
}

func NewCredentialRepo(db *sql.DB) *CredentialRepo { return &CredentialRepo{db: db} }

// Get returns the stored value for sessionID when it has not expired at now.
func (r *CredentialRepo) Get(ctx context.Context, sessionID string, now time.Time) (*SessionCredential, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT session_id, credential, updated_at, expires_at
	FROM session_credentials
	WHERE session_id = ? AND expires_at > ?`, sessionID, now.Unix())
	var (
		c                  SessionCredential
		updated, expiresAt int64
	)
	if err := row.Scan(&c.SessionID, &c.Value, &updated, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.UpdatedAt = time.Unix(updated, 0).UTC()
	c.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &c, nil
}

// Upsert writes c, replacing any previous value for the session.
func (r *CredentialRepo) Upsert(ctx context.Context, c SessionCredential) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO session_credentials(session_id, credential, updated_at, expires_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
	 credential=excluded.credential,
	 updated_at=excluded.updated_at,
	 expires_at=excluded.expires_at;
	`, c.SessionID, c.Value, c.UpdatedAt.Unix(), c.ExpiresAt.Unix())
	return err
}

func (r *CredentialRepo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_credentials WHERE session_id = ?`, sessionID)
	return err
}

// PruneExpired removes rows whose session has ended and reports how many.
func (r *CredentialRepo) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM session_credentials WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
