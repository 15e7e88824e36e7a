package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"familygate/internal/consent/models"
	"familygate/pkg/domain"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists consent records in PostgreSQL. Rows are append-only:
// the only UPDATE flips status to revoked and stamps reason and time.
type Postgres struct {
	db dbtx
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// NewPostgresTx binds the store to an open transaction so the audit row
// and its paired profile mutation commit together.
func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{db: tx}
}

const consentColumns = `
	id, child_profile_id, parent_account_id, granted_at, expires_at, status,
	revoked_at, revoked_reason, verification_signature, terms_version,
	verification_method, ip_address, user_agent`

func (s *Postgres) Append(ctx context.Context, record *models.ConsentRecord) error {
	query := `
		INSERT INTO consent_records (` + consentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(record.ID), uuid.UUID(record.ChildProfileID), uuid.UUID(record.ParentAccountID),
		record.GrantedAt, record.ExpiresAt, string(record.Status),
		nullTime(record.RevokedAt), nullIfEmpty(record.RevokedReason),
		record.Verification.Signature, record.Verification.TermsVersion,
		record.Verification.Method, record.Verification.IPAddress, record.Verification.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("append consent record: %w", err)
	}
	return nil
}

func (s *Postgres) ListByChild(ctx context.Context, childProfileID domain.ProfileID) ([]*models.ConsentRecord, error) {
	query := `
		SELECT ` + consentColumns + `
		FROM consent_records
		WHERE child_profile_id = $1
		ORDER BY granted_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(childProfileID))
	if err != nil {
		return nil, fmt.Errorf("list consent records: %w", err)
	}
	defer rows.Close()

	var records []*models.ConsentRecord
	for rows.Next() {
		record, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list consent records: %w", err)
	}
	return records, nil
}

func (s *Postgres) FindActiveByChild(ctx context.Context, childProfileID domain.ProfileID, now time.Time) (*models.ConsentRecord, error) {
	query := `
		SELECT ` + consentColumns + `
		FROM consent_records
		WHERE child_profile_id = $1 AND status = 'active' AND expires_at > $2
		ORDER BY granted_at DESC
		LIMIT 1
	`
	record, err := scanConsent(s.db.QueryRowContext(ctx, query, uuid.UUID(childProfileID), now))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find active consent record: %w", err)
	}
	return record, nil
}

func (s *Postgres) MarkRevoked(ctx context.Context, id domain.ConsentRecordID, revokedAt time.Time, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE consent_records
		SET status = 'revoked', revoked_at = $2, revoked_reason = $3
		WHERE id = $1 AND status = 'active'
	`, uuid.UUID(id), revokedAt, reason)
	if err != nil {
		return fmt.Errorf("revoke consent record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke consent record: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsent(row rowScanner) (*models.ConsentRecord, error) {
	var (
		record        models.ConsentRecord
		id            uuid.UUID
		childID       uuid.UUID
		parentAccount uuid.UUID
		status        string
		revokedAt     sql.NullTime
		revokedReason sql.NullString
	)
	err := row.Scan(
		&id, &childID, &parentAccount, &record.GrantedAt, &record.ExpiresAt, &status,
		&revokedAt, &revokedReason,
		&record.Verification.Signature, &record.Verification.TermsVersion,
		&record.Verification.Method, &record.Verification.IPAddress, &record.Verification.UserAgent,
	)
	if err != nil {
		return nil, err
	}
	record.ID = domain.ConsentRecordID(id)
	record.ChildProfileID = domain.ProfileID(childID)
	record.ParentAccountID = domain.AccountID(parentAccount)
	record.Status = models.Status(status)
	if revokedAt.Valid {
		t := revokedAt.Time
		record.RevokedAt = &t
	}
	if revokedReason.Valid {
		record.RevokedReason = revokedReason.String
	}
	return &record, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
