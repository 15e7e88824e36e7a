package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"familygate/internal/profile/models"
	"familygate/pkg/domain"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same store runs
// standalone or inside a transaction boundary.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists accounts, person records and profiles in PostgreSQL.
type Postgres struct {
	db dbtx
}

// NewPostgres constructs a store over a pooled database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// NewPostgresTx constructs a store bound to an open transaction.
func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{db: tx}
}

const profileViewColumns = `
	p.id, p.account_id, p.person_record_id, p.relationship, p.parent_profile_id,
	p.access_level, p.status, p.requires_consent, p.consent_given, p.consent_expiry,
	p.created_at, p.updated_at,
	pr.email, pr.first_name, pr.last_name, pr.birth_year`

func (s *Postgres) Create(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO profiles (
			id, account_id, person_record_id, relationship, parent_profile_id,
			access_level, status, requires_consent, consent_given, consent_expiry,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(profile.ID), uuid.UUID(profile.AccountID), uuid.UUID(profile.PersonRecordID),
		string(profile.Relationship), nullProfileID(profile.ParentProfileID),
		string(profile.AccessLevel), string(profile.Status),
		profile.RequiresConsent, profile.ConsentGiven, nullTime(profile.ConsentExpiry),
		profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, accountID domain.AccountID, profileID domain.ProfileID) (*models.View, error) {
	query := `
		SELECT ` + profileViewColumns + `
		FROM profiles p
		JOIN person_records pr ON pr.id = p.person_record_id
		WHERE p.account_id = $1 AND p.id = $2
	`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(accountID), uuid.UUID(profileID))
	view, err := scanProfileView(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return view, nil
}

func (s *Postgres) List(ctx context.Context, accountID domain.AccountID) ([]*models.View, error) {
	query := `
		SELECT ` + profileViewColumns + `
		FROM profiles p
		JOIN person_records pr ON pr.id = p.person_record_id
		WHERE p.account_id = $1
		ORDER BY (p.relationship = 'parent') DESC, p.created_at ASC, p.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(accountID))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var views []*models.View
	for rows.Next() {
		view, err := scanProfileView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return views, nil
}

// UpdatePersonal writes only the fixed personal-field allow-list. The
// statement carries no authorization columns, so this path cannot touch
// status, access level or consent fields regardless of caller input.
func (s *Postgres) UpdatePersonal(ctx context.Context, accountID domain.AccountID, profileID domain.ProfileID, update models.PersonalUpdate) (*models.View, error) {
	query := `
		UPDATE person_records pr SET
			first_name = COALESCE($3, pr.first_name),
			last_name  = COALESCE($4, pr.last_name)
		FROM profiles p
		WHERE p.person_record_id = pr.id AND p.account_id = $1 AND p.id = $2
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(accountID), uuid.UUID(profileID),
		nullString(update.FirstName), nullString(update.LastName),
	)
	if err != nil {
		return nil, fmt.Errorf("update profile personal fields: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update profile personal fields: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET updated_at = now() WHERE account_id = $1 AND id = $2`,
		uuid.UUID(accountID), uuid.UUID(profileID),
	); err != nil {
		return nil, fmt.Errorf("touch profile: %w", err)
	}
	return s.Find(ctx, accountID, profileID)
}

func (s *Postgres) SetConsentState(ctx context.Context, profileID domain.ProfileID, state models.ConsentState) error {
	query := `
		UPDATE profiles SET
			status = $2,
			access_level = $3,
			requires_consent = $4,
			consent_given = $5,
			consent_expiry = $6,
			updated_at = now()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(profileID), string(state.Status), string(state.AccessLevel),
		state.RequiresConsent, state.ConsentGiven, nullTime(state.ConsentExpiry),
	)
	if err != nil {
		return fmt.Errorf("set consent state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set consent state: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) FindAccount(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	var account models.Account
	var accountID uuid.UUID
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, created_at, updated_at FROM accounts WHERE id = $1`,
		uuid.UUID(id),
	).Scan(&accountID, &status, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	account.ID = domain.AccountID(accountID)
	account.Status = models.AccountStatus(status)
	return &account, nil
}

func (s *Postgres) SetAccountStatus(ctx context.Context, id domain.AccountID, status models.AccountStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET status = $2, updated_at = now() WHERE id = $1`,
		uuid.UUID(id), string(status),
	)
	if err != nil {
		return fmt.Errorf("set account status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set account status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) FindPerson(ctx context.Context, id domain.PersonID) (*models.PersonRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, birth_year FROM person_records WHERE id = $1`,
		uuid.UUID(id),
	)
	person, err := scanPerson(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find person: %w", err)
	}
	return person, nil
}

func (s *Postgres) FindPersonsByEmail(ctx context.Context, email string) ([]*models.PersonRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, first_name, last_name, birth_year FROM person_records WHERE lower(email) = lower($1) ORDER BY id`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("find persons by email: %w", err)
	}
	defer rows.Close()

	var persons []*models.PersonRecord
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, person)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find persons by email: %w", err)
	}
	return persons, nil
}

func (s *Postgres) SetPersonBirthYear(ctx context.Context, id domain.PersonID, year int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE person_records SET birth_year = $2 WHERE id = $1`,
		uuid.UUID(id), year,
	)
	if err != nil {
		return fmt.Errorf("set birth year: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set birth year: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfileView(row rowScanner) (*models.View, error) {
	var (
		view          models.View
		id            uuid.UUID
		accountID     uuid.UUID
		personID      uuid.UUID
		relationship  string
		parentID      uuid.NullUUID
		accessLevel   string
		status        string
		consentExpiry sql.NullTime
		birthYear     sql.NullInt64
	)
	err := row.Scan(
		&id, &accountID, &personID, &relationship, &parentID,
		&accessLevel, &status, &view.RequiresConsent, &view.ConsentGiven, &consentExpiry,
		&view.CreatedAt, &view.UpdatedAt,
		&view.Email, &view.FirstName, &view.LastName, &birthYear,
	)
	if err != nil {
		return nil, err
	}
	view.ID = domain.ProfileID(id)
	view.AccountID = domain.AccountID(accountID)
	view.PersonRecordID = domain.PersonID(personID)
	view.Relationship = models.Relationship(relationship)
	view.AccessLevel = models.AccessLevel(accessLevel)
	view.Status = models.ProfileStatus(status)
	if parentID.Valid {
		parent := domain.ProfileID(parentID.UUID)
		view.ParentProfileID = &parent
	}
	if consentExpiry.Valid {
		expiry := consentExpiry.Time
		view.ConsentExpiry = &expiry
	}
	if birthYear.Valid {
		year := int(birthYear.Int64)
		view.BirthYear = &year
	}
	return &view, nil
}

func scanPerson(row rowScanner) (*models.PersonRecord, error) {
	var (
		person    models.PersonRecord
		id        uuid.UUID
		birthYear sql.NullInt64
	)
	err := row.Scan(&id, &person.Email, &person.FirstName, &person.LastName, &birthYear)
	if err != nil {
		return nil, err
	}
	person.ID = domain.PersonID(id)
	if birthYear.Valid {
		year := int(birthYear.Int64)
		person.BirthYear = &year
	}
	return &person, nil
}

func nullProfileID(id *domain.ProfileID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*id), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
