package directory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tecbook-auth/internal/db"
)

const uniqueViolation = "23505"

const accountColumns = `
	id, email, password_hash, code, first_name, last_name, role, active,
	department_id, career_id, phone, address, avatar_url, registered_at, updated_at`

// Postgres is the Directory backed by the accounts table.
type Postgres struct {
	db *db.DB
}

func NewPostgres(db *db.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) LoadByEmail(ctx context.Context, email string) (Account, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`, NormalizeEmail(email))

	acc, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return Account{}, ErrNotFound
	}
	return acc, err
}

func (p *Postgres) Create(ctx context.Context, acc Account) (Account, error) {
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	now := time.Now().UTC()
	if acc.RegisteredAt.IsZero() {
		acc.RegisteredAt = now
	}
	acc.UpdatedAt = now
	acc.Email = NormalizeEmail(acc.Email)

	row := p.db.QueryRowContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+accountColumns,
		acc.ID,
		acc.Email,
		nullString(acc.PasswordHash),
		acc.Code,
		acc.FirstName,
		acc.LastName,
		string(acc.Role),
		acc.Active,
		acc.DepartmentID,
		nullInt(acc.CareerID),
		acc.Phone,
		acc.Address,
		acc.AvatarURL,
		acc.RegisteredAt,
		acc.UpdatedAt,
	)

	created, err := scanAccount(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return Account{}, ErrAlreadyExists
		}
		return Account{}, err
	}
	return created, nil
}

func (p *Postgres) Update(ctx context.Context, acc Account) (Account, error) {
	row := p.db.QueryRowContext(ctx, `
		UPDATE accounts SET
			password_hash = COALESCE($2, password_hash),
			code = $3,
			first_name = $4,
			last_name = $5,
			role = $6,
			active = $7,
			department_id = $8,
			career_id = $9,
			phone = $10,
			address = $11,
			avatar_url = $12,
			updated_at = NOW()
		WHERE LOWER(email) = LOWER($1)
		RETURNING `+accountColumns,
		NormalizeEmail(acc.Email),
		nullString(acc.PasswordHash),
		acc.Code,
		acc.FirstName,
		acc.LastName,
		string(acc.Role),
		acc.Active,
		acc.DepartmentID,
		nullInt(acc.CareerID),
		acc.Phone,
		acc.Address,
		acc.AvatarURL,
	)

	updated, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return Account{}, ErrNotFound
	}
	return updated, err
}

func scanAccount(row *sql.Row) (Account, error) {
	var (
		acc    Account
		hash   sql.NullString
		role   string
		career sql.NullInt64
	)
	err := row.Scan(
		&acc.ID,
		&acc.Email,
		&hash,
		&acc.Code,
		&acc.FirstName,
		&acc.LastName,
		&role,
		&acc.Active,
		&acc.DepartmentID,
		&career,
		&acc.Phone,
		&acc.Address,
		&acc.AvatarURL,
		&acc.RegisteredAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return Account{}, err
	}

	acc.PasswordHash = hash.String
	acc.Role = Role(role)
	if career.Valid {
		v := career.Int64
		acc.CareerID = &v
	}
	return acc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
