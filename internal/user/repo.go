package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"rollcall/internal/model"
)

const userColumns = "id, prn, name, email, password_hash, role, class_name, department, is_active, created_at"

// Repository persists users in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a new user row.
func (r *Repository) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, prn, name, email, password_hash, role, class_name, department, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, u.ID, u.PRN, u.Name, u.Email, u.PasswordHash, u.Role, u.ClassName, u.Department, u.IsActive)
	return row.Scan(&u.CreatedAt)
}

// GetByID returns a user, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByPRN returns a user by enrollment number, or nil when absent.
func (r *Repository) GetByPRN(ctx context.Context, prn string) (*model.User, error) {
	return r.getBy(ctx, "prn", prn)
}

// GetByEmail returns a user by email, or nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *Repository) getBy(ctx context.Context, column, value string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)
	var u model.User
	if err := scanUser(row.Scan, &u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ListFilter narrows List results. Empty fields are ignored.
type ListFilter struct {
	Role       model.Role
	ClassName  string
	Department string
}

// List returns users matching the filter.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	clauses := []string{}
	if f.Role != "" {
		clauses = append(clauses, "role = $"+itoa(len(args)+1))
		args = append(args, f.Role)
	}
	if f.ClassName != "" {
		clauses = append(clauses, "class_name = $"+itoa(len(args)+1))
		args = append(args, f.ClassName)
	}
	if f.Department != "" {
		clauses = append(clauses, "department = $"+itoa(len(args)+1))
		args = append(args, f.Department)
	}
	if len(clauses) > 0 {
		query += " WHERE " + joinClauses(clauses, " AND ")
	}
	query += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.User
	for rows.Next() {
		var u model.User
		if err := scanUser(rows.Scan, &u); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// UpdateProfile overwrites the mutable profile fields. PRN and role are
// immutable and deliberately absent here.
func (r *Repository) UpdateProfile(ctx context.Context, u *model.User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $2, email = $3, class_name = $4, department = $5
		WHERE id = $1
	`, u.ID, u.Name, u.Email, u.ClassName, u.Department)
	return err
}

// SetActive flips the account's active flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
	return err
}

// UpdatePassword replaces the stored credential digest.
func (r *Repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	return err
}

// RefreshTokenValid reports whether the token is stored, unrevoked and
// unexpired for the given user.
func (r *Repository) RefreshTokenValid(ctx context.Context, userID, token string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM refresh_tokens
		WHERE token = $1 AND user_id = $2 AND NOT revoked AND expires_at > NOW()
	`, token, userID)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}

type scanFunc func(dest ...any) error

func scanUser(scan scanFunc, u *model.User) error {
	return scan(&u.ID, &u.PRN, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.ClassName, &u.Department, &u.IsActive, &u.CreatedAt)
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
