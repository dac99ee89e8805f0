package repositories

import (
	"context"
	"errors"

	"procure-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, COALESCE(department, ''),
	COALESCE(organization, ''), COALESCE(gstin, ''), COALESCE(phone, ''),
	is_approved, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Department,
		&u.Organization, &u.GSTIN, &u.Phone, &u.IsApproved, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, department, organization, gstin, phone, is_approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		u.Name, u.Email, u.PasswordHash, u.Role, u.Department,
		u.Organization, u.GSTIN, u.Phone, u.IsApproved,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) ListPending(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_approved = FALSE AND role <> 'admin' ORDER BY created_at`
	return r.list(ctx, query)
}

// ListApprovedVendorsByDepartment matches the department case-insensitively
// after trimming, the same normalization used when splitting requests.
func (r *UserRepository) ListApprovedVendorsByDepartment(ctx context.Context, department string) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE role = 'vendor' AND is_approved = TRUE
		  AND LOWER(TRIM(department)) = LOWER(TRIM($1))
		ORDER BY id`
	return r.list(ctx, query, department)
}

func (r *UserRepository) ListAdmins(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = 'admin' AND is_approved = TRUE ORDER BY id`
	return r.list(ctx, query)
}

func (r *UserRepository) SetApproval(ctx context.Context, id int, approved bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_approved = $2, updated_at = NOW() WHERE id = $1`, id, approved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
