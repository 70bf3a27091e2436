package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentexchange/backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, password_hash, name, bio, location, verification_status, account_status,
	credit_balance, rating, completed_tasks, response_time_hours, completion_rate, is_available,
	is_system_account, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Bio, &u.Location,
		&u.VerificationStatus, &u.AccountStatus, &u.CreditBalance, &u.Rating,
		&u.CompletedTasks, &u.ResponseTimeHours, &u.CompletionRate, &u.IsAvailable,
		&u.IsSystemAccount, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, name, bio, location, verification_status,
			account_status, credit_balance, is_available, is_system_account)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.PasswordHash, u.Name, u.Bio, u.Location, u.VerificationStatus,
		u.AccountStatus, u.CreditBalance, u.IsAvailable, u.IsSystemAccount).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET name = $2, bio = $3, location = $4, is_available = $5, updated_at = now()
		WHERE id = $1
	`, u.ID, u.Name, u.Bio, u.Location, u.IsAvailable)
	return err
}

// GetByIDForUpdate locks the user row for update. Call within a transaction.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error) {
	return scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

// DeductCredits atomically deducts amount if balance >= amount. Zero rows
// affected means the balance check failed; the caller maps that to an
// insufficient-credits error.
func (r *UserRepo) DeductCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET credit_balance = credit_balance - $1, updated_at = now()
		WHERE id = $2 AND credit_balance >= $1
		RETURNING credit_balance
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// AddCredits adds amount to the user's balance and returns the new balance.
func (r *UserRepo) AddCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET credit_balance = credit_balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING credit_balance
	`, amount, id).Scan(&newBalance)
	return newBalance, err
}

// UpdateReputationTx overwrites the reviewee's aggregate reputation columns
// inside the review transaction. Values are recomputed from source rows by
// the review service, never incremented in place.
func (r *UserRepo) UpdateReputationTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, rating float64, completedTasks int, completionRate, responseHours float64) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET rating = $2, completed_tasks = $3, completion_rate = $4,
			response_time_hours = $5, updated_at = now()
		WHERE id = $1
	`, id, rating, completedTasks, completionRate, responseHours)
	return err
}
