// Package auth_repo provides PostgreSQL implementations for auth repositories.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"recordhub/internal/core/apperror"
	"recordhub/internal/core/id"
	"recordhub/internal/domain/auth"
	"recordhub/internal/infrastructure/storage/postgres"
)

// AccountRepo implements auth.AccountRepository over the students table.
type AccountRepo struct {
	txm *postgres.TxManager
}

// NewAccountRepo creates a new account repository.
func NewAccountRepo(txm *postgres.TxManager) *AccountRepo {
	return &AccountRepo{txm: txm}
}

// GetByEmail retrieves credentials by email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return r.get(ctx, "email", email)
}

// GetByID retrieves credentials by student ID.
func (r *AccountRepo) GetByID(ctx context.Context, accountID id.ID) (*auth.Account, error) {
	return r.get(ctx, "id", accountID)
}

func (r *AccountRepo) get(ctx context.Context, column string, value any) (*auth.Account, error) {
	q := r.txm.GetQuerier(ctx)

	query := `SELECT id, email, password_hash FROM students WHERE ` + column + ` = $1`

	var acc auth.Account
	err := q.QueryRow(ctx, query, value).Scan(&acc.ID, &acc.Email, &acc.PasswordHash)
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("student", value)
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}

	return &acc, nil
}

var _ auth.AccountRepository = (*AccountRepo)(nil)
