package postgres

import (
	"context"
	"database/sql"
	"errors"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	var address []byte
	query := `SELECT id, name, email, address FROM users WHERE id = $1`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, &address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("user", id)
	}
	if err != nil {
		return nil, err
	}
	if u.Address, err = jsonScan[domain.Address](address); err != nil {
		return nil, err
	}
	return u, nil
}
