package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserService provides user master data operations. The pricing core only
// reads users; the CRUD surface exists for the admin API.
type UserService interface {
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, u User) (*User, error)
	Update(ctx context.Context, u User) (*User, error)
	Delete(ctx context.Context, id string) error
}

type userService struct {
	pool *pgxpool.Pool
}

// NewUserService constructs a UserService backed by PostgreSQL.
func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

func (s *userService) GetByID(ctx context.Context, id string) (*User, error) {
	u := &User{}
	var role string
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, role, COALESCE(region, '')
		FROM users
		WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &role, &u.Region)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "user", ID: id}
		}
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}
	u.Role = ParseRole(role)
	return u, nil
}

func (s *userService) List(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, role, COALESCE(region, '')
		FROM users
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var role string
		if err := rows.Scan(&u.ID, &u.Name, &role, &u.Region); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = ParseRole(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *userService) Create(ctx context.Context, u User) (*User, error) {
	if u.ID == "" {
		return nil, &ValidationError{Msg: "user id is required"}
	}
	if u.Name == "" {
		return nil, &ValidationError{Msg: "user name is required"}
	}
	if u.Role == "" {
		return nil, &ValidationError{Msg: "user role is required"}
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", u.ID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user %s: %w", u.ID, err)
	}
	if exists {
		return nil, &ValidationError{Msg: "user with id " + u.ID + " already exists"}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, role, region)
		VALUES ($1, $2, $3, NULLIF($4, ''))`,
		u.ID, u.Name, string(u.Role), u.Region,
	)
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", u.ID, err)
	}
	return &u, nil
}

func (s *userService) Update(ctx context.Context, u User) (*User, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET name = $2, role = $3, region = NULLIF($4, '')
		WHERE id = $1`,
		u.ID, u.Name, string(u.Role), u.Region,
	)
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &NotFoundError{Entity: "user", ID: u.ID}
	}
	return &u, nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "user", ID: id}
	}
	return nil
}
