package postgres

import (
	"context"
	"taskManager/internal/models/user"
	"time"

	"github.com/jackc/pgx/v5"
)

const userColumns = `user_id, username, password, email, status, registration_date, last_login`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Email,
		&u.Status,
		&u.RegistrationDate,
		&u.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Storage) getUser(ctx context.Context, op, query string, args ...any) (*user.User, error) {
	conn, err := s.acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	start := time.Now()
	u, err := scanUser(conn.QueryRow(ctx, query, args...))
	if err := s.finish(op, start, err); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Storage) CreateUser(ctx context.Context, u *user.User) (int64, error) {
	const op = "user.create"

	conn, err := s.acquire(ctx, op)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	query := `INSERT INTO users (username, password, email, status)
			VALUES ($1, $2, $3, $4)
			RETURNING user_id, registration_date`

	start := time.Now()
	err = conn.QueryRow(ctx, query, u.Username, u.PasswordHash, u.Email, u.Status).
		Scan(&u.ID, &u.RegistrationDate)
	if err := s.finish(op, start, err); err != nil {
		return 0, err
	}
	return u.ID, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	return s.getUser(ctx, "user.get_by_id",
		`SELECT `+userColumns+` FROM users WHERE user_id = $1`, id)
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.getUser(ctx, "user.get_by_username",
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.getUser(ctx, "user.get_by_email",
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *Storage) ListUsers(ctx context.Context) ([]*user.User, error) {
	const op = "user.list"

	conn, err := s.acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	start := time.Now()
	rows, err := conn.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_id`)
	if err != nil {
		return nil, s.finish(op, start, err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*user.User, error) {
		return scanUser(row)
	})
	if err := s.finish(op, start, err); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Storage) UpdateUser(ctx context.Context, u *user.User) error {
	return s.exec(ctx, "user.update",
		`UPDATE users SET username = $1, password = $2, email = $3 WHERE user_id = $4`,
		u.Username, u.PasswordHash, u.Email, u.ID)
}

func (s *Storage) UpdateLastLogin(ctx context.Context, id int64) error {
	return s.exec(ctx, "user.update_last_login",
		`UPDATE users SET last_login = NOW() WHERE user_id = $1`, id)
}

func (s *Storage) UpdateUserStatus(ctx context.Context, id int64, status user.Status) error {
	return s.exec(ctx, "user.update_status",
		`UPDATE users SET status = $1 WHERE user_id = $2`, status, id)
}

// DeleteUser удаляет пользователя, категории и задачи уходят каскадом.
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	return s.exec(ctx, "user.delete", `DELETE FROM users WHERE user_id = $1`, id)
}

func (s *Storage) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "user.username_exists",
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (s *Storage) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "user.email_exists",
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}
