package postgres

import (
	"context"
	"taskManager/internal/models/category"
	"time"

	"github.com/jackc/pgx/v5"
)

const categoryColumns = `category_id, user_id, category_name, description, created_date`

func scanCategory(row pgx.Row) (*category.Category, error) {
	c := &category.Category{}
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Description,
		&c.CreatedDate,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Storage) getCategory(ctx context.Context, op, query string, args ...any) (*category.Category, error) {
	conn, err := s.acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	start := time.Now()
	c, err := scanCategory(conn.QueryRow(ctx, query, args...))
	if err := s.finish(op, start, err); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Storage) CreateCategory(ctx context.Context, c *category.Category) (int64, error) {
	const op = "category.create"

	conn, err := s.acquire(ctx, op)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	query := `INSERT INTO categories (user_id, category_name, description)
			VALUES ($1, $2, $3)
			RETURNING category_id, created_date`

	start := time.Now()
	err = conn.QueryRow(ctx, query, c.UserID, c.Name, c.Description).Scan(&c.ID, &c.CreatedDate)
	if err := s.finish(op, start, err); err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (s *Storage) GetCategoryByID(ctx context.Context, id int64) (*category.Category, error) {
	return s.getCategory(ctx, "category.get_by_id",
		`SELECT `+categoryColumns+` FROM categories WHERE category_id = $1`, id)
}

func (s *Storage) GetCategoryByName(ctx context.Context, userID int64, name string) (*category.Category, error) {
	return s.getCategory(ctx, "category.get_by_name",
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 AND category_name = $2`,
		userID, name)
}

func (s *Storage) GetCategoriesByUser(ctx context.Context, userID int64) ([]*category.Category, error) {
	const op = "category.get_by_user"

	conn, err := s.acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	start := time.Now()
	rows, err := conn.Query(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 ORDER BY category_name`, userID)
	if err != nil {
		return nil, s.finish(op, start, err)
	}
	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*category.Category, error) {
		return scanCategory(row)
	})
	if err := s.finish(op, start, err); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Storage) CategoryNameExists(ctx context.Context, userID int64, name string) (bool, error) {
	return s.exists(ctx, "category.name_exists",
		`SELECT EXISTS (SELECT 1 FROM categories WHERE user_id = $1 AND category_name = $2)`,
		userID, name)
}

func (s *Storage) UpdateCategory(ctx context.Context, c *category.Category) error {
	return s.exec(ctx, "category.update",
		`UPDATE categories SET category_name = $1, description = $2
			WHERE category_id = $3 AND user_id = $4`,
		c.Name, c.Description, c.ID, c.UserID)
}

// DeleteCategory вернёт ErrConflict, пока на категорию ссылаются задачи.
func (s *Storage) DeleteCategory(ctx context.Context, id, userID int64) error {
	return s.exec(ctx, "category.delete",
		`DELETE FROM categories WHERE category_id = $1 AND user_id = $2`, id, userID)
}
