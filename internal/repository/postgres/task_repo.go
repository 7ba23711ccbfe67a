package postgres

import (
	"context"
	"strings"
	"taskManager/internal/models/task"
	"time"

	"github.com/jackc/pgx/v5"
)

const taskColumns = `task_id, user_id, category_id, title, content, description,
				priority, due_date, status, created_date, modified_date`

// порядок по умолчанию для списков задач
const taskOrder = ` ORDER BY due_date, priority DESC, task_id`

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.CategoryID,
		&t.Title,
		&t.Content,
		&t.Description,
		&t.Priority,
		&t.DueDate,
		&t.Status,
		&t.CreatedDate,
		&t.ModifiedDate,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Storage) queryTasks(ctx context.Context, op, query string, args ...any) ([]*task.Task, error) {
	conn, err := s.acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	start := time.Now()
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, s.finish(op, start, err)
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*task.Task, error) {
		return scanTask(row)
	})
	if err := s.finish(op, start, err); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Storage) CreateTask(ctx context.Context, t *task.Task) (int64, error) {
	const op = "task.create"

	conn, err := s.acquire(ctx, op)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	query := `INSERT INTO tasks
				(user_id, category_id, title, content, description, priority, due_date, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING task_id, created_date, modified_date`

	start := time.Now()
	err = conn.QueryRow(ctx, query,
		t.UserID,
		t.CategoryID,
		t.Title,
		t.Content,
		t.Description,
		t.Priority,
		t.DueDate,
		t.Status,
	).Scan(&t.ID, &t.CreatedDate, &t.ModifiedDate)
	if err := s.finish(op, start, err); err != nil {
		return 0, err
	}
	return t.ID, nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id int64) (*task.Task, error) {
	const op = "task.get_by_id"

	conn, err := s.acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	start := time.Now()
	t, err := scanTask(conn.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = $1`, id))
	if err := s.finish(op, start, err); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Storage) GetTasksByUser(ctx context.Context, userID int64) ([]*task.Task, error) {
	return s.queryTasks(ctx, "task.get_by_user",
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1`+taskOrder, userID)
}

func (s *Storage) GetTasksByCategory(ctx context.Context, userID, categoryID int64) ([]*task.Task, error) {
	return s.queryTasks(ctx, "task.get_by_category",
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND category_id = $2`+taskOrder,
		userID, categoryID)
}

func (s *Storage) GetTasksByStatus(ctx context.Context, userID int64, status task.Status) ([]*task.Task, error) {
	return s.queryTasks(ctx, "task.get_by_status",
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND status = $2`+taskOrder,
		userID, status)
}

func (s *Storage) GetTasksByPriority(ctx context.Context, userID int64, priority int) ([]*task.Task, error) {
	return s.queryTasks(ctx, "task.get_by_priority",
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND priority = $2
			ORDER BY due_date, task_id`,
		userID, priority)
}

// GetTasksByDateRange включает обе границы.
func (s *Storage) GetTasksByDateRange(ctx context.Context, userID int64, from, to task.Date) ([]*task.Task, error) {
	return s.queryTasks(ctx, "task.get_by_date_range",
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND due_date BETWEEN $2 AND $3`+taskOrder,
		userID, from, to)
}

func (s *Storage) SearchTasks(ctx context.Context, userID int64, keyword string) ([]*task.Task, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	return s.queryTasks(ctx, "task.search",
		`SELECT `+taskColumns+` FROM tasks
			WHERE user_id = $1 AND (title ILIKE $2 ESCAPE '\' OR content ILIKE $2 ESCAPE '\')`+taskOrder,
		userID, pattern)
}

func (s *Storage) CountTasksByStatus(ctx context.Context, userID int64, status task.Status) (int64, error) {
	const op = "task.count_by_status"

	conn, err := s.acquire(ctx, op)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	start := time.Now()
	var count int64
	err = conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = $1 AND status = $2`, userID, status).Scan(&count)
	if err := s.finish(op, start, err); err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateTask не трогает status, для него есть UpdateTaskStatus.
func (s *Storage) UpdateTask(ctx context.Context, t *task.Task) error {
	const op = "task.update"

	conn, err := s.acquire(ctx, op)
	if err != nil {
		return err
	}
	defer conn.Release()

	query := `UPDATE tasks
			SET category_id = $1,
				title = $2,
				content = $3,
				description = $4,
				priority = $5,
				due_date = $6,
				modified_date = NOW()
			WHERE task_id = $7 AND user_id = $8
			RETURNING modified_date`

	start := time.Now()
	err = conn.QueryRow(ctx, query,
		t.CategoryID,
		t.Title,
		t.Content,
		t.Description,
		t.Priority,
		t.DueDate,
		t.ID,
		t.UserID,
	).Scan(&t.ModifiedDate)
	return s.finish(op, start, err)
}

func (s *Storage) UpdateTaskStatus(ctx context.Context, id, userID int64, status task.Status) error {
	return s.exec(ctx, "task.update_status",
		`UPDATE tasks SET status = $1, modified_date = NOW() WHERE task_id = $2 AND user_id = $3`,
		status, id, userID)
}

func (s *Storage) DeleteTask(ctx context.Context, id, userID int64) error {
	return s.exec(ctx, "task.delete",
		`DELETE FROM tasks WHERE task_id = $1 AND user_id = $2`, id, userID)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
