package service

import (
	"context"
	"taskManager/internal/models/category"
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
)

// Репозитории возвращают repository.ErrNotFound, ErrConflict или ErrStorage.
// Запись с нулём затронутых строк считается ErrNotFound.

type UserRepository interface {
	HealthCheck(ctx context.Context) error
	CreateUser(ctx context.Context, u *user.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsers(ctx context.Context) ([]*user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error
	UpdateLastLogin(ctx context.Context, id int64) error
	UpdateUserStatus(ctx context.Context, id int64, status user.Status) error
	DeleteUser(ctx context.Context, id int64) error
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, c *category.Category) (int64, error)
	GetCategoryByID(ctx context.Context, id int64) (*category.Category, error)
	GetCategoryByName(ctx context.Context, userID int64, name string) (*category.Category, error)
	GetCategoriesByUser(ctx context.Context, userID int64) ([]*category.Category, error)
	CategoryNameExists(ctx context.Context, userID int64, name string) (bool, error)
	UpdateCategory(ctx context.Context, c *category.Category) error
	DeleteCategory(ctx context.Context, id, userID int64) error
}

type TaskRepository interface {
	CreateTask(ctx context.Context, t *task.Task) (int64, error)
	GetTaskByID(ctx context.Context, id int64) (*task.Task, error)
	GetTasksByUser(ctx context.Context, userID int64) ([]*task.Task, error)
	GetTasksByCategory(ctx context.Context, userID, categoryID int64) ([]*task.Task, error)
	GetTasksByStatus(ctx context.Context, userID int64, status task.Status) ([]*task.Task, error)
	GetTasksByPriority(ctx context.Context, userID int64, priority int) ([]*task.Task, error)
	GetTasksByDateRange(ctx context.Context, userID int64, from, to task.Date) ([]*task.Task, error)
	SearchTasks(ctx context.Context, userID int64, keyword string) ([]*task.Task, error)
	CountTasksByStatus(ctx context.Context, userID int64, status task.Status) (int64, error)
	UpdateTask(ctx context.Context, t *task.Task) error
	UpdateTaskStatus(ctx context.Context, id, userID int64, status task.Status) error
	DeleteTask(ctx context.Context, id, userID int64) error
}

// Repository объединяет все три хранилища, его реализуют postgres.Storage и inmemory.Storage.
type Repository interface {
	UserRepository
	CategoryRepository
	TaskRepository
	Close()
}
