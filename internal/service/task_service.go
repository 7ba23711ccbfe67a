package service

import (
	"context"
	"fmt"
	"strings"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"

	"go.uber.org/zap"
)

type TaskInput struct {
	CategoryID  int64     `field:"categoryId" validate:"gt=0"`
	Title       string    `field:"taskName" validate:"notblank,max=100"`
	Content     string    `field:"content"`
	Description string    `field:"description" validate:"max=255"`
	Priority    int       `field:"priority" validate:"omitempty,min=1,max=5"`
	DueDate     task.Date `field:"dueDate" validate:"-"`
}

func (in TaskInput) validate() error {
	if err := validateInput(in); err != nil {
		return err
	}
	if in.DueDate.IsZero() {
		return NewValidationError("dueDate", "обязательно")
	}
	return nil
}

// TaskService: любая операция над задачей разрешена только её владельцу.
type TaskService struct {
	repo       TaskRepository
	categories CategoryRepository
}

func NewTaskService(repo TaskRepository, categories CategoryRepository) *TaskService {
	return &TaskService{
		repo:       repo,
		categories: categories,
	}
}

// ownCategory проверяет, что категория существует и принадлежит пользователю.
func (s *TaskService) ownCategory(ctx context.Context, userID, categoryID int64) error {
	c, err := s.categories.GetCategoryByID(ctx, categoryID)
	if err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceCategory, categoryID)
		}
		return fmt.Errorf("получение категории: %w", err)
	}
	if c.UserID != userID {
		return NewNotFound(ResourceCategory, categoryID)
	}
	return nil
}

func (s *TaskService) Create(ctx context.Context, userID int64, in TaskInput) (*task.Task, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.ownCategory(ctx, userID, in.CategoryID); err != nil {
		return nil, err
	}

	t := task.New(userID, in.CategoryID, in.Title, in.DueDate,
		task.WithContent(in.Content),
		task.WithDescription(in.Description),
		task.WithPriority(in.Priority),
	)
	if _, err := s.repo.CreateTask(ctx, t); err != nil {
		if isConflict(err) {
			return nil, NewConflict("задача не может ссылаться на эту категорию", err)
		}
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	logger.Info("Service: Задача создана",
		zap.Int64("user_id", userID),
		zap.Int64("task_id", t.ID))
	return t, nil
}

func (s *TaskService) Get(ctx context.Context, userID, id int64) (*task.Task, error) {
	if err := requireID("taskId", id); err != nil {
		return nil, err
	}
	t, err := s.repo.GetTaskByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			logger.Info("Service: Задача не найдена", zap.Int64("task_id", id))
			return nil, NewNotFound(ResourceTask, id)
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	if t.UserID != userID {
		logger.Warn("Service: Обращение к чужой задаче",
			zap.Int64("user_id", userID),
			zap.Int64("task_id", id))
		return nil, NewNotFound(ResourceTask, id)
	}
	return t, nil
}

func (s *TaskService) BelongsToUser(ctx context.Context, id, userID int64) (bool, error) {
	_, err := s.Get(ctx, userID, id)
	if err == nil {
		return true, nil
	}
	if IsCode(err, CodeNotFound) {
		return false, nil
	}
	return false, err
}

// Update меняет всё, кроме статуса.
func (s *TaskService) Update(ctx context.Context, userID, id int64, in TaskInput) (*task.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := in.validate(); err != nil {
		return nil, err
	}

	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.CategoryID != t.CategoryID {
		if err := s.ownCategory(ctx, userID, in.CategoryID); err != nil {
			return nil, err
		}
	}

	t.CategoryID = in.CategoryID
	t.Title = in.Title
	t.Content = in.Content
	t.Description = in.Description
	t.DueDate = in.DueDate
	t.Priority = task.DefaultPriority
	if in.Priority != 0 {
		t.Priority = in.Priority
	}

	if err := s.repo.UpdateTask(ctx, t); err != nil {
		switch {
		case isNotFound(err):
			return nil, NewNotFound(ResourceTask, id)
		case isConflict(err):
			return nil, NewConflict("задача не может ссылаться на эту категорию", err)
		}
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}
	return t, nil
}

// UpdateStatus идемпотентен: повторная установка того же статуса успешна.
func (s *TaskService) UpdateStatus(ctx context.Context, userID, id int64, status task.Status) error {
	if err := requireID("taskId", id); err != nil {
		return err
	}
	if !status.Valid() {
		return NewValidationError("status", "допустимы значения 0, 1, 2")
	}
	if err := s.repo.UpdateTaskStatus(ctx, id, userID, status); err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceTask, id)
		}
		return fmt.Errorf("обновление статуса задачи: %w", err)
	}
	return nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	if err := requireID("taskId", id); err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, id, userID); err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceTask, id)
		}
		return fmt.Errorf("удаление задачи: %w", err)
	}
	logger.Info("Service: Задача удалена",
		zap.Int64("user_id", userID),
		zap.Int64("task_id", id))
	return nil
}

func (s *TaskService) List(ctx context.Context, userID int64) ([]*task.Task, error) {
	tasks, err := s.repo.GetTasksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) ListByCategory(ctx context.Context, userID, categoryID int64) ([]*task.Task, error) {
	if err := requireID("categoryId", categoryID); err != nil {
		return nil, err
	}
	if err := s.ownCategory(ctx, userID, categoryID); err != nil {
		return nil, err
	}
	tasks, err := s.repo.GetTasksByCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("получение задач категории: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) ListByStatus(ctx context.Context, userID int64, status task.Status) ([]*task.Task, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", "допустимы значения 0, 1, 2")
	}
	tasks, err := s.repo.GetTasksByStatus(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("получение задач по статусу: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) ListByPriority(ctx context.Context, userID int64, priority int) ([]*task.Task, error) {
	if priority < task.MinPriority || priority > task.MaxPriority {
		return nil, NewValidationError("priority", fmt.Sprintf("допустимы значения %d..%d", task.MinPriority, task.MaxPriority))
	}
	tasks, err := s.repo.GetTasksByPriority(ctx, userID, priority)
	if err != nil {
		return nil, fmt.Errorf("получение задач по приоритету: %w", err)
	}
	return tasks, nil
}

// ListByDateRange включает обе границы.
func (s *TaskService) ListByDateRange(ctx context.Context, userID int64, from, to task.Date) ([]*task.Task, error) {
	if from.IsZero() || to.IsZero() {
		return nil, NewValidationError("startDate", "обе даты обязательны")
	}
	if from.After(to.Time) {
		return nil, NewValidationError("startDate", "начало диапазона позже конца")
	}
	tasks, err := s.repo.GetTasksByDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("получение задач по датам: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Search(ctx context.Context, userID int64, keyword string) ([]*task.Task, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, NewValidationError("keyword", reasons["notblank"])
	}
	tasks, err := s.repo.SearchTasks(ctx, userID, keyword)
	if err != nil {
		return nil, fmt.Errorf("поиск задач: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) CountByStatus(ctx context.Context, userID int64, status task.Status) (int64, error) {
	if !status.Valid() {
		return 0, NewValidationError("status", "допустимы значения 0, 1, 2")
	}
	count, err := s.repo.CountTasksByStatus(ctx, userID, status)
	if err != nil {
		return 0, fmt.Errorf("подсчёт задач: %w", err)
	}
	return count, nil
}
