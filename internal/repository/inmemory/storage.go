package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"taskManager/internal/logger"
	"taskManager/internal/models/category"
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	repo "taskManager/internal/repository"
	"time"
)

// Storage хранит пользователей, категории и задачи в памяти процесса.
// Ограничения схемы postgres (уникальность, внешние ключи, каскад)
// повторены здесь, чтобы сервисный слой видел те же ошибки.
// Наружу отдаются только копии записей.
type Storage struct {
	mtx        *sync.RWMutex
	users      map[int64]*user.User
	categories map[int64]*category.Category
	tasks      map[int64]*task.Task

	// уникальные индексы users
	byUsername map[string]int64
	byEmail    map[string]int64

	nextUserID     int64
	nextCategoryID int64
	nextTaskID     int64

	now func() time.Time
}

func NewStorage() *Storage {
	return &Storage{
		mtx:        &sync.RWMutex{},
		users:      make(map[int64]*user.User),
		categories: make(map[int64]*category.Category),
		tasks:      make(map[int64]*task.Task),
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
		now:        time.Now,
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Close() {}

// users

func (s *Storage) CreateUser(ctx context.Context, u *user.User) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.userTaken(0, u.Username, u.Email) {
		return 0, fmt.Errorf("user.create: %w", repo.ErrConflict)
	}

	s.nextUserID++
	u.ID = s.nextUserID
	u.RegistrationDate = s.now()

	stored := *u
	s.users[u.ID] = &stored
	s.byUsername[u.Username] = u.ID
	s.byEmail[u.Email] = u.ID
	return u.ID, nil
}

// userTaken проверяет индексы, пропуская запись exceptID.
func (s *Storage) userTaken(exceptID int64, username, email string) bool {
	if id, ok := s.byUsername[username]; ok && id != exceptID {
		return true
	}
	if id, ok := s.byEmail[email]; ok && id != exceptID {
		return true
	}
	return false
}

func (s *Storage) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user.get_by_id: %w", repo.ErrNotFound)
	}
	out := *u
	return &out, nil
}

func (s *Storage) findUser(op string, index map[string]int64, value string) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	id, ok := index[value]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, repo.ErrNotFound)
	}
	out := *s.users[id]
	return &out, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.findUser("user.get_by_username", s.byUsername, username)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.findUser("user.get_by_email", s.byEmail, email)
}

func (s *Storage) ListUsers(ctx context.Context) ([]*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*user.User, 0, len(s.users))
	for _, u := range s.users {
		out := *u
		res = append(res, &out)
	}
	slices.SortFunc(res, func(a, b *user.User) int { return cmp.Compare(a.ID, b.ID) })
	return res, nil
}

func (s *Storage) UpdateUser(ctx context.Context, u *user.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return fmt.Errorf("user.update: %w", repo.ErrNotFound)
	}
	if s.userTaken(u.ID, u.Username, u.Email) {
		return fmt.Errorf("user.update: %w", repo.ErrConflict)
	}

	delete(s.byUsername, existing.Username)
	delete(s.byEmail, existing.Email)
	s.byUsername[u.Username] = u.ID
	s.byEmail[u.Email] = u.ID
	existing.Username = u.Username
	existing.Email = u.Email
	existing.PasswordHash = u.PasswordHash
	return nil
}

func (s *Storage) UpdateLastLogin(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user.update_last_login: %w", repo.ErrNotFound)
	}
	now := s.now()
	u.LastLogin = &now
	return nil
}

func (s *Storage) UpdateUserStatus(ctx context.Context, id int64, status user.Status) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user.update_status: %w", repo.ErrNotFound)
	}
	if !status.Valid() {
		return fmt.Errorf("user.update_status: %w", repo.ErrConflict)
	}
	u.Status = status
	return nil
}

// DeleteUser повторяет ON DELETE CASCADE схемы.
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user.delete: %w", repo.ErrNotFound)
	}
	delete(s.users, id)
	delete(s.byUsername, u.Username)
	delete(s.byEmail, u.Email)
	for tid, t := range s.tasks {
		if t.UserID == id {
			delete(s.tasks, tid)
		}
	}
	for cid, c := range s.categories {
		if c.UserID == id {
			delete(s.categories, cid)
		}
	}
	return nil
}

func (s *Storage) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := s.GetUserByUsername(ctx, username)
	return err == nil, nil
}

func (s *Storage) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.GetUserByEmail(ctx, email)
	return err == nil, nil
}

// categories

func (s *Storage) nameTaken(userID, exceptID int64, name string) bool {
	for id, c := range s.categories {
		if id != exceptID && c.UserID == userID && c.Name == name {
			return true
		}
	}
	return false
}

func (s *Storage) CreateCategory(ctx context.Context, c *category.Category) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.users[c.UserID]; !ok {
		return 0, fmt.Errorf("category.create: %w", repo.ErrConflict)
	}
	if s.nameTaken(c.UserID, 0, c.Name) {
		return 0, fmt.Errorf("category.create: %w", repo.ErrConflict)
	}

	s.nextCategoryID++
	c.ID = s.nextCategoryID
	c.CreatedDate = s.now()

	stored := *c
	s.categories[c.ID] = &stored
	return c.ID, nil
}

func (s *Storage) GetCategoryByID(ctx context.Context, id int64) (*category.Category, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category.get_by_id: %w", repo.ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (s *Storage) GetCategoryByName(ctx context.Context, userID int64, name string) (*category.Category, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for _, c := range s.categories {
		if c.UserID == userID && c.Name == name {
			out := *c
			return &out, nil
		}
	}
	return nil, fmt.Errorf("category.get_by_name: %w", repo.ErrNotFound)
}

func (s *Storage) GetCategoriesByUser(ctx context.Context, userID int64) ([]*category.Category, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*category.Category{}
	for _, c := range s.categories {
		if c.UserID == userID {
			out := *c
			res = append(res, &out)
		}
	}
	slices.SortFunc(res, func(a, b *category.Category) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return res, nil
}

func (s *Storage) CategoryNameExists(ctx context.Context, userID int64, name string) (bool, error) {
	_, err := s.GetCategoryByName(ctx, userID, name)
	return err == nil, nil
}

func (s *Storage) UpdateCategory(ctx context.Context, c *category.Category) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.categories[c.ID]
	if !ok || existing.UserID != c.UserID {
		return fmt.Errorf("category.update: %w", repo.ErrNotFound)
	}
	if s.nameTaken(c.UserID, c.ID, c.Name) {
		return fmt.Errorf("category.update: %w", repo.ErrConflict)
	}

	existing.Name = c.Name
	existing.Description = c.Description
	return nil
}

func (s *Storage) DeleteCategory(ctx context.Context, id, userID int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	c, ok := s.categories[id]
	if !ok || c.UserID != userID {
		return fmt.Errorf("category.delete: %w", repo.ErrNotFound)
	}
	for _, t := range s.tasks {
		if t.CategoryID == id {
			return fmt.Errorf("category.delete: %w", repo.ErrConflict)
		}
	}
	delete(s.categories, id)
	return nil
}

// tasks

func (s *Storage) checkTask(op string, t *task.Task) error {
	c, ok := s.categories[t.CategoryID]
	if !ok || c.UserID != t.UserID {
		return fmt.Errorf("%s: %w", op, repo.ErrConflict)
	}
	if !t.Status.Valid() || t.Priority < task.MinPriority || t.Priority > task.MaxPriority {
		return fmt.Errorf("%s: %w", op, repo.ErrConflict)
	}
	return nil
}

func (s *Storage) CreateTask(ctx context.Context, t *task.Task) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.checkTask("task.create", t); err != nil {
		return 0, err
	}

	s.nextTaskID++
	t.ID = s.nextTaskID
	t.CreatedDate = s.now()
	t.ModifiedDate = t.CreatedDate

	stored := *t
	s.tasks[t.ID] = &stored
	return t.ID, nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id int64) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task.get_by_id: %w", repo.ErrNotFound)
	}
	out := *t
	return &out, nil
}

// filterTasks возвращает копии задач пользователя в порядке due_date, priority DESC.
func (s *Storage) filterTasks(userID int64, match func(*task.Task) bool) []*task.Task {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, t := range s.tasks {
		if t.UserID == userID && match(t) {
			out := *t
			res = append(res, &out)
		}
	}
	slices.SortFunc(res, func(a, b *task.Task) int {
		return cmp.Or(
			a.DueDate.Compare(b.DueDate.Time),
			cmp.Compare(b.Priority, a.Priority),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return res
}

func (s *Storage) GetTasksByUser(ctx context.Context, userID int64) ([]*task.Task, error) {
	return s.filterTasks(userID, func(*task.Task) bool { return true }), nil
}

func (s *Storage) GetTasksByCategory(ctx context.Context, userID, categoryID int64) ([]*task.Task, error) {
	return s.filterTasks(userID, func(t *task.Task) bool { return t.CategoryID == categoryID }), nil
}

func (s *Storage) GetTasksByStatus(ctx context.Context, userID int64, status task.Status) ([]*task.Task, error) {
	return s.filterTasks(userID, func(t *task.Task) bool { return t.Status == status }), nil
}

func (s *Storage) GetTasksByPriority(ctx context.Context, userID int64, priority int) ([]*task.Task, error) {
	return s.filterTasks(userID, func(t *task.Task) bool { return t.Priority == priority }), nil
}

func (s *Storage) GetTasksByDateRange(ctx context.Context, userID int64, from, to task.Date) ([]*task.Task, error) {
	return s.filterTasks(userID, func(t *task.Task) bool {
		return !t.DueDate.Before(from.Time) && !t.DueDate.After(to.Time)
	}), nil
}

func (s *Storage) SearchTasks(ctx context.Context, userID int64, keyword string) ([]*task.Task, error) {
	needle := strings.ToLower(keyword)
	return s.filterTasks(userID, func(t *task.Task) bool {
		return strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Content), needle)
	}), nil
}

func (s *Storage) CountTasksByStatus(ctx context.Context, userID int64, status task.Status) (int64, error) {
	tasks, _ := s.GetTasksByStatus(ctx, userID, status)
	return int64(len(tasks)), nil
}

func (s *Storage) UpdateTask(ctx context.Context, t *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.tasks[t.ID]
	if !ok || existing.UserID != t.UserID {
		return fmt.Errorf("task.update: %w", repo.ErrNotFound)
	}

	candidate := *existing
	candidate.CategoryID = t.CategoryID
	candidate.Title = t.Title
	candidate.Content = t.Content
	candidate.Description = t.Description
	candidate.Priority = t.Priority
	candidate.DueDate = t.DueDate
	if err := s.checkTask("task.update", &candidate); err != nil {
		return err
	}

	candidate.ModifiedDate = s.now()
	t.ModifiedDate = candidate.ModifiedDate
	*existing = candidate
	return nil
}

func (s *Storage) UpdateTaskStatus(ctx context.Context, id, userID int64, status task.Status) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return fmt.Errorf("task.update_status: %w", repo.ErrNotFound)
	}
	if !status.Valid() {
		return fmt.Errorf("task.update_status: %w", repo.ErrConflict)
	}
	t.Status = status
	t.ModifiedDate = s.now()
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id, userID int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return fmt.Errorf("task.delete: %w", repo.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}
