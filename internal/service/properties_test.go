package service_test

import (
	"context"
	"sync"
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	"taskManager/internal/repository/inmemory"
	"taskManager/internal/service"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// ServicePropertiesSuite проверяет сервисы поверх хранилища в памяти
type ServicePropertiesSuite struct {
	suite.Suite
	ctx        context.Context
	users      *service.UserService
	categories *service.CategoryService
	tasks      *service.TaskService

	alice int64
	bob   int64
}

func TestServicePropertiesSuite(t *testing.T) {
	suite.Run(t, new(ServicePropertiesSuite))
}

func (s *ServicePropertiesSuite) SetupTest() {
	s.ctx = context.Background()
	storage := inmemory.NewStorage()
	s.users = service.NewUserService(storage, bcrypt.MinCost)
	s.categories = service.NewCategoryService(storage)
	s.tasks = service.NewTaskService(storage, storage)

	s.alice = s.register("alice").ID
	s.bob = s.register("bob").ID
}

func (s *ServicePropertiesSuite) register(name string) *user.User {
	u, err := s.users.Register(s.ctx, service.RegisterInput{
		Username: name,
		Password: "secret",
		Email:    name + "@example.com",
	})
	s.Require().NoError(err)
	return u
}

func (s *ServicePropertiesSuite) category(userID int64, name string) int64 {
	c, err := s.categories.Create(s.ctx, userID, service.CategoryInput{Name: name})
	s.Require().NoError(err)
	return c.ID
}

func (s *ServicePropertiesSuite) task(userID, categoryID int64, title string, due task.Date) *task.Task {
	t, err := s.tasks.Create(s.ctx, userID, service.TaskInput{
		CategoryID: categoryID,
		Title:      title,
		DueDate:    due,
	})
	s.Require().NoError(err)
	return t
}

func (s *ServicePropertiesSuite) assertCode(err error, code string) {
	s.T().Helper()
	s.Require().Error(err)
	s.True(service.IsCode(err, code), "ожидался код %s, получено %v", code, err)
}

func (s *ServicePropertiesSuite) TestDuplicateRegistrationRejected() {
	_, err := s.users.Register(s.ctx, service.RegisterInput{Username: "alice", Password: "x", Email: "new@example.com"})
	s.assertCode(err, service.CodeDuplicate)

	_, err = s.users.Register(s.ctx, service.RegisterInput{Username: "carol", Password: "x", Email: "alice@example.com"})
	s.assertCode(err, service.CodeDuplicate)
}

func (s *ServicePropertiesSuite) TestLoginFlow() {
	u, err := s.users.Login(s.ctx, "alice", "secret")
	s.Require().NoError(err)
	s.NotNil(u.LastLogin)

	_, err = s.users.Login(s.ctx, "alice", "wrong")
	s.assertCode(err, service.CodeUnauthorized)

	s.Require().NoError(s.users.SetStatus(s.ctx, s.alice, user.StatusInactive))
	_, err = s.users.Login(s.ctx, "alice", "secret")
	s.assertCode(err, service.CodeUnauthorized)
}

func (s *ServicePropertiesSuite) TestCategoryNameScopedPerUser() {
	s.category(s.alice, "работа")

	exists, err := s.categories.NameExists(s.ctx, s.alice, "работа")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.categories.NameExists(s.ctx, s.bob, "работа")
	s.Require().NoError(err)
	s.False(exists)

	_, err = s.categories.Create(s.ctx, s.alice, service.CategoryInput{Name: "работа"})
	s.assertCode(err, service.CodeDuplicate)
}

func (s *ServicePropertiesSuite) TestCategoryUpdateDistinguishesErrors() {
	work := s.category(s.alice, "работа")
	s.category(s.alice, "дом")

	_, err := s.categories.Update(s.ctx, s.alice, work, service.CategoryInput{Name: "дом"})
	s.assertCode(err, service.CodeDuplicate)

	_, err = s.categories.Update(s.ctx, s.bob, work, service.CategoryInput{Name: "чужое"})
	s.assertCode(err, service.CodeNotFound)

	_, err = s.categories.Update(s.ctx, s.alice, 999, service.CategoryInput{Name: "нет"})
	s.assertCode(err, service.CodeNotFound)

	c, err := s.categories.Update(s.ctx, s.alice, work, service.CategoryInput{Name: "работа", Description: "офис"})
	s.Require().NoError(err)
	s.Equal("офис", c.Description)
}

func (s *ServicePropertiesSuite) TestCategoryDeleteOwnership() {
	work := s.category(s.alice, "работа")

	s.assertCode(s.categories.Delete(s.ctx, s.bob, work), service.CodeNotFound)

	s.task(s.alice, work, "отчёт", task.NewDate(2024, 12, 31))
	s.assertCode(s.categories.Delete(s.ctx, s.alice, work), service.CodeConflict)

	empty := s.category(s.alice, "пусто")
	s.NoError(s.categories.Delete(s.ctx, s.alice, empty))
}

// TestTaskRoundTrip: статус принудительно 0, дата без сдвига
func (s *ServicePropertiesSuite) TestTaskRoundTrip() {
	work := s.category(s.alice, "работа")
	created, err := s.tasks.Create(s.ctx, s.alice, service.TaskInput{
		CategoryID: work,
		Title:      "отчёт",
		Priority:   1,
		DueDate:    task.NewDate(2024, time.December, 31),
	})
	s.Require().NoError(err)

	got, err := s.tasks.Get(s.ctx, s.alice, created.ID)
	s.Require().NoError(err)
	s.Equal(task.StatusIncomplete, got.Status)
	s.Equal("2024-12-31", got.DueDate.String())
	s.Equal(1, got.Priority)
}

func (s *ServicePropertiesSuite) TestTaskCreateValidation() {
	work := s.category(s.alice, "работа")
	bobs := s.category(s.bob, "работа")
	due := task.NewDate(2024, 1, 1)

	tests := []struct {
		name  string
		input service.TaskInput
		code  string
	}{
		{"blank title", service.TaskInput{CategoryID: work, Title: " ", DueDate: due}, service.CodeValidation},
		{"no due date", service.TaskInput{CategoryID: work, Title: "x"}, service.CodeValidation},
		{"priority too high", service.TaskInput{CategoryID: work, Title: "x", Priority: 6, DueDate: due}, service.CodeValidation},
		{"missing category", service.TaskInput{Title: "x", DueDate: due}, service.CodeValidation},
		{"foreign category", service.TaskInput{CategoryID: bobs, Title: "x", DueDate: due}, service.CodeNotFound},
		{"unknown category", service.TaskInput{CategoryID: 999, Title: "x", DueDate: due}, service.CodeNotFound},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.tasks.Create(s.ctx, s.alice, tt.input)
			s.assertCode(err, tt.code)
		})
	}
}

func (s *ServicePropertiesSuite) TestUpdateStatusIdempotent() {
	work := s.category(s.alice, "работа")
	t := s.task(s.alice, work, "отчёт", task.NewDate(2024, 12, 31))

	s.Require().NoError(s.tasks.UpdateStatus(s.ctx, s.alice, t.ID, task.StatusComplete))
	s.Require().NoError(s.tasks.UpdateStatus(s.ctx, s.alice, t.ID, task.StatusComplete))

	got, err := s.tasks.Get(s.ctx, s.alice, t.ID)
	s.Require().NoError(err)
	s.Equal(task.StatusComplete, got.Status)

	s.assertCode(s.tasks.UpdateStatus(s.ctx, s.alice, t.ID, task.Status(3)), service.CodeValidation)
}

// TestOwnershipBoundary: чужой пользователь не может изменить, удалить или сменить статус
func (s *ServicePropertiesSuite) TestOwnershipBoundary() {
	work := s.category(s.alice, "работа")
	t := s.task(s.alice, work, "отчёт", task.NewDate(2024, 12, 31))

	_, err := s.tasks.Update(s.ctx, s.bob, t.ID, service.TaskInput{CategoryID: work, Title: "взлом", DueDate: t.DueDate})
	s.assertCode(err, service.CodeNotFound)

	s.assertCode(s.tasks.Delete(s.ctx, s.bob, t.ID), service.CodeNotFound)
	s.assertCode(s.tasks.UpdateStatus(s.ctx, s.bob, t.ID, task.StatusComplete), service.CodeNotFound)

	_, err = s.tasks.Get(s.ctx, s.bob, t.ID)
	s.assertCode(err, service.CodeNotFound)

	owned, err := s.tasks.BelongsToUser(s.ctx, t.ID, s.bob)
	s.Require().NoError(err)
	s.False(owned)

	got, err := s.tasks.Get(s.ctx, s.alice, t.ID)
	s.Require().NoError(err)
	s.Equal("отчёт", got.Title)
	s.Equal(task.StatusIncomplete, got.Status)
}

func (s *ServicePropertiesSuite) TestUpdateKeepsStatus() {
	work := s.category(s.alice, "работа")
	home := s.category(s.alice, "дом")
	t := s.task(s.alice, work, "отчёт", task.NewDate(2024, 12, 31))
	s.Require().NoError(s.tasks.UpdateStatus(s.ctx, s.alice, t.ID, task.StatusComplete))

	updated, err := s.tasks.Update(s.ctx, s.alice, t.ID, service.TaskInput{
		CategoryID: home,
		Title:      "отчёт v2",
		Priority:   4,
		DueDate:    task.NewDate(2025, 1, 15),
	})
	s.Require().NoError(err)
	s.Equal(task.StatusComplete, updated.Status)
	s.Equal(home, updated.CategoryID)
	s.Equal(4, updated.Priority)
}

func (s *ServicePropertiesSuite) TestSearchScopedToOwner() {
	aw := s.category(s.alice, "работа")
	bw := s.category(s.bob, "работа")
	mine := s.task(s.alice, aw, "найти SEARCHKEYWORD", task.NewDate(2024, 1, 1))
	s.task(s.bob, bw, "SEARCHKEYWORD у боба", task.NewDate(2024, 1, 1))

	found, err := s.tasks.Search(s.ctx, s.alice, "SEARCHKEYWORD")
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(mine.ID, found[0].ID)

	_, err = s.tasks.Search(s.ctx, s.alice, "  ")
	s.assertCode(err, service.CodeValidation)
}

func (s *ServicePropertiesSuite) TestDateRangeInclusive() {
	work := s.category(s.alice, "работа")
	today := task.DateOf(time.Now())
	s.task(s.alice, work, "сегодня", today)

	found, err := s.tasks.ListByDateRange(s.ctx, s.alice, today.AddDays(-1), today.AddDays(1))
	s.Require().NoError(err)
	s.Len(found, 1)

	found, err = s.tasks.ListByDateRange(s.ctx, s.alice, today.AddDays(-5), today.AddDays(-2))
	s.Require().NoError(err)
	s.Empty(found)

	found, err = s.tasks.ListByDateRange(s.ctx, s.alice, today, today)
	s.Require().NoError(err)
	s.Len(found, 1)

	_, err = s.tasks.ListByDateRange(s.ctx, s.alice, today.AddDays(1), today)
	s.assertCode(err, service.CodeValidation)
}

func (s *ServicePropertiesSuite) TestCountByStatus() {
	work := s.category(s.alice, "работа")
	s.task(s.alice, work, "открытая", task.NewDate(2024, 1, 1))
	done := s.task(s.alice, work, "закрытая", task.NewDate(2024, 1, 2))
	s.Require().NoError(s.tasks.UpdateStatus(s.ctx, s.alice, done.ID, task.StatusComplete))

	count, err := s.tasks.CountByStatus(s.ctx, s.alice, task.StatusIncomplete)
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	count, err = s.tasks.CountByStatus(s.ctx, s.bob, task.StatusIncomplete)
	s.Require().NoError(err)
	s.Equal(int64(0), count)
}

func (s *ServicePropertiesSuite) TestListFilters() {
	work := s.category(s.alice, "работа")
	bobs := s.category(s.bob, "работа")
	_, err := s.tasks.Create(s.ctx, s.alice, service.TaskInput{CategoryID: work, Title: "важная", Priority: 5, DueDate: task.NewDate(2024, 1, 1)})
	s.Require().NoError(err)

	found, err := s.tasks.ListByPriority(s.ctx, s.alice, 5)
	s.Require().NoError(err)
	s.Len(found, 1)

	_, err = s.tasks.ListByPriority(s.ctx, s.alice, 0)
	s.assertCode(err, service.CodeValidation)

	found, err = s.tasks.ListByCategory(s.ctx, s.alice, work)
	s.Require().NoError(err)
	s.Len(found, 1)

	_, err = s.tasks.ListByCategory(s.ctx, s.alice, bobs)
	s.assertCode(err, service.CodeNotFound)

	found, err = s.tasks.ListByStatus(s.ctx, s.alice, task.StatusComplete)
	s.Require().NoError(err)
	s.Empty(found)
}

// TestConcurrentCategoryCreate: гонка проверка-затем-вставка
// допускает ровно одну запись, проигравшие получают DUPLICATE
func (s *ServicePropertiesSuite) TestConcurrentCategoryCreate() {
	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.categories.Create(s.ctx, s.alice, service.CategoryInput{Name: "гонка"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.True(service.IsCode(err, service.CodeDuplicate))
	}
	s.Equal(1, succeeded)

	list, err := s.categories.List(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func TestUserService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewStorage()
	users := service.NewUserService(storage, bcrypt.MinCost)
	categories := service.NewCategoryService(storage)

	u, err := users.Register(ctx, service.RegisterInput{Username: "a", Password: "p", Email: "a@example.com"})
	require.NoError(t, err)
	_, err = categories.Create(ctx, u.ID, service.CategoryInput{Name: "x"})
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, u.ID))

	list, err := categories.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = users.Delete(ctx, u.ID)
	assert.True(t, service.IsCode(err, service.CodeNotFound))
}
