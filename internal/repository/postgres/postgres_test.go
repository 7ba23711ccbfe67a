package postgres

import (
	"context"
	"fmt"
	"sync"
	"taskManager/internal/config"
	"taskManager/internal/models/category"
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	repo "taskManager/internal/repository"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestSuite для интеграционных тестов с PostgreSQL
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *Storage
	ctx        context.Context
	connString string
}

// SetupSuite запускается один раз перед всеми тестами
func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	// порт открывается раньше, чем postgres готов принимать запросы
	require.Eventually(s.T(), func() bool {
		conn, err := pgx.Connect(s.ctx, s.connString)
		if err != nil {
			return false
		}
		defer conn.Close(s.ctx)
		return conn.Ping(s.ctx) == nil
	}, 30*time.Second, 500*time.Millisecond)

	require.NoError(s.T(), MigrateUp(s.connString))

	s.storage, err = New(s.ctx, s.dbConfig())
	require.NoError(s.T(), err)
}

func (s *PostgresTestSuite) dbConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		URL:            s.connString,
		MaxConnections: 5,
		MinConnections: 1,
		IdleTimeout:    time.Minute,
		MaxWait:        5 * time.Second,
		SlowQuery:      time.Second,
	}
}

// TearDownSuite очищает после всех тестов
func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

// SetupTest очищает таблицы перед каждым тестом
func (s *PostgresTestSuite) SetupTest() {
	_, err := s.storage.pool.Exec(s.ctx, "TRUNCATE users, categories, tasks RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err)
}

// TestPostgresTestSuite запускает suite
func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func (s *PostgresTestSuite) createUser(name string) *user.User {
	u := &user.User{
		Username:     name,
		PasswordHash: "hash",
		Email:        name + "@example.com",
		Status:       user.StatusActive,
	}
	_, err := s.storage.CreateUser(s.ctx, u)
	require.NoError(s.T(), err)
	return u
}

func (s *PostgresTestSuite) createCategory(userID int64, name string) *category.Category {
	c := &category.Category{UserID: userID, Name: name}
	_, err := s.storage.CreateCategory(s.ctx, c)
	require.NoError(s.T(), err)
	return c
}

func (s *PostgresTestSuite) createTask(userID, categoryID int64, title string, due task.Date, opts ...task.Option) *task.Task {
	t := task.New(userID, categoryID, title, due, opts...)
	_, err := s.storage.CreateTask(s.ctx, t)
	require.NoError(s.T(), err)
	return t
}

func (s *PostgresTestSuite) TestUser_CreateAndGet() {
	u := s.createUser("alice")
	assert.NotZero(s.T(), u.ID)
	assert.False(s.T(), u.RegistrationDate.IsZero())

	got, err := s.storage.GetUserByUsername(s.ctx, "alice")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), u.ID, got.ID)
	assert.Nil(s.T(), got.LastLogin)

	require.NoError(s.T(), s.storage.UpdateLastLogin(s.ctx, u.ID))
	got, err = s.storage.GetUserByID(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), got.LastLogin)

	_, err = s.storage.GetUserByID(s.ctx, 9999)
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)
}

// TestUser_UniqueConstraints проверяет второй барьер уникальности в схеме
func (s *PostgresTestSuite) TestUser_UniqueConstraints() {
	s.createUser("alice")

	_, err := s.storage.CreateUser(s.ctx, &user.User{Username: "alice", PasswordHash: "x", Email: "other@example.com", Status: user.StatusActive})
	assert.ErrorIs(s.T(), err, repo.ErrConflict)

	_, err = s.storage.CreateUser(s.ctx, &user.User{Username: "bob", PasswordHash: "x", Email: "alice@example.com", Status: user.StatusActive})
	assert.ErrorIs(s.T(), err, repo.ErrConflict)

	exists, err := s.storage.EmailExists(s.ctx, "alice@example.com")
	require.NoError(s.T(), err)
	assert.True(s.T(), exists)

	exists, err = s.storage.UsernameExists(s.ctx, "bob")
	require.NoError(s.T(), err)
	assert.False(s.T(), exists)
}

func (s *PostgresTestSuite) TestUser_StatusAndDeleteCascade() {
	u := s.createUser("alice")
	c := s.createCategory(u.ID, "работа")
	t := s.createTask(u.ID, c.ID, "отчёт", task.NewDate(2024, 12, 31))

	require.NoError(s.T(), s.storage.UpdateUserStatus(s.ctx, u.ID, user.StatusInactive))
	got, err := s.storage.GetUserByID(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.StatusInactive, got.Status)

	require.NoError(s.T(), s.storage.DeleteUser(s.ctx, u.ID))

	_, err = s.storage.GetCategoryByID(s.ctx, c.ID)
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)
	_, err = s.storage.GetTaskByID(s.ctx, t.ID)
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)

	assert.ErrorIs(s.T(), s.storage.DeleteUser(s.ctx, u.ID), repo.ErrNotFound)
}

func (s *PostgresTestSuite) TestCategory_PerUserUniqueness() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	s.createCategory(alice.ID, "работа")

	_, err := s.storage.CreateCategory(s.ctx, &category.Category{UserID: alice.ID, Name: "работа"})
	assert.ErrorIs(s.T(), err, repo.ErrConflict)

	s.createCategory(bob.ID, "работа")

	exists, err := s.storage.CategoryNameExists(s.ctx, alice.ID, "работа")
	require.NoError(s.T(), err)
	assert.True(s.T(), exists)

	list, err := s.storage.GetCategoriesByUser(s.ctx, bob.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), list, 1)
}

func (s *PostgresTestSuite) TestCategory_OwnerScopedWrites() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	c := s.createCategory(alice.ID, "дом")

	err := s.storage.UpdateCategory(s.ctx, &category.Category{ID: c.ID, UserID: bob.ID, Name: "чужое"})
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)

	assert.ErrorIs(s.T(), s.storage.DeleteCategory(s.ctx, c.ID, bob.ID), repo.ErrNotFound)

	s.createTask(alice.ID, c.ID, "полить цветы", task.NewDate(2024, 6, 1))
	assert.ErrorIs(s.T(), s.storage.DeleteCategory(s.ctx, c.ID, alice.ID), repo.ErrConflict)
}

func (s *PostgresTestSuite) TestCategory_OrderedByName() {
	u := s.createUser("alice")
	s.createCategory(u.ID, "в")
	s.createCategory(u.ID, "а")
	s.createCategory(u.ID, "б")

	list, err := s.storage.GetCategoriesByUser(s.ctx, u.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 3)
	assert.Equal(s.T(), "а", list[0].Name)
	assert.Equal(s.T(), "в", list[2].Name)
}

// TestTask_DueDateRoundTrip проверяет отсутствие сдвига даты
func (s *PostgresTestSuite) TestTask_DueDateRoundTrip() {
	u := s.createUser("alice")
	c := s.createCategory(u.ID, "работа")
	t := s.createTask(u.ID, c.ID, "отчёт", task.NewDate(2024, time.December, 31), task.WithPriority(1))

	got, err := s.storage.GetTaskByID(s.ctx, t.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2024-12-31", got.DueDate.String())
	assert.Equal(s.T(), task.StatusIncomplete, got.Status)
	assert.Equal(s.T(), 1, got.Priority)
}

func (s *PostgresTestSuite) TestTask_ForeignCategoryRejected() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	bobs := s.createCategory(bob.ID, "чужая")

	_, err := s.storage.CreateTask(s.ctx, task.New(alice.ID, bobs.ID, "x", task.NewDate(2024, 1, 1)))
	assert.ErrorIs(s.T(), err, repo.ErrConflict)
}

func (s *PostgresTestSuite) TestTask_Queries() {
	u := s.createUser("alice")
	other := s.createUser("bob")
	c := s.createCategory(u.ID, "работа")
	oc := s.createCategory(other.ID, "работа")

	today := task.DateOf(time.Now())
	s.createTask(u.ID, c.ID, "SEARCHKEYWORD в названии", today, task.WithPriority(3))
	done := s.createTask(u.ID, c.ID, "второе", today.AddDays(5), task.WithContent("есть searchkeyword"))
	s.createTask(other.ID, oc.ID, "SEARCHKEYWORD чужое", today)

	require.NoError(s.T(), s.storage.UpdateTaskStatus(s.ctx, done.ID, u.ID, task.StatusComplete))

	found, err := s.storage.SearchTasks(s.ctx, u.ID, "SEARCHKEYWORD")
	require.NoError(s.T(), err)
	assert.Len(s.T(), found, 2)

	found, err = s.storage.SearchTasks(s.ctx, u.ID, "%")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), found)

	inRange, err := s.storage.GetTasksByDateRange(s.ctx, u.ID, today.AddDays(-1), today.AddDays(1))
	require.NoError(s.T(), err)
	assert.Len(s.T(), inRange, 1)

	before, err := s.storage.GetTasksByDateRange(s.ctx, u.ID, today.AddDays(-10), today.AddDays(-2))
	require.NoError(s.T(), err)
	assert.Empty(s.T(), before)
	assert.NotNil(s.T(), before)

	count, err := s.storage.CountTasksByStatus(s.ctx, u.ID, task.StatusIncomplete)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), count)

	byPriority, err := s.storage.GetTasksByPriority(s.ctx, u.ID, 3)
	require.NoError(s.T(), err)
	assert.Len(s.T(), byPriority, 1)

	byCategory, err := s.storage.GetTasksByCategory(s.ctx, u.ID, c.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), byCategory, 2)

	all, err := s.storage.GetTasksByUser(s.ctx, u.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 2)
	assert.False(s.T(), all[0].DueDate.After(all[1].DueDate.Time))
}

func (s *PostgresTestSuite) TestTask_OwnerScopedWrites() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	c := s.createCategory(alice.ID, "работа")
	t := s.createTask(alice.ID, c.ID, "отчёт", task.NewDate(2024, 12, 31))

	foreign := *t
	foreign.UserID = bob.ID
	foreign.Title = "взлом"
	assert.ErrorIs(s.T(), s.storage.UpdateTask(s.ctx, &foreign), repo.ErrNotFound)
	assert.ErrorIs(s.T(), s.storage.UpdateTaskStatus(s.ctx, t.ID, bob.ID, task.StatusComplete), repo.ErrNotFound)
	assert.ErrorIs(s.T(), s.storage.DeleteTask(s.ctx, t.ID, bob.ID), repo.ErrNotFound)

	t.Title = "отчёт v2"
	require.NoError(s.T(), s.storage.UpdateTask(s.ctx, t))
	got, err := s.storage.GetTaskByID(s.ctx, t.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "отчёт v2", got.Title)
	assert.False(s.T(), got.ModifiedDate.Before(got.CreatedDate))

	require.NoError(s.T(), s.storage.DeleteTask(s.ctx, t.ID, alice.ID))
}

func (s *PostgresTestSuite) TestTask_StatusCheckConstraint() {
	u := s.createUser("alice")
	c := s.createCategory(u.ID, "работа")
	t := s.createTask(u.ID, c.ID, "отчёт", task.NewDate(2024, 12, 31))

	err := s.storage.UpdateTaskStatus(s.ctx, t.ID, u.ID, task.Status(7))
	assert.ErrorIs(s.T(), err, repo.ErrConflict)
}

// TestCategory_ConcurrentCreate: гонка проверка-затем-вставка закрывается ограничением схемы
func (s *PostgresTestSuite) TestCategory_ConcurrentCreate() {
	u := s.createUser("alice")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.storage.CreateCategory(s.ctx, &category.Category{UserID: u.ID, Name: "гонка"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(s.T(), err, repo.ErrConflict)
	}
	assert.Equal(s.T(), 1, succeeded)
}

// TestAcquire_WaitLimit: при исчерпании пула ожидание ограничено max_wait
func (s *PostgresTestSuite) TestAcquire_WaitLimit() {
	cfg := s.dbConfig()
	cfg.MaxConnections = 1
	cfg.MinConnections = 1
	cfg.MaxWait = 200 * time.Millisecond

	small, err := New(s.ctx, cfg)
	require.NoError(s.T(), err)
	defer small.Close()

	held, err := small.pool.Acquire(s.ctx)
	require.NoError(s.T(), err)

	start := time.Now()
	_, err = small.GetUserByID(s.ctx, 1)
	assert.ErrorIs(s.T(), err, repo.ErrStorage)
	assert.Less(s.T(), time.Since(start), 2*time.Second)

	held.Release()
	_, err = small.GetUserByID(s.ctx, 1)
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)
}

func (s *PostgresTestSuite) TestHealthCheck() {
	assert.NoError(s.T(), s.storage.HealthCheck(s.ctx))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db", migrateURL("postgres://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("postgresql://u@h/db"))
	assert.Equal(t, "pgx5://x", migrateURL("pgx5://x"))
}
