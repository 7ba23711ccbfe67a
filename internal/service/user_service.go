package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"taskManager/internal/logger"
	"taskManager/internal/metrics"
	"taskManager/internal/models/user"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const msgBadCredentials = "неверное имя пользователя или пароль"

type RegisterInput struct {
	Username string `field:"username" validate:"notblank,max=50"`
	Password string `field:"password" validate:"notblank,maxbytes=72"`
	Email    string `field:"email" validate:"notblank,email,max=100"`
}

// UpdateUserInput: пустой Password оставляет прежний пароль.
type UpdateUserInput struct {
	Username string `field:"username" validate:"notblank,max=50"`
	Email    string `field:"email" validate:"notblank,email,max=100"`
	Password string `field:"password" validate:"maxbytes=72"`
}

type UserService struct {
	repo     UserRepository
	hashCost int
	// dummyHash сравнивается при неизвестном логине, чтобы время ответа не выдавало существование пользователя
	dummyHash []byte
}

// NewUserService: hashCost 0 означает bcrypt.DefaultCost.
func NewUserService(repo UserRepository, hashCost int) *UserService {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("taskmanager-dummy"), hashCost)
	return &UserService{
		repo:      repo,
		hashCost:  hashCost,
		dummyHash: dummy,
	}
}

func (s *UserService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	exists, err := s.repo.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("проверка имени пользователя: %w", err)
	}
	if exists {
		logger.Info("Service: Имя пользователя занято", zap.String("username", in.Username))
		return nil, NewDuplicate("username", in.Username)
	}

	exists, err = s.repo.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("проверка email: %w", err)
	}
	if exists {
		logger.Info("Service: Email занят", zap.String("email", in.Email))
		return nil, NewDuplicate("email", in.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("хеширование пароля: %w", err)
	}

	u := &user.User{
		Username:     in.Username,
		PasswordHash: string(hash),
		Email:        in.Email,
		Status:       user.StatusActive,
	}
	if _, err := s.repo.CreateUser(ctx, u); err != nil {
		// проигравший в гонке регистрации упирается в уникальный индекс
		if isConflict(err) {
			return nil, NewBusinessError(CodeDuplicate, "имя пользователя или email уже заняты")
		}
		return nil, fmt.Errorf("создание пользователя: %w", err)
	}

	logger.Info("Service: Пользователь зарегистрирован", zap.Int64("user_id", u.ID))
	return u, nil
}

// Login проверяет пароль и активность учётной записи, затем отмечает время входа.
func (s *UserService) Login(ctx context.Context, username, password string) (*user.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, NewValidationError("username", "имя пользователя и пароль обязательны")
	}

	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("поиск пользователя: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		metrics.Logins.WithLabelValues("unknown_user").Inc()
		return nil, NewUnauthorized(msgBadCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			logger.Error("Service: Повреждённый хеш пароля", err, zap.Int64("user_id", u.ID))
		}
		metrics.Logins.WithLabelValues("bad_password").Inc()
		return nil, NewUnauthorized(msgBadCredentials)
	}

	if !u.IsActive() {
		logger.Info("Service: Вход неактивного пользователя", zap.Int64("user_id", u.ID))
		metrics.Logins.WithLabelValues("inactive").Inc()
		return nil, NewUnauthorized(msgBadCredentials)
	}

	if err := s.repo.UpdateLastLogin(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("обновление времени входа: %w", err)
	}

	fresh, err := s.repo.GetUserByID(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	metrics.Logins.WithLabelValues("success").Inc()
	return fresh, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*user.User, error) {
	if err := requireID("userId", id); err != nil {
		return nil, err
	}
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, NewNotFound(ResourceUser, id)
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

// IsActive: удалённый пользователь считается неактивным.
func (s *UserService) IsActive(ctx context.Context, id int64) (bool, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("проверка учётной записи: %w", err)
	}
	return u.IsActive(), nil
}

// Update перепроверяет уникальность только против других пользователей.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput) (*user.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != u.Username {
		other, err := s.repo.GetUserByUsername(ctx, in.Username)
		if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("проверка имени пользователя: %w", err)
		}
		if other != nil && other.ID != id {
			return nil, NewDuplicate("username", in.Username)
		}
	}
	if in.Email != u.Email {
		other, err := s.repo.GetUserByEmail(ctx, in.Email)
		if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("проверка email: %w", err)
		}
		if other != nil && other.ID != id {
			return nil, NewDuplicate("email", in.Email)
		}
	}

	u.Username = in.Username
	u.Email = in.Email
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
		if err != nil {
			return nil, fmt.Errorf("хеширование пароля: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		switch {
		case isNotFound(err):
			return nil, NewNotFound(ResourceUser, id)
		case isConflict(err):
			return nil, NewBusinessError(CodeDuplicate, "имя пользователя или email уже заняты")
		}
		return nil, fmt.Errorf("обновление пользователя: %w", err)
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := requireID("userId", id); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceUser, id)
		}
		return fmt.Errorf("удаление пользователя: %w", err)
	}
	logger.Info("Service: Пользователь удалён", zap.Int64("user_id", id))
	return nil
}

func (s *UserService) List(ctx context.Context) ([]*user.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение пользователей: %w", err)
	}
	return users, nil
}

func (s *UserService) SetStatus(ctx context.Context, id int64, status user.Status) error {
	if err := requireID("userId", id); err != nil {
		return err
	}
	if !status.Valid() {
		return NewValidationError("status", "допустимы значения 0 и 1")
	}
	if err := s.repo.UpdateUserStatus(ctx, id, status); err != nil {
		if isNotFound(err) {
			return NewNotFound(ResourceUser, id)
		}
		return fmt.Errorf("обновление статуса пользователя: %w", err)
	}
	return nil
}

func (s *UserService) UsernameExists(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, NewValidationError("username", reasons["notblank"])
	}
	exists, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return false, fmt.Errorf("проверка имени пользователя: %w", err)
	}
	return exists, nil
}

func (s *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, NewValidationError("email", reasons["notblank"])
	}
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return false, fmt.Errorf("проверка email: %w", err)
	}
	return exists, nil
}
