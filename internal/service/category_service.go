package service

import (
	"context"
	"fmt"
	"strings"
	"taskManager/internal/logger"
	"taskManager/internal/models/category"

	"go.uber.org/zap"
)

type CategoryInput struct {
	Name        string `field:"categoryName" validate:"notblank,max=50"`
	Description string `field:"description" validate:"max=255"`
}

type CategoryService struct {
	repo CategoryRepository
}

func NewCategoryService(repo CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) Create(ctx context.Context, userID int64, in CategoryInput) (*category.Category, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	exists, err := s.repo.CategoryNameExists(ctx, userID, in.Name)
	if err != nil {
		return nil, fmt.Errorf("проверка имени категории: %w", err)
	}
	if exists {
		return nil, NewDuplicate("categoryName", in.Name)
	}

	c := &category.Category{
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
	}
	if _, err := s.repo.CreateCategory(ctx, c); err != nil {
		if isConflict(err) {
			return nil, NewDuplicate("categoryName", in.Name)
		}
		return nil, fmt.Errorf("создание категории: %w", err)
	}

	logger.Info("Service: Категория создана",
		zap.Int64("user_id", userID),
		zap.Int64("category_id", c.ID))
	return c, nil
}

// Get отдаёт категорию только владельцу.
func (s *CategoryService) Get(ctx context.Context, userID, id int64) (*category.Category, error) {
	if err := requireID("categoryId", id); err != nil {
		return nil, err
	}
	c, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, NewNotFound(ResourceCategory, id)
		}
		return nil, fmt.Errorf("получение категории: %w", err)
	}
	if c.UserID != userID {
		logger.Warn("Service: Обращение к чужой категории",
			zap.Int64("user_id", userID),
			zap.Int64("category_id", id))
		return nil, NewNotFound(ResourceCategory, id)
	}
	return c, nil
}

func (s *CategoryService) BelongsToUser(ctx context.Context, id, userID int64) (bool, error) {
	_, err := s.Get(ctx, userID, id)
	if err == nil {
		return true, nil
	}
	if IsCode(err, CodeNotFound) {
		return false, nil
	}
	return false, err
}

func (s *CategoryService) Update(ctx context.Context, userID, id int64, in CategoryInput) (*category.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != c.Name {
		other, err := s.repo.GetCategoryByName(ctx, userID, in.Name)
		if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("проверка имени категории: %w", err)
		}
		if other != nil && other.ID != id {
			return nil, NewDuplicate("categoryName", in.Name)
		}
	}

	c.Name = in.Name
	c.Description = in.Description
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		switch {
		case isNotFound(err):
			return nil, NewNotFound(ResourceCategory, id)
		case isConflict(err):
			return nil, NewDuplicate("categoryName", in.Name)
		}
		return nil, fmt.Errorf("обновление категории: %w", err)
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, userID, id int64) error {
	if err := requireID("categoryId", id); err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id, userID); err != nil {
		switch {
		case isNotFound(err):
			return NewNotFound(ResourceCategory, id)
		case isConflict(err):
			return NewConflict("категория содержит задачи, сначала удалите или перенесите их", err)
		}
		return fmt.Errorf("удаление категории: %w", err)
	}
	logger.Info("Service: Категория удалена",
		zap.Int64("user_id", userID),
		zap.Int64("category_id", id))
	return nil
}

func (s *CategoryService) List(ctx context.Context, userID int64) ([]*category.Category, error) {
	categories, err := s.repo.GetCategoriesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("получение категорий: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) NameExists(ctx context.Context, userID int64, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, NewValidationError("categoryName", reasons["notblank"])
	}
	exists, err := s.repo.CategoryNameExists(ctx, userID, name)
	if err != nil {
		return false, fmt.Errorf("проверка имени категории: %w", err)
	}
	return exists, nil
}
