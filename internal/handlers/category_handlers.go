package handlers

import (
	"net/http"
	"taskManager/internal/logger"
	"taskManager/internal/models/category"
	"taskManager/internal/service"
	"time"

	"go.uber.org/zap"
)

type CategoryHandler struct {
	categories CategoryService
}

func NewCategoryHandler(categories CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	in := service.CategoryInput{
		Name:        f.required("categoryName"),
		Description: f.optional("description"),
	}
	if !f.valid(w) {
		return
	}

	c, err := h.categories.Create(r.Context(), userID, in)
	if err != nil {
		handleError(w, r, err, "create_category")
		return
	}

	logOut("Категория создана", start,
		zap.Int64("user_id", userID),
		zap.Int64("category_id", c.ID))
	responseWithMessage(w, "категория создана", toPayload("category", c))
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	id := f.requiredInt64("categoryId")
	in := service.CategoryInput{
		Name:        f.required("categoryName"),
		Description: f.optional("description"),
	}
	if !f.valid(w) {
		return
	}

	c, err := h.categories.Update(r.Context(), userID, id, in)
	if err != nil {
		handleError(w, r, err, "update_category")
		return
	}

	logOut("Категория обновлена", start, zap.Int64("category_id", id))
	responseWithMessage(w, "категория обновлена", toPayload("category", c))
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	id := f.requiredInt64("categoryId")
	if !f.valid(w) {
		return
	}

	if err := h.categories.Delete(r.Context(), userID, id); err != nil {
		handleError(w, r, err, "delete_category")
		return
	}

	logOut("Категория удалена", start, zap.Int64("category_id", id))
	responseWithMessage(w, "категория удалена")
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	categories, err := h.categories.List(r.Context(), userID)
	if err != nil {
		handleError(w, r, err, "list_categories")
		return
	}
	if categories == nil {
		categories = []*category.Category{}
	}

	logOut("Категории получены", start, zap.Int("count", len(categories)))
	responseWithJSON(w, http.StatusOK, toPayload("categories", categories))
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	id := f.requiredInt64("categoryId")
	if !f.valid(w) {
		return
	}

	c, err := h.categories.Get(r.Context(), userID, id)
	if err != nil {
		handleError(w, r, err, "get_category")
		return
	}

	logOut("Категория получена", start, zap.Int64("category_id", id))
	responseWithJSON(w, http.StatusOK, toPayload("category", c))
}

func (h *CategoryHandler) CheckName(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	name := f.required("categoryName")
	if !f.valid(w) {
		return
	}

	exists, err := h.categories.NameExists(r.Context(), userID, name)
	if err != nil {
		handleError(w, r, err, "check_category_name")
		return
	}

	logOut("Проверка имени категории", start, zap.Bool("exists", exists))
	responseWithJSON(w, http.StatusOK, toPayload("exists", exists))
}
