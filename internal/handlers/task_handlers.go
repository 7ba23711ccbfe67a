package handlers

import (
	"net/http"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/service"
	"time"

	"go.uber.org/zap"
)

type TaskHandler struct {
	tasks TaskService
}

func NewTaskHandler(tasks TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func taskInput(f *form) service.TaskInput {
	return service.TaskInput{
		Title:       f.required("taskName"),
		CategoryID:  f.requiredInt64("categoryId"),
		DueDate:     f.requiredDate("dueDate"),
		Description: f.optional("description"),
		Content:     f.optional("content"),
		Priority:    f.optionalInt("priority"),
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	in := taskInput(f)
	if !f.valid(w) {
		return
	}

	logger.Info("HTTP: Вызов сервиса создания задачи")
	t, err := h.tasks.Create(r.Context(), userID, in)
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	logOut("Задача создана", start,
		zap.Int64("user_id", userID),
		zap.Int64("task_id", t.ID))
	responseWithMessage(w, "задача создана", toPayload("task", t))
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	id := f.requiredInt64("taskId")
	in := taskInput(f)
	if !f.valid(w) {
		return
	}

	t, err := h.tasks.Update(r.Context(), userID, id, in)
	if err != nil {
		handleError(w, r, err, "update_task")
		return
	}

	logOut("Задача обновлена", start, zap.Int64("task_id", id))
	responseWithMessage(w, "задача обновлена", toPayload("task", t))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	id := f.requiredInt64("taskId")
	if !f.valid(w) {
		return
	}

	if err := h.tasks.Delete(r.Context(), userID, id); err != nil {
		handleError(w, r, err, "delete_task")
		return
	}

	logOut("Задача удалена", start, zap.Int64("task_id", id))
	responseWithMessage(w, "задача удалена")
}

func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	id := f.requiredInt64("taskId")
	status := f.requiredStatus("status")
	if !f.valid(w) {
		return
	}

	if err := h.tasks.UpdateStatus(r.Context(), userID, id, status); err != nil {
		handleError(w, r, err, "update_task_status")
		return
	}

	logOut("Статус задачи обновлён", start,
		zap.Int64("task_id", id),
		zap.Int16("status", int16(status)))
	responseWithMessage(w, "статус задачи обновлён")
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	id := f.requiredInt64("taskId")
	if !f.valid(w) {
		return
	}

	t, err := h.tasks.Get(r.Context(), userID, id)
	if err != nil {
		handleError(w, r, err, "get_task")
		return
	}

	logOut("Задача получена", start, zap.Int64("task_id", id))
	responseWithJSON(w, http.StatusOK, toPayload("task", t))
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tasks, err := h.tasks.List(r.Context(), userID)
	h.respondTasks(w, r, start, tasks, err, "list_tasks")
}

func (h *TaskHandler) ByCategory(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	categoryID := f.requiredInt64("categoryId")
	if !f.valid(w) {
		return
	}

	tasks, err := h.tasks.ListByCategory(r.Context(), userID, categoryID)
	h.respondTasks(w, r, start, tasks, err, "list_tasks_by_category")
}

func (h *TaskHandler) ByStatus(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	status := f.requiredStatus("status")
	if !f.valid(w) {
		return
	}

	tasks, err := h.tasks.ListByStatus(r.Context(), userID, status)
	h.respondTasks(w, r, start, tasks, err, "list_tasks_by_status")
}

func (h *TaskHandler) ByPriority(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	priority := f.requiredInt("priority")
	if !f.valid(w) {
		return
	}

	tasks, err := h.tasks.ListByPriority(r.Context(), userID, priority)
	h.respondTasks(w, r, start, tasks, err, "list_tasks_by_priority")
}

func (h *TaskHandler) ByDateRange(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	from := f.requiredDate("startDate")
	to := f.requiredDate("endDate")
	if !f.valid(w) {
		return
	}

	tasks, err := h.tasks.ListByDateRange(r.Context(), userID, from, to)
	h.respondTasks(w, r, start, tasks, err, "list_tasks_by_date_range")
}

func (h *TaskHandler) Search(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	keyword := f.required("keyword")
	if !f.valid(w) {
		return
	}

	tasks, err := h.tasks.Search(r.Context(), userID, keyword)
	h.respondTasks(w, r, start, tasks, err, "search_tasks")
}

func (h *TaskHandler) Count(w http.ResponseWriter, r *http.Request, userID int64) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	f := newForm(r)
	status := f.requiredStatus("status")
	if !f.valid(w) {
		return
	}

	count, err := h.tasks.CountByStatus(r.Context(), userID, status)
	if err != nil {
		handleError(w, r, err, "count_tasks")
		return
	}

	logOut("Задачи подсчитаны", start, zap.Int64("count", count))
	responseWithJSON(w, http.StatusOK, toPayload("count", count))
}

func (h *TaskHandler) respondTasks(w http.ResponseWriter, r *http.Request, start time.Time, tasks []*task.Task, err error, operation string) {
	if err != nil {
		handleError(w, r, err, operation)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	logOut("Задачи получены", start,
		zap.String("operation", operation),
		zap.Int("count", len(tasks)))
	responseWithJSON(w, http.StatusOK, toPayload("tasks", tasks))
}
