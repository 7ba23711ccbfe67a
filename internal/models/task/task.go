package task

import "time"

type Task struct {
	ID           int64     `json:"taskId" db:"task_id"`
	UserID       int64     `json:"userId" db:"user_id"`
	CategoryID   int64     `json:"categoryId" db:"category_id"`
	Title        string    `json:"title" db:"title"`
	Content      string    `json:"content" db:"content"`
	Description  string    `json:"description" db:"description"`
	Priority     int       `json:"priority" db:"priority"`
	DueDate      Date      `json:"dueDate" db:"due_date"`
	Status       Status    `json:"status" db:"status"`
	CreatedDate  time.Time `json:"createdDate" db:"created_date"`
	ModifiedDate time.Time `json:"modifiedDate" db:"modified_date"`
}

type Status int16

const (
	StatusIncomplete Status = 0
	StatusComplete   Status = 1
	// StatusReserved допустим при проверке диапазона, но смысла не несёт
	StatusReserved Status = 2
)

func (s Status) Valid() bool {
	return s >= StatusIncomplete && s <= StatusReserved
}

const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 1
)

// New собирает задачу для вставки. Статус всегда StatusIncomplete.
func New(userID, categoryID int64, title string, dueDate Date, opts ...Option) *Task {
	t := &Task{
		UserID:     userID,
		CategoryID: categoryID,
		Title:      title,
		DueDate:    dueDate,
		Priority:   DefaultPriority,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	t.Status = StatusIncomplete
	return t
}
