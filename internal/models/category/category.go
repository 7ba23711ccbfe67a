package category

import "time"

type Category struct {
	ID          int64     `json:"categoryId" db:"category_id"`
	UserID      int64     `json:"userId" db:"user_id"`
	Name        string    `json:"categoryName" db:"category_name"`
	Description string    `json:"description" db:"description"`
	CreatedDate time.Time `json:"createdDate" db:"created_date"`
}
