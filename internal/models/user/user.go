package user

import "time"

type User struct {
	ID               int64      `json:"userId" db:"user_id"`
	Username         string     `json:"username" db:"username"`
	PasswordHash     string     `json:"-" db:"password"`
	Email            string     `json:"email" db:"email"`
	Status           Status     `json:"status" db:"status"`
	RegistrationDate time.Time  `json:"registrationDate" db:"registration_date"`
	LastLogin        *time.Time `json:"lastLogin,omitempty" db:"last_login"`
}

type Status int16

const (
	StatusInactive Status = 0
	StatusActive   Status = 1
)

func (s Status) Valid() bool {
	return s == StatusInactive || s == StatusActive
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
