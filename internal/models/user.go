package models

import "time"

// User is an account allowed to call authenticated endpoints.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}
