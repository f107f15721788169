package domain

import "time"

type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	DisplayName      string     `json:"display_name,omitempty"`
	PasswordHash     string     `json:"-"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	ConfirmTokenHash string     `json:"-"`
	ConfirmExpiresAt *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
}
