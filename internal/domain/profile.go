package domain

import "time"

// UserProfile comparte id con el usuario dueño; el upsert nunca lo cambia.
type UserProfile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	ValorantAgent string    `json:"valorant_agent,omitempty"`
	ValorantRank  string    `json:"valorant_rank,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
