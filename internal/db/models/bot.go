package models

import "time"

// Bot is one chat-platform bot installation. Its token authorizes all
// outbound chat API calls made on behalf of that installation.
type Bot struct {
	ID          string `gorm:"primaryKey"`
	AccessToken string `gorm:"size:1000"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
