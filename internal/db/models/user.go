package models

import "time"

// User stores the Asana identity, OAuth credential and notification
// preferences for one authorized account. A user is owned by exactly one
// chat identity and receives all notifications in one DM conversation.
type User struct {
	ID         string `gorm:"primaryKey"` // Asana user gid
	Name       string
	Email      string
	BotID      string `gorm:"index"`
	ChatUserID string `gorm:"index"` // owning chat-platform user id
	DMGroupID  string // direct-message conversation for all notifications

	AccessToken    string `gorm:"size:1000"`
	RefreshToken   string
	TokenExpiredAt time.Time

	WorkspaceID     string
	WorkspaceName   string
	UserTaskListGID string // personal task list, resolved lazily on first subscribe

	// ReminderInterval is "off" or a positive business-day count.
	ReminderInterval string `gorm:"default:off"`
	TimezoneOffset   int    // signed hours from UTC

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReminderOff reports whether due-date reminders are disabled for the user.
func (u *User) ReminderOff() bool {
	return u.ReminderInterval == "" || u.ReminderInterval == "off"
}
