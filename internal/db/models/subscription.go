package models

import "time"

// Subscription pairs a user/workspace scope with a remote webhook
// registration. WebhookGID stays empty between the local insert and the
// registrar's confirmation; a row with a non-empty WebhookGID must
// correspond to a live registration on the Asana side.
type Subscription struct {
	ID         string `gorm:"primaryKey"` // locally generated UUID
	UserID     string `gorm:"index"`
	WebhookGID string `gorm:"column:webhook_gid"` // remote handle, empty until creation is confirmed

	WorkspaceID   string
	WorkspaceName string
	GroupID       string // conversation the notifications are delivered to

	CreatedAt time.Time
	UpdatedAt time.Time
}
