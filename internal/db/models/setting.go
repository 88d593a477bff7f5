package models

import "time"

// Setting stores application configuration like the shared signing secret.
type Setting struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
