// Package store is the source of truth for users, bots and webhook
// subscriptions. All reads and writes go through one Store over gorm.
package store

import (
	"errors"
	"time"

	"github.com/taskbridge/taskbridge/internal/db/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store provides CRUD over the persisted entities.
type Store struct {
	db *gorm.DB
}

// New creates a Store backed by the given database.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- users ---

// GetUser looks a user up by Asana user gid.
func (s *Store) GetUser(id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &user, nil
}

// GetUserByChatID looks a user up by the owning chat-platform user id.
func (s *Store) GetUserByChatID(chatUserID string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "chat_user_id = ?", chatUserID).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &user, nil
}

// CreateUser inserts a new user record.
func (s *Store) CreateUser(user *models.User) error {
	return s.db.Create(user).Error
}

// SaveUser persists all fields of an existing user.
func (s *Store) SaveUser(user *models.User) error {
	return s.db.Save(user).Error
}

// UpdateCredential writes the full credential triple in one statement.
// Partial credential writes are never valid: a rotated refresh token with a
// stale access token would strand the account.
func (s *Store) UpdateCredential(userID, accessToken, refreshToken string, expiredAt time.Time) error {
	return s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"access_token":     accessToken,
		"refresh_token":    refreshToken,
		"token_expired_at": expiredAt,
	}).Error
}

// DeleteUser removes the user row.
func (s *Store) DeleteUser(userID string) error {
	return s.db.Delete(&models.User{}, "id = ?", userID).Error
}

// ListUsersWithReminders returns users whose reminder interval is not off.
func (s *Store) ListUsersWithReminders() ([]models.User, error) {
	var users []models.User
	if err := s.db.Where("reminder_interval <> ?", "off").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// --- subscriptions ---

// GetSubscription looks a subscription up by its local id.
func (s *Store) GetSubscription(id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.First(&sub, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &sub, nil
}

// ListSubscriptions returns all subscriptions owned by a user.
func (s *Store) ListSubscriptions(userID string) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := s.db.Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// CreateSubscription inserts a subscription row, usually before the remote
// registration exists so the handshake can correlate against it.
func (s *Store) CreateSubscription(sub *models.Subscription) error {
	return s.db.Create(sub).Error
}

// SaveSubscription persists all fields of an existing subscription.
func (s *Store) SaveSubscription(sub *models.Subscription) error {
	return s.db.Save(sub).Error
}

// DeleteSubscription removes the subscription row.
func (s *Store) DeleteSubscription(id string) error {
	return s.db.Delete(&models.Subscription{}, "id = ?", id).Error
}

// ListOrphanSubscriptions returns subscriptions that never received a remote
// handle and are older than the cutoff. These are left behind when a
// registrar create fails after the local insert.
func (s *Store) ListOrphanSubscriptions(olderThan time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.Where("webhook_gid = ? AND created_at < ?", "", olderThan).Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// --- bots ---

// GetBot looks a bot installation up by id.
func (s *Store) GetBot(id string) (*models.Bot, error) {
	var bot models.Bot
	if err := s.db.First(&bot, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &bot, nil
}

// SaveBot inserts or updates a bot installation.
func (s *Store) SaveBot(bot *models.Bot) error {
	return s.db.Save(bot).Error
}
