package db

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/glebarez/sqlite"
	"github.com/taskbridge/taskbridge/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sharedSecretKey = "shared_secret"

// Init opens the SQLite database and runs migrations.
func Init(dbPath string) (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := database.AutoMigrate(
		&models.User{},
		&models.Subscription{},
		&models.Bot{},
		&models.Setting{},
	); err != nil {
		return nil, err
	}

	return database, nil
}

// EnsureSharedSecret returns the interactive-message signing secret,
// generating and persisting one on first run when none is configured.
func EnsureSharedSecret(database *gorm.DB, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	var setting models.Setting
	if err := database.Where("key = ?", sharedSecretKey).First(&setting).Error; err == nil {
		return setting.Value, nil
	}

	secretBytes := make([]byte, 16)
	rand.Read(secretBytes)
	secret := hex.EncodeToString(secretBytes)

	if err := database.Create(&models.Setting{Key: sharedSecretKey, Value: secret}).Error; err != nil {
		return "", err
	}
	return secret, nil
}
