package database

import (
	"errors"
	"fmt"

	config "github.com/anjiri1684/flower_farm/configs"
	"github.com/anjiri1684/flower_farm/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.Env == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	logrus.Info("✅ Database connected successfully")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.TimeSlot{},
		&models.Booking{},
		&models.AdminUser{},
		&models.WebhookLog{},
		&models.ContactMessage{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logrus.Info("✅ Database migration successful")
	return nil
}

// SeedAdmin creates the operator account once. Nothing happens when no admin
// credentials are configured.
func SeedAdmin(db *gorm.DB, admin config.AdminConfig) error {
	if admin.Email == "" || admin.Password == "" {
		logrus.Warn("⚠️ ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var existing models.AdminUser
	err := db.Where("email = ?", admin.Email).First(&existing).Error
	if err == nil {
		logrus.Info("Admin user already exists.")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check for admin user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	adminUser := models.AdminUser{
		FullName: admin.FullName,
		Email:    admin.Email,
		Password: string(hashedPassword),
		IsActive: true,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	logrus.Info("✅ Admin user seeded successfully")
	return nil
}
