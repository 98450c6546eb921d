// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/anjiri1684/flower_farm/models"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with the full schema migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.TimeSlot{},
		&models.Booking{},
		&models.AdminUser{},
		&models.WebhookLog{},
		&models.ContactMessage{},
	))
	return db
}

func SeedSlot(t *testing.T, db *gorm.DB, date, timeOfDay string, maxCapacity, maxBookings int) models.TimeSlot {
	t.Helper()

	slot := models.TimeSlot{Date: date, Time: timeOfDay, MaxCapacity: maxCapacity, MaxBookings: maxBookings}
	require.NoError(t, db.Create(&slot).Error)
	return slot
}

var referenceSeq atomic.Int64

// SeedBooking inserts a confirmed pay-on-arrival booking straight into the table.
func SeedBooking(t *testing.T, db *gorm.DB, date, timeOfDay string, visitors int) models.Booking {
	t.Helper()

	booking := models.Booking{
		Reference:        fmt.Sprintf("BG-20250101-%04d", referenceSeq.Add(1)%10000),
		FullName:         gofakeit.Name(),
		Email:            gofakeit.Email(),
		Phone:            gofakeit.Phone(),
		VisitDate:        date,
		PreferredTime:    timeOfDay,
		NumberOfVisitors: visitors,
		TotalAmount:      float64(visitors) * 15,
		PaymentMethod:    models.PaymentMethodOnArrival,
		PaymentStatus:    models.PaymentStatusPending,
		Status:           models.BookingStatusConfirmed,
	}
	require.NoError(t, db.Create(&booking).Error)
	return booking
}

func CountBookings(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&models.Booking{}).Count(&n).Error)
	return n
}
