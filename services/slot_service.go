package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anjiri1684/flower_farm/models"
	"gorm.io/gorm"
)

type SlotInput struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"time" validate:"required,max=20"`
	MaxCapacity int    `json:"max_capacity" validate:"required,min=1"`
	MaxBookings int    `json:"max_bookings" validate:"required,min=1"`
}

// SlotService lets operators configure the bookable slots.
type SlotService struct {
	db *gorm.DB
}

func NewSlotService(db *gorm.DB) *SlotService {
	return &SlotService{db: db}
}

func (s *SlotService) List(ctx context.Context, from, to string) ([]models.TimeSlot, error) {
	q := s.db.WithContext(ctx).Model(&models.TimeSlot{})
	if from != "" {
		q = q.Where("date >= ?", from)
	}
	if to != "" {
		q = q.Where("date <= ?", to)
	}
	var slots []models.TimeSlot
	if err := q.Order("date asc, id asc").Find(&slots).Error; err != nil {
		return nil, dataAccessError("list time slots", err)
	}
	return slots, nil
}

func (s *SlotService) Create(ctx context.Context, in SlotInput) (*models.TimeSlot, error) {
	in.Time = strings.TrimSpace(in.Time)

	var count int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.TimeSlot{}).Where("date = ? AND time = ?", in.Date, in.Time).Count(&count).Error; err != nil {
		return nil, dataAccessError("check time slot", err)
	}
	if count > 0 {
		return nil, newBookingError(ErrSlotExists, "A time slot already exists for %s at %s", in.Date, in.Time)
	}

	slot := models.TimeSlot{Date: in.Date, Time: in.Time, MaxCapacity: in.MaxCapacity, MaxBookings: in.MaxBookings}
	if err := db.Create(&slot).Error; err != nil {
		return nil, dataAccessError("create time slot", err)
	}
	return &slot, nil
}

// Update changes a slot's limits. Date and time stay fixed because bookings reference them.
func (s *SlotService) Update(ctx context.Context, id uint, maxCapacity, maxBookings int) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	db := s.db.WithContext(ctx)
	if err := db.First(&slot, id).Error; err != nil {
		return nil, slotNotFoundOr(err)
	}
	slot.MaxCapacity = maxCapacity
	slot.MaxBookings = maxBookings
	slot.UpdatedAt = time.Now()
	if err := db.Save(&slot).Error; err != nil {
		return nil, dataAccessError("update time slot", err)
	}
	return &slot, nil
}

func (s *SlotService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot models.TimeSlot
		if err := tx.First(&slot, id).Error; err != nil {
			return slotNotFoundOr(err)
		}

		var active int64
		if err := tx.Model(&models.Booking{}).
			Where("visit_date = ? AND preferred_time = ? AND status <> ?", slot.Date, slot.Time, models.BookingStatusCancelled).
			Count(&active).Error; err != nil {
			return dataAccessError("count slot bookings", err)
		}
		if active > 0 {
			return newBookingError(ErrSlotHasBookings, "Cannot delete a time slot with %d active booking(s)", active)
		}
		if err := tx.Delete(&slot).Error; err != nil {
			return dataAccessError("delete time slot", err)
		}
		return nil
	})
}

func slotNotFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newBookingError(ErrSlotNotFound, "Time slot not found")
	}
	return dataAccessError("load time slot", err)
}
