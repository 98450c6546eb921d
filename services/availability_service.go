package services

import (
	"context"
	"errors"
	"strings"

	"github.com/anjiri1684/flower_farm/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SlotAvailability struct {
	SlotID              uint   `json:"slot_id"`
	Date                string `json:"date"`
	Time                string `json:"time"`
	MaxCapacity         int    `json:"max_capacity"`
	MaxBookings         int    `json:"max_bookings"`
	CurrentBookingCount int    `json:"current_booking_count"`
	CurrentVisitorCount int    `json:"current_visitor_count"`
}

func (a SlotAvailability) RemainingCapacity() int {
	return max(a.MaxCapacity-a.CurrentVisitorCount, 0)
}

func (a SlotAvailability) RemainingBookings() int {
	return max(a.MaxBookings-a.CurrentBookingCount, 0)
}

func (a SlotAvailability) Available() bool {
	return a.RemainingBookings() > 0 && a.RemainingCapacity() > 0
}

type slotUsage struct {
	PreferredTime string
	Bookings      int64
	Visitors      int64
}

// Cancelled bookings release their spots; rows without a visitor count occupy one.
const usageSelect = "COUNT(*) AS bookings, COALESCE(SUM(CASE WHEN number_of_visitors > 0 THEN number_of_visitors ELSE 1 END), 0) AS visitors"

type AvailabilityService struct {
	db *gorm.DB
}

func NewAvailabilityService(db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{db: db}
}

// Slot reads the configured limits of a (date, time) slot and its current usage.
// Nothing is cached: every call reflects the latest committed bookings.
func (s *AvailabilityService) Slot(ctx context.Context, date, timeOfDay string) (SlotAvailability, error) {
	return slotAvailability(s.db.WithContext(ctx), date, timeOfDay, false)
}

// ForDate lists every slot configured for a date together with its usage.
func (s *AvailabilityService) ForDate(ctx context.Context, date string) ([]SlotAvailability, error) {
	db := s.db.WithContext(ctx)

	var slots []models.TimeSlot
	if err := db.Where("date = ?", date).Order("id asc").Find(&slots).Error; err != nil {
		return nil, dataAccessError("list time slots", err)
	}
	if len(slots) == 0 {
		return []SlotAvailability{}, nil
	}

	var usage []slotUsage
	err := db.Model(&models.Booking{}).
		Select("preferred_time, "+usageSelect).
		Where("visit_date = ? AND status <> ?", date, models.BookingStatusCancelled).
		Group("preferred_time").
		Scan(&usage).Error
	if err != nil {
		return nil, dataAccessError("sum slot usage", err)
	}

	byTime := make(map[string]slotUsage, len(usage))
	for _, u := range usage {
		byTime[u.PreferredTime] = u
	}

	out := make([]SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		u := byTime[slot.Time]
		out = append(out, SlotAvailability{
			SlotID:              slot.ID,
			Date:                slot.Date,
			Time:                slot.Time,
			MaxCapacity:         slot.MaxCapacity,
			MaxBookings:         slot.MaxBookings,
			CurrentBookingCount: int(u.Bookings),
			CurrentVisitorCount: int(u.Visitors),
		})
	}
	return out, nil
}

// slotAvailability optionally takes a row lock on the slot so that a caller inside a
// transaction serializes with every other writer targeting the same slot.
func slotAvailability(tx *gorm.DB, date, timeOfDay string, lock bool) (SlotAvailability, error) {
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var slot models.TimeSlot
	if err := q.Where("date = ? AND time = ?", date, strings.TrimSpace(timeOfDay)).First(&slot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SlotAvailability{}, newBookingError(ErrSlotNotFound, "Selected time slot is not available")
		}
		return SlotAvailability{}, dataAccessError("load time slot", err)
	}

	var usage slotUsage
	err := tx.Model(&models.Booking{}).
		Select(usageSelect).
		Where("visit_date = ? AND preferred_time = ? AND status <> ?", slot.Date, slot.Time, models.BookingStatusCancelled).
		Scan(&usage).Error
	if err != nil {
		return SlotAvailability{}, dataAccessError("sum slot usage", err)
	}

	return SlotAvailability{
		SlotID:              slot.ID,
		Date:                slot.Date,
		Time:                slot.Time,
		MaxCapacity:         slot.MaxCapacity,
		MaxBookings:         slot.MaxBookings,
		CurrentBookingCount: int(usage.Bookings),
		CurrentVisitorCount: int(usage.Visitors),
	}, nil
}
