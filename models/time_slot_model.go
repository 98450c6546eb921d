package models

import "time"

type TimeSlot struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Date        string `gorm:"size:10;not null;uniqueIndex:idx_time_slots_date_time,priority:1" json:"date"`
	Time        string `gorm:"size:20;not null;uniqueIndex:idx_time_slots_date_time,priority:2" json:"time"`
	MaxCapacity int    `gorm:"not null;default:10" json:"max_capacity"`
	MaxBookings int    `gorm:"not null;default:5" json:"max_bookings"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
