package services

import (
	"context"
	"testing"

	"github.com/anjiri1684/flower_farm/models"
	"github.com/anjiri1684/flower_farm/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotService(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewSlotService(db)
	ctx := context.Background()

	slot, err := svc.Create(ctx, SlotInput{Date: visitDate, Time: " " + visitTime, MaxCapacity: 10, MaxBookings: 5})
	require.NoError(t, err)
	assert.Equal(t, visitTime, slot.Time)

	_, err = svc.Create(ctx, SlotInput{Date: visitDate, Time: visitTime, MaxCapacity: 4, MaxBookings: 2})
	requireKind(t, err, ErrSlotExists)

	_, err = svc.Create(ctx, SlotInput{Date: "2025-07-03", Time: visitTime, MaxCapacity: 4, MaxBookings: 2})
	require.NoError(t, err)

	slots, err := svc.List(ctx, visitDate, visitDate)
	require.NoError(t, err)
	require.Len(t, slots, 1)

	updated, err := svc.Update(ctx, slot.ID, 12, 6)
	require.NoError(t, err)
	assert.Equal(t, 12, updated.MaxCapacity)

	_, err = svc.Update(ctx, 9999, 1, 1)
	requireKind(t, err, ErrSlotNotFound)

	booking := testutil.SeedBooking(t, db, visitDate, visitTime, 2)
	requireKind(t, svc.Delete(ctx, slot.ID), ErrSlotHasBookings)

	require.NoError(t, db.Model(&booking).Update("status", models.BookingStatusCancelled).Error)
	require.NoError(t, svc.Delete(ctx, slot.ID))
	requireKind(t, svc.Delete(ctx, slot.ID), ErrSlotNotFound)
}

func TestAvailabilityService(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedSlot(t, db, visitDate, visitTime, 10, 5)
	testutil.SeedSlot(t, db, visitDate, "1:00 PM", 6, 3)
	testutil.SeedBooking(t, db, visitDate, visitTime, 4)
	testutil.SeedBooking(t, db, visitDate, visitTime, 2)
	cancelled := testutil.SeedBooking(t, db, visitDate, visitTime, 3)
	require.NoError(t, db.Model(&cancelled).Update("status", models.BookingStatusCancelled).Error)

	svc := NewAvailabilityService(db)

	slot, err := svc.Slot(context.Background(), visitDate, visitTime)
	require.NoError(t, err)
	assert.Equal(t, 2, slot.CurrentBookingCount)
	assert.Equal(t, 6, slot.CurrentVisitorCount)
	assert.Equal(t, 4, slot.RemainingCapacity())
	assert.Equal(t, 3, slot.RemainingBookings())
	assert.True(t, slot.Available())

	_, err = svc.Slot(context.Background(), visitDate, "8:00 PM")
	requireKind(t, err, ErrSlotNotFound)

	all, err := svc.ForDate(context.Background(), visitDate)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 0, all[1].CurrentBookingCount)

	none, err := svc.ForDate(context.Background(), "2025-12-25")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestContactService(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewContactService(db)

	msg, err := svc.Submit(context.Background(), ContactInput{Name: "Ada", Email: "ada@example.com", Phone: " ", Message: "Hello"})
	require.NoError(t, err)
	assert.Nil(t, msg.Phone)
	assert.NotZero(t, msg.ID)

	_, err = svc.Submit(context.Background(), ContactInput{Name: "Ada", Email: "ada@", Message: "Hello"})
	requireKind(t, err, ErrMissingFields)
}
