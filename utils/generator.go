package utils

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/anjiri1684/flower_farm/models"
	"gorm.io/gorm"
)

const (
	referencePrefix      = "BG"
	referenceDateLayout  = "20060102"
	maxReferenceAttempts = 50
)

var (
	referencePattern = regexp.MustCompile(`^BG-(\d{8})-(\d{4})$`)

	ErrInvalidReference   = errors.New("invalid booking reference")
	ErrReferenceExhausted = errors.New("could not generate a unique booking reference")
)

// GenerateBookingReference returns BG-YYYYMMDD-XXXX for the booking's creation date,
// retrying the random suffix until it does not collide with an existing booking.
func GenerateBookingReference(tx *gorm.DB, createdAt time.Time) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	return generateReference(createdAt, seededRand, func(code string) (bool, error) {
		var count int64
		if err := tx.Model(&models.Booking{}).Where("reference = ?", code).Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	})
}

func generateReference(createdAt time.Time, rnd *rand.Rand, exists func(string) (bool, error)) (string, error) {
	for i := 0; i < maxReferenceAttempts; i++ {
		code := FormatBookingReference(createdAt, rnd.Intn(10000))

		taken, err := exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrReferenceExhausted
}

func FormatBookingReference(createdAt time.Time, suffix int) string {
	return fmt.Sprintf("%s-%s-%04d", referencePrefix, createdAt.Format(referenceDateLayout), suffix%10000)
}

func ValidateBookingReference(ref string) bool {
	m := referencePattern.FindStringSubmatch(ref)
	if m == nil {
		return false
	}
	_, err := time.Parse(referenceDateLayout, m[1])
	return err == nil
}

// ExtractDateFromReference returns the creation date encoded in a reference, at midnight in loc.
func ExtractDateFromReference(ref string, loc *time.Location) (time.Time, error) {
	m := referencePattern.FindStringSubmatch(ref)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(referenceDateLayout, m[1], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return d, nil
}
