package services

import (
	"context"
	"strings"

	"github.com/anjiri1684/flower_farm/models"
	"gorm.io/gorm"
)

type ContactInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,farm_email"`
	Phone   string `json:"phone" validate:"max=50"`
	Subject string `json:"subject" validate:"max=255"`
	Message string `json:"message" validate:"required,max=5000"`
}

type ContactService struct {
	db *gorm.DB
}

func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{db: db}
}

// Submit stores a contact form message.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if err := Validate.Struct(in); err != nil {
		return nil, newBookingError(ErrMissingFields, "Please provide your name, a valid email and a message")
	}

	msg := models.ContactMessage{
		Name:    in.Name,
		Email:   in.Email,
		Subject: strings.TrimSpace(in.Subject),
		Message: in.Message,
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		msg.Phone = &phone
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, dataAccessError("store contact message", err)
	}
	return &msg, nil
}
