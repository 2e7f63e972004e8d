package services

import (
	"context"
	"errors"

	"github.com/kendall-kelly/powder-coating-api/models"
	"gorm.io/gorm"
)

// ErrNotificationNotFound is returned for unknown or foreign notifications
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService reads and acknowledges in-app notifications
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// List returns p's notifications, newest first
func (s *NotificationService) List(ctx context.Context, p Principal, unreadOnly bool) ([]models.Notification, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", p.UserID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var out []models.Notification
	return out, q.Order("created_at DESC, id DESC").Find(&out).Error
}

// MarkRead flags one of p's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, p Principal, id uint) (*models.Notification, error) {
	db := s.db.WithContext(ctx)
	var n models.Notification
	err := db.Where("id = ? AND user_id = ?", id, p.UserID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	if n.Read {
		return &n, nil
	}
	if err := db.Model(&n).Update("read", true).Error; err != nil {
		return nil, err
	}
	n.Read = true
	return &n, nil
}
