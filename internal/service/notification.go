package service

import (
	"context"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/repository"
)

type notificationService struct {
	noteRepo repository.NotificationRepository
}

func NewNotificationService(noteRepo repository.NotificationRepository) NotificationService {
	return &notificationService{noteRepo: noteRepo}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID string, notificationID int64) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}
