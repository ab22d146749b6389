package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"rental-modification-backend/internal/domain"
	"rental-modification-backend/internal/logger"
	"rental-modification-backend/internal/repository"
)

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	logger.EnterMethod("notificationRepository.Create", "userID", n.UserID, "title", n.Title)

	attrs, err := json.Marshal(n.Attributes)
	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "reason", "failed to marshal attributes")
		return err
	}

	query := `INSERT INTO notifications (user_id, title, message, is_read, attributes, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	logger.DatabaseCall("INSERT", "notifications", "userID", n.UserID)

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query, n.UserID, n.Title, n.Message, n.IsRead, attrs, now).Scan(&n.ID)
	logger.DatabaseResult("INSERT", 1, err, "notificationID", n.ID)

	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "userID", n.UserID)
		return err
	}
	n.CreatedOn = now.Format("2006-01-02")
	logger.ExitMethod("notificationRepository.Create", "notificationID", n.ID)
	return nil
}

func (r *notificationRepository) List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM notifications WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT id, user_id, title, message, is_read, attributes, created_on
	          FROM notifications WHERE user_id = $1 ORDER BY created_on DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notes []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var attrs []byte
		var createdOn time.Time
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.IsRead, &attrs, &createdOn); err != nil {
			return nil, 0, err
		}
		n.CreatedOn = createdOn.Format("2006-01-02")
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &n.Attributes); err != nil {
				return nil, 0, err
			}
		}
		notes = append(notes, n)
	}
	return notes, count, rows.Err()
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id int64, userID string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NewNotFound("notification", strconv.FormatInt(id, 10))
	}
	return nil
}
