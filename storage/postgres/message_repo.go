package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/storage"
)

type messageRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewMessageRepo(db *pgxpool.Pool, log logger.ILogger) storage.IMessageStorage {
	return &messageRepo{db: db, log: log}
}

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	query := `INSERT INTO messages (ride_id, sender_id, message) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, msg.RideID, msg.SenderID, msg.Message).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return msg, nil
}

func (r *messageRepo) GetByRide(ctx context.Context, rideID int64) ([]*models.Message, error) {
	query := `SELECT id, ride_id, sender_id, message, created_at FROM messages WHERE ride_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []*models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RideID, &m.SenderID, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}
