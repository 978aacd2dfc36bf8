package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/storage"
)

type statsRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewStatsRepo(db *pgxpool.Pool, log logger.ILogger) storage.IStatsStorage {
	return &statsRepo{db: db, log: log}
}

func (r *statsRepo) Get(ctx context.Context) (*models.AdminStats, error) {
	var s models.AdminStats
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE is_verified = FALSE AND is_admin = FALSE),
			(SELECT COUNT(*) FROM users WHERE is_verified = TRUE AND is_admin = FALSE),
			(SELECT COUNT(*) FROM driver_applications WHERE status = 'pending'),
			(SELECT COUNT(*) FROM driver_applications WHERE status = 'approved'),
			(SELECT COUNT(*) FROM rides),
			(SELECT COUNT(*) FROM rides WHERE status = 'completed')
	`
	err := r.db.QueryRow(ctx, query).Scan(
		&s.PendingStudents, &s.ApprovedStudents, &s.PendingDrivers, &s.ApprovedDrivers, &s.TotalRides, &s.CompletedRides,
	)
	if err != nil {
		r.log.Error("failed to get admin stats", logger.Error(err))
		return nil, err
	}
	return &s, nil
}

func (r *statsRepo) TableCounts(ctx context.Context) (map[string]int, error) {
	var users, apps, rides, messages int
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM driver_applications),
			(SELECT COUNT(*) FROM rides),
			(SELECT COUNT(*) FROM messages)
	`
	if err := r.db.QueryRow(ctx, query).Scan(&users, &apps, &rides, &messages); err != nil {
		return nil, err
	}
	return map[string]int{
		"users":               users,
		"driver_applications": apps,
		"rides":               rides,
		"messages":            messages,
	}, nil
}
