package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/storage"
)

const applicationColumns = `da.id, da.user_id, da.license_number, da.vehicle_make, da.vehicle_model, da.vehicle_year, da.vehicle_color, da.plate_number,
	da.status, da.is_active_driver, da.is_online, da.total_rides, da.total_earnings, da.rating, da.applied_at, da.reviewed_at, da.reviewed_by, da.rejection_reason,
	u.username, u.email, COALESCE(u.student_id, ''), COALESCE(u.university, '')`

type driverRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewDriverRepo(db *pgxpool.Pool, log logger.ILogger) storage.IDriverStorage {
	return &driverRepo{db: db, log: log}
}

func scanApplication(row pgx.Row) (*models.DriverApplication, error) {
	var a models.DriverApplication
	err := row.Scan(
		&a.ID, &a.UserID, &a.LicenseNumber, &a.VehicleMake, &a.VehicleModel, &a.VehicleYear, &a.VehicleColor, &a.PlateNumber,
		&a.Status, &a.IsActiveDriver, &a.IsOnline, &a.TotalRides, &a.TotalEarnings, &a.Rating, &a.AppliedAt, &a.ReviewedAt, &a.ReviewedBy, &a.RejectionReason,
		&a.Username, &a.Email, &a.StudentID, &a.University,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *driverRepo) Create(ctx context.Context, app *models.DriverApplication) (*models.DriverApplication, error) {
	query := `
		INSERT INTO driver_applications (user_id, license_number, vehicle_make, vehicle_model, vehicle_year, vehicle_color, plate_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, status, is_active_driver, is_online, total_rides, total_earnings, rating, applied_at
	`
	err := r.db.QueryRow(ctx, query,
		app.UserID,
		app.LicenseNumber,
		app.VehicleMake,
		app.VehicleModel,
		app.VehicleYear,
		app.VehicleColor,
		app.PlateNumber,
	).Scan(&app.ID, &app.Status, &app.IsActiveDriver, &app.IsOnline, &app.TotalRides, &app.TotalEarnings, &app.Rating, &app.AppliedAt)
	if err != nil {
		err = mapError(err)
		if !errors.Is(err, storage.ErrDuplicate) && !errors.Is(err, storage.ErrReference) {
			r.log.Error("failed to create driver application", logger.Int64("user_id", app.UserID), logger.Error(err))
		}
		return nil, err
	}
	return app, nil
}

func (r *driverRepo) GetByUserID(ctx context.Context, userID int64) (*models.DriverApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM driver_applications da JOIN users u ON da.user_id = u.id WHERE da.user_id = $1`
	app, err := scanApplication(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to get driver application", logger.Int64("user_id", userID), logger.Error(err))
		return nil, err
	}
	return app, nil
}

func (r *driverRepo) GetPending(ctx context.Context) ([]*models.DriverApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM driver_applications da JOIN users u ON da.user_id = u.id WHERE da.status = 'pending' ORDER BY da.applied_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []*models.DriverApplication{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

func (r *driverRepo) Review(ctx context.Context, appID, adminID int64, status models.ApplicationStatus, reason *string) error {
	query := `
		UPDATE driver_applications
		SET status = $1, reviewed_at = NOW(), reviewed_by = $2, rejection_reason = $3, is_active_driver = $4
		WHERE id = $5
	`
	res, err := r.db.Exec(ctx, query, status, adminID, reason, status == models.ApplicationApproved, appID)
	if err != nil {
		return mapError(err)
	}
	if res.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *driverRepo) SetOnline(ctx context.Context, userID int64, online bool) error {
	_, err := r.db.Exec(ctx, "UPDATE driver_applications SET is_online = $1 WHERE user_id = $2", online, userID)
	return err
}
