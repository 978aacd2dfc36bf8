package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campusride/pkg/logger"
	"campusride/pkg/models"
	"campusride/storage"
)

const rideColumns = `r.id, r.student_id, r.driver_id, r.pickup_location, r.pickup_lat, r.pickup_lng,
	r.destination_location, r.destination_lat, r.destination_lng, r.passengers, r.fare, r.status,
	r.requested_at, r.accepted_at, r.completed_at`

type rideRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewRideRepo(db *pgxpool.Pool, log logger.ILogger) storage.IRideStorage {
	return &rideRepo{db: db, log: log}
}

func rideDest(r *models.Ride) []interface{} {
	return []interface{}{
		&r.ID, &r.StudentID, &r.DriverID, &r.PickupLocation, &r.PickupLat, &r.PickupLng,
		&r.DestinationLocation, &r.DestinationLat, &r.DestinationLng, &r.Passengers, &r.Fare, &r.Status,
		&r.RequestedAt, &r.AcceptedAt, &r.CompletedAt,
	}
}

func scanRide(row pgx.Row) (*models.Ride, error) {
	var ride models.Ride
	if err := row.Scan(rideDest(&ride)...); err != nil {
		return nil, err
	}
	return &ride, nil
}

func (r *rideRepo) Create(ctx context.Context, ride *models.Ride) (*models.Ride, error) {
	query := `
		INSERT INTO rides AS r (student_id, pickup_location, pickup_lat, pickup_lng, destination_location,
			destination_lat, destination_lng, passengers, fare)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + rideColumns
	created, err := scanRide(r.db.QueryRow(ctx, query,
		ride.StudentID,
		ride.PickupLocation,
		ride.PickupLat,
		ride.PickupLng,
		ride.DestinationLocation,
		ride.DestinationLat,
		ride.DestinationLng,
		ride.Passengers,
		ride.Fare,
	))
	if err != nil {
		err = mapError(err)
		if !errors.Is(err, storage.ErrReference) {
			r.log.Error("failed to create ride", logger.Int64("student_id", ride.StudentID), logger.Error(err))
		}
		return nil, err
	}
	return created, nil
}

func (r *rideRepo) GetByID(ctx context.Context, id int64) (*models.Ride, error) {
	ride, err := scanRide(r.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides r WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to get ride by id", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	return ride, nil
}

// Accept is the only guard against two drivers taking the same ride: the
// status predicate and the assignment happen in one statement.
func (r *rideRepo) Accept(ctx context.Context, rideID, driverID int64) (*models.Ride, error) {
	query := `
		UPDATE rides AS r
		SET driver_id = $1, status = 'matched', accepted_at = NOW()
		WHERE r.id = $2 AND r.status = 'pending'
		RETURNING ` + rideColumns
	ride, err := scanRide(r.db.QueryRow(ctx, query, driverID, rideID))
	if err != nil {
		return nil, mapError(err)
	}
	return ride, nil
}

func (r *rideRepo) Complete(ctx context.Context, rideID, driverID int64, fare *float64) (*models.Ride, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE rides AS r
		SET status = 'completed', completed_at = NOW()
		WHERE r.id = $1 AND r.driver_id = $2 AND r.status IN ('matched', 'active')
		RETURNING ` + rideColumns
	ride, err := scanRide(tx.QueryRow(ctx, query, rideID, driverID))
	if err != nil {
		return nil, mapError(err)
	}

	credit := ride.Fare
	if fare != nil {
		credit = *fare
	}
	_, err = tx.Exec(ctx, `
		UPDATE driver_applications
		SET total_rides = total_rides + 1, total_earnings = total_earnings + $1
		WHERE user_id = $2`, credit, driverID)
	if err != nil {
		r.log.Error("failed to credit driver earnings", logger.Int64("ride_id", rideID), logger.Int64("driver_id", driverID), logger.Error(err))
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit ride completion: %w", err)
	}
	return ride, nil
}

func (r *rideRepo) GetStudentRides(ctx context.Context, studentID int64) ([]*models.StudentRide, error) {
	query := `
		SELECT ` + rideColumns + `,
		       d.username, d.phone, da.vehicle_make, da.vehicle_model, da.vehicle_color, da.plate_number
		FROM rides r
		LEFT JOIN users d ON r.driver_id = d.id
		LEFT JOIN driver_applications da ON d.id = da.user_id
		WHERE r.student_id = $1 AND r.status IN ('pending', 'matched', 'active')
		ORDER BY r.requested_at DESC
	`
	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rides := []*models.StudentRide{}
	for rows.Next() {
		var sr models.StudentRide
		dest := append(rideDest(&sr.Ride), &sr.DriverName, &sr.DriverPhone, &sr.VehicleMake, &sr.VehicleModel, &sr.VehicleColor, &sr.PlateNumber)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rides = append(rides, &sr)
	}
	return rides, rows.Err()
}

func (r *rideRepo) GetAvailable(ctx context.Context, limit int) ([]*models.AvailableRide, error) {
	query := `
		SELECT ` + rideColumns + `, u.username, u.phone
		FROM rides r
		JOIN users u ON r.student_id = u.id
		WHERE r.status = 'pending'
		ORDER BY r.requested_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rides := []*models.AvailableRide{}
	for rows.Next() {
		var ar models.AvailableRide
		dest := append(rideDest(&ar.Ride), &ar.StudentName, &ar.StudentPhone)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rides = append(rides, &ar)
	}
	return rides, rows.Err()
}
