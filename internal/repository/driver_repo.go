package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/aditya/go-dispatch/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type DriverRepository interface {
	Create(ctx context.Context, driver *models.Driver) error
	GetByID(ctx context.Context, id string) (*models.Driver, error)
	GetByPhone(ctx context.Context, phone string) (*models.Driver, error)
	IncrementTotalTrips(ctx context.Context, id string) error
}

type driverRepository struct {
	db *sqlx.DB
}

func NewDriverRepository(db *sqlx.DB) DriverRepository {
	return &driverRepository{db: db}
}

func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) error {
	if driver.ID == "" {
		driver.ID = uuid.New().String()
	}
	driver.CreatedAt = time.Now()
	driver.UpdatedAt = driver.CreatedAt
	driver.Rating = 5.0
	driver.TotalTrips = 0

	query := `
		INSERT INTO drivers (id, phone, name, vehicle_type, vehicle_number,
			rating, total_trips, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		driver.ID, driver.Phone, driver.Name, driver.VehicleType, driver.VehicleNumber,
		driver.Rating, driver.TotalTrips, driver.CreatedAt, driver.UpdatedAt)
	return err
}

func (r *driverRepository) GetByID(ctx context.Context, id string) (*models.Driver, error) {
	var driver models.Driver
	query := `SELECT * FROM drivers WHERE id = $1`
	err := r.db.GetContext(ctx, &driver, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &driver, err
}

func (r *driverRepository) GetByPhone(ctx context.Context, phone string) (*models.Driver, error) {
	var driver models.Driver
	query := `SELECT * FROM drivers WHERE phone = $1`
	err := r.db.GetContext(ctx, &driver, query, phone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &driver, err
}

func (r *driverRepository) IncrementTotalTrips(ctx context.Context, id string) error {
	query := `UPDATE drivers SET total_trips = total_trips + 1, updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}
