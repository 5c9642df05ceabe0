//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/aditya/go-dispatch/internal/cache"
	"github.com/aditya/go-dispatch/internal/config"
	"github.com/aditya/go-dispatch/internal/database"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/repository"
)

// Bangalore coordinates
const (
	baseLat = 12.9716
	baseLng = 77.5946
)

var (
	firstNames = []string{"Rahul", "Priya", "Amit", "Sneha", "Vikram", "Anita", "Raj", "Neha", "Suresh", "Kavita",
		"Arun", "Deepa", "Kiran", "Meera", "Sanjay", "Ritu", "Vijay", "Pooja", "Manoj", "Swati"}
	lastNames = []string{"Kumar", "Sharma", "Patel", "Singh", "Reddy", "Rao", "Gupta", "Joshi", "Nair", "Menon"}
)

func main() {
	rand.Seed(time.Now().UnixNano())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBMaxIdleConnections)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	redis, err := database.NewRedis(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	ctx := context.Background()

	userRepo := repository.NewUserRepository(db.DB)
	driverRepo := repository.NewDriverRepository(db.DB)
	tripRepo := repository.NewTripRepository(db.DB)
	driverCache := cache.NewDriverLocationCache(redis.Client, cfg.LocationStaleness)

	log.Println("Creating 50 riders...")
	riderIDs := make([]string, 0)
	for i := 0; i < 50; i++ {
		user := &models.User{
			Phone: fmt.Sprintf("98%08d", rand.Intn(100000000)),
			Name:  fmt.Sprintf("%s %s", firstNames[rand.Intn(len(firstNames))], lastNames[rand.Intn(len(lastNames))]),
		}
		if err := userRepo.Create(ctx, user); err != nil {
			log.Printf("Failed to create user: %v", err)
			continue
		}
		riderIDs = append(riderIDs, user.ID)
	}
	log.Printf("Created %d riders", len(riderIDs))

	vehicleTypes := []string{"auto", "mini", "sedan", "suv"}
	log.Println("Creating 100 drivers...")
	driverIDs := make([]string, 0)
	for i := 0; i < 100; i++ {
		driver := &models.Driver{
			Phone:         fmt.Sprintf("97%08d", rand.Intn(100000000)),
			Name:          fmt.Sprintf("%s %s", firstNames[rand.Intn(len(firstNames))], lastNames[rand.Intn(len(lastNames))]),
			VehicleType:   vehicleTypes[rand.Intn(len(vehicleTypes))],
			VehicleNumber: fmt.Sprintf("KA-%02d-%c-%04d", rand.Intn(70), 'A'+rune(rand.Intn(26)), rand.Intn(10000)),
		}
		if err := driverRepo.Create(ctx, driver); err != nil {
			log.Printf("Failed to create driver: %v", err)
			continue
		}
		driverIDs = append(driverIDs, driver.ID)
	}
	log.Printf("Created %d drivers", len(driverIDs))

	// Scatter drivers in a roughly 10km box and mark them pooling.
	log.Println("Placing drivers on the map...")
	for _, id := range driverIDs {
		lat := baseLat + (rand.Float64()-0.5)*0.09
		lng := baseLng + (rand.Float64()-0.5)*0.09
		if err := driverCache.UpdateLocation(ctx, id, lat, lng, false); err != nil {
			log.Printf("Failed to place driver %s: %v", id, err)
		}
	}

	// A handful of open trips so the dispatch window has something to scan.
	log.Println("Creating 10 pending trips...")
	for i := 0; i < 10; i++ {
		riderID := riderIDs[rand.Intn(len(riderIDs))]
		originLat := baseLat + (rand.Float64()-0.5)*0.05
		originLng := baseLng + (rand.Float64()-0.5)*0.05
		trip := &models.Trip{
			RiderID:    riderID,
			OriginName: "Seed origin",
			OriginLat:  originLat,
			OriginLng:  originLng,
			DestName:   "Seed destination",
			DestLat:    originLat + 0.05,
			DestLng:    originLng + 0.05,
			Capacity:   1 + rand.Intn(3),
			Fare:       float64(5 + rand.Intn(20)),
			OTP:        fmt.Sprintf("%04d", rand.Intn(10000)),
		}
		if err := tripRepo.Create(ctx, trip); err != nil {
			log.Printf("Failed to create trip: %v", err)
		}
	}

	log.Println("Seed complete")
}
