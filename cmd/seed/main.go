package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-engine/internal/config"
	"github.com/hackgods/clinic-appointment-engine/internal/db"
	"github.com/hackgods/clinic-appointment-engine/internal/department"
	"github.com/hackgods/clinic-appointment-engine/internal/logging"
	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

var departmentNames = []string{
	"Cardiology",
	"Dermatology",
	"Endocrinology",
	"ENT",
	"General Practice",
	"Neurology",
	"Ophthalmology",
	"Orthopedics",
	"Pediatrics",
	"Psychiatry",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{})
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	faker := gofakeit.New(0)

	hospitals, err := seedHospitals(ctx, pool, faker, 5)
	if err != nil {
		logger.Fatal("seed hospitals", zap.Error(err))
	}
	logger.Info("hospitals seeded", zap.Int("count", len(hospitals)))

	departments := department.NewService(department.NewPgRepository(pool), logger)
	if err := seedDepartments(ctx, departments, faker, hospitals); err != nil {
		logger.Fatal("seed departments", zap.Error(err))
	}

	if err := seedPatients(ctx, pool, faker, 2000, logger); err != nil {
		logger.Fatal("seed patients", zap.Error(err))
	}

	logger.Info("seed complete")
}

func seedHospitals(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int) ([]uuid.UUID, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := faker.City() + " " + faker.RandomString([]string{"General Hospital", "Medical Center", "Clinic"})
		if _, err := tx.Exec(ctx, `
			INSERT INTO hospitals (id, name, active, created_at, updated_at)
			VALUES ($1, $2, TRUE, now(), now())
		`, id, name); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func seedDepartments(ctx context.Context, svc *department.Service, faker *gofakeit.Faker, hospitals []uuid.UUID) error {
	for _, hospitalID := range hospitals {
		// Each hospital gets a random subset of departments with varied hours.
		for _, name := range departmentNames {
			if faker.Bool() {
				continue
			}
			open := slot.At(faker.Number(8, 10), 0)
			closeAt := slot.At(faker.Number(16, 18), 30)
			_, err := svc.Create(ctx, department.CreateRequest{
				HospitalID:  hospitalID,
				Name:        name,
				Description: name + " outpatient clinic",
				OpenTime:    open,
				CloseTime:   closeAt,
				SlotMinutes: faker.RandomInt([]int{15, 20, 30}),
			})
			if err != nil {
				return fmt.Errorf("department %s: %w", name, err)
			}
		}
	}
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int, logger *zap.Logger) error {
	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		for i := offset; i < end; i++ {
			if _, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), faker.Name(), faker.Email()); err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info("patients seeded", zap.Int("done", end), zap.Int("total", count))
	}
	return nil
}
