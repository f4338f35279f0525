package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"stockvel-tracker/internal/adapters/persistence/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDatabase opens the MySQL pool, retrying with a doubling delay while
// the database container is still starting.
func ConnectDatabase(cfg *Config) (*gorm.DB, error) {
	level := logger.Error
	if cfg.IsDev() {
		level = logger.Warn
	}

	var (
		db    *gorm.DB
		err   error
		delay = time.Second
	)
	for attempt := 0; attempt <= cfg.Database.ConnectRetries; attempt++ {
		if attempt > 0 {
			log.Printf("⏳ Database not ready (%v), retry %d/%d in %s", err, attempt, cfg.Database.ConnectRetries, delay)
			time.Sleep(delay)
			delay *= 2
		}
		db, err = open(cfg.Database, level)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Database connected [%s:%s/%s] pool=%d/%d",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName,
		cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	return db, nil
}

func open(d DatabaseConfig, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(d.DSN()), &gorm.Config{
		Logger:                 logger.Default.LogMode(level),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(d.MaxOpenConns)
	sqlDB.SetMaxIdleConns(d.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(d.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// DSN is the go-sql-driver connection string. Times are read and written in UTC.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

// PrepareDatabase migrates the schema and seeds the admin account and, in dev
// mode, sample members. Seeding failures are logged, not returned.
func PrepareDatabase(db *gorm.DB, cfg *Config) error {
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Println("✅ Database migration completed")

	if err := NewSeeder(db, cfg).Run(); err != nil {
		log.Printf("⚠️ Warning: Failed to seed data: %v", err)
	}
	return nil
}

// PingDatabase checks the pool is reachable within ctx
func PingDatabase(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CloseDatabase releases the pool
func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
