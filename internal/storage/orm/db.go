// Package orm содержит декларативную форму запросов каталога на GORM.
// Схема в production создаётся SQL-миграциями; AutoMigrate нужен для SQLite в тестах.
package orm

import (
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func gormConfig(logger *log.Entry) *gorm.Config {
	cfg := &gorm.Config{Logger: gormLogger.Discard}
	if logger != nil {
		cfg.Logger = gormLogger.New(
			logger.WithField("component", "gorm"),
			gormLogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		)
	}
	return cfg
}

// OpenPostgres создаёт GORM поверх уже открытого пула database/sql,
// чтобы обе формы каталога делили одно подключение.
func OpenPostgres(sqlDB *sql.DB, logger *log.Entry) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}
	return db, nil
}

// OpenSQLite открывает SQLite (например, "file::memory:?cache=shared") и создаёт схему.
func OpenSQLite(dsn string, logger *log.Entry) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("open gorm sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// Одно соединение: in-memory база и PRAGMA живут на уровне соединения.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate создаёт таблицы каталога и заказов по моделям.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&categoryModel{}, &customerModel{}, &productModel{}, &orderModel{}, &lineModel{}); err != nil {
		return fmt.Errorf("gorm auto migrate: %w", err)
	}
	return nil
}
