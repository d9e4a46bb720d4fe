package database

import (
	"context"
	"database/sql"
	"fmt"
	"oj_workbench/internal/platform/config"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"go.uber.org/zap"
)

var DB *sql.DB

// Connect opens the draft database and verifies it answers.
func Connect(ctx context.Context, logger *zap.Logger) error {
	db, err := sql.Open("pgx", config.AppConfig.DBConnStr)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("error connecting to database: %w", err)
	}

	DB = db
	logger.Info("connected to PostgreSQL", zap.String("host", config.AppConfig.DBHost), zap.String("db", config.AppConfig.DBName))
	return nil
}

func Close(logger *zap.Logger) {
	if DB != nil {
		DB.Close()
		logger.Info("database connection closed")
	}
}
