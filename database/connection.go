// database/connection.go
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL/MariaDB driver
	log "github.com/sirupsen/logrus"

	"github.com/kwehner/nyiso-scrape/config"
)

var DB *sql.DB

// InitDB initializes the database connection pool.
func InitDB(cfg config.DatabaseConfig) error {
	var err error
	// DSN: username:password@protocol(address)/dbname?param=value
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
	)

	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	// Pool sizing: nine sources ticking concurrently plus the HTTP handlers
	// stay well under this.
	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Infof("Database: connected to %s/%s", cfg.Host, cfg.DBName)
	return nil
}

// CloseDB closes the database connection pool.
// Typically called on application shutdown.
func CloseDB() {
	if DB != nil {
		DB.Close()
		log.Info("Database: connection closed")
	}
}
