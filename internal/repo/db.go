package repo

import (
	"fmt"
	"strings"

	"SupplyRun/internal/model"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const defaultSQLiteDSN = "file:supplyrun.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// InitDB opens the backend database and migrates every model.
// postgres:// and postgresql:// DSNs go to Postgres, anything else is
// treated as a SQLite DSN served by the pure Go modernc driver.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(dialectorFor(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func dialectorFor(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.Open(dsn)
	}
	if dsn == "" {
		dsn = defaultSQLiteDSN
	}
	return gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
}

// Migrate creates or updates the tables of all backend models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.ExternalIdentity{}, &model.Session{}, &model.Document{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
