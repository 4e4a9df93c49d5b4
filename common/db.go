package common

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ConnectDb opens the application store. The handle is constructed once in
// main and injected into every module; there is no package-level connection.
// TranslateError is enabled so unique-index violations surface as
// gorm.ErrDuplicatedKey instead of driver-specific errors.
func ConnectDb() (*gorm.DB, error) {
	dbFile := os.Getenv("SQLITE_DB")
	if dbFile == "" {
		return nil, fmt.Errorf("SQLITE_DB environment variable not set")
	}

	db, err := gorm.Open(sqlite.Open(dbFile), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db %s: %w", dbFile, err)
	}

	log.Println("opened sqlite db at:", dbFile)
	return db, nil
}

// CloseDb releases the underlying sql.DB at shutdown.
func CloseDb(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("error getting sql.DB for close: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("error closing db: %v", err)
	}
}
