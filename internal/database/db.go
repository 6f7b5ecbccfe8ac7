package database

import (
	"os"
	"path/filepath"

	"deploytrigger/internal/deployments"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func InitDB(databasePath string) (*gorm.DB, error) {
	var err error

	// in-memory databases have no parent directory
	if databasePath != ":memory:" {
		dbDir := filepath.Dir(databasePath)
		if err := os.MkdirAll(dbDir, 0700); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})

	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&deployments.Deployment{})

	if err != nil {
		return nil, err
	}

	return db, nil
}

func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()

	if err != nil {
		return err
	}

	return sqlDB.Close()
}
