package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/config"
	"github.com/sendwell/sendguard/internal/models"
)

type Repositories struct {
	AccountRepository    interfaces.AccountRepository
	JobRepository        interfaces.JobRepository
	JobFailureRepository interfaces.JobFailureRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		AccountRepository:    NewEmailAccountRepository(db),
		JobRepository:        NewJobRepository(db),
		JobFailureRepository: NewJobFailureRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.EmailAccount{},
		&models.JobExecution{},
		&models.JobFailure{},
	)

	sqlDB.Close()

	sqlDB, _ = db.DB()
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
