package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ocrweb/models"
)

const historyLimit = 100

func initDB(dsn string, migrate bool) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	// Migration failures (e.g. missing privileges) are logged, not fatal.
	if migrate {
		if err := gdb.AutoMigrate(&models.Recognition{}); err != nil {
			logrus.Warnf("migration warning (recognitions): %v", err)
		}
	}
	return gdb, nil
}

func recordRecognition(gdb *gorm.DB, rec *models.Recognition) {
	if gdb == nil {
		return
	}
	if err := gdb.Create(rec).Error; err != nil {
		logrus.WithError(err).WithField("request_id", rec.RequestID).Warn("saving recognition history failed")
	}
}

func recentRecognitions(gdb *gorm.DB, backend string, limit int) ([]models.Recognition, error) {
	var items []models.Recognition
	q := gdb.Model(&models.Recognition{})
	if backend != "" {
		q = q.Where("backend = ?", backend)
	}
	err := q.Order("id desc").Limit(limit).Find(&items).Error
	return items, err
}
