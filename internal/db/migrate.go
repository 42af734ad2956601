package db

import (
	"numerusx/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.TokenInfo{},
		&models.PriceSnapshot{},
		&models.Signal{},
		&models.SignalSource{},
		&models.SecurityReport{},
		&models.AIDecision{},
		&models.Trade{},
		&models.Position{},
		&models.PortfolioSnapshot{},
		&models.DailyStats{},
		&models.SystemLog{},
		&models.SystemSetting{},
	)
}
