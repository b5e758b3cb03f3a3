package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/PayButton/paybutton-server/app/models"
	"github.com/PayButton/paybutton-server/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

func SetupDatabase() {
	var err error
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{})
		if err == nil {
			DB.AutoMigrate(
				&models.User{},
				&models.Network{},
				&models.Address{},
				&models.Paybutton{},
				&models.Trigger{},
				&models.TriggerLog{},
				&models.DispatchCounter{},
			)
			seedNetworks()

			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retry number %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// seedNetworks makes sure the two supported chains exist after migration.
func seedNetworks() {
	networks := []models.Network{
		{ID: models.NetworkIDEcash, Slug: "ecash", Ticker: models.TickerEcash},
		{ID: models.NetworkIDBitcoinCash, Slug: "bitcoincash", Ticker: models.TickerBitcoinCash},
	}
	for _, n := range networks {
		if err := DB.Where(models.Network{ID: n.ID}).FirstOrCreate(&n).Error; err != nil {
			log.Printf("Failed to seed network %s: %v", n.Slug, err)
		}
	}
}
