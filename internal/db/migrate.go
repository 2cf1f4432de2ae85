package db

import (
	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Models lists every table owned by the service
func Models() []interface{} {
	return []interface{}{
		&model.Order{},
		&model.OrderItem{},
		&model.ReplacementApplication{},
		&model.ShoppingList{},
		&model.CreditAccount{},
		&model.OutboxEvent{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds a demo business credit account for local development
func Seed() error {
	return seedCreditAccounts(DB)
}

func seedCreditAccounts(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.CreditAccount{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Credit accounts already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	account := model.CreditAccount{
		CustomerID:      1,
		BusinessName:    "Demo Cafe",
		DiscountPercent: decimal.NewFromInt(5),
		CreditLimit:     decimal.NewFromInt(50000),
	}
	if err := db.Create(&account).Error; err != nil {
		logger.Error("Failed to seed credit account", err)
		return err
	}

	logger.Info("Credit accounts seeded successfully", map[string]interface{}{
		"business_name": account.BusinessName,
	})
	return nil
}
