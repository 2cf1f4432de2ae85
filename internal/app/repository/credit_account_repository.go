package repository

import (
	"context"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreditAccountRepository interface {
	WithTx(tx *gorm.DB) CreditAccountRepository
	Create(ctx context.Context, account *model.CreditAccount) error
	FindByCustomerID(ctx context.Context, customerID uint) (*model.CreditAccount, error)
	FindByCustomerIDForUpdate(ctx context.Context, customerID uint) (*model.CreditAccount, error)
	Update(ctx context.Context, account *model.CreditAccount) error
	BulkUpsert(ctx context.Context, accounts []model.CreditAccount, batchSize int) error
}

type creditAccountRepository struct {
	db *gorm.DB
}

func NewCreditAccountRepository(db *gorm.DB) CreditAccountRepository {
	return &creditAccountRepository{db: db}
}

func (r *creditAccountRepository) WithTx(tx *gorm.DB) CreditAccountRepository {
	return &creditAccountRepository{db: tx}
}

func (r *creditAccountRepository) Create(ctx context.Context, account *model.CreditAccount) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		logger.Error("Failed to create credit account in database", err, map[string]interface{}{
			"customer_id": account.CustomerID,
		})
		return err
	}
	return nil
}

func (r *creditAccountRepository) FindByCustomerID(ctx context.Context, customerID uint) (*model.CreditAccount, error) {
	var account model.CreditAccount
	if err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *creditAccountRepository) FindByCustomerIDForUpdate(ctx context.Context, customerID uint) (*model.CreditAccount, error) {
	var account model.CreditAccount
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *creditAccountRepository) Update(ctx context.Context, account *model.CreditAccount) error {
	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		logger.Error("Failed to update credit account in database", err, map[string]interface{}{
			"customer_id": account.CustomerID,
		})
		return err
	}

	logger.Debug("Credit account updated in database", map[string]interface{}{
		"customer_id":         account.CustomerID,
		"outstanding_balance": account.OutstandingBalance.String(),
	})
	return nil
}

// BulkUpsert imports accounts in batches. An existing account keeps its
// outstanding balance; name, discount and limit are overwritten.
func (r *creditAccountRepository) BulkUpsert(ctx context.Context, accounts []model.CreditAccount, batchSize int) error {
	if len(accounts) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"business_name", "discount_percent", "credit_limit", "updated_at"}),
		}).
		CreateInBatches(&accounts, batchSize).Error
	if err != nil {
		logger.Error("Failed to bulk upsert credit accounts", err, map[string]interface{}{
			"count": len(accounts),
		})
		return err
	}

	logger.Info("Credit accounts imported", map[string]interface{}{
		"count": len(accounts),
	})
	return nil
}
