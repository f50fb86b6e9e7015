package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/smart-inventory/internal/inventory/domain"
)

// GormStore is the PostgreSQL backed Store.
type GormStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormStore creates a store. A positive lockTimeout is applied to every
// write transaction with SET LOCAL lock_timeout.
func NewGormStore(db *gorm.DB, lockTimeout time.Duration) *GormStore {
	return &GormStore{db: db, lockTimeout: lockTimeout}
}

func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&domain.Branch{},
		&domain.Product{},
		&domain.InventoryRecord{},
		&domain.StockMovement{},
		&domain.Order{},
		&domain.OrderItem{},
	)
}

func (s *GormStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo domain.LedgerRepository) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}
		return fn(ctx, &gormLedgerRepository{tx: tx})
	})
	return classify("run transaction", err)
}

type gormLedgerRepository struct {
	tx *gorm.DB
}

func (r *gormLedgerRepository) FindBranch(ctx context.Context, id uint) (*domain.Branch, error) {
	var branch domain.Branch
	err := r.tx.WithContext(ctx).First(&branch, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError("find branch", err)
	}
	return &branch, nil
}

func (r *gormLedgerRepository) FindProduct(ctx context.Context, id uint) (*domain.Product, error) {
	var product domain.Product
	err := r.tx.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError("find product", err)
	}
	return &product, nil
}

func (r *gormLedgerRepository) LockRecord(ctx context.Context, branchID, productID uint) (*domain.InventoryRecord, error) {
	var record domain.InventoryRecord
	err := r.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError("lock inventory record", err)
	}
	return &record, nil
}

func (r *gormLedgerRepository) LockRecords(ctx context.Context, branchID uint, productIDs []uint) error {
	if len(productIDs) == 0 {
		return nil
	}
	var records []domain.InventoryRecord
	err := r.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("branch_id = ? AND product_id IN ?", branchID, productIDs).
		Order("product_id").
		Find(&records).Error
	return translateError("lock inventory records", err)
}

func (r *gormLedgerRepository) LockOrCreateRecord(ctx context.Context, branchID, productID uint) (*domain.InventoryRecord, error) {
	seed := domain.InventoryRecord{BranchID: branchID, ProductID: productID}
	err := r.tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "branch_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(&seed).Error
	if err != nil {
		return nil, translateError("create inventory record", err)
	}

	record, err := r.LockRecord(ctx, branchID, productID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("failed to create inventory record for branch %d product %d", branchID, productID)
	}
	return record, nil
}

func (r *gormLedgerRepository) UpdateQuantity(ctx context.Context, record *domain.InventoryRecord) error {
	now := time.Now().UTC()
	err := r.tx.WithContext(ctx).
		Model(&domain.InventoryRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{"quantity": record.Quantity, "updated_at": now}).Error
	if err != nil {
		return translateError("update quantity", err)
	}
	record.UpdatedAt = now
	return nil
}

func (r *gormLedgerRepository) AppendMovements(ctx context.Context, movements []domain.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	if err := r.tx.WithContext(ctx).Omit(clause.Associations).Create(&movements).Error; err != nil {
		return translateError("append stock movements", err)
	}
	return nil
}

func (r *gormLedgerRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	if err := r.tx.WithContext(ctx).Create(order).Error; err != nil {
		return translateError("create order", err)
	}
	return nil
}
