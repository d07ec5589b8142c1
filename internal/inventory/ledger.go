// Package inventory owns product stock. Quantity is only ever decremented
// through a Ledger bound to the transaction that holds the row lock; no other
// code path may touch it.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/farmmart/backend/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

// Ledger reads and mutates stock through the *gorm.DB handle it was built
// with. Inside a transaction that handle must be the transaction itself, so
// the row lock taken by LockForUpdate lives until commit or rollback.
type Ledger struct {
	DB *gorm.DB
}

// LockForUpdate reads the product under SELECT ... FOR UPDATE. Concurrent
// lockers of the same row block until this transaction ends.
func (l *Ledger) LockForUpdate(ctx context.Context, productID uint) (*models.Product, error) {
	q := l.DB.WithContext(ctx)
	// SQLite (test suite) rejects FOR UPDATE; its single-writer lock
	// serializes writers instead.
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var p models.Product
	err := q.Where("id = ?", productID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrProductNotFound, productID)
		}
		return nil, err
	}
	return &p, nil
}

// Decrement subtracts amount from the product's quantity. The caller must
// hold the lock from LockForUpdate in the same transaction and must have
// checked amount against the locked quantity; the WHERE guard is a backstop
// that keeps quantity from ever going negative.
func (l *Ledger) Decrement(ctx context.Context, productID uint, amount int) error {
	res := l.DB.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", productID, amount).
		Update("quantity", gorm.Expr("quantity - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("decrement product %d by %d: no row updated", productID, amount)
	}
	return nil
}
