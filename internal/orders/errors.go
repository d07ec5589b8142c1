package orders

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation")         // 400
	ErrNotFound          = errors.New("not found")          // 404
	ErrForbidden         = errors.New("forbidden")          // 403
	ErrInvalidStatus     = errors.New("invalid status")     // 400
	ErrInsufficientStock = errors.New("insufficient stock") // 409
	ErrTransactionFailed = errors.New("transaction failed") // 503
)

// InsufficientStockError tells the caller which product was short and by how
// much, so the order can be resubmitted with adjusted quantities.
type InsufficientStockError struct {
	ProductID uint
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: product=%d available=%d requested=%d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
