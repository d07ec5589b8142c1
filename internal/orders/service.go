package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/farmmart/backend/internal/authz"
	"github.com/farmmart/backend/internal/inventory"
	"github.com/farmmart/backend/internal/logging"
	"github.com/farmmart/backend/internal/metrics"
	"github.com/farmmart/backend/internal/models"
	"github.com/farmmart/backend/internal/util"
)

// LineInput is one requested line of a new order. Price is the unit price the
// customer agreed to at cart time; it is frozen onto the order item. The
// price read under the row lock is used for availability only, never for
// pricing.
type LineInput struct {
	ProductID uint
	Quantity  int
	Price     float64
}

type Service struct {
	DB      *gorm.DB
	Metrics *metrics.OrderMetrics
}

// PlaceOrder creates an order with all its items and the matching stock
// decrements as one transaction. Either everything commits or nothing does.
func (s *Service) PlaceOrder(ctx context.Context, customerID uint, items []LineInput, shippingAddress string) (*models.Order, error) {
	start := time.Now()
	order, err := s.placeOrder(ctx, customerID, items, shippingAddress)
	s.Metrics.ObservePlace(resultLabel(err), time.Since(start))
	return order, err
}

func (s *Service) placeOrder(ctx context.Context, customerID uint, items []LineInput, shippingAddress string) (*models.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	if shippingAddress == "" {
		return nil, fmt.Errorf("%w: shipping_address required", ErrValidation)
	}
	for i := range items {
		if items[i].ProductID == 0 {
			return nil, fmt.Errorf("%w: product_id required", ErrValidation)
		}
		if items[i].Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
		if items[i].Price <= 0 {
			return nil, fmt.Errorf("%w: price must be > 0", ErrValidation)
		}
	}

	lines := mergeLines(items)

	order, err := s.placeOrderTx(ctx, customerID, lines, shippingAddress)
	if err != nil && isTransient(err) {
		logging.FromContext(ctx).Warn("place_order_retry", "customer_id", customerID, "error", err)
		order, err = s.placeOrderTx(ctx, customerID, lines, shippingAddress)
		if err != nil && isTransient(err) {
			return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}
	}
	return order, err
}

// mergeLines folds duplicate product lines into one cumulative line and sorts
// by product id, so concurrent placements always acquire row locks in the
// same order.
func mergeLines(items []LineInput) []LineInput {
	idx := make(map[uint]int, len(items))
	lines := make([]LineInput, 0, len(items))
	for _, it := range items {
		if j, ok := idx[it.ProductID]; ok {
			lines[j].Quantity += it.Quantity
			continue
		}
		idx[it.ProductID] = len(lines)
		lines = append(lines, it)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines
}

func (s *Service) placeOrderTx(ctx context.Context, customerID uint, lines []LineInput, shippingAddress string) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order = models.Order{
			CustomerID:      customerID,
			Status:          string(StatusPending),
			ShippingAddress: shippingAddress,
			CreatedAt:       time.Now().Unix(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		ledger := inventory.Ledger{DB: tx}
		for _, ln := range lines {
			p, err := ledger.LockForUpdate(ctx, ln.ProductID)
			if err != nil {
				return err
			}
			if p.Quantity < ln.Quantity {
				return &InsufficientStockError{
					ProductID: ln.ProductID,
					Available: p.Quantity,
					Requested: ln.Quantity,
				}
			}
			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: ln.ProductID,
				Quantity:  ln.Quantity,
				Price:     ln.Price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			if err := ledger.Decrement(ctx, ln.ProductID, ln.Quantity); err != nil {
				return err
			}
		}

		// Client-declared totals are never trusted; the total is recomputed
		// from the item rows that were actually written.
		var total float64
		if err := tx.Model(&models.OrderItem{}).
			Where("order_id = ?", order.ID).
			Select("COALESCE(SUM(quantity * price), 0)").
			Scan(&total).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("total_amount", total).Error; err != nil {
			return err
		}
		order.TotalAmount = total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// isTransient reports store-level failures worth one retry with a fresh
// transaction: serialization failure, deadlock, lock not available.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, inventory.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrTransactionFailed):
		return "transaction_failed"
	default:
		return "error"
	}
}

// UpdateStatus moves an order along pending -> processing -> shipped ->
// delivered, any non-terminal state may go to cancelled. Only a farmer owning
// at least one product among the order's items may transition it. Status
// changes never touch inventory; cancellation does not restock.
func (s *Service) UpdateStatus(ctx context.Context, ident authz.Identity, orderID uint, next Status) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(next))
	}

	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return err
	}

	owner, err := s.lineItemOwner(ctx, orderID, ident.UserID)
	if err != nil {
		return err
	}
	if err := authz.Decide(ident, authz.ActionUpdateOrderStatus, owner); err != nil {
		return fmt.Errorf("%w: no line item owned by user %d", ErrForbidden, ident.UserID)
	}

	if !CanTransition(Status(order.Status), next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, order.Status, next)
	}

	return s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", string(next)).Error
}

// lineItemOwner returns userID when that farmer owns at least one product
// referenced by the order's items, zero otherwise.
func (s *Service) lineItemOwner(ctx context.Context, orderID, userID uint) (uint, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Table("order_items").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("order_items.order_id = ? AND products.farmer_id = ?", orderID, userID).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return userID, nil
}

type ItemView struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	LineTotal   float64 `json:"line_total"`
}

type OrderView struct {
	models.Order
	Items []ItemView `json:"items"`
}

// GetOrder returns the order header with its items, visible to the owning
// customer or to a farmer with a line item in the order.
func (s *Service) GetOrder(ctx context.Context, ident authz.Identity, orderID uint) (*OrderView, error) {
	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}

	owner := order.CustomerID
	if owner != ident.UserID {
		var err error
		owner, err = s.lineItemOwner(ctx, orderID, ident.UserID)
		if err != nil {
			return nil, err
		}
	}
	if err := authz.Decide(ident, authz.ActionViewOrder, owner); err != nil {
		return nil, fmt.Errorf("%w: order %d", ErrForbidden, orderID)
	}

	var items []ItemView
	if err := s.DB.WithContext(ctx).
		Table("order_items").
		Select("order_items.product_id, products.name AS product_name, order_items.quantity, order_items.price").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("order_items.order_id = ?", orderID).
		Order("order_items.id ASC").
		Scan(&items).Error; err != nil {
		return nil, err
	}
	for i := range items {
		items[i].LineTotal = float64(items[i].Quantity) * items[i].Price
	}

	return &OrderView{Order: order, Items: items}, nil
}

// ListOrders pages through the caller's orders: a customer sees their own,
// a farmer sees every order containing one of their products.
func (s *Service) ListOrders(ctx context.Context, ident authz.Identity, page, size int) ([]models.Order, int64, error) {
	offset, limit := util.Calculate(page, size)

	scope := func() *gorm.DB {
		q := s.DB.WithContext(ctx).Model(&models.Order{})
		if ident.Role == authz.RoleFarmer {
			sub := s.DB.Table("order_items").
				Select("order_items.order_id").
				Joins("JOIN products ON products.id = order_items.product_id").
				Where("products.farmer_id = ?", ident.UserID)
			return q.Where("id IN (?)", sub)
		}
		return q.Where("customer_id = ?", ident.UserID)
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Order
	if err := scope().Order("created_at DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
