package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmmart/backend/internal/authz"
	"github.com/farmmart/backend/internal/models"
)

func TestStatusValid(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("new").Valid())
	assert.False(t, Status("").Valid())
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, true},
		{StatusPending, StatusShipped, false},
		{StatusPending, StatusDelivered, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusProcessing, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func placeTestOrder(t *testing.T, svc *Service, customerID uint, lines []LineInput) *models.Order {
	t.Helper()
	order, err := svc.PlaceOrder(context.Background(), customerID, lines, "addr")
	require.NoError(t, err)
	return order
}

func TestUpdateStatus_FarmerWithLineItem(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, db, 10, "beets", 2, 10)
	order := placeTestOrder(t, svc, 1, []LineInput{{ProductID: p.ID, Quantity: 1, Price: 2}})

	farmer := authz.Identity{UserID: 10, Role: authz.RoleFarmer}
	require.NoError(t, svc.UpdateStatus(ctx, farmer, order.ID, StatusProcessing))

	var reread models.Order
	require.NoError(t, db.First(&reread, order.ID).Error)
	assert.Equal(t, string(StatusProcessing), reread.Status)

	require.NoError(t, svc.UpdateStatus(ctx, farmer, order.ID, StatusShipped))
	require.NoError(t, svc.UpdateStatus(ctx, farmer, order.ID, StatusDelivered))

	// Delivered is terminal.
	err := svc.UpdateStatus(ctx, farmer, order.ID, StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatus_TwoFarmersOnOneOrder(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	p1 := createProduct(t, db, 10, "kale", 2, 10)
	p2 := createProduct(t, db, 11, "leeks", 3, 10)
	order := placeTestOrder(t, svc, 1, []LineInput{
		{ProductID: p1.ID, Quantity: 1, Price: 2},
		{ProductID: p2.ID, Quantity: 1, Price: 3},
	})

	// Either farmer with a line item may transition the order.
	require.NoError(t, svc.UpdateStatus(ctx, authz.Identity{UserID: 10, Role: authz.RoleFarmer}, order.ID, StatusProcessing))
	require.NoError(t, svc.UpdateStatus(ctx, authz.Identity{UserID: 11, Role: authz.RoleFarmer}, order.ID, StatusShipped))

	// A farmer with no product in the order may not.
	err := svc.UpdateStatus(ctx, authz.Identity{UserID: 12, Role: authz.RoleFarmer}, order.ID, StatusDelivered)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateStatus_Rejections(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, db, 10, "basil", 2, 10)
	order := placeTestOrder(t, svc, 1, []LineInput{{ProductID: p.ID, Quantity: 1, Price: 2}})

	farmer := authz.Identity{UserID: 10, Role: authz.RoleFarmer}

	err := svc.UpdateStatus(ctx, farmer, order.ID, Status("returned"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	err = svc.UpdateStatus(ctx, farmer, order.ID+50, StatusProcessing)
	assert.ErrorIs(t, err, ErrNotFound)

	// The owning customer is not a line-item farmer.
	err = svc.UpdateStatus(ctx, authz.Identity{UserID: 1, Role: authz.RoleCustomer}, order.ID, StatusCancelled)
	assert.ErrorIs(t, err, ErrForbidden)

	// Out-of-order jump.
	err = svc.UpdateStatus(ctx, farmer, order.ID, StatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatus_CancellationDoesNotRestock(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	p := createProduct(t, db, 10, "garlic", 4, 10)
	order := placeTestOrder(t, svc, 1, []LineInput{{ProductID: p.ID, Quantity: 3, Price: 4}})
	require.Equal(t, 7, productQuantity(t, db, p.ID))

	farmer := authz.Identity{UserID: 10, Role: authz.RoleFarmer}
	require.NoError(t, svc.UpdateStatus(ctx, farmer, order.ID, StatusCancelled))

	var reread models.Order
	require.NoError(t, db.First(&reread, order.ID).Error)
	assert.Equal(t, string(StatusCancelled), reread.Status)
	assert.Equal(t, 7, productQuantity(t, db, p.ID))
}
