// Package authz is the capability check for the marketplace: every decision
// takes the authenticated identity, the requested action and the owner of the
// target resource, independent of the transport that carried the request.
package authz

import "errors"

var ErrDenied = errors.New("denied")

type Role string

const (
	RoleFarmer   Role = "farmer"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	return r == RoleFarmer || r == RoleCustomer
}

type Action string

const (
	ActionPlaceOrder        Action = "order:place"
	ActionViewOrder         Action = "order:view"
	ActionUpdateOrderStatus Action = "order:update_status"
	ActionManageProduct     Action = "product:manage"
)

// Identity is the pre-validated caller entering the core, as extracted from
// the access token by the transport layer.
type Identity struct {
	UserID uint
	Role   Role
}

// Decide returns nil when ident may perform action against a resource owned
// by ownerID. For order actions ownerID is the user the caller must match:
// the order's customer for viewing, or the farmer of a line item for status
// changes (callers resolve line-item ownership before asking).
func Decide(ident Identity, action Action, ownerID uint) error {
	switch action {
	case ActionPlaceOrder:
		if ident.Role == RoleCustomer {
			return nil
		}
	case ActionManageProduct:
		if ident.Role != RoleFarmer {
			return ErrDenied
		}
		// ownerID == 0 means the resource does not exist yet (create).
		if ownerID == 0 || ownerID == ident.UserID {
			return nil
		}
	case ActionUpdateOrderStatus:
		if ident.Role == RoleFarmer && ownerID != 0 && ownerID == ident.UserID {
			return nil
		}
	case ActionViewOrder:
		if ownerID != 0 && ownerID == ident.UserID {
			return nil
		}
	}
	return ErrDenied
}
