package models

// User is either a farmer selling products or a customer buying them.
// Role is fixed at registration.
type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"not null"                 json:"name"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
	Contact      string `json:"contact"`
	Address      string `json:"address"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"      json:"id"`
	FarmerID    uint    `gorm:"index;not null"                json:"farmer_id"`
	Name        string  `gorm:"not null"                      json:"name"`
	Description string  `json:"description"`
	Price       float64 `gorm:"not null;check:price > 0"      json:"price"`
	Quantity    int     `gorm:"not null;check:quantity >= 0"  json:"quantity"`
	ImageRef    string  `json:"image_ref,omitempty"`
	CreatedAt   int64   `gorm:"autoCreateTime"                json:"created_at"`
}

type Order struct {
	ID              uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID      uint    `gorm:"index;not null"           json:"customer_id"`
	TotalAmount     float64 `gorm:"not null"                 json:"total_amount"`
	ShippingAddress string  `gorm:"not null"                 json:"shipping_address"`
	Status          string  `gorm:"not null"                 json:"status"`
	CreatedAt       int64   `gorm:"not null"                 json:"created_at"`
}

// OrderItem rows are written once during order placement and never updated.
// Price is the unit price the customer agreed to at cart time.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID   uint    `gorm:"index;not null"              json:"order_id"`
	ProductID uint    `gorm:"not null"                    json:"product_id"`
	Quantity  int     `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price     float64 `gorm:"not null"                    json:"price"`
}
