package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CartStatusActive    = "active"
	CartStatusConverted = "converted"
	CartStatusExpired   = "expired"

	OrderStatusNew = "new"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Email        string    `gorm:"unique;not null"       json:"email"`
	Name         string    `gorm:"not null"              json:"name"`
	PasswordHash string    `gorm:"not null"              json:"-"`
	Role         string    `gorm:"not null"              json:"role"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
}

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"  json:"id"`
	Name        string          `gorm:"not null"              json:"name"`
	Description string          `gorm:"not null"              json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric;not null" json:"price"`
	Currency    string          `gorm:"not null"              json:"currency"`
	Count       uint            `json:"count"`
}

// Cart is owned either by a user (UserID set) or by an anonymous session
// (SessionID set), never both. A cart whose ExpiresAt has passed is treated
// as absent on every read, regardless of the persisted status value.
type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index"      json:"user_id,omitempty"`
	SessionID *string    `gorm:"uniqueIndex"          json:"session_id,omitempty"`
	Status    string     `gorm:"not null;index"       json:"status"`
	Currency  string     `gorm:"not null"             json:"currency"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem snapshots the unit price at add time. TotalPrice is always
// UnitPrice * Quantity; both columns are written in the same statement.
type CartItem struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"      json:"id"`
	CartID     uuid.UUID         `gorm:"type:uuid;index;not null"  json:"cart_id"`
	ProductID  uuid.UUID         `gorm:"type:uuid;not null"        json:"product_id"`
	VariantID  *uuid.UUID        `gorm:"type:uuid"                 json:"variant_id,omitempty"`
	Quantity   uint              `gorm:"not null;check:quantity>0" json:"quantity"`
	UnitPrice  decimal.Decimal   `gorm:"type:numeric;not null"     json:"unit_price"`
	TotalPrice decimal.Decimal   `gorm:"type:numeric;not null"     json:"total_price"`
	Attributes map[string]string `gorm:"serializer:json"           json:"attributes,omitempty"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"               json:"id"`
	JTI       string    `gorm:"uniqueIndex;not null"     json:"jti"`
	TokenHash string    `gorm:"not null"                 json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt int64     `gorm:"not null"                 json:"expires_at"`
	Revoked   bool      `gorm:"default:false"            json:"revoked"`
}

type Order struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"     json:"id"`
	CartID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"cart_id"`
	UserID        *uuid.UUID      `gorm:"type:uuid;index"          json:"user_id,omitempty"`
	Subtotal      decimal.Decimal `gorm:"type:numeric;not null"    json:"subtotal"`
	TaxTotal      decimal.Decimal `gorm:"type:numeric;not null"    json:"tax_total"`
	ShippingTotal decimal.Decimal `gorm:"type:numeric;not null"    json:"shipping_total"`
	GrandTotal    decimal.Decimal `gorm:"type:numeric;not null"    json:"grand_total"`
	Currency      string          `gorm:"not null"                 json:"currency"`
	Status        string          `gorm:"not null"                 json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

type OrderItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"     json:"id"`
	OrderID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null"       json:"product_id"`
	VariantID  *uuid.UUID      `gorm:"type:uuid"                json:"variant_id,omitempty"`
	Quantity   uint            `gorm:"not null"                 json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric;not null"    json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:numeric;not null"    json:"total_price"`
}
