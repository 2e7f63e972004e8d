package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus of a single negotiation entry
type QuoteStatus string

const (
	QuotePending   QuoteStatus = "pending"
	QuoteAccepted  QuoteStatus = "accepted"
	QuoteRejected  QuoteStatus = "rejected"
	QuoteCountered QuoteStatus = "countered"
)

// Valid reports whether s is a known quote status.
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuotePending, QuoteAccepted, QuoteRejected, QuoteCountered:
		return true
	}
	return false
}

// QuoteNegotiation is one offer in the price negotiation of an order.
// Rows are append-only.
type QuoteNegotiation struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	QuotedBy    uint            `gorm:"not null" json:"quoted_by"`
	AuthorRole  string          `gorm:"type:varchar(16);not null" json:"author_role"`
	QuotedPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"quoted_price"`
	Notes       *string         `gorm:"type:text" json:"notes"`
	Status      QuoteStatus     `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName specifies the table name for the QuoteNegotiation model
func (QuoteNegotiation) TableName() string {
	return "quote_negotiations"
}
