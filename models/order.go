package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order represents one powder-coating job submitted by a client
type Order struct {
	ID                  uint                `gorm:"primaryKey" json:"id"`
	OrderNumber         string              `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID              uint                `gorm:"not null;index" json:"user_id"` // owning client
	User                User                `gorm:"foreignKey:UserID" json:"client"`
	ProjectName         string              `gorm:"not null" json:"project_name"`
	Description         string              `gorm:"type:text;not null" json:"description"`
	Quantity            int                 `gorm:"not null;check:quantity > 0" json:"quantity"`
	Dimensions          *string             `json:"dimensions"`
	AdditionalNotes     *string             `gorm:"type:text" json:"additional_notes"`
	Status              OrderStatus         `gorm:"type:varchar(32);not null;default:'pending_quote';index" json:"status"`
	Priority            Priority            `gorm:"type:varchar(16);not null;default:'medium'" json:"priority"`
	Progress            int                 `gorm:"not null;default:0;check:progress >= 0 AND progress <= 100" json:"progress"`
	ProgressOverride    bool                `gorm:"not null;default:false" json:"progress_override"` // progress is not derived from status
	QuotedPrice         decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"quoted_price"`
	QuoteApproved       *bool               `json:"quote_approved"`
	AdminNotes          *string             `gorm:"type:text" json:"admin_notes"`
	SubmittedDate       time.Time           `gorm:"not null" json:"submitted_date"`
	EstimatedCompletion *time.Time          `json:"estimated_completion"`
	CompletedDate       *time.Time          `json:"completed_date"`

	Customization *OrderCustomization   `gorm:"foreignKey:OrderID" json:"customization,omitempty"`
	Files         []OrderFile           `gorm:"foreignKey:OrderID" json:"files,omitempty"`
	Assignments   []OrderTeamAssignment `gorm:"foreignKey:OrderID" json:"assignments,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// Finish options
const (
	FinishMatte  = "matte"
	FinishGlossy = "glossy"
	FinishSatin  = "satin"
)

// Texture options
const (
	TextureSmooth   = "smooth"
	TextureTextured = "textured"
	TextureHammered = "hammered"
)

// OrderCustomization holds the coating choices made at submission time
type OrderCustomization struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uint      `gorm:"not null;uniqueIndex" json:"order_id"`
	Finish      string    `gorm:"not null" json:"finish"`
	Texture     string    `gorm:"not null" json:"texture"`
	Color       string    `gorm:"not null" json:"color"`
	CustomNotes *string   `gorm:"type:text" json:"custom_notes"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderCustomization model
func (OrderCustomization) TableName() string {
	return "order_customizations"
}

// OrderFile is a reference drawing or photo attached to an order
type OrderFile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	FileName   string    `gorm:"not null" json:"file_name"`
	FileSize   int64     `gorm:"not null" json:"file_size"`
	StorageKey string    `gorm:"not null" json:"storage_key"`
	URL        *string   `gorm:"-" json:"url,omitempty"` // presigned, computed on read
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderFile model
func (OrderFile) TableName() string {
	return "order_files"
}

// OrderStatusHistory is an audit row written on every status change
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"type:varchar(32);not null" json:"status"`
	ChangedBy *uint       `json:"changed_by"`
	Notes     *string     `gorm:"type:text" json:"notes"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName specifies the table name for the OrderStatusHistory model
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
