package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/kendall-kelly/powder-coating-api/logger"
	"github.com/kendall-kelly/powder-coating-api/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// OrderService owns the order lifecycle: submission, status changes,
// the quote ledger and team assignments.
type OrderService struct {
	db            *gorm.DB
	notifications *Dispatcher
	feed          ChangeFeed
	files         FileService
	numbers       OrderNumberGenerator
	log           *zap.Logger
	now           func() time.Time
}

// NewOrderService wires an OrderService. notifications, feed and files may be nil.
func NewOrderService(db *gorm.DB, notifications *Dispatcher, feed ChangeFeed, files FileService) *OrderService {
	return &OrderService{
		db:            db,
		notifications: notifications,
		feed:          feed,
		files:         files,
		numbers:       DefaultOrderNumbers,
		log:           logger.L(),
		now:           time.Now,
	}
}

// CustomizationInput holds the coating choices of a new order
type CustomizationInput struct {
	Finish      string  `json:"finish" validate:"oneof=matte glossy satin"`
	Texture     string  `json:"texture" validate:"oneof=smooth textured hammered"`
	Color       string  `json:"color" validate:"required,coatingcolor"`
	CustomNotes *string `json:"custom_notes"`
}

// CreateOrderInput is what a client submits
type CreateOrderInput struct {
	ProjectName     string             `json:"project_name" validate:"required"`
	Description     string             `json:"description" validate:"required"`
	Quantity        int                `json:"quantity" validate:"gt=0"`
	Dimensions      *string            `json:"dimensions"`
	AdditionalNotes *string            `json:"additional_notes"`
	Customization   CustomizationInput `json:"customization"`
}

var createOrderRules = fieldRules{
	"ProjectName":    {"MISSING_PROJECT_NAME", "Project name is required"},
	"Description":    {"MISSING_DESCRIPTION", "Description is required"},
	"Quantity":       {"INVALID_QUANTITY", "Quantity must be a positive number"},
	"Finish":         {"INVALID_FINISH", "Finish must be matte, glossy or satin"},
	"Texture":        {"INVALID_TEXTURE", "Texture must be smooth, textured or hammered"},
	"Color.required": {"MISSING_COLOR", "Color is required"},
	"Color":          {"INVALID_COLOR", "Hex colors must look like #RGB or #RRGGBB"},
}

// trimmed returns in with surrounding whitespace removed from the text fields
func (in CreateOrderInput) trimmed() CreateOrderInput {
	in.ProjectName = strings.TrimSpace(in.ProjectName)
	in.Description = strings.TrimSpace(in.Description)
	in.Customization.Color = strings.TrimSpace(in.Customization.Color)
	return in
}

// CreateOrder submits a new order for the calling client
func (s *OrderService) CreateOrder(ctx context.Context, p Principal, in CreateOrderInput) (*models.Order, error) {
	if !p.IsClient() {
		return nil, ErrForbidden
	}
	in = in.trimmed()
	if err := checkStruct(in, createOrderRules); err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		OrderNumber:     s.numbers.Next(now),
		UserID:          p.UserID,
		ProjectName:     in.ProjectName,
		Description:     in.Description,
		Quantity:        in.Quantity,
		Dimensions:      in.Dimensions,
		AdditionalNotes: in.AdditionalNotes,
		Status:          models.StatusPendingQuote,
		Priority:        models.PriorityMedium,
		Progress:        0,
		SubmittedDate:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		custom := &models.OrderCustomization{
			OrderID:     order.ID,
			Finish:      in.Customization.Finish,
			Texture:     in.Customization.Texture,
			Color:       in.Customization.Color,
			CustomNotes: in.Customization.CustomNotes,
		}
		return tx.Create(custom).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.publish(ctx, "orders", ActionInsert, order.ID, order.ID)
	s.log.Info("order submitted", zap.Uint("order_id", order.ID), zap.String("order_number", order.OrderNumber))

	return s.loadOrder(s.db.WithContext(ctx), order.ID)
}

// GetOrder returns an order with its customization, files and assignments
func (s *OrderService) GetOrder(ctx context.Context, p Principal, id uint) (*models.Order, error) {
	db := s.db.WithContext(ctx)
	order, err := s.loadOrder(db, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(db, p, order); err != nil {
		return nil, err
	}

	if s.files != nil {
		for i := range order.Files {
			url, err := s.files.GetFileURL(ctx, order.Files[i].StorageKey)
			if err != nil {
				s.log.Warn("file url", zap.Uint("file_id", order.Files[i].ID), zap.Error(err))
				continue
			}
			order.Files[i].URL = &url
		}
	}
	return order, nil
}

// ListFilter narrows ListOrders
type ListFilter struct {
	Status   *models.OrderStatus
	Priority *models.Priority
	Page     int
	Limit    int
}

// Normalize applies the paging defaults
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
}

// ListOrders returns the orders visible to p, newest first, and the total count.
// Clients see their own orders, team members the orders they are assigned to.
func (s *OrderService) ListOrders(ctx context.Context, p Principal, f ListFilter) ([]models.Order, int64, error) {
	f.Normalize()
	db := s.db.WithContext(ctx)
	q := db.Model(&models.Order{})

	switch {
	case p.IsAdmin():
	case p.IsClient():
		q = q.Where("user_id = ?", p.UserID)
	case p.IsTeam():
		q = q.Where("id IN (?)", assignedOrderIDs(db, p.UserID))
	default:
		return nil, 0, ErrForbidden
	}

	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Priority != nil {
		q = q.Where("priority = ?", *f.Priority)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := q.Preload("User").
		Preload("Customization").
		Order("created_at DESC").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// SetStatus moves an order to any of the known statuses. Transitions are not
// constrained; the only derived effect is the progress recalculation.
func (s *OrderService) SetStatus(ctx context.Context, p Principal, orderID uint, status models.OrderStatus, notes *string) (*models.Order, error) {
	if !status.Valid() {
		return nil, invalid("INVALID_STATUS", fmt.Sprintf("Unknown status %q", status))
	}

	var (
		order   *models.Order
		history *models.OrderStatusHistory
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = findOrder(tx, orderID)
		if err != nil {
			return err
		}

		switch {
		case p.IsAdmin():
		case p.IsTeam() && status == models.StatusCompleted:
			ok, err := isAssigned(tx, orderID, p.UserID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrForbidden
			}
		default:
			return ErrForbidden
		}

		history, err = s.applyStatus(tx, p, order, status, notes)
		return err
	})
	if err != nil {
		return nil, err
	}

	if history != nil {
		s.afterStatusChange(ctx, order, history)
	}
	return s.loadOrder(s.db.WithContext(ctx), orderID)
}

// applyStatus writes a status change and its history row. It returns the
// history row, or nil when the status did not change.
func (s *OrderService) applyStatus(tx *gorm.DB, p Principal, order *models.Order, status models.OrderStatus, notes *string) (*models.OrderStatusHistory, error) {
	if order.Status == status {
		return nil, nil
	}

	progress, held := models.DeriveProgress(status, order.Progress)
	updates := map[string]any{
		"status":            status,
		"progress":          progress,
		"progress_override": held,
	}
	now := s.now()
	switch {
	case status == models.StatusCompleted:
		updates["completed_date"] = now
		order.CompletedDate = &now
	case order.Status == models.StatusCompleted:
		// reopened
		updates["completed_date"] = nil
		order.CompletedDate = nil
	}
	if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		return nil, err
	}

	changedBy := p.UserID
	history := &models.OrderStatusHistory{
		OrderID:   order.ID,
		Status:    status,
		ChangedBy: &changedBy,
		Notes:     notes,
	}
	if err := tx.Create(history).Error; err != nil {
		return nil, err
	}

	order.Status = status
	order.Progress = progress
	order.ProgressOverride = held
	return history, nil
}

// afterStatusChange runs the best-effort side effects of a committed status change
func (s *OrderService) afterStatusChange(ctx context.Context, order *models.Order, history *models.OrderStatusHistory) {
	s.publish(ctx, "orders", ActionUpdate, order.ID, order.ID)
	s.publish(ctx, "order_status_history", ActionInsert, history.ID, order.ID)

	n := StatusNotification{
		UserID:      order.UserID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		NewStatus:   order.Status,
		ProjectName: order.ProjectName,
	}
	var client models.User
	if err := s.db.WithContext(ctx).First(&client, order.UserID).Error; err != nil {
		s.log.Warn("client lookup for notification failed", zap.Uint("user_id", order.UserID), zap.Error(err))
	} else {
		n.UserEmail = client.Email
		n.UserName = client.Name
	}
	s.notifications.Dispatch(n)
}

// ListStatusHistory returns the status audit trail, oldest first
func (s *OrderService) ListStatusHistory(ctx context.Context, p Principal, orderID uint) ([]models.OrderStatusHistory, error) {
	db := s.db.WithContext(ctx)
	order, err := findOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(db, p, order); err != nil {
		return nil, err
	}

	var history []models.OrderStatusHistory
	err = db.Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&history).Error
	return history, err
}

// AdminUpdateInput is the admin order-detail save. Nil fields are left alone.
type AdminUpdateInput struct {
	Status              *models.OrderStatus `validate:"omitnil,orderstatus"`
	StatusNotes         *string
	Priority            *models.Priority `validate:"omitnil,priority"`
	QuotedPrice         *decimal.Decimal
	QuoteNotes          *string
	AdminNotes          *string
	EstimatedCompletion *time.Time
	Progress            *int `validate:"omitnil,min=0,max=100"`
	TeamMemberIDs       *[]uint
}

var adminUpdateRules = fieldRules{
	"Status":   {"INVALID_STATUS", "Unknown order status"},
	"Priority": {"INVALID_PRIORITY", "Unknown priority"},
	"Progress": {"INVALID_PROGRESS", "Progress must be between 0 and 100"},
}

func (in AdminUpdateInput) validate() error {
	if err := checkStruct(in, adminUpdateRules); err != nil {
		return err
	}
	if in.QuotedPrice != nil {
		return validatePrice(*in.QuotedPrice)
	}
	return nil
}

// AdminUpdateResult reports what an admin save did besides plain field updates
type AdminUpdateResult struct {
	Order         *models.Order
	QuoteRecorded bool
	StatusChanged bool
}

// AdminUpdate applies an admin save: quote, status, manual progress,
// plain fields and team assignments, all in one transaction.
// A manual progress value wins over the one derived from a status change in the same save.
func (s *OrderService) AdminUpdate(ctx context.Context, p Principal, orderID uint, in AdminUpdateInput) (*AdminUpdateResult, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	res := &AdminUpdateResult{}
	var (
		order   *models.Order
		quote   *models.QuoteNegotiation
		history *models.OrderStatusHistory
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = findOrder(tx, orderID)
		if err != nil {
			return err
		}

		var memberIDs []uint
		if in.TeamMemberIDs != nil {
			memberIDs = dedupe(*in.TeamMemberIDs)
			if err := checkMembersExist(tx, memberIDs); err != nil {
				return err
			}
		}

		if in.QuotedPrice != nil {
			notes := in.QuoteNotes
			if notes == nil {
				n, err := ledgerSize(tx, order.ID)
				if err != nil {
					return err
				}
				text := "Updated quote from admin"
				if n == 0 {
					text = "Initial quote from admin"
				}
				notes = &text
			}
			quote, res.QuoteRecorded, err = s.recordQuote(tx, p, order, *in.QuotedPrice, notes, models.QuotePending)
			if err != nil {
				return err
			}
		}

		if in.Status != nil {
			history, err = s.applyStatus(tx, p, order, *in.Status, in.StatusNotes)
			if err != nil {
				return err
			}
			res.StatusChanged = history != nil
		}

		updates := map[string]any{}
		if in.Progress != nil {
			updates["progress"] = *in.Progress
			updates["progress_override"] = true
		}
		if in.Priority != nil {
			updates["priority"] = *in.Priority
		}
		if in.AdminNotes != nil {
			updates["admin_notes"] = *in.AdminNotes
		}
		if in.EstimatedCompletion != nil {
			updates["estimated_completion"] = *in.EstimatedCompletion
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
				return err
			}
		}

		if in.TeamMemberIDs != nil {
			if err := replaceAssignments(tx, order.ID, memberIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "orders", ActionUpdate, orderID, orderID)
	if res.QuoteRecorded {
		s.publish(ctx, "quote_negotiations", ActionInsert, quote.ID, orderID)
	}
	if in.TeamMemberIDs != nil {
		s.publish(ctx, "order_team_assignments", ActionUpdate, 0, orderID)
	}
	if res.StatusChanged {
		s.afterStatusChange(ctx, order, history)
	}

	res.Order, err = s.loadOrder(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AttachFile stores a file for an order that is still awaiting its quote
func (s *OrderService) AttachFile(ctx context.Context, p Principal, orderID uint, fileHeader *multipart.FileHeader) (*models.OrderFile, error) {
	if s.files == nil {
		return nil, errors.New("file storage is not configured")
	}

	db := s.db.WithContext(ctx)
	order, err := findOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	if !p.owns(order) && !p.IsAdmin() {
		return nil, ErrForbidden
	}
	if order.Status != models.StatusPendingQuote {
		return nil, ErrFilesLocked
	}

	key, err := s.files.UploadOrderFile(ctx, order.ID, fileHeader)
	if err != nil {
		return nil, err
	}

	file := &models.OrderFile{
		OrderID:    order.ID,
		FileName:   fileHeader.Filename,
		FileSize:   fileHeader.Size,
		StorageKey: key,
	}
	if err := db.Create(file).Error; err != nil {
		if delErr := s.files.DeleteFile(ctx, key); delErr != nil {
			s.log.Warn("orphaned upload", zap.String("key", key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("save file record: %w", err)
	}

	if url, err := s.files.GetFileURL(ctx, key); err == nil {
		file.URL = &url
	}
	s.publish(ctx, "order_files", ActionInsert, file.ID, orderID)
	return file, nil
}

func (s *OrderService) authorizeView(db *gorm.DB, p Principal, order *models.Order) error {
	switch {
	case p.IsAdmin():
		return nil
	case p.owns(order):
		return nil
	case p.IsTeam():
		ok, err := isAssigned(db, order.ID, p.UserID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrForbidden
}

func (s *OrderService) loadOrder(db *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	err := db.Preload("User").
		Preload("Customization").
		Preload("Files").
		Preload("Assignments.TeamMember").
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// publish announces a change to row id of table, which belongs to orderID.
// id is 0 when a set of rows was replaced.
func (s *OrderService) publish(ctx context.Context, table, action string, id, orderID uint) {
	if s.feed == nil {
		return
	}
	ev := ChangeEvent{Table: table, Action: action, ID: id, OrderID: orderID, At: s.now()}
	if err := s.feed.Publish(ctx, ev); err != nil {
		s.log.Warn("publish change event failed", zap.String("table", table), zap.Uint("id", id), zap.Error(err))
	}
}

func findOrder(db *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	err := db.First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func assignedOrderIDs(db *gorm.DB, userID uint) *gorm.DB {
	return db.Model(&models.OrderTeamAssignment{}).
		Select("order_team_assignments.order_id").
		Joins("JOIN team_members ON team_members.id = order_team_assignments.team_member_id").
		Where("team_members.user_id = ?", userID)
}

func isAssigned(db *gorm.DB, orderID, userID uint) (bool, error) {
	var n int64
	err := db.Model(&models.OrderTeamAssignment{}).
		Joins("JOIN team_members ON team_members.id = order_team_assignments.team_member_id").
		Where("order_team_assignments.order_id = ? AND team_members.user_id = ?", orderID, userID).
		Count(&n).Error
	return n > 0, err
}
