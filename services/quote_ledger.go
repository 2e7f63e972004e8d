package services

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/powder-coating-api/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxPrice is the first value a decimal(12,2) column cannot hold
var maxPrice = decimal.New(1, 10)

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return invalid("INVALID_PRICE", "Quoted price must be a positive number")
	}
	if !price.Equal(price.Round(2)) {
		return invalid("INVALID_PRICE", "Quoted price cannot have more than 2 decimal places")
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return invalid("INVALID_PRICE", "Quoted price must be less than 10000000000")
	}
	return nil
}

// RecordQuote appends an offer to the order's negotiation ledger and makes
// it the order's current price.
//
// The first offer on an order is always recorded. After that an offer is
// recorded only when its price differs from the order's current price;
// otherwise nothing is written and recorded is false.
func (s *OrderService) RecordQuote(ctx context.Context, p Principal, orderID uint, price decimal.Decimal, notes *string, status models.QuoteStatus) (entry *models.QuoteNegotiation, recorded bool, err error) {
	if err := validatePrice(price); err != nil {
		return nil, false, err
	}
	if !status.Valid() {
		return nil, false, invalid("INVALID_QUOTE_STATUS", fmt.Sprintf("Unknown quote status %q", status))
	}
	if status == models.QuoteAccepted || status == models.QuoteRejected {
		return nil, false, invalid("INVALID_QUOTE_STATUS", fmt.Sprintf("Offers cannot be recorded as %q; accept or reject the current offer instead", status))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !p.IsAdmin() && !p.owns(order) {
			return ErrForbidden
		}
		entry, recorded, err = s.recordQuote(tx, p, order, price, notes, status)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if recorded {
		s.publish(ctx, "quote_negotiations", ActionInsert, entry.ID, orderID)
		s.publish(ctx, "orders", ActionUpdate, orderID, orderID)
	}
	return entry, recorded, nil
}

func (s *OrderService) recordQuote(tx *gorm.DB, p Principal, order *models.Order, price decimal.Decimal, notes *string, status models.QuoteStatus) (*models.QuoteNegotiation, bool, error) {
	n, err := ledgerSize(tx, order.ID)
	if err != nil {
		return nil, false, err
	}
	if n > 0 && order.QuotedPrice.Valid && order.QuotedPrice.Decimal.Equal(price) {
		return nil, false, nil
	}

	entry, err := s.appendEntry(tx, p, order, price, notes, status, nil)
	if err != nil {
		return nil, false, err
	}

	if !p.owns(order) {
		orderID := order.ID
		note := &models.Notification{
			UserID:  order.UserID,
			OrderID: &orderID,
			Type:    models.NotificationQuoteUpdated,
			Title:   fmt.Sprintf("New quote for order %s", order.OrderNumber),
			Message: fmt.Sprintf("Your order %s (%s) has been quoted at $%s.", order.OrderNumber, order.ProjectName, price.StringFixed(2)),
		}
		if err := tx.Create(note).Error; err != nil {
			return nil, false, err
		}
	}
	return entry, true, nil
}

// appendEntry inserts a ledger row and moves the order's current price to it.
// extra holds further order columns to update alongside the price.
func (s *OrderService) appendEntry(tx *gorm.DB, p Principal, order *models.Order, price decimal.Decimal, notes *string, status models.QuoteStatus, extra map[string]any) (*models.QuoteNegotiation, error) {
	entry := &models.QuoteNegotiation{
		OrderID:     order.ID,
		QuotedBy:    p.UserID,
		AuthorRole:  p.authorRoleFor(order),
		QuotedPrice: price,
		Notes:       notes,
		Status:      status,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}

	current := decimal.NewNullDecimal(price)
	updates := map[string]any{"quoted_price": current}
	for k, v := range extra {
		updates[k] = v
	}
	if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
		return nil, err
	}
	order.QuotedPrice = current
	return entry, nil
}

// AcceptOffer records an acceptance of price by p. The price must have been
// offered by the other side of the negotiation. A new "accepted" entry is
// always appended, even when an identical entry exists. A nil price accepts
// the order's current price.
func (s *OrderService) AcceptOffer(ctx context.Context, p Principal, orderID uint, price *decimal.Decimal) (*models.QuoteNegotiation, error) {
	if price != nil {
		if err := validatePrice(*price); err != nil {
			return nil, err
		}
	}

	var entry *models.QuoteNegotiation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !p.IsAdmin() && !p.owns(order) {
			return ErrForbidden
		}

		if !order.QuotedPrice.Valid {
			return ErrNoQuoteToRespond
		}
		agreed := order.QuotedPrice.Decimal
		if price != nil {
			agreed = *price
		}
		offered, err := offeredBy(tx, order.ID, p.authorRoleFor(order), agreed)
		if err != nil {
			return err
		}
		if !offered {
			return invalid("OFFER_NOT_FOUND", fmt.Sprintf("No offer of %s from the other party to accept", agreed.StringFixed(2)))
		}

		entry, err = s.appendEntry(tx, p, order, agreed, nil, models.QuoteAccepted, map[string]any{"quote_approved": true})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quote accepted", zap.Uint("order_id", orderID), zap.String("price", entry.QuotedPrice.StringFixed(2)))
	s.publish(ctx, "quote_negotiations", ActionInsert, entry.ID, orderID)
	s.publish(ctx, "orders", ActionUpdate, orderID, orderID)
	return entry, nil
}

// RejectOffer records a rejection of the order's current price
func (s *OrderService) RejectOffer(ctx context.Context, p Principal, orderID uint, notes *string) (*models.QuoteNegotiation, error) {
	var entry *models.QuoteNegotiation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !p.IsAdmin() && !p.owns(order) {
			return ErrForbidden
		}
		if !order.QuotedPrice.Valid {
			return ErrNoQuoteToRespond
		}

		entry, err = s.appendEntry(tx, p, order, order.QuotedPrice.Decimal, notes, models.QuoteRejected, map[string]any{"quote_approved": false})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "quote_negotiations", ActionInsert, entry.ID, orderID)
	s.publish(ctx, "orders", ActionUpdate, orderID, orderID)
	return entry, nil
}

// ListNegotiation returns the ledger of an order, oldest first
func (s *OrderService) ListNegotiation(ctx context.Context, p Principal, orderID uint) ([]models.QuoteNegotiation, error) {
	db := s.db.WithContext(ctx)
	order, err := findOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(db, p, order); err != nil {
		return nil, err
	}

	var entries []models.QuoteNegotiation
	err = db.Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&entries).Error
	return entries, err
}

// offeredBy reports whether someone other than authorRole offered price on the order
func offeredBy(tx *gorm.DB, orderID uint, authorRole string, price decimal.Decimal) (bool, error) {
	var offers []models.QuoteNegotiation
	err := tx.Where("order_id = ? AND author_role <> ? AND status IN ?", orderID, authorRole,
		[]string{string(models.QuotePending), string(models.QuoteCountered)}).Find(&offers).Error
	if err != nil {
		return false, err
	}
	for _, o := range offers {
		if o.QuotedPrice.Equal(price) {
			return true, nil
		}
	}
	return false, nil
}

func ledgerSize(tx *gorm.DB, orderID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.QuoteNegotiation{}).Where("order_id = ?", orderID).Count(&n).Error
	return n, err
}
