package services

import (
	"context"
	"testing"

	"github.com/kendall-kelly/powder-coating-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordQuoteFirstEntryAlwaysWritten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)

	// a price already on the row, but no ledger yet
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("quoted_price", decimal.NewNullDecimal(decimal.NewFromInt(1200))).Error)

	entry, recorded, err := f.svc.RecordQuote(ctx, f.as(f.admin), order.ID, decimal.NewFromInt(1200), nil, models.QuotePending)
	require.NoError(t, err)
	assert.True(t, recorded)
	require.NotNil(t, entry)
	assert.EqualValues(t, 1, f.count(t, &models.QuoteNegotiation{}, "order_id = ?", order.ID))
}

func TestRecordQuoteChangeRule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)
	admin := f.as(f.admin)

	_, recorded, err := f.svc.RecordQuote(ctx, admin, order.ID, decimal.NewFromInt(900), nil, models.QuotePending)
	require.NoError(t, err)
	require.True(t, recorded)

	entry, recorded, err := f.svc.RecordQuote(ctx, admin, order.ID, decimal.RequireFromString("900.00"), nil, models.QuotePending)
	require.NoError(t, err)
	assert.False(t, recorded)
	assert.Nil(t, entry)
	assert.EqualValues(t, 1, f.count(t, &models.QuoteNegotiation{}, "order_id = ?", order.ID))

	_, recorded, err = f.svc.RecordQuote(ctx, admin, order.ID, decimal.NewFromInt(850), nil, models.QuotePending)
	require.NoError(t, err)
	assert.True(t, recorded)
	assert.EqualValues(t, 2, f.count(t, &models.QuoteNegotiation{}, "order_id = ?", order.ID))
	assert.True(t, f.reload(t, order.ID).QuotedPrice.Decimal.Equal(decimal.NewFromInt(850)))
}

func TestRecordQuoteAuthorRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)

	_, _, err := f.svc.RecordQuote(ctx, f.as(f.admin), order.ID, decimal.NewFromInt(1000), nil, models.QuotePending)
	require.NoError(t, err)

	counter := "Can you do 800?"
	_, _, err = f.svc.RecordQuote(ctx, f.as(f.client), order.ID, decimal.NewFromInt(800), &counter, models.QuoteCountered)
	require.NoError(t, err)

	entries, err := f.svc.ListNegotiation(ctx, f.as(f.client), order.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.RoleAdmin, entries[0].AuthorRole)
	assert.Equal(t, models.RoleClient, entries[1].AuthorRole)
	assert.Equal(t, models.QuoteCountered, entries[1].Status)
	assert.Equal(t, f.client.ID, entries[1].QuotedBy)

	// the client's own offer does not notify the client
	assert.EqualValues(t, 1, f.count(t, &models.Notification{}, "user_id = ?", f.client.ID))
}

func TestRecordQuoteNotificationMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)

	_, _, err := f.svc.RecordQuote(ctx, f.as(f.admin), order.ID, decimal.RequireFromString("1234.5"), nil, models.QuotePending)
	require.NoError(t, err)

	var n models.Notification
	require.NoError(t, f.db.Where("user_id = ?", f.client.ID).First(&n).Error)
	assert.Equal(t, models.NotificationQuoteUpdated, n.Type)
	assert.Contains(t, n.Message, "$1234.50")
	assert.Contains(t, n.Title, order.OrderNumber)
	require.NotNil(t, n.OrderID)
	assert.Equal(t, order.ID, *n.OrderID)
	assert.False(t, n.Read)
}

func TestRecordQuoteRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)

	_, _, err := f.svc.RecordQuote(ctx, f.as(f.admin), order.ID, decimal.NewFromInt(-5), nil, models.QuotePending)
	assert.True(t, IsValidationError(err))

	_, _, err = f.svc.RecordQuote(ctx, f.as(f.admin), order.ID, decimal.NewFromInt(5), nil, "maybe")
	assert.True(t, IsValidationError(err))

	_, _, err = f.svc.RecordQuote(ctx, f.as(f.otherClient), order.ID, decimal.NewFromInt(5), nil, models.QuotePending)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = f.svc.RecordQuote(ctx, f.as(f.worker), order.ID, decimal.NewFromInt(5), nil, models.QuotePending)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = f.svc.RecordQuote(ctx, f.as(f.admin), 777, decimal.NewFromInt(5), nil, models.QuotePending)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAcceptOfferAlwaysAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)

	price := decimal.NewFromInt(5000)
	_, _, err := f.svc.RecordQuote(ctx, f.as(f.admin), order.ID, price, nil, models.QuotePending)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		entry, err := f.svc.AcceptOffer(ctx, f.as(f.client), order.ID, &price)
		require.NoError(t, err)
		assert.Equal(t, models.QuoteAccepted, entry.Status)
		assert.Equal(t, models.RoleClient, entry.AuthorRole)
	}

	entries, err := f.svc.ListNegotiation(ctx, f.as(f.admin), order.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.QuotePending, entries[0].Status)
	assert.Equal(t, models.QuoteAccepted, entries[1].Status)
	assert.Equal(t, models.QuoteAccepted, entries[2].Status)
	for _, e := range entries {
		assert.True(t, e.QuotedPrice.Equal(price))
	}

	stored := f.reload(t, order.ID)
	require.NotNil(t, stored.QuoteApproved)
	assert.True(t, *stored.QuoteApproved)
	assert.True(t, stored.QuotedPrice.Decimal.Equal(price))
}

func TestAcceptOfferAtCounterPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)

	_, _, err := f.svc.RecordQuote(ctx, f.as(f.admin), order.ID, decimal.NewFromInt(1000), nil, models.QuotePending)
	require.NoError(t, err)
	_, _, err = f.svc.RecordQuote(ctx, f.as(f.client), order.ID, decimal.NewFromInt(900), nil, models.QuoteCountered)
	require.NoError(t, err)

	entry, err := f.svc.AcceptOffer(ctx, f.as(f.admin), order.ID, nil)
	require.NoError(t, err)
	assert.True(t, entry.QuotedPrice.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, models.RoleAdmin, entry.AuthorRole)
}

func TestAcceptOfferWithoutQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)

	_, err := f.svc.AcceptOffer(ctx, f.as(f.client), order.ID, nil)
	assert.ErrorIs(t, err, ErrNoQuoteToRespond)

	_, err = f.svc.AcceptOffer(ctx, f.as(f.otherClient), order.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRejectOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)

	_, err := f.svc.RejectOffer(ctx, f.as(f.client), order.ID, nil)
	assert.ErrorIs(t, err, ErrNoQuoteToRespond)

	_, _, err = f.svc.RecordQuote(ctx, f.as(f.admin), order.ID, decimal.NewFromInt(2500), nil, models.QuotePending)
	require.NoError(t, err)

	reason := "Too expensive"
	entry, err := f.svc.RejectOffer(ctx, f.as(f.client), order.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteRejected, entry.Status)
	assert.True(t, entry.QuotedPrice.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, reason, *entry.Notes)

	stored := f.reload(t, order.ID)
	require.NotNil(t, stored.QuoteApproved)
	assert.False(t, *stored.QuoteApproved)
	assert.EqualValues(t, 2, f.count(t, &models.QuoteNegotiation{}, "order_id = ?", order.ID))
}

func TestListNegotiationVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)

	_, err := f.svc.ListNegotiation(ctx, f.as(f.otherClient), order.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	entries, err := f.svc.ListNegotiation(ctx, f.as(f.client), order.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidatePrice(t *testing.T) {
	tests := []struct {
		price string
		ok    bool
	}{
		{"0.01", true},
		{"450", true},
		{"1234.50", true},
		{"9999999999.99", true},
		{"0", false},
		{"-1", false},
		{"0.004", false},
		{"19.999", false},
		{"10000000000", false},
		{"12345678901234.5", false},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			err := validatePrice(decimal.RequireFromString(tt.price))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "INVALID_PRICE", ve.Code)
		})
	}
}

func TestRecordQuoteRejectsUnstorablePrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)

	for _, price := range []string{"0.004", "12345678901234.5"} {
		_, recorded, err := f.svc.RecordQuote(ctx, f.as(f.admin), order.ID, decimal.RequireFromString(price), nil, models.QuotePending)
		assert.True(t, IsValidationError(err), price)
		assert.False(t, recorded)
	}
	assert.Zero(t, f.count(t, &models.QuoteNegotiation{}, "order_id = ?", order.ID))
	assert.False(t, f.reload(t, order.ID).QuotedPrice.Valid)
}

func TestRecordQuoteRefusesResponseStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)

	_, _, err := f.svc.RecordQuote(ctx, f.as(f.admin), order.ID, decimal.NewFromInt(5000), nil, models.QuotePending)
	require.NoError(t, err)

	for _, status := range []models.QuoteStatus{models.QuoteAccepted, models.QuoteRejected} {
		_, recorded, err := f.svc.RecordQuote(ctx, f.as(f.client), order.ID, decimal.RequireFromString("0.50"), nil, status)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, status)
		assert.Equal(t, "INVALID_QUOTE_STATUS", ve.Code)
		assert.False(t, recorded)
	}

	stored := f.reload(t, order.ID)
	assert.True(t, stored.QuotedPrice.Decimal.Equal(decimal.NewFromInt(5000)))
	assert.Nil(t, stored.QuoteApproved)
	assert.EqualValues(t, 1, f.count(t, &models.QuoteNegotiation{}, "order_id = ?", order.ID))
}

func TestAcceptOfferRequiresCounterpartyOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.newOrder(t)

	_, _, err := f.svc.RecordQuote(ctx, f.as(f.admin), order.ID, decimal.NewFromInt(5000), nil, models.QuotePending)
	require.NoError(t, err)

	t.Run("price nobody offered", func(t *testing.T) {
		lowball := decimal.NewFromInt(1)
		_, err := f.svc.AcceptOffer(ctx, f.as(f.client), order.ID, &lowball)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "OFFER_NOT_FOUND", ve.Code)
	})

	t.Run("own offer", func(t *testing.T) {
		_, err := f.svc.AcceptOffer(ctx, f.as(f.admin), order.ID, nil)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "OFFER_NOT_FOUND", ve.Code)
	})

	stored := f.reload(t, order.ID)
	assert.True(t, stored.QuotedPrice.Decimal.Equal(decimal.NewFromInt(5000)))
	assert.Nil(t, stored.QuoteApproved)
	assert.EqualValues(t, 1, f.count(t, &models.QuoteNegotiation{}, "order_id = ?", order.ID))

	t.Run("earlier offer after a counter", func(t *testing.T) {
		_, _, err := f.svc.RecordQuote(ctx, f.as(f.client), order.ID, decimal.NewFromInt(4000), nil, models.QuoteCountered)
		require.NoError(t, err)

		earlier := decimal.RequireFromString("5000.00")
		entry, err := f.svc.AcceptOffer(ctx, f.as(f.client), order.ID, &earlier)
		require.NoError(t, err)
		assert.True(t, entry.QuotedPrice.Equal(earlier))
		assert.True(t, f.reload(t, order.ID).QuotedPrice.Decimal.Equal(earlier))
	})
}
