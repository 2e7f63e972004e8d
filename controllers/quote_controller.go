package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/powder-coating-api/config"
	"github.com/kendall-kelly/powder-coating-api/models"
	"github.com/kendall-kelly/powder-coating-api/services"
	"github.com/shopspring/decimal"
)

// CreateQuoteRequest is an offer or counter-offer
type CreateQuoteRequest struct {
	QuotedPrice decimal.Decimal    `json:"quoted_price"`
	Notes       *string            `json:"notes"`
	Status      models.QuoteStatus `json:"status"`
}

// RespondQuoteRequest accepts or rejects the current offer. A missing price
// accepts the order's current price.
type RespondQuoteRequest struct {
	QuotedPrice *decimal.Decimal `json:"quoted_price"`
	Notes       *string          `json:"notes"`
}

// ListQuotes handles GET /api/v1/orders/:id/quotes - the negotiation ledger
func ListQuotes(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	entries, err := services.Orders(config.GetDB()).ListNegotiation(c.Request.Context(), p, id)
	if err != nil {
		handleServiceError(c, err, "load quotes")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entries,
	})
}

// CreateQuote handles POST /api/v1/orders/:id/quotes
func CreateQuote(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}
	if req.Status == "" {
		req.Status = models.QuotePending
		if p.IsClient() {
			req.Status = models.QuoteCountered
		}
	}

	entry, recorded, err := services.Orders(config.GetDB()).RecordQuote(c.Request.Context(), p, id, req.QuotedPrice, req.Notes, req.Status)
	if err != nil {
		handleServiceError(c, err, "record quote")
		return
	}

	if !recorded {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    nil,
			"message": "Price unchanged, no new quote recorded",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    entry,
	})
}

// AcceptQuote handles POST /api/v1/orders/:id/quotes/accept
func AcceptQuote(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req RespondQuoteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, err)
			return
		}
	}

	entry, err := services.Orders(config.GetDB()).AcceptOffer(c.Request.Context(), p, id, req.QuotedPrice)
	if err != nil {
		handleServiceError(c, err, "accept quote")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    entry,
	})
}

// RejectQuote handles POST /api/v1/orders/:id/quotes/reject
func RejectQuote(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req RespondQuoteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, err)
			return
		}
	}

	entry, err := services.Orders(config.GetDB()).RejectOffer(c.Request.Context(), p, id, req.Notes)
	if err != nil {
		handleServiceError(c, err, "reject quote")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    entry,
	})
}
