package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/powder-coating-api/config"
	"github.com/kendall-kelly/powder-coating-api/models"
	"github.com/kendall-kelly/powder-coating-api/services"
	"github.com/shopspring/decimal"
)

// CreateOrder handles POST /api/v1/orders - submits a new order (clients only)
func CreateOrder(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := services.Orders(config.GetDB()).CreateOrder(c.Request.Context(), p, req)
	if err != nil {
		handleServiceError(c, err, "create order")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - lists the orders visible to the caller
func ListOrders(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	listOrders(c, p)
}

// ListMyAssignments handles GET /api/v1/team/assignments - a team member's work queue
func ListMyAssignments(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	if !p.IsTeam() {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "Only team members have assignments")
		return
	}
	listOrders(c, p)
}

func listOrders(c *gin.Context, p services.Principal) {
	filter := services.ListFilter{}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))

	if s := c.Query("status"); s != "" {
		status := models.OrderStatus(s)
		if !status.Valid() {
			respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown status "+s)
			return
		}
		filter.Status = &status
	}
	if s := c.Query("priority"); s != "" {
		priority := models.Priority(s)
		if !priority.Valid() {
			respondError(c, http.StatusBadRequest, "INVALID_PRIORITY", "Unknown priority "+s)
			return
		}
		filter.Priority = &priority
	}
	filter.Normalize()

	orders, total, err := services.Orders(config.GetDB()).ListOrders(c.Request.Context(), p, filter)
	if err != nil {
		handleServiceError(c, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       orders,
		"pagination": pagination(filter.Page, filter.Limit, total),
	})
}

// GetOrder handles GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := services.Orders(config.GetDB()).GetOrder(c.Request.Context(), p, id)
	if err != nil {
		handleServiceError(c, err, "load order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderRequest is the admin order-detail form. Omitted fields are left alone.
type UpdateOrderRequest struct {
	Status              *models.OrderStatus `json:"status"`
	StatusNotes         *string             `json:"status_notes"`
	Priority            *models.Priority    `json:"priority"`
	QuotedPrice         *decimal.Decimal    `json:"quoted_price"`
	QuoteNotes          *string             `json:"quote_notes"`
	AdminNotes          *string             `json:"admin_notes"`
	EstimatedCompletion *time.Time          `json:"estimated_completion"`
	Progress            *int                `json:"progress"`
	TeamMemberIDs       *[]uint             `json:"team_member_ids"`
}

// UpdateOrder handles PUT /api/v1/orders/:id - the admin save
func UpdateOrder(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	res, err := services.Orders(config.GetDB()).AdminUpdate(c.Request.Context(), p, id, services.AdminUpdateInput{
		Status:              req.Status,
		StatusNotes:         req.StatusNotes,
		Priority:            req.Priority,
		QuotedPrice:         req.QuotedPrice,
		QuoteNotes:          req.QuoteNotes,
		AdminNotes:          req.AdminNotes,
		EstimatedCompletion: req.EstimatedCompletion,
		Progress:            req.Progress,
		TeamMemberIDs:       req.TeamMemberIDs,
	})
	if err != nil {
		handleServiceError(c, err, "update order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    res.Order,
		"meta": gin.H{
			"quote_recorded": res.QuoteRecorded,
			"status_changed": res.StatusChanged,
		},
	})
}

// UpdateStatusRequest represents the request body for a status change
type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Notes  *string            `json:"notes"`
}

// UpdateOrderStatus handles PUT /api/v1/orders/:id/status
func UpdateOrderStatus(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := services.Orders(config.GetDB()).SetStatus(c.Request.Context(), p, id, req.Status, req.Notes)
	if err != nil {
		handleServiceError(c, err, "update order status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// GetOrderHistory handles GET /api/v1/orders/:id/history
func GetOrderHistory(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	history, err := services.Orders(config.GetDB()).ListStatusHistory(c.Request.Context(), p, id)
	if err != nil {
		handleServiceError(c, err, "load order history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    history,
	})
}
