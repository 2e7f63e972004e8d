package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/powder-coating-api/config"
	"github.com/kendall-kelly/powder-coating-api/services"
)

// CreateTeamMember handles POST /api/v1/team-members (admins only)
func CreateTeamMember(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req services.CreateTeamMemberInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	member, err := services.Team(config.GetDB()).CreateTeamMember(c.Request.Context(), p, req)
	if err != nil {
		handleServiceError(c, err, "create team member")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    member,
	})
}

// ListTeamMembers handles GET /api/v1/team-members?availability=
func ListTeamMembers(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	members, err := services.Team(config.GetDB()).ListTeamMembers(c.Request.Context(), p, c.Query("availability"))
	if err != nil {
		handleServiceError(c, err, "list team members")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    members,
	})
}

// UpdateAvailabilityRequest represents the request body for an availability change
type UpdateAvailabilityRequest struct {
	Availability string `json:"availability" binding:"required"`
}

// UpdateTeamMemberAvailability handles PATCH /api/v1/team-members/:id/availability
func UpdateTeamMemberAvailability(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	member, err := services.Team(config.GetDB()).UpdateAvailability(c.Request.Context(), p, id, req.Availability)
	if err != nil {
		handleServiceError(c, err, "update availability")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    member,
	})
}

// SetAssignmentsRequest lists the full set of members to assign
type SetAssignmentsRequest struct {
	TeamMemberIDs []uint `json:"team_member_ids"`
}

// SetOrderAssignments handles PUT /api/v1/orders/:id/assignments (admins only)
func SetOrderAssignments(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req SetAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	assignments, err := services.Orders(config.GetDB()).SetAssignments(c.Request.Context(), p, id, req.TeamMemberIDs)
	if err != nil {
		handleServiceError(c, err, "update assignments")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    assignments,
	})
}
