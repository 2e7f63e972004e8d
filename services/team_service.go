package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kendall-kelly/powder-coating-api/logger"
	"github.com/kendall-kelly/powder-coating-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TeamService manages shop-floor team members
type TeamService struct {
	db          *gorm.DB
	provisioner AccountProvisioner
	feed        ChangeFeed
	log         *zap.Logger
}

// NewTeamService wires a TeamService. provisioner and feed may be nil.
func NewTeamService(db *gorm.DB, provisioner AccountProvisioner, feed ChangeFeed) *TeamService {
	return &TeamService{db: db, provisioner: provisioner, feed: feed, log: logger.L()}
}

// CreateTeamMemberInput is the admin form for a new member
type CreateTeamMemberInput struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Role          string `json:"role" validate:"required"`
	Department    string `json:"department"`
	CreateAccount bool   `json:"create_account"`
}

var createTeamMemberRules = fieldRules{
	"Name":  {"MISSING_NAME", "Name is required"},
	"Email": {"INVALID_EMAIL", "A valid email is required"},
	"Role":  {"MISSING_ROLE", "Role is required"},
}

func (in CreateTeamMemberInput) trimmed() CreateTeamMemberInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.TrimSpace(in.Role)
	in.Department = strings.TrimSpace(in.Department)
	return in
}

// CreateTeamMember adds a team member. When an account is requested it is
// provisioned first; a provisioning failure is logged and the member is
// still created, without a login.
func (s *TeamService) CreateTeamMember(ctx context.Context, p Principal, in CreateTeamMemberInput) (*models.TeamMember, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	in = in.trimmed()
	if err := checkStruct(in, createTeamMemberRules); err != nil {
		return nil, err
	}

	member := &models.TeamMember{
		Name:         in.Name,
		Email:        in.Email,
		Role:         in.Role,
		Department:   in.Department,
		Availability: models.AvailabilityAvailable,
	}

	var auth0ID string
	if in.CreateAccount && s.provisioner != nil {
		id, err := s.provisioner.ProvisionAccount(ctx, member.Email, member.Name)
		if err != nil {
			s.log.Warn("team member account provisioning failed", zap.String("email", member.Email), zap.Error(err))
		} else {
			auth0ID = id
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if auth0ID != "" {
			user := &models.User{Auth0ID: auth0ID, Name: member.Name, Email: member.Email, Role: models.RoleTeam}
			if err := tx.Create(user).Error; err != nil {
				return fmt.Errorf("create team login: %w", err)
			}
			member.UserID = &user.ID
		}
		return tx.Create(member).Error
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, invalid("TEAM_MEMBER_EXISTS", "A team member with this email already exists")
		}
		return nil, err
	}

	s.publish(ctx, ActionInsert, member.ID)
	return member, nil
}

// ListTeamMembers returns members ordered by name, optionally filtered by availability
func (s *TeamService) ListTeamMembers(ctx context.Context, p Principal, availability string) ([]models.TeamMember, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	q := s.db.WithContext(ctx).Order("name ASC")
	if availability != "" {
		if !models.IsValidAvailability(availability) {
			return nil, invalid("INVALID_AVAILABILITY", fmt.Sprintf("Unknown availability %q", availability))
		}
		q = q.Where("availability = ?", availability)
	}
	var members []models.TeamMember
	return members, q.Find(&members).Error
}

// UpdateAvailability sets a member's availability. Admins may update anyone,
// team members only themselves.
func (s *TeamService) UpdateAvailability(ctx context.Context, p Principal, memberID uint, availability string) (*models.TeamMember, error) {
	if !models.IsValidAvailability(availability) {
		return nil, invalid("INVALID_AVAILABILITY", fmt.Sprintf("Unknown availability %q", availability))
	}

	db := s.db.WithContext(ctx)
	var member models.TeamMember
	if err := db.First(&member, memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamMemberNotFound
		}
		return nil, err
	}

	self := member.UserID != nil && *member.UserID == p.UserID
	if !p.IsAdmin() && !self {
		return nil, ErrForbidden
	}

	if err := db.Model(&member).Update("availability", availability).Error; err != nil {
		return nil, err
	}
	member.Availability = availability
	s.publish(ctx, ActionUpdate, member.ID)
	return &member, nil
}

func (s *TeamService) publish(ctx context.Context, action string, id uint) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, ChangeEvent{Table: "team_members", Action: action, ID: id, At: time.Now()}); err != nil {
		s.log.Warn("publish change event failed", zap.String("table", "team_members"), zap.Error(err))
	}
}

