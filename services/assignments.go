package services

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/powder-coating-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetAssignments replaces the team members assigned to an order with ids.
// Members already assigned keep their assignment row.
func (s *OrderService) SetAssignments(ctx context.Context, p Principal, orderID uint, ids []uint) ([]models.OrderTeamAssignment, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	ids = dedupe(ids)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findOrder(tx, orderID); err != nil {
			return err
		}
		if err := checkMembersExist(tx, ids); err != nil {
			return err
		}
		return replaceAssignments(tx, orderID, ids)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("assignments replaced", zap.Uint("order_id", orderID), zap.Int("members", len(ids)))
	s.publish(ctx, "order_team_assignments", ActionUpdate, 0, orderID)

	var out []models.OrderTeamAssignment
	err = s.db.WithContext(ctx).Preload("TeamMember").
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// replaceAssignments deletes the assignments not in ids and inserts the missing ones
func replaceAssignments(tx *gorm.DB, orderID uint, ids []uint) error {
	var current []models.OrderTeamAssignment
	if err := tx.Where("order_id = ?", orderID).Find(&current).Error; err != nil {
		return err
	}

	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	have := make(map[uint]bool, len(current))
	var stale []uint
	for _, a := range current {
		have[a.TeamMemberID] = true
		if !want[a.TeamMemberID] {
			stale = append(stale, a.ID)
		}
	}

	if len(stale) > 0 {
		if err := tx.Where("id IN ?", stale).Delete(&models.OrderTeamAssignment{}).Error; err != nil {
			return err
		}
	}

	var added []models.OrderTeamAssignment
	for _, id := range ids {
		if !have[id] {
			added = append(added, models.OrderTeamAssignment{OrderID: orderID, TeamMemberID: id})
		}
	}
	if len(added) > 0 {
		if err := tx.Omit("TeamMember").Create(&added).Error; err != nil {
			return err
		}
	}
	return nil
}

func checkMembersExist(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var n int64
	if err := tx.Model(&models.TeamMember{}).Where("id IN ?", ids).Count(&n).Error; err != nil {
		return err
	}
	if int(n) != len(ids) {
		return invalid("TEAM_MEMBER_NOT_FOUND", fmt.Sprintf("%d of %d team members do not exist", len(ids)-int(n), len(ids)))
	}
	return nil
}

// dedupe drops repeated ids, keeping first-seen order
func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
