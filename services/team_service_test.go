package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kendall-kelly/powder-coating-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTeamMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prov := NewMockProvisioner()
	svc := NewTeamService(f.db, prov, f.feed)

	t.Run("with account", func(t *testing.T) {
		m, err := svc.CreateTeamMember(ctx, f.as(f.admin), CreateTeamMemberInput{
			Name: "Cora Curing", Email: "Cora@Shop.test", Role: "oven operator", Department: "Curing", CreateAccount: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "cora@shop.test", m.Email)
		assert.Equal(t, models.AvailabilityAvailable, m.Availability)
		require.NotNil(t, m.UserID)

		auth0ID, ok := prov.Provisioned("cora@shop.test")
		require.True(t, ok)
		var login models.User
		require.NoError(t, f.db.First(&login, *m.UserID).Error)
		assert.Equal(t, auth0ID, login.Auth0ID)
		assert.Equal(t, models.RoleTeam, login.Role)
	})

	t.Run("provisioning failure still creates the member", func(t *testing.T) {
		prov.FailWith(errors.New("auth0 unavailable"))
		defer prov.FailWith(nil)

		m, err := svc.CreateTeamMember(ctx, f.as(f.admin), CreateTeamMemberInput{
			Name: "Pete Prep", Email: "pete@shop.test", Role: "blaster", CreateAccount: true,
		})
		require.NoError(t, err)
		assert.Nil(t, m.UserID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.CreateTeamMember(ctx, f.as(f.admin), CreateTeamMemberInput{
			Name: "Walt Again", Email: "walt@shop.test", Role: "coater",
		})
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "TEAM_MEMBER_EXISTS", ve.Code)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := svc.CreateTeamMember(ctx, f.as(f.admin), CreateTeamMemberInput{Name: "No Mail", Role: "coater"})
		assert.True(t, IsValidationError(err))
		_, err = svc.CreateTeamMember(ctx, f.as(f.admin), CreateTeamMemberInput{Email: "x@shop.test", Role: "coater"})
		assert.True(t, IsValidationError(err))
	})

	t.Run("admin only", func(t *testing.T) {
		_, err := svc.CreateTeamMember(ctx, f.as(f.worker), CreateTeamMemberInput{Name: "X", Email: "x@shop.test", Role: "coater"})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestListTeamMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewTeamService(f.db, nil, nil)

	members, err := svc.ListTeamMembers(ctx, f.as(f.admin), "")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Sam Spare", members[0].Name)

	_, err = svc.UpdateAvailability(ctx, f.as(f.admin), f.spare.ID, models.AvailabilityBusy)
	require.NoError(t, err)

	members, err = svc.ListTeamMembers(ctx, f.as(f.admin), models.AvailabilityAvailable)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, f.member.ID, members[0].ID)

	_, err = svc.ListTeamMembers(ctx, f.as(f.admin), "on-holiday")
	assert.True(t, IsValidationError(err))
	_, err = svc.ListTeamMembers(ctx, f.as(f.client), "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewTeamService(f.db, nil, nil)

	m, err := svc.UpdateAvailability(ctx, f.as(f.worker), f.member.ID, models.AvailabilityUnavailable)
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityUnavailable, m.Availability)

	_, err = svc.UpdateAvailability(ctx, f.as(f.worker), f.spare.ID, models.AvailabilityBusy)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UpdateAvailability(ctx, f.as(f.admin), 404, models.AvailabilityBusy)
	assert.ErrorIs(t, err, ErrTeamMemberNotFound)

	_, err = svc.UpdateAvailability(ctx, f.as(f.admin), f.spare.ID, "napping")
	assert.True(t, IsValidationError(err))
}
