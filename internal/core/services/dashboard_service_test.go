package services

import (
	"context"
	"testing"

	"foodlink/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	urgent := env.createDonation(t, 1)
	env.createDonation(t, 10)
	claimed := env.createDonation(t, 3)
	claim := env.claimDonation(t, claimed.ID)
	done := env.createDonation(t, 3)
	doneClaim := env.claimDonation(t, done.ID)
	_, err := env.claims.Complete(ctx, env.ngo.Actor(), doneClaim.ID, "")
	require.NoError(t, err)

	t.Run("donor", func(t *testing.T) {
		data, err := env.dashboard.GetDonorDashboard(ctx, env.donor.Actor())
		require.NoError(t, err)

		assert.EqualValues(t, 4, data.TotalDonations)
		assert.EqualValues(t, 2, data.AvailableDonations)
		assert.EqualValues(t, 1, data.ClaimedDonations)
		assert.EqualValues(t, 1, data.CompletedDonations)
		assert.Zero(t, data.ExpiredDonations)
		assert.Len(t, data.RecentDonations, 4)

		_, err = env.dashboard.GetDonorDashboard(ctx, env.ngo.Actor())
		assert.ErrorIs(t, err, domain.ErrRoleForbidden)
	})

	t.Run("ngo", func(t *testing.T) {
		data, err := env.dashboard.GetNGODashboard(ctx, env.ngo.Actor())
		require.NoError(t, err)

		assert.EqualValues(t, 2, data.TotalClaims)
		assert.EqualValues(t, 1, data.ActiveClaims)
		assert.EqualValues(t, 1, data.CompletedClaims)
		assert.EqualValues(t, 2, data.AvailableNearby)
		require.Len(t, data.RecentClaims, 2)
		require.Len(t, data.UrgentDonations, 1)
		assert.Equal(t, urgent.ID, data.UrgentDonations[0].ID)
		assert.True(t, data.UrgentDonations[0].IsUrgent)

		_, err = env.claims.Cancel(ctx, env.ngo.Actor(), claim.ID, "")
		require.NoError(t, err)
		data, err = env.dashboard.GetNGODashboard(ctx, env.ngo.Actor())
		require.NoError(t, err)
		assert.Zero(t, data.ActiveClaims)
		assert.EqualValues(t, 3, data.AvailableNearby)

		other, err := env.dashboard.GetNGODashboard(ctx, env.otherNGO.Actor())
		require.NoError(t, err)
		assert.Zero(t, other.TotalClaims)
		assert.Zero(t, other.AvailableNearby)

		_, err = env.dashboard.GetNGODashboard(ctx, env.donor.Actor())
		assert.ErrorIs(t, err, domain.ErrRoleForbidden)
	})

	t.Run("site stats", func(t *testing.T) {
		stats, err := env.dashboard.GetSiteStats(ctx)
		require.NoError(t, err)

		assert.EqualValues(t, 4, stats.TotalDonations)
		assert.EqualValues(t, 3, stats.AvailableDonations)
		assert.EqualValues(t, 1, stats.CompletedDonations)
		assert.EqualValues(t, 2, stats.TotalClaims)
		assert.EqualValues(t, 1, stats.CompletedClaims)
		assert.EqualValues(t, 1, stats.ActiveDonors)
		assert.EqualValues(t, 2, stats.ActiveNGOs)
	})
}
