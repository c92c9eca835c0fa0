package booking

import (
	"context"
	"testing"

	"casaverde/models"
	"casaverde/services/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPendingIntent(t *testing.T, env *testEnv, intentStatus string, mutate func(*models.Booking)) {
	t.Helper()
	seedBooking(t, env, func(b *models.Booking) {
		b.StripePaymentIntentID = "pi_live"
		if mutate != nil {
			mutate(b)
		}
	})
	env.gateway.intentStatuses["pi_live"] = intentStatus
}

func TestReconcileAdvancesSucceededToPaid(t *testing.T) {
	env := newTestEnv()
	seedPendingIntent(t, env, gateway.IntentSucceeded, nil)

	results, err := env.svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, results[0].Drift)
	assert.Equal(t, models.StatusPending, results[0].OldStatus)
	assert.Equal(t, models.StatusPaid, results[0].NewStatus)
	assert.Equal(t, gateway.IntentSucceeded, results[0].GatewayStatus)

	stored, _ := env.repo.GetByID(context.Background(), "bk-1")
	assert.Equal(t, models.StatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
}

func TestReconcileConverges(t *testing.T) {
	env := newTestEnv()
	seedPendingIntent(t, env, gateway.IntentSucceeded, nil)

	_, err := env.svc.Reconcile(context.Background())
	require.NoError(t, err)
	writesAfterFirst := env.repo.updateCalls

	// A second pass finds no pending intent and writes nothing.
	results, err := env.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, writesAfterFirst, env.repo.updateCalls)
}

func TestReconcileAdvancesCanceledToCancelled(t *testing.T) {
	env := newTestEnv()
	seedPendingIntent(t, env, gateway.IntentCanceled, nil)

	results, err := env.svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Drift)

	stored, _ := env.repo.GetByID(context.Background(), "bk-1")
	assert.Equal(t, models.StatusCancelled, stored.Status)
}

func TestReconcileFailsOnlyPastChargeDate(t *testing.T) {
	t.Run("charge date passed", func(t *testing.T) {
		env := newTestEnv()
		seedPendingIntent(t, env, gateway.IntentRequiresPaymentMethod, func(b *models.Booking) {
			past := testNow.AddDate(0, 0, -2)
			b.ChargeDate = &past
		})

		results, err := env.svc.Reconcile(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.True(t, results[0].Drift)

		stored, _ := env.repo.GetByID(context.Background(), "bk-1")
		assert.Equal(t, models.StatusFailed, stored.Status)
	})

	t.Run("charge date still ahead", func(t *testing.T) {
		env := newTestEnv()
		seedPendingIntent(t, env, gateway.IntentRequiresPaymentMethod, nil)

		results, err := env.svc.Reconcile(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.False(t, results[0].Drift)

		stored, _ := env.repo.GetByID(context.Background(), "bk-1")
		assert.Equal(t, models.StatusPending, stored.Status)
	})
}

func TestReconcileReportsProcessingAsNoDrift(t *testing.T) {
	env := newTestEnv()
	seedPendingIntent(t, env, gateway.IntentProcessing, nil)

	results, err := env.svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Drift)
	assert.Equal(t, results[0].OldStatus, results[0].NewStatus)
}

func TestReconcileNeverCharges(t *testing.T) {
	env := newTestEnv()
	seedPendingIntent(t, env, gateway.IntentSucceeded, nil)

	_, err := env.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, env.gateway.chargeCalls)
	assert.Zero(t, env.gateway.captureCalls)
}
