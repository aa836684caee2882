package services

import (
	"context"
	"math/rand"
	"testing"

	"payouts/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceOfUnknownProviderIsZero(t *testing.T) {
	env := newTestEnv(t)
	s := env.summary(t, 99)
	assert.Equal(t, BalanceSummary{ProviderID: 99}, s)
}

func TestBalanceIdentityAcrossRandomHistory(t *testing.T) {
	env := newTestEnv(t)
	rng := rand.New(rand.NewSource(42))
	providers := []uint{1, 2, 3}

	for step := 0; step < 60; step++ {
		p := providers[rng.Intn(len(providers))]
		switch rng.Intn(3) {
		case 0, 1:
			env.earn(t, p, int64(1+rng.Intn(5000)))
		case 2:
			available, err := env.ledger.ListEarnings(context.Background(), p, EarningFilter{OnlyAvailable: true})
			require.NoError(t, err)
			if len(available) == 0 {
				continue
			}
			// whole earnings only; may hit reserved ones and fail, which is fine
			req, err := env.workflow.CreateRequest(context.Background(), pixInput(p, available[0].ProviderAmount))
			if err != nil {
				continue
			}
			decision := models.WithdrawalStatusApproved
			if rng.Intn(2) == 0 {
				decision = models.WithdrawalStatusRejected
			}
			_, err = env.workflow.Resolve(context.Background(), req.ID, decision, 1, "random")
			require.NoError(t, err)
		}

		for _, id := range providers {
			total, err := env.balance.TotalEarnings(env.db, id)
			require.NoError(t, err)
			withdrawn, err := env.balance.WithdrawnAmount(env.db, id)
			require.NoError(t, err)
			available, err := env.balance.AvailableBalance(env.db, id)
			require.NoError(t, err)
			direct, err := env.balance.UnwithdrawnSum(env.db, id)
			require.NoError(t, err)

			assert.Equal(t, total-withdrawn, available)
			assert.Equal(t, direct, available)
			assert.GreaterOrEqual(t, available, int64(0))
		}
	}
}

func TestBalanceSummaryCountsPendingAsReserved(t *testing.T) {
	env := newTestEnv(t)
	env.earn(t, 1, 1000)
	env.earn(t, 1, 500)
	_, err := env.workflow.CreateRequest(context.Background(), pixInput(1, 1000))
	require.NoError(t, err)

	s := env.summary(t, 1)
	assert.Equal(t, int64(1500), s.TotalEarnings)
	assert.Equal(t, int64(0), s.WithdrawnAmount)
	assert.Equal(t, int64(1500), s.AvailableBalance)
	assert.Equal(t, int64(1000), s.ReservedAmount)
	assert.Equal(t, int64(500), s.WithdrawableBalance)
}
