package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDuels(t *testing.T) *DuelManager {
	t.Helper()
	ledger, _ := newTestLedger(t)
	return NewDuelManager(ledger)
}

func TestDuelChallengeEscrowsStake(t *testing.T) {
	m := newTestDuels(t)
	ctx := context.Background()
	seedBalance(t, m.L, "alice", 500)

	challenge, err := m.Challenge(ctx, "alice", "bob", 200)
	require.NoError(t, err)
	assert.Equal(t, int64(200), challenge.Stake)
	assert.Equal(t, int64(300), m.L.Balance(ctx, "alice"))

	pending, ok := m.Pending(ctx, "bob")
	require.True(t, ok)
	assert.Equal(t, challenge.ID, pending.ID)
}

func TestDuelChallengeRejectsSelfAndBrokeChallenger(t *testing.T) {
	m := newTestDuels(t)
	ctx := context.Background()
	seedBalance(t, m.L, "alice", 100)

	_, err := m.Challenge(ctx, "alice", "alice", 50)
	assert.Error(t, err)

	_, err = m.Challenge(ctx, "alice", "bob", 500)
	assert.Error(t, err)
	assert.Equal(t, int64(100), m.L.Balance(ctx, "alice"))
}

func TestDuelTargetHoldsOnePendingDuel(t *testing.T) {
	m := newTestDuels(t)
	ctx := context.Background()
	seedBalance(t, m.L, "alice", 500)
	seedBalance(t, m.L, "carol", 500)

	_, err := m.Challenge(ctx, "alice", "bob", 100)
	require.NoError(t, err)

	_, err = m.Challenge(ctx, "carol", "bob", 100)
	assert.Error(t, err)
	assert.Equal(t, int64(500), m.L.Balance(ctx, "carol"))
}

func TestDuelDeclineRefundsChallenger(t *testing.T) {
	m := newTestDuels(t)
	ctx := context.Background()
	seedBalance(t, m.L, "alice", 500)

	_, err := m.Challenge(ctx, "alice", "bob", 200)
	require.NoError(t, err)

	_, err = m.Decline(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(500), m.L.Balance(ctx, "alice"))

	_, ok := m.Pending(ctx, "bob")
	assert.False(t, ok)
}

func TestDuelAcceptSettlesPot(t *testing.T) {
	m := newTestDuels(t)
	ctx := context.Background()
	seedBalance(t, m.L, "alice", 500)
	seedBalance(t, m.L, "bob", 500)

	_, err := m.Challenge(ctx, "alice", "bob", 200)
	require.NoError(t, err)

	result, err := m.Accept(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(400+DuelWinBonus), result.Pot)

	winner := m.L.Balance(ctx, result.Winner)
	loser := m.L.Balance(ctx, result.Loser)
	assert.Equal(t, int64(700+DuelWinBonus), winner)
	assert.Equal(t, int64(300), loser)
	// The bonus came out of the bank.
	assert.Equal(t, int64(-DuelWinBonus), m.L.Balance(ctx, BankAccountID))
}

func TestDuelAcceptBrokeTargetRefunds(t *testing.T) {
	m := newTestDuels(t)
	ctx := context.Background()
	seedBalance(t, m.L, "alice", 500)
	seedBalance(t, m.L, "bob", 50)

	_, err := m.Challenge(ctx, "alice", "bob", 200)
	require.NoError(t, err)

	_, err = m.Accept(ctx, "bob")
	assert.Error(t, err)
	assert.Equal(t, int64(500), m.L.Balance(ctx, "alice"))
	assert.Equal(t, int64(50), m.L.Balance(ctx, "bob"))
}

func TestDuelExpiryRefundsAndIsIdempotent(t *testing.T) {
	m := newTestDuels(t)
	ctx := context.Background()
	seedBalance(t, m.L, "alice", 500)

	_, err := m.Challenge(ctx, "alice", "bob", 200)
	require.NoError(t, err)

	m.ExpireNow("bob")
	assert.Equal(t, int64(500), m.L.Balance(ctx, "alice"))
	_, ok := m.Pending(ctx, "bob")
	assert.False(t, ok)

	// A second firing finds no payload and must not refund again.
	m.ExpireNow("bob")
	assert.Equal(t, int64(500), m.L.Balance(ctx, "alice"))
}

func TestDuelWakeupAfterAcceptDoesNotRefund(t *testing.T) {
	m := newTestDuels(t)
	ctx := context.Background()
	seedBalance(t, m.L, "alice", 500)
	seedBalance(t, m.L, "bob", 500)

	_, err := m.Challenge(ctx, "alice", "bob", 200)
	require.NoError(t, err)

	result, err := m.Accept(ctx, "bob")
	require.NoError(t, err)

	// A stale wake-up firing after settlement must not refund the
	// challenger on top of the payout.
	winner := m.L.Balance(ctx, result.Winner)
	loser := m.L.Balance(ctx, result.Loser)
	m.ExpireNow("bob")
	assert.Equal(t, winner, m.L.Balance(ctx, result.Winner))
	assert.Equal(t, loser, m.L.Balance(ctx, result.Loser))
}

func TestDuelAcceptAfterExpiryFails(t *testing.T) {
	m := newTestDuels(t)
	ctx := context.Background()
	seedBalance(t, m.L, "alice", 500)
	seedBalance(t, m.L, "bob", 500)

	_, err := m.Challenge(ctx, "alice", "bob", 200)
	require.NoError(t, err)

	m.ExpireNow("bob")
	_, err = m.Accept(ctx, "bob")
	assert.Error(t, err)
	assert.Equal(t, int64(500), m.L.Balance(ctx, "bob"))
}
