package utils

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DuelChallenge is the persisted payload of one pending duel. The challenge
// escrows the challenger's stake until it is accepted, declined, or expires.
type DuelChallenge struct {
	ID         string    `json:"id"`
	Challenger string    `json:"challenger"`
	Target     string    `json:"target"`
	Stake      int64     `json:"stake"`
	CreatedAt  time.Time `json:"created_at"`
}

// DuelResult is the settled outcome of an accepted duel.
type DuelResult struct {
	Winner string
	Loser  string
	Pot    int64
}

// DuelManager is the scheduling actor for the bonus duel side-feature. Each
// pending duel schedules exactly one future wake-up; accept and decline
// cancel it. The wake-up handler is idempotent (a missing payload is a
// no-op) and clears its own state on every exit path.
type DuelManager struct {
	L      *Ledger
	Window time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer

	// resolveMu serializes duel resolution. Stopping a timer does not wait
	// for a callback already running, so take and wakeup must not interleave
	// between reading the payload and settling it.
	resolveMu sync.Mutex
}

func NewDuelManager(l *Ledger) *DuelManager {
	return &DuelManager{
		L:      l,
		Window: DuelAcceptWindow,
		timers: make(map[string]*time.Timer),
	}
}

func duelKey(target string) string {
	return "duel:" + target
}

// Challenge escrows the stake and schedules the expiry wake-up. A target can
// only hold one pending duel at a time.
func (m *DuelManager) Challenge(ctx context.Context, challenger, target string, stake int64) (*DuelChallenge, error) {
	if challenger == target {
		return nil, fmt.Errorf("you cannot duel yourself")
	}
	if stake <= 0 {
		return nil, fmt.Errorf("duel stake must be positive")
	}

	key := duelKey(target)
	if _, err := m.L.Store.Get(ctx, key); err == nil {
		return nil, fmt.Errorf("that player already has a pending duel")
	}

	if m.L.Balance(ctx, challenger) < stake {
		return nil, fmt.Errorf("you don't have %s %s to stake", FormatChips(stake), ChipsEmoji)
	}
	m.L.AdjustBalance(ctx, challenger, -stake)

	challenge := &DuelChallenge{
		ID:         uuid.NewString(),
		Challenger: challenger,
		Target:     target,
		Stake:      stake,
		CreatedAt:  time.Now(),
	}
	if err := WriteDoc(ctx, m.L, key, challenge, PutOptions{TTL: m.Window + time.Minute}); err != nil {
		m.L.AdjustBalance(ctx, challenger, stake)
		return nil, fmt.Errorf("failed to create the duel, stake refunded")
	}

	m.scheduleTimeout(key)
	return challenge, nil
}

// Accept cancels the wake-up, settles both stakes, and pays the winner the
// pot plus the duel bonus from the bank.
func (m *DuelManager) Accept(ctx context.Context, target string) (*DuelResult, error) {
	challenge, err := m.take(ctx, target)
	if err != nil {
		return nil, err
	}

	if m.L.Balance(ctx, target) < challenge.Stake {
		// Target cannot cover the stake; treat as a decline.
		m.L.AdjustBalance(ctx, challenge.Challenger, challenge.Stake)
		return nil, fmt.Errorf("you can't cover the %s %s stake", FormatChips(challenge.Stake), ChipsEmoji)
	}
	m.L.AdjustBalance(ctx, target, -challenge.Stake)

	winner, loser := challenge.Challenger, target
	if flip, err := crand.Int(crand.Reader, big.NewInt(2)); err == nil && flip.Int64() == 1 {
		winner, loser = target, challenge.Challenger
	}

	pot := challenge.Stake*2 + DuelWinBonus
	m.L.AdjustBalance(ctx, winner, pot)
	m.L.AdjustBank(ctx, -DuelWinBonus)

	return &DuelResult{Winner: winner, Loser: loser, Pot: pot}, nil
}

// Decline cancels the wake-up and refunds the challenger.
func (m *DuelManager) Decline(ctx context.Context, target string) (*DuelChallenge, error) {
	challenge, err := m.take(ctx, target)
	if err != nil {
		return nil, err
	}
	m.L.AdjustBalance(ctx, challenge.Challenger, challenge.Stake)
	return challenge, nil
}

// Pending returns the duel waiting on the target, if any.
func (m *DuelManager) Pending(ctx context.Context, target string) (*DuelChallenge, bool) {
	challenge := ReadDoc(ctx, m.L, duelKey(target), func() DuelChallenge { return DuelChallenge{} })
	if challenge.ID == "" {
		return nil, false
	}
	return &challenge, true
}

// take removes the pending duel and cancels its wake-up. Resolution is
// serialized with wakeup: whichever reads the payload first owns it.
func (m *DuelManager) take(ctx context.Context, target string) (*DuelChallenge, error) {
	m.resolveMu.Lock()
	defer m.resolveMu.Unlock()

	key := duelKey(target)
	challenge := ReadDoc(ctx, m.L, key, func() DuelChallenge { return DuelChallenge{} })
	if challenge.ID == "" {
		return nil, fmt.Errorf("no pending duel")
	}

	if err := m.L.Store.Delete(ctx, key); err != nil {
		m.L.Log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("failed to clear duel state")
	}
	m.cancelTimeout(key)
	return &challenge, nil
}

func (m *DuelManager) scheduleTimeout(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if timer, ok := m.timers[key]; ok {
		timer.Stop()
	}
	m.timers[key] = time.AfterFunc(m.Window, func() { m.wakeup(key) })
}

func (m *DuelManager) cancelTimeout(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if timer, ok := m.timers[key]; ok {
		timer.Stop()
		delete(m.timers, key)
	}
}

// wakeup expires a pending duel. It tolerates firing after the duel has
// already been resolved and clears its own state on every exit path. The
// refund only happens while holding resolveMu with the payload still
// present, so a concurrent take cannot settle the same duel twice.
func (m *DuelManager) wakeup(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	defer func() {
		m.mu.Lock()
		delete(m.timers, key)
		m.mu.Unlock()
	}()

	m.resolveMu.Lock()
	defer m.resolveMu.Unlock()

	challenge := ReadDoc(ctx, m.L, key, func() DuelChallenge { return DuelChallenge{} })
	if challenge.ID == "" {
		return
	}

	if err := m.L.Store.Delete(ctx, key); err != nil {
		m.L.Log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("failed to clear expired duel")
	}
	m.L.AdjustBalance(ctx, challenge.Challenger, challenge.Stake)
	m.L.Log.WithFields(logrus.Fields{
		"challenger": challenge.Challenger,
		"target":     challenge.Target,
	}).Info("duel expired, stake refunded")
}

// ExpireNow forces the wake-up path synchronously; used by tests.
func (m *DuelManager) ExpireNow(target string) {
	m.cancelTimeout(duelKey(target))
	m.wakeup(duelKey(target))
}
