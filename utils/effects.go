package utils

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// EffectKind tags the variant of an active effect.
type EffectKind string

const (
	// EffectTimed runs until an absolute expiry.
	EffectTimed EffectKind = "timed"
	// EffectLimitedUses has an expiry and a remaining-uses counter.
	EffectLimitedUses EffectKind = "uses"
	// EffectStacking accumulates a capped stack level until expiry.
	EffectStacking EffectKind = "stacking"
	// EffectOneShot is a present-or-absent token consumed by one spin.
	EffectOneShot EffectKind = "oneshot"
)

// Well-known effect ids.
const (
	EffectLuckyCharm  = "lucky_charm"  // stacking special-symbol chance boost
	EffectPairToken   = "pair_token"   // one-shot guaranteed middle-row pair
	EffectWildToken   = "wild_token"   // one-shot wild cell
	EffectDoubleToken = "double_token" // one-shot win doubler
	EffectSymbolBoost = "symbol_boost" // one-shot x2 when its symbol wins
	EffectFortune     = "fortune"      // timed +30% on wins
	EffectHighRoller  = "high_roller"  // timed x2 above the points floor
	EffectAffinity    = "affinity"     // limited-uses symbol re-roll bias
)

const (
	StackChancePerLevel = 0.04
	MaxStackLevel       = 5
	AffinityRerollOdds  = 0.30
)

// ActiveEffect is one temporary or consumable modifier on an account,
// keyed by (account, ID). The Kind decides which fields are meaningful.
type ActiveEffect struct {
	ID         string     `json:"id"`
	Kind       EffectKind `json:"kind"`
	ExpiresAt  time.Time  `json:"expires_at,omitempty"`
	UsesLeft   int        `json:"uses_left,omitempty"`
	StackLevel int        `json:"stack_level,omitempty"`
	Symbol     string     `json:"symbol,omitempty"`
	Rev        int64      `json:"rev"`
}

// Expired reports whether the effect has passed its expiry. One-shot tokens
// have no expiry and never expire passively.
func (e ActiveEffect) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// SpecialChanceBoost is the probability contribution of a stacking effect.
func (e ActiveEffect) SpecialChanceBoost() float64 {
	if e.Kind != EffectStacking {
		return 0
	}
	return float64(e.StackLevel) * StackChancePerLevel
}

// EffectStore persists active effects in the KV ledger, one key per
// (account, effect id).
type EffectStore struct {
	L *Ledger
}

func NewEffectStore(l *Ledger) *EffectStore {
	return &EffectStore{L: l}
}

func effectKey(account, id string) string {
	return "effect:" + account + ":" + id
}

func effectPrefix(account string) string {
	return "effect:" + account + ":"
}

// Grant stores an effect for an account. Stacking grants merge into the
// existing stack, bumping the level up to the cap and extending the expiry.
// The TTL doubles as passive cleanup for timed variants.
func (s *EffectStore) Grant(ctx context.Context, account string, effect ActiveEffect) {
	key := effectKey(account, effect.ID)

	if effect.Kind == EffectStacking {
		AdjustDoc(ctx, s.L, key,
			func() ActiveEffect { return ActiveEffect{ID: effect.ID, Kind: EffectStacking, Symbol: effect.Symbol} },
			func(prev ActiveEffect) ActiveEffect {
				level := prev.StackLevel + 1
				if level > MaxStackLevel {
					level = MaxStackLevel
				}
				next := effect
				next.StackLevel = level
				next.Rev = prev.Rev + 1
				return next
			},
			func(prev, observed ActiveEffect) bool { return observed.Rev > prev.Rev },
		)
		return
	}

	opts := PutOptions{}
	if !effect.ExpiresAt.IsZero() {
		opts.TTL = time.Until(effect.ExpiresAt)
	}
	if err := WriteDoc(ctx, s.L, key, effect, opts); err != nil {
		s.L.Log.WithFields(logrus.Fields{"account": account, "effect": effect.ID, "error": err}).Warn("failed to grant effect")
	}
}

// Active returns every unexpired effect on the account, keyed by effect id.
// Store failures and malformed entries degrade to "no effect", logged.
func (s *EffectStore) Active(ctx context.Context, account string) map[string]ActiveEffect {
	effects := make(map[string]ActiveEffect)

	keys, err := s.L.Store.List(ctx, effectPrefix(account))
	if err != nil {
		s.L.Log.WithFields(logrus.Fields{"account": account, "error": err}).Warn("failed to list effects")
		return effects
	}

	now := time.Now()
	for _, key := range keys {
		effect := ReadDoc(ctx, s.L, key, func() ActiveEffect { return ActiveEffect{} })
		if effect.ID == "" || effect.Expired(now) {
			continue
		}
		if effect.Kind == EffectLimitedUses && effect.UsesLeft <= 0 {
			continue
		}
		effects[effect.ID] = effect
	}
	return effects
}

// Consume spends one unit of an effect: one-shot tokens are deleted,
// limited-uses effects are decremented and removed at zero. Deletion is
// idempotent, so a retried settlement cannot double-consume.
func (s *EffectStore) Consume(ctx context.Context, account, id string) {
	key := effectKey(account, id)
	effect := ReadDoc(ctx, s.L, key, func() ActiveEffect { return ActiveEffect{} })
	if effect.ID == "" {
		return
	}

	if effect.Kind == EffectLimitedUses && effect.UsesLeft > 1 {
		AdjustDoc(ctx, s.L, key,
			func() ActiveEffect { return ActiveEffect{} },
			func(prev ActiveEffect) ActiveEffect {
				next := prev
				next.UsesLeft--
				next.Rev = prev.Rev + 1
				return next
			},
			func(prev, observed ActiveEffect) bool { return observed.UsesLeft < prev.UsesLeft },
		)
		return
	}

	if err := s.L.Store.Delete(ctx, key); err != nil {
		s.L.Log.WithFields(logrus.Fields{"account": account, "effect": id, "error": err}).Warn("failed to consume effect")
	}
}
