package utils

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrLimitReached is the business-level outcome of hitting the weekly
// purchase cap. It is distinct from infrastructure failure, which always
// degrades to the optimistic path instead.
var ErrLimitReached = errors.New("weekly purchase limit reached")

// PurchaseCounter is the KV fallback document. WeekStart pins the counter to
// its window; a read against a stale week treats the count as zero.
type PurchaseCounter struct {
	Count     int   `json:"count"`
	WeekStart int64 `json:"week_start"`
	Rev       int64 `json:"rev"`
}

// PurchaseLimiter enforces the weekly per-item cap. When the secondary store
// is configured, increments go through its atomic conditional update and the
// result is mirrored to the KV for fast reads; otherwise the optimistic
// ledger path applies.
type PurchaseLimiter struct {
	L   *Ledger
	DB  *DB
	Cap int
	Now func() time.Time
}

func NewPurchaseLimiter(l *Ledger, db *DB) *PurchaseLimiter {
	return &PurchaseLimiter{L: l, DB: db, Cap: WeeklyPurchaseCap, Now: time.Now}
}

func purchaseKey(account, item string) string {
	return "purchases:" + account + ":" + item
}

// WeekStart returns the most recent Monday 00:00 UTC at or before t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	days := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	monday := t.AddDate(0, 0, -days)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// Increment counts one purchase against the weekly cap. Returns the new
// count, or ErrLimitReached with the cap when the window is exhausted.
func (p *PurchaseLimiter) Increment(ctx context.Context, account, item string) (int, error) {
	week := WeekStart(p.Now())

	if p.DB != nil {
		count, err := p.DB.IncrementIfUnderCap(ctx, account, item, week, p.Cap)
		if err == nil || errors.Is(err, ErrLimitReached) {
			p.mirror(ctx, account, item, count, week)
			return count, err
		}
		p.L.Log.WithFields(logrus.Fields{
			"account": account,
			"item":    item,
			"error":   err,
		}).Warn("conditional purchase increment failed, falling back to optimistic path")
	}

	return p.incrementOptimistic(ctx, account, item, week)
}

// Count reads the counter for the current week; stale weeks read as zero.
func (p *PurchaseLimiter) Count(ctx context.Context, account, item string) int {
	week := WeekStart(p.Now())

	counter := ReadDoc(ctx, p.L, purchaseKey(account, item), emptyCounter)
	if counter.WeekStart != week.Unix() || counter.Count < 0 {
		return 0
	}
	return counter.Count
}

func emptyCounter() PurchaseCounter {
	return PurchaseCounter{}
}

func (p *PurchaseLimiter) incrementOptimistic(ctx context.Context, account, item string, week time.Time) (int, error) {
	var capped bool
	var count int

	AdjustDoc(ctx, p.L, purchaseKey(account, item), emptyCounter,
		func(prev PurchaseCounter) PurchaseCounter {
			if prev.WeekStart != week.Unix() || prev.Count < 0 {
				prev.Count = 0
			}
			next := PurchaseCounter{WeekStart: week.Unix(), Rev: prev.Rev + 1}
			if prev.Count >= p.Cap {
				capped = true
				count = prev.Count
				next.Count = prev.Count
				return next
			}
			capped = false
			count = prev.Count + 1
			next.Count = count
			return next
		},
		func(prev, observed PurchaseCounter) bool { return observed.Rev > prev.Rev },
	)

	if capped {
		return count, ErrLimitReached
	}
	return count, nil
}

// mirror writes the authoritative DB count back to the KV so reads stay on
// the fast path.
func (p *PurchaseLimiter) mirror(ctx context.Context, account, item string, count int, week time.Time) {
	doc := PurchaseCounter{Count: count, WeekStart: week.Unix()}
	if err := WriteDoc(ctx, p.L, purchaseKey(account, item), doc, PutOptions{}); err != nil {
		p.L.Log.WithFields(logrus.Fields{"account": account, "item": item, "error": err}).Warn("failed to mirror purchase counter")
	}
}
