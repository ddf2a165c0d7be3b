package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Ledger is the optimistic-concurrency primitive the whole economy mutates
// through. The backing store offers no transactions and only eventual
// consistency, so every write is re-read and verified; on a mismatch the
// whole read-modify-write cycle is retried with exponential backoff. The
// ledger never returns an error to its caller: infrastructure failure
// degrades to the last known safe value so a spin always settles.
type Ledger struct {
	Store       KV
	MaxRetries  int
	BackoffBase time.Duration
	Log         *logrus.Entry
}

func NewLedger(store KV, log *logrus.Entry) *Ledger {
	return &Ledger{
		Store:       store,
		MaxRetries:  LedgerMaxRetries,
		BackoffBase: LedgerBackoffBase,
		Log:         log,
	}
}

// Account is the stored balance document. Rev increases on every write and
// serves as the attempt tag for verifying absolute sets.
type Account struct {
	Balance int64 `json:"balance"`
	Rev     int64 `json:"rev"`
}

func accountKey(id string) string {
	return "account:" + id
}

// ReadDoc fetches and decodes a JSON document, mapping every failure mode
// (store error, missing key, malformed payload) to the type's empty value.
// Errors are logged, never propagated.
func ReadDoc[T any](ctx context.Context, l *Ledger, key string, empty func() T) T {
	data, err := l.Store.Get(ctx, key)
	if err == ErrKeyMiss {
		return empty()
	}
	if err != nil {
		l.Log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("store read failed, using default")
		return empty()
	}

	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		l.Log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("malformed stored state, using default")
		return empty()
	}
	return doc
}

// WriteDoc encodes and stores a JSON document.
func WriteDoc[T any](ctx context.Context, l *Ledger, key string, doc T, opts PutOptions) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return l.Store.Put(ctx, key, data, opts)
}

// AdjustDoc is the generic read-modify-write-verify cycle. transform must be
// pure: on retry it is re-applied to a fresh read, so a failed write can
// never double-apply a delta. verify compares the pre-read document with the
// post-write observation; a nil verify accepts any outcome. On retry
// exhaustion the last observed value is returned and play continues.
func AdjustDoc[T any](ctx context.Context, l *Ledger, key string, empty func() T, transform func(prev T) T, verify func(prev, observed T) bool) T {
	var observed T
	for attempt := 0; ; attempt++ {
		prev := ReadDoc(ctx, l, key, empty)
		next := transform(prev)

		if err := WriteDoc(ctx, l, key, next, PutOptions{}); err != nil {
			l.Log.WithFields(logrus.Fields{"key": key, "attempt": attempt, "error": err}).Warn("ledger write failed")
		}

		observed = ReadDoc(ctx, l, key, empty)
		if verify == nil || verify(prev, observed) {
			return observed
		}

		if attempt >= l.MaxRetries {
			l.Log.WithFields(logrus.Fields{"key": key, "attempts": attempt + 1}).Error("ledger verification exhausted retries")
			return observed
		}
		l.sleep(ctx, attempt)
	}
}

// sleep waits for BackoffBase * 2^attempt or until the context ends.
func (l *Ledger) sleep(ctx context.Context, attempt int) {
	delay := l.BackoffBase << uint(attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func emptyAccount() Account {
	return Account{Balance: StartingChips}
}

// Balance reads an account, creating it with the starting balance on first
// sight. Bank reads get a zero account instead.
func (l *Ledger) Balance(ctx context.Context, id string) int64 {
	key := accountKey(id)
	empty := l.emptyFor(id)

	if _, err := l.Store.Get(ctx, key); err == ErrKeyMiss && id != BankAccountID {
		seed := empty()
		if err := WriteDoc(ctx, l, key, seed, PutOptions{}); err != nil {
			l.Log.WithFields(logrus.Fields{"account": id, "error": err}).Warn("failed to seed new account")
		}
		return seed.Balance
	}
	return ReadDoc(ctx, l, key, empty).Balance
}

// AdjustBalance applies a delta to a player account, clamped to
// [0, MaxBalance]. Verification checks the stored value moved in the delta's
// direction relative to the pre-read. Returns the resulting balance.
func (l *Ledger) AdjustBalance(ctx context.Context, id string, delta int64) int64 {
	return l.adjustAccount(ctx, id, delta, true)
}

// AdjustBank applies a delta to the bank mirror account, which is allowed to
// go negative.
func (l *Ledger) AdjustBank(ctx context.Context, delta int64) int64 {
	return l.adjustAccount(ctx, BankAccountID, delta, false)
}

func (l *Ledger) adjustAccount(ctx context.Context, id string, delta int64, clamp bool) int64 {
	result := AdjustDoc(ctx, l, accountKey(id), l.emptyFor(id),
		func(prev Account) Account {
			next := prev.Balance + delta
			if clamp {
				next = clampBalance(next)
			}
			return Account{Balance: next, Rev: prev.Rev + 1}
		},
		func(prev, observed Account) bool {
			expected := prev.Balance + delta
			if clamp {
				expected = clampBalance(expected)
			}
			if expected == prev.Balance {
				return observed.Balance == expected
			}
			moved := observed.Balance - prev.Balance
			want := expected - prev.Balance
			return observed.Balance == expected || (moved > 0) == (want > 0) && moved != 0
		},
	)
	return result.Balance
}

func (l *Ledger) emptyFor(id string) func() Account {
	if id == BankAccountID {
		return func() Account { return Account{} }
	}
	return emptyAccount
}

func clampBalance(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > MaxBalance {
		return MaxBalance
	}
	return v
}
