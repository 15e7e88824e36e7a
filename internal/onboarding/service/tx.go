package service

import (
	"context"
	"time"

	profilestore "familygate/internal/profile/store"
	dErrors "familygate/pkg/domain-errors"
)

// TxStores is the store bundle visible inside an onboarding batch. The
// whole batch commits or none of it does.
type TxStores struct {
	Profiles profilestore.Store
	Accounts profilestore.AccountStore
	Persons  profilestore.PersonStore
}

// Tx provides the transactional boundary for the onboarding batch.
type Tx interface {
	RunInTx(ctx context.Context, fn func(stores TxStores) error) error
}

// defaultTxTimeout is the maximum duration for an onboarding batch.
const defaultTxTimeout = 10 * time.Second

// MemoryTx runs onboarding batches against the in-memory store.
// Snapshot/restore honors rollback so the no-partial-state contract
// stays testable without Postgres. Batches serialize on the store's
// transaction lock, which is shared with the consent runner over the
// same store.
type MemoryTx struct {
	store   *profilestore.Memory
	timeout time.Duration
}

func NewMemoryTx(store *profilestore.Memory) *MemoryTx {
	return &MemoryTx{store: store}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(stores TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.store.BeginTx()
	defer t.store.EndTx()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	snap := t.store.Snapshot()
	if err := fn(TxStores{Profiles: t.store, Accounts: t.store, Persons: t.store}); err != nil {
		t.store.Restore(snap)
		return err
	}
	return nil
}
