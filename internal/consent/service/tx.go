package service

import (
	"context"
	"time"

	consentstore "familygate/internal/consent/store"
	profilestore "familygate/internal/profile/store"
	dErrors "familygate/pkg/domain-errors"
)

// TxStores is the store bundle visible inside a consent transaction. The
// authority writer and the consent trail share the boundary so an audit
// row never exists without its paired profile mutation, and vice versa.
type TxStores struct {
	Profiles  profilestore.Store
	Authority profilestore.AuthorityWriter
	Consents  consentstore.Store
}

// Tx provides the transactional boundary for consent mutations.
// Implementations may wrap a database transaction or, in-memory, a
// lock plus snapshot/restore.
type Tx interface {
	RunInTx(ctx context.Context, fn func(stores TxStores) error) error
}

// defaultTxTimeout is the maximum duration for a consent transaction.
const defaultTxTimeout = 5 * time.Second

// MemoryTx runs consent transactions against the in-memory stores.
// Rollback is honored by snapshotting both stores before the critical
// section and restoring them on failure. Snapshots cover the whole
// store, so transactions serialize on the profile store's lock; a
// finer-grained lock would let a rollback restore state from before a
// concurrent transaction's commit.
type MemoryTx struct {
	profiles *profilestore.Memory
	consents *consentstore.Memory
	timeout  time.Duration
}

func NewMemoryTx(profiles *profilestore.Memory, consents *consentstore.Memory) *MemoryTx {
	return &MemoryTx{profiles: profiles, consents: consents}
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

	// The profile store's lock is shared by every snapshot/restore
	// runner over it, including the onboarding batch runner.
	t.profiles.BeginTx()
	defer t.profiles.EndTx()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	profileSnap := t.profiles.Snapshot()
	consentSnap := t.consents.Snapshot()

	err := fn(TxStores{Profiles: t.profiles, Authority: t.profiles, Consents: t.consents})
	if err != nil {
		t.profiles.Restore(profileSnap)
		t.consents.Restore(consentSnap)
		return err
	}
	return nil
}
