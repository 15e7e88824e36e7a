package main

import (
	"context"
	"database/sql"
	"time"

	onboardingservice "familygate/internal/onboarding/service"
	profilestore "familygate/internal/profile/store"
	dErrors "familygate/pkg/domain-errors"
)

const defaultOnboardingTxTimeout = 10 * time.Second

type onboardingPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newOnboardingPostgresTx(db *sql.DB) *onboardingPostgresTx {
	return &onboardingPostgresTx{db: db}
}

func (t *onboardingPostgresTx) RunInTx(ctx context.Context, fn func(stores onboardingservice.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultOnboardingTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	store := profilestore.NewPostgresTx(tx)
	if err := fn(onboardingservice.TxStores{
		Profiles: store,
		Accounts: store,
		Persons:  store,
	}); err != nil {
		return err
	}

	return tx.Commit()
}
