package main

import (
	"context"
	"database/sql"
	"time"

	consentservice "familygate/internal/consent/service"
	consentstore "familygate/internal/consent/store"
	profilestore "familygate/internal/profile/store"
	dErrors "familygate/pkg/domain-errors"
)

const defaultConsentTxTimeout = 5 * time.Second

type consentPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newConsentPostgresTx(db *sql.DB) *consentPostgresTx {
	return &consentPostgresTx{db: db}
}

func (t *consentPostgresTx) RunInTx(ctx context.Context, fn func(stores consentservice.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultConsentTxTimeout
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

	profiles := profilestore.NewPostgresTx(tx)
	if err := fn(consentservice.TxStores{
		Profiles:  profiles,
		Authority: profiles,
		Consents:  consentstore.NewPostgresTx(tx),
	}); err != nil {
		return err
	}

	return tx.Commit()
}
