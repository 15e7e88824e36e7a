package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	consentstore "familygate/internal/consent/store"
	profilemodels "familygate/internal/profile/models"
	profilestore "familygate/internal/profile/store"
	"familygate/pkg/domain"
	dErrors "familygate/pkg/domain-errors"
)

func seedParentProfile(t *testing.T, profiles *profilestore.Memory, accountID domain.AccountID) domain.ProfileID {
	t.Helper()
	personID := domain.PersonID(uuid.New())
	profiles.SeedPerson(&profilemodels.PersonRecord{ID: personID, Email: "family@example.com", FirstName: "Pat"})
	profileID := domain.NewProfileID()
	require.NoError(t, profiles.Create(context.Background(), &profilemodels.Profile{
		ID: profileID, AccountID: accountID, PersonRecordID: personID,
		Relationship: profilemodels.RelationshipParent,
		AccessLevel:  profilemodels.AccessFull, Status: profilemodels.ProfileActive,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))
	return profileID
}

// A failing transaction's restore must never erase a concurrent
// transaction's committed write. Transactions serialize on the store
// lock, so the commit lands either entirely before the failing
// snapshot or entirely after its restore.
func TestMemoryTx_RollbackDoesNotEraseConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	profiles := profilestore.NewMemory()
	consents := consentstore.NewMemory()
	tx := NewMemoryTx(profiles, consents)

	accountID := domain.AccountID(uuid.New())
	profiles.SeedAccount(&profilemodels.Account{
		ID: accountID, Status: profilemodels.AccountActive,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	target := seedParentProfile(t, profiles, accountID)
	other := seedParentProfile(t, profiles, accountID)

	entered := make(chan struct{})
	release := make(chan struct{})
	failed := make(chan error, 1)
	go func() {
		failed <- tx.RunInTx(ctx, func(stores TxStores) error {
			close(entered)
			<-release
			if err := stores.Authority.SetConsentState(ctx, other, profilemodels.ConsentState{
				Status:      profilemodels.ProfilePendingConsent,
				AccessLevel: profilemodels.AccessBlocked,
			}); err != nil {
				return err
			}
			return dErrors.New(dErrors.CodeInternal, "forced failure")
		})
	}()
	<-entered

	committed := make(chan error, 1)
	go func() {
		committed <- tx.RunInTx(ctx, func(stores TxStores) error {
			return stores.Authority.SetConsentState(ctx, target, profilemodels.ConsentState{
				Status:          profilemodels.ProfileActive,
				AccessLevel:     profilemodels.AccessSupervised,
				RequiresConsent: true,
				ConsentGiven:    true,
			})
		})
	}()

	// Give the committing transaction time to race the open one.
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.Error(t, <-failed)
	require.NoError(t, <-committed)

	// The commit survived the rollback and the rollback still took
	// effect on its own rows.
	view, err := profiles.Find(ctx, accountID, target)
	require.NoError(t, err)
	assert.Equal(t, profilemodels.AccessSupervised, view.AccessLevel)
	assert.Equal(t, profilemodels.ProfileActive, view.Status)

	view, err = profiles.Find(ctx, accountID, other)
	require.NoError(t, err)
	assert.Equal(t, profilemodels.AccessFull, view.AccessLevel)
}

func TestMemoryTx_RestoresOnError(t *testing.T) {
	ctx := context.Background()
	profiles := profilestore.NewMemory()
	consents := consentstore.NewMemory()
	tx := NewMemoryTx(profiles, consents)

	accountID := domain.AccountID(uuid.New())
	profiles.SeedAccount(&profilemodels.Account{
		ID: accountID, Status: profilemodels.AccountActive,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	target := seedParentProfile(t, profiles, accountID)

	err := tx.RunInTx(ctx, func(stores TxStores) error {
		if err := stores.Authority.SetConsentState(ctx, target, profilemodels.ConsentState{
			Status:      profilemodels.ProfilePendingConsent,
			AccessLevel: profilemodels.AccessBlocked,
		}); err != nil {
			return err
		}
		return dErrors.New(dErrors.CodeInternal, "forced failure")
	})
	require.Error(t, err)

	view, err := profiles.Find(ctx, accountID, target)
	require.NoError(t, err)
	assert.Equal(t, profilemodels.AccessFull, view.AccessLevel)
	assert.Equal(t, profilemodels.ProfileActive, view.Status)
}
